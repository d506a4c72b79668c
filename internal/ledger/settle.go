package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/accountbook/backend/internal/models"
)

// Settlement is the account book aggregate derived from a ledger.
type Settlement struct {
	Totals      Totals
	Debt        decimal.Decimal
	Balance     decimal.Decimal
	HasPayments bool
}

// Settle derives the book aggregate. Balance is the resulting balance of the
// last payment in ledger order; when there is none HasPayments is false and
// the caller keeps the stored balance.
func Settle(lines []models.LedgerLine) Settlement {
	totals := CalculateTotals(lines)
	s := Settlement{
		Totals:  totals,
		Debt:    totals.Debt(),
		Balance: decimal.Zero,
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Kind != models.KindPayment || lines[i].Payment == nil {
			continue
		}
		if pb, ok := totals.PaymentBalance[lines[i].ID.String()]; ok {
			s.Balance = pb.Balance
			s.HasPayments = true
		}
		break
	}
	return s
}

// BookBalance returns the balance to persist given the stored one.
func (s Settlement) BookBalance(stored decimal.Decimal) decimal.Decimal {
	if !s.HasPayments {
		return stored
	}
	return s.Balance
}

// Recombine adds this book's fresh aggregate to the sum of the account's
// other books.
func (s Settlement) Recombine(others models.Aggregate, bookBalance decimal.Decimal) models.Aggregate {
	return models.Aggregate{
		Debt:    others.Debt.Add(s.Debt),
		Balance: others.Balance.Add(bookBalance),
	}
}

// RefreshRunningBalances rewrites every payment's OldDebt and OldBalance from
// the current line set. OldBalance is the balance left by the previous
// payment, zero for the first one. Lines are modified in place.
func RefreshRunningBalances(lines []models.LedgerLine) {
	totals := CalculateTotals(lines)
	previous := decimal.Zero
	for i := range lines {
		if lines[i].Kind != models.KindPayment || lines[i].Payment == nil {
			continue
		}
		pb, ok := totals.PaymentBalance[lines[i].ID.String()]
		if !ok {
			continue
		}
		lines[i].Payment.OldDebt = FormatMoney(pb.OldDebt)
		lines[i].Payment.OldBalance = FormatMoney(previous)
		previous = pb.Balance
	}
}

// PrepareLines puts a copy of lines into ledger order and recomputes derived
// product fields and running balances, ready to be compared and written.
func PrepareLines(lines []models.LedgerLine) []models.LedgerLine {
	out := models.CloneLines(lines)
	Order(out)
	for i := range out {
		if out[i].Kind == models.KindProduct && out[i].Product != nil {
			PrepareProduct(out[i].Product)
		}
	}
	RefreshRunningBalances(out)
	return out
}

// DeletionEffect is the aggregate after removing one persisted line:
// a product takes its total price off the debt, a payment gives its amount
// back to the balance.
func DeletionEffect(book models.AccountBook, line models.LedgerLine) models.Aggregate {
	agg := models.Aggregate{Debt: book.Debt, Balance: book.Balance}
	switch line.Kind {
	case models.KindProduct:
		if line.Product != nil {
			total := ParseAmount(line.Product.TotalPrice)
			if isBlank(line.Product.TotalPrice) {
				total = LineTotal(ParseAmount(line.Product.Price), ParseAmount(line.Product.Amount))
			}
			agg.Debt = agg.Debt.Sub(total)
		}
	case models.KindPayment:
		if line.Payment != nil {
			agg.Balance = agg.Balance.Add(ParseAmount(line.Payment.Payment))
		}
	}
	return agg
}
