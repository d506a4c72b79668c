package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/accountbook/backend/internal/models"
)

// PaymentBalance is the running position at one payment line.
type PaymentBalance struct {
	OldDebt decimal.Decimal `json:"old_debt"`
	Balance decimal.Decimal `json:"balance"`
}

// Totals aggregates a ledger. PaymentBalance is keyed by LineID.String().
type Totals struct {
	TotalNet       decimal.Decimal           `json:"total_net"`
	TotalDiscount  decimal.Decimal           `json:"total_discount"`
	TotalTax       decimal.Decimal           `json:"total_tax"`
	TotalGross     decimal.Decimal           `json:"total_gross"`
	TotalPayment   decimal.Decimal           `json:"total_payment"`
	PaymentBalance map[string]PaymentBalance `json:"payment_balance"`
}

// Debt is what the book is owed after all payments.
func (t Totals) Debt() decimal.Decimal {
	return t.TotalGross.Sub(t.TotalPayment)
}

// CalculateTotals walks lines in order. A payment's OldDebt is the gross of
// every product line seen before it; its Balance is OldDebt minus the
// payment. Lines with a missing variant contribute nothing.
func CalculateTotals(lines []models.LedgerLine) Totals {
	t := Totals{
		TotalNet:       decimal.Zero,
		TotalDiscount:  decimal.Zero,
		TotalTax:       decimal.Zero,
		TotalGross:     decimal.Zero,
		TotalPayment:   decimal.Zero,
		PaymentBalance: make(map[string]PaymentBalance),
	}

	for _, line := range lines {
		switch line.Kind {
		case models.KindProduct:
			if line.Product == nil {
				continue
			}
			p := line.Product
			netPrice := ParseAmount(p.NetPrice)
			amount := ParseAmount(p.Amount)
			discount := ParseAmount(p.Discount)
			taxRate := ParseAmount(p.Tax)
			price := ParseAmount(p.Price)

			t.TotalNet = t.TotalNet.Add(netPrice.Mul(amount))
			t.TotalDiscount = t.TotalDiscount.Add(discount.Mul(amount))
			t.TotalTax = t.TotalTax.Add(price.Sub(discount).Mul(taxRate.Div(hundred)).Mul(amount))
			t.TotalGross = t.TotalGross.Add(price.Mul(amount))

		case models.KindPayment:
			if line.Payment == nil {
				continue
			}
			payment := ParseAmount(line.Payment.Payment)
			t.TotalPayment = t.TotalPayment.Add(payment)
			t.PaymentBalance[line.ID.String()] = PaymentBalance{
				OldDebt: t.TotalGross,
				Balance: t.TotalGross.Sub(payment),
			}
		}
	}

	return t
}
