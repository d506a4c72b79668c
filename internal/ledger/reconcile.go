package ledger

import (
	"time"

	"github.com/accountbook/backend/internal/models"
)

// Action is what a save does with one line.
type Action int

const (
	ActionSkip Action = iota
	ActionInsert
	ActionUpdate
	ActionDiscard
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// IsEmpty reports whether a line carries no user input: a product without
// name and net price, or a payment without name and amount.
func IsEmpty(line models.LedgerLine) bool {
	switch line.Kind {
	case models.KindProduct:
		return line.Product == nil || (isBlank(line.Product.Name) && isZeroish(line.Product.NetPrice))
	case models.KindPayment:
		return line.Payment == nil || (isBlank(line.Payment.Name) && isZeroish(line.Payment.Payment))
	}
	return true
}

// Changed compares the persisted-relevant fields of two lines of the same
// kind. Numeric fields are compared by value, dates at the microsecond
// precision Postgres keeps.
func Changed(current, stored models.LedgerLine) bool {
	if current.Kind != stored.Kind {
		return true
	}
	if current.AccountBookID != stored.AccountBookID {
		return true
	}
	if !sameDate(current.Date, stored.Date) {
		return true
	}
	switch current.Kind {
	case models.KindProduct:
		a, b := current.Product, stored.Product
		if a == nil || b == nil {
			return a != b
		}
		return a.Name != b.Name ||
			!sameAmount(a.Amount, b.Amount) ||
			!sameAmount(a.Discount, b.Discount) ||
			!sameAmount(a.NetPrice, b.NetPrice) ||
			!sameAmount(a.Price, b.Price) ||
			!sameAmount(a.Tax, b.Tax) ||
			!sameAmount(a.TotalPrice, b.TotalPrice)
	case models.KindPayment:
		a, b := current.Payment, stored.Payment
		if a == nil || b == nil {
			return a != b
		}
		return a.Name != b.Name ||
			!sameAmount(a.Payment, b.Payment) ||
			!sameAmount(a.OldDebt, b.OldDebt)
	}
	return true
}

// Plan decides the action for one line. stored and fetchErr are the result
// of reading the persisted version and are ignored for temporary lines. A
// failed read falls through to a write.
func Plan(line models.LedgerLine, stored *models.LedgerLine, fetchErr error) Action {
	if line.ID.IsTemporary() {
		if IsEmpty(line) {
			return ActionDiscard
		}
		return ActionInsert
	}
	if fetchErr != nil || stored == nil {
		return ActionUpdate
	}
	if Changed(line, *stored) {
		return ActionUpdate
	}
	return ActionSkip
}

func sameDate(a, b time.Time) bool {
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}
