package ledger

import (
	"sort"
	"time"

	"github.com/accountbook/backend/internal/models"
)

// PlaceholderID is reserved for the always-present empty entry row.
var PlaceholderID = models.TemporaryID(0)

// LineDefaults are the field values a fresh temporary row starts with.
type LineDefaults struct {
	Tax      string `json:"tax"`
	Amount   string `json:"amount"`
	Discount string `json:"discount"`
}

// DefaultLineDefaults mirrors the entry form: 20% tax, amount 1, no discount.
func DefaultLineDefaults() LineDefaults {
	return LineDefaults{Tax: "20", Amount: "1", Discount: "0"}
}

func newTemporaryProduct(id models.LineID, bookID int64, now time.Time, d LineDefaults) models.LedgerLine {
	return models.NewProductLine(id, bookID, now, models.ProductLine{
		Amount:   d.Amount,
		Discount: d.Discount,
		Tax:      d.Tax,
	})
}

func newTemporaryPayment(id models.LineID, bookID int64, now time.Time) models.LedgerLine {
	return models.NewPaymentLine(id, bookID, now, models.PaymentLine{})
}

// Placeholder builds the empty product row appended to every loaded ledger.
func Placeholder(bookID int64, now time.Time, d LineDefaults) models.LedgerLine {
	return newTemporaryProduct(PlaceholderID, bookID, now, d)
}

// Merge concatenates products then payments and stable-sorts by date, so
// lines with equal dates keep their retrieval order.
func Merge(products, payments []models.LedgerLine) []models.LedgerLine {
	merged := make([]models.LedgerLine, 0, len(products)+len(payments))
	merged = append(merged, products...)
	merged = append(merged, payments...)
	Order(merged)
	return merged
}

// Order sorts lines in place into ledger order: by date, products ahead of
// payments on the same date, otherwise keeping the current order. It yields
// the same sequence Merge builds from storage.
func Order(lines []models.LedgerLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Kind == models.KindProduct && b.Kind == models.KindPayment
	})
}
