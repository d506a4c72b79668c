package ledger

import (
	"fmt"
	"time"

	"github.com/accountbook/backend/internal/models"
)

// Session is the in-memory ledger of one account book being edited. It owns
// the temporary id counter; nothing about it is global.
type Session struct {
	BookID   int64               `json:"book_id"`
	Counter  int64               `json:"counter"`
	Lines    []models.LedgerLine `json:"lines"`
	Defaults LineDefaults        `json:"defaults"`
}

// NewSession wraps a loaded ledger. The counter starts above every temporary
// id already present, so the placeholder keeps temp-0.
func NewSession(bookID int64, lines []models.LedgerLine, defaults LineDefaults) *Session {
	s := &Session{BookID: bookID, Defaults: defaults}
	s.Reset(lines)
	return s
}

// Reset replaces the lines after a reload. The counter never goes backwards.
func (s *Session) Reset(lines []models.LedgerLine) {
	s.Lines = models.CloneLines(lines)
	for _, l := range s.Lines {
		if n, ok := l.ID.Temporary(); ok && n > s.Counter {
			s.Counter = n
		}
	}
}

func (s *Session) nextID() models.LineID {
	s.Counter++
	return models.TemporaryID(s.Counter)
}

func (s *Session) index(id models.LineID) int {
	for i := range s.Lines {
		if s.Lines[i].ID == id {
			return i
		}
	}
	return -1
}

// Line returns a copy of the line with the given id.
func (s *Session) Line(id models.LineID) (models.LedgerLine, bool) {
	i := s.index(id)
	if i < 0 {
		return models.LedgerLine{}, false
	}
	return s.Lines[i].Clone(), true
}

// TemporaryCount is the number of unsaved rows.
func (s *Session) TemporaryCount() int {
	n := 0
	for _, l := range s.Lines {
		if l.ID.IsTemporary() {
			n++
		}
	}
	return n
}

// AddLine offers an empty row of the requested kind. An empty temporary row
// of the other kind is converted in place; an empty temporary row of the same
// kind is returned as is. Only when neither exists is a new row appended, so
// at most one empty temporary row is ever present. added reports whether the
// line set changed.
func (s *Session) AddLine(kind models.LineKind, now time.Time) (models.LineID, bool, error) {
	if !kind.Valid() {
		return models.LineID{}, false, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	for i := range s.Lines {
		l := s.Lines[i]
		if !l.ID.IsTemporary() || l.Kind == kind || !IsEmpty(l) {
			continue
		}
		s.Lines[i] = s.emptyLine(kind, l.ID, now)
		return l.ID, true, nil
	}

	for _, l := range s.Lines {
		if l.ID.IsTemporary() && l.Kind == kind && IsEmpty(l) {
			return l.ID, false, nil
		}
	}

	id := s.nextID()
	s.Lines = append(s.Lines, s.emptyLine(kind, id, now))
	return id, true, nil
}

func (s *Session) emptyLine(kind models.LineKind, id models.LineID, now time.Time) models.LedgerLine {
	if kind == models.KindPayment {
		return newTemporaryPayment(id, s.BookID, now)
	}
	return newTemporaryProduct(id, s.BookID, now, s.Defaults)
}

// LinePatch carries edited fields; nil means unchanged. Fields that do not
// belong to the line's kind are ignored.
type LinePatch struct {
	Name     *string    `json:"name,omitempty"`
	NetPrice *string    `json:"net_price,omitempty"`
	Amount   *string    `json:"amount,omitempty"`
	Discount *string    `json:"discount,omitempty"`
	Tax      *string    `json:"tax,omitempty"`
	Price    *string    `json:"price,omitempty"`
	Payment  *string    `json:"payment,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
}

// UpdateLine applies a patch the way the entry form does: editing the gross
// price back-computes the net price, editing net price, discount or tax
// recomputes the gross price. The total is refreshed afterwards. A date
// change moves the line to its place in ledger order.
func (s *Session) UpdateLine(id models.LineID, patch LinePatch) (models.LedgerLine, error) {
	i := s.index(id)
	if i < 0 {
		return models.LedgerLine{}, fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	line := &s.Lines[i]
	if patch.Date != nil {
		line.Date = *patch.Date
	}

	switch line.Kind {
	case models.KindProduct:
		p := line.Product
		if p == nil {
			p = &models.ProductLine{}
			line.Product = p
		}
		setIf(&p.Name, patch.Name)
		setIf(&p.Amount, patch.Amount)
		setIf(&p.NetPrice, patch.NetPrice)
		setIf(&p.Discount, patch.Discount)
		setIf(&p.Tax, patch.Tax)
		switch {
		case patch.Price != nil && patch.NetPrice == nil:
			p.Price = *patch.Price
			RecomputeNetPrice(p)
		case patch.NetPrice != nil || patch.Discount != nil || patch.Tax != nil:
			RecomputePrice(p)
		case patch.Price != nil:
			p.Price = *patch.Price
		}
		PrepareProduct(p)

	case models.KindPayment:
		p := line.Payment
		if p == nil {
			p = &models.PaymentLine{}
			line.Payment = p
		}
		setIf(&p.Name, patch.Name)
		setIf(&p.Payment, patch.Payment)
	}

	updated := line.Clone()
	if patch.Date != nil {
		Order(s.Lines)
	}
	return updated, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// RemoveLine drops a line from the session and returns it.
func (s *Session) RemoveLine(id models.LineID) (models.LedgerLine, error) {
	i := s.index(id)
	if i < 0 {
		return models.LedgerLine{}, fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	removed := s.Lines[i]
	s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
	return removed, nil
}

// Totals runs the totals engine over the session lines.
func (s *Session) Totals() Totals {
	return CalculateTotals(s.Lines)
}
