package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LineKind tags the variant held by a LedgerLine
type LineKind string

const (
	KindProduct LineKind = "product"
	KindPayment LineKind = "payment"
)

// Valid reports whether k is one of the known kinds.
func (k LineKind) Valid() bool {
	return k == KindProduct || k == KindPayment
}

const tempIDPrefix = "temp-"

var ErrInvalidLineID = errors.New("invalid line id")

type idKind uint8

const (
	idUnset idKind = iota
	idTemporary
	idPersisted
)

// LineID identifies a ledger line. A line is either temporary (only known to
// the current edit session) or persisted (storage-assigned). The zero value is
// neither.
type LineID struct {
	kind idKind
	n    int64
}

// TemporaryID returns the session-local id rendered as "temp-<n>".
func TemporaryID(n int64) LineID {
	return LineID{kind: idTemporary, n: n}
}

// PersistedID returns the id assigned by storage.
func PersistedID(id int64) LineID {
	return LineID{kind: idPersisted, n: id}
}

func (id LineID) IsZero() bool      { return id.kind == idUnset }
func (id LineID) IsTemporary() bool { return id.kind == idTemporary }
func (id LineID) IsPersisted() bool { return id.kind == idPersisted }

// Persisted returns the storage id and true when id is persisted.
func (id LineID) Persisted() (int64, bool) {
	return id.n, id.kind == idPersisted
}

// Temporary returns the session counter value and true when id is temporary.
func (id LineID) Temporary() (int64, bool) {
	return id.n, id.kind == idTemporary
}

func (id LineID) String() string {
	switch id.kind {
	case idTemporary:
		return tempIDPrefix + strconv.FormatInt(id.n, 10)
	case idPersisted:
		return strconv.FormatInt(id.n, 10)
	default:
		return ""
	}
}

// ParseLineID accepts "temp-<n>" and plain positive integers.
func ParseLineID(s string) (LineID, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, tempIDPrefix); ok {
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || n < 0 {
			return LineID{}, fmt.Errorf("%w: %q", ErrInvalidLineID, s)
		}
		return TemporaryID(n), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return LineID{}, fmt.Errorf("%w: %q", ErrInvalidLineID, s)
	}
	return PersistedID(n), nil
}

// MarshalJSON writes persisted ids as numbers and temporary ids as strings.
func (id LineID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idPersisted:
		return []byte(strconv.FormatInt(id.n, 10)), nil
	case idTemporary:
		return json.Marshal(id.String())
	default:
		return []byte("null"), nil
	}
}

func (id *LineID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = LineID{}
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	parsed, err := ParseLineID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ProductLine is an invoice entry. Numeric fields are decimal strings exactly
// as they cross the storage boundary; empty means "not entered".
type ProductLine struct {
	Name       string `json:"name"`
	NetPrice   string `json:"net_price"`
	Amount     string `json:"amount"`
	Discount   string `json:"discount"`
	Tax        string `json:"tax"`         // percent
	Price      string `json:"price"`       // unit gross
	TotalPrice string `json:"total_price"` // price x amount
}

// PaymentLine is money received against the book.
type PaymentLine struct {
	Name       string `json:"name"`
	Payment    string `json:"payment"`
	OldDebt    string `json:"old_debt"`
	OldBalance string `json:"old_balance"`
}

// LedgerLine is the tagged union of ProductLine and PaymentLine. Exactly one
// of Product and Payment is set, matching Kind.
type LedgerLine struct {
	ID            LineID       `json:"id"`
	Kind          LineKind     `json:"kind"`
	AccountBookID int64        `json:"account_book_id"`
	Date          time.Time    `json:"date"`
	Product       *ProductLine `json:"product,omitempty"`
	Payment       *PaymentLine `json:"payment,omitempty"`
}

func NewProductLine(id LineID, bookID int64, date time.Time, p ProductLine) LedgerLine {
	return LedgerLine{ID: id, Kind: KindProduct, AccountBookID: bookID, Date: date, Product: &p}
}

func NewPaymentLine(id LineID, bookID int64, date time.Time, p PaymentLine) LedgerLine {
	return LedgerLine{ID: id, Kind: KindPayment, AccountBookID: bookID, Date: date, Payment: &p}
}

// Clone returns a deep copy so callers can mutate variants freely.
func (l LedgerLine) Clone() LedgerLine {
	out := l
	if l.Product != nil {
		p := *l.Product
		out.Product = &p
	}
	if l.Payment != nil {
		p := *l.Payment
		out.Payment = &p
	}
	return out
}

// Validate checks the union invariant.
func (l LedgerLine) Validate() error {
	switch l.Kind {
	case KindProduct:
		if l.Product == nil || l.Payment != nil {
			return fmt.Errorf("line %s: product variant mismatch", l.ID)
		}
	case KindPayment:
		if l.Payment == nil || l.Product != nil {
			return fmt.Errorf("line %s: payment variant mismatch", l.ID)
		}
	default:
		return fmt.Errorf("line %s: unknown kind %q", l.ID, l.Kind)
	}
	return nil
}

// CloneLines deep-copies a slice of lines.
func CloneLines(lines []LedgerLine) []LedgerLine {
	if lines == nil {
		return nil
	}
	out := make([]LedgerLine, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}
