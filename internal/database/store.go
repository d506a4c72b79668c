package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/accountbook/backend/internal/ledger"
	"github.com/accountbook/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the row-level persistence used by the ledger engine. It runs on
// whatever DBTX it was given, so the same code serves plain reads and
// transactional saves.
type Store struct {
	db DBTX
}

func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const productColumns = `id, name, account_book_id, net_price, amount, discount, tax, price, total_price, date`

const paymentColumns = `id, COALESCE(name, ''), payment, old_debt, old_balance, account_book_id, date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.LedgerLine, error) {
	var (
		id, bookID int64
		p          models.ProductLine
		date       time.Time
	)
	if err := row.Scan(&id, &p.Name, &bookID, &p.NetPrice, &p.Amount, &p.Discount, &p.Tax, &p.Price, &p.TotalPrice, &date); err != nil {
		return models.LedgerLine{}, err
	}
	return models.NewProductLine(models.PersistedID(id), bookID, date, p), nil
}

func scanPayment(row rowScanner) (models.LedgerLine, error) {
	var (
		id, bookID int64
		p          models.PaymentLine
		date       time.Time
	)
	if err := row.Scan(&id, &p.Name, &p.Payment, &p.OldDebt, &p.OldBalance, &bookID, &date); err != nil {
		return models.LedgerLine{}, err
	}
	return models.NewPaymentLine(models.PersistedID(id), bookID, date, p), nil
}

func (s *Store) listLines(ctx context.Context, query string, bookID int64, scan func(rowScanner) (models.LedgerLine, error)) ([]models.LedgerLine, error) {
	rows, err := s.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.LedgerLine{}
	for rows.Next() {
		line, err := scan(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListProductLines returns the book's product lines in insertion order.
func (s *Store) ListProductLines(ctx context.Context, bookID int64) ([]models.LedgerLine, error) {
	lines, err := s.listLines(ctx, `SELECT `+productColumns+` FROM account_line WHERE account_book_id = $1 ORDER BY id`, bookID, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("database: list product lines of book %d: %w", bookID, err)
	}
	return lines, nil
}

// ListPaymentLines returns the book's payment lines in insertion order.
func (s *Store) ListPaymentLines(ctx context.Context, bookID int64) ([]models.LedgerLine, error) {
	lines, err := s.listLines(ctx, `SELECT `+paymentColumns+` FROM payments WHERE account_book_id = $1 ORDER BY id`, bookID, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("database: list payment lines of book %d: %w", bookID, err)
	}
	return lines, nil
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("database: %s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("database: get %s %d: %w", what, id, err)
}

func (s *Store) GetProductLine(ctx context.Context, id int64) (models.LedgerLine, error) {
	line, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM account_line WHERE id = $1`, id))
	if err != nil {
		return models.LedgerLine{}, notFound(err, "product line", id)
	}
	return line, nil
}

func (s *Store) GetPaymentLine(ctx context.Context, id int64) (models.LedgerLine, error) {
	line, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return models.LedgerLine{}, notFound(err, "payment line", id)
	}
	return line, nil
}

// GetLine dispatches on the line kind.
func (s *Store) GetLine(ctx context.Context, kind models.LineKind, id int64) (models.LedgerLine, error) {
	if kind == models.KindPayment {
		return s.GetPaymentLine(ctx, id)
	}
	return s.GetProductLine(ctx, id)
}

func money(v string) string    { return ledger.FormatMoney(ledger.ParseAmount(v)) }
func quantity(v string) string { return ledger.FormatQuantity(ledger.ParseAmount(v)) }

// SaveProductLine inserts the line when id is nil and updates it otherwise.
// It returns the persisted id.
func (s *Store) SaveProductLine(ctx context.Context, line models.LedgerLine, id *int64) (int64, error) {
	p := line.Product
	if p == nil {
		return 0, fmt.Errorf("database: line %s has no product data", line.ID)
	}

	if id == nil {
		var newID int64
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO account_line (name, account_book_id, net_price, amount, discount, tax, price, total_price, date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			p.Name, line.AccountBookID, money(p.NetPrice), quantity(p.Amount), money(p.Discount),
			quantity(p.Tax), money(p.Price), money(p.TotalPrice), line.Date,
		).Scan(&newID)
		if err != nil {
			return 0, fmt.Errorf("database: insert product line: %w", err)
		}
		return newID, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE account_line
		SET name = $1, account_book_id = $2, net_price = $3, amount = $4, discount = $5, tax = $6, price = $7, total_price = $8, date = $9
		WHERE id = $10`,
		p.Name, line.AccountBookID, money(p.NetPrice), quantity(p.Amount), money(p.Discount),
		quantity(p.Tax), money(p.Price), money(p.TotalPrice), line.Date, *id,
	)
	if err != nil {
		return 0, fmt.Errorf("database: update product line %d: %w", *id, err)
	}
	if err := expectRows(result, "product line", *id); err != nil {
		return 0, err
	}
	return *id, nil
}

// SavePaymentLine inserts the line when id is nil and updates it otherwise.
func (s *Store) SavePaymentLine(ctx context.Context, line models.LedgerLine, id *int64) (int64, error) {
	p := line.Payment
	if p == nil {
		return 0, fmt.Errorf("database: line %s has no payment data", line.ID)
	}

	if id == nil {
		var newID int64
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO payments (name, payment, old_debt, old_balance, account_book_id, date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			p.Name, money(p.Payment), money(p.OldDebt), money(p.OldBalance), line.AccountBookID, line.Date,
		).Scan(&newID)
		if err != nil {
			return 0, fmt.Errorf("database: insert payment line: %w", err)
		}
		return newID, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET name = $1, payment = $2, old_debt = $3, old_balance = $4, account_book_id = $5, date = $6
		WHERE id = $7`,
		p.Name, money(p.Payment), money(p.OldDebt), money(p.OldBalance), line.AccountBookID, line.Date, *id,
	)
	if err != nil {
		return 0, fmt.Errorf("database: update payment line %d: %w", *id, err)
	}
	if err := expectRows(result, "payment line", *id); err != nil {
		return 0, err
	}
	return *id, nil
}

// SaveLine dispatches on the line kind.
func (s *Store) SaveLine(ctx context.Context, line models.LedgerLine, id *int64) (int64, error) {
	if line.Kind == models.KindPayment {
		return s.SavePaymentLine(ctx, line, id)
	}
	return s.SaveProductLine(ctx, line, id)
}

// DeleteLine removes a persisted line and reports the affected row count.
func (s *Store) DeleteLine(ctx context.Context, kind models.LineKind, id int64) (int64, error) {
	table := "account_line"
	if kind == models.KindPayment {
		table = "payments"
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("database: delete %s line %d: %w", kind, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("database: delete %s line %d: %w", kind, id, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("database: %s line %d: %w", kind, id, ErrNotFound)
	}
	return n, nil
}

func (s *Store) DeleteProductLine(ctx context.Context, id int64) (int64, error) {
	return s.DeleteLine(ctx, models.KindProduct, id)
}

func (s *Store) DeletePaymentLine(ctx context.Context, id int64) (int64, error) {
	return s.DeleteLine(ctx, models.KindPayment, id)
}

func expectRows(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("database: %s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("database: %s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

func (s *Store) GetAccountBook(ctx context.Context, id int64) (models.AccountBook, error) {
	var b models.AccountBook
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, name, debt, balance FROM account_book WHERE id = $1`, id,
	).Scan(&b.ID, &b.AccountID, &b.Name, &b.Debt, &b.Balance)
	if err != nil {
		return models.AccountBook{}, notFound(err, "account book", id)
	}
	return b, nil
}

func (s *Store) ListAccountBooks(ctx context.Context, accountID int64) ([]models.AccountBook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, name, debt, balance FROM account_book WHERE account_id = $1 ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("database: list account books of account %d: %w", accountID, err)
	}
	defer rows.Close()

	books := []models.AccountBook{}
	for rows.Next() {
		var b models.AccountBook
		if err := rows.Scan(&b.ID, &b.AccountID, &b.Name, &b.Debt, &b.Balance); err != nil {
			return nil, fmt.Errorf("database: scan account book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Store) CountAccountBooks(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account_book WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("database: count account books of account %d: %w", accountID, err)
	}
	return n, nil
}

func (s *Store) CreateAccountBook(ctx context.Context, accountID int64, name string) (models.AccountBook, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO account_book (name, account_id) VALUES ($1, $2) RETURNING id`, name, accountID,
	).Scan(&id)
	if err != nil {
		return models.AccountBook{}, fmt.Errorf("database: create account book: %w", err)
	}
	return models.AccountBook{ID: id, AccountID: accountID, Name: name, Debt: decimal.Zero, Balance: decimal.Zero}, nil
}

// UpdateAccountBook writes the book aggregate. An empty name keeps the
// current one.
func (s *Store) UpdateAccountBook(ctx context.Context, id int64, debt, balance decimal.Decimal, name string) error {
	var (
		result sql.Result
		err    error
	)
	if name != "" {
		result, err = s.db.ExecContext(ctx,
			`UPDATE account_book SET name = $1, debt = $2, balance = $3 WHERE id = $4`,
			name, ledger.FormatMoney(debt), ledger.FormatMoney(balance), id)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE account_book SET debt = $1, balance = $2 WHERE id = $3`,
			ledger.FormatMoney(debt), ledger.FormatMoney(balance), id)
	}
	if err != nil {
		return fmt.Errorf("database: update account book %d: %w", id, err)
	}
	return expectRows(result, "account book", id)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (models.Account, error) {
	var (
		a          models.Account
		accType    string
		lastAction sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), debt, balance, account_type, created_at, last_action
		FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Address, &a.Debt, &a.Balance, &accType, &a.CreatedAt, &lastAction)
	if err != nil {
		return models.Account{}, notFound(err, "account", id)
	}
	a.Type = models.AccountType(accType)
	if lastAction.Valid {
		t := lastAction.Time
		a.LastAction = &t
	}
	return a, nil
}

func (s *Store) UpdateAccountAggregate(ctx context.Context, id int64, debt, balance decimal.Decimal, lastAction time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET debt = $1, balance = $2, last_action = $3 WHERE id = $4`,
		ledger.FormatMoney(debt), ledger.FormatMoney(balance), lastAction, id)
	if err != nil {
		return fmt.Errorf("database: update account %d: %w", id, err)
	}
	return expectRows(result, "account", id)
}

// SumOtherAccountBooks sums every book of the account except excludeBookID.
func (s *Store) SumOtherAccountBooks(ctx context.Context, accountID, excludeBookID int64) (models.Aggregate, error) {
	var agg models.Aggregate
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(debt), 0), COALESCE(SUM(balance), 0)
		FROM account_book
		WHERE account_id = $1 AND id <> $2`, accountID, excludeBookID,
	).Scan(&agg.Debt, &agg.Balance)
	if err != nil {
		return models.Aggregate{}, fmt.Errorf("database: sum other books of account %d: %w", accountID, err)
	}
	return agg, nil
}

// SumAccountBooks sums every book of the account.
func (s *Store) SumAccountBooks(ctx context.Context, accountID int64) (models.Aggregate, error) {
	var agg models.Aggregate
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(debt), 0), COALESCE(SUM(balance), 0)
		FROM account_book
		WHERE account_id = $1`, accountID,
	).Scan(&agg.Debt, &agg.Balance)
	if err != nil {
		return models.Aggregate{}, fmt.Errorf("database: sum books of account %d: %w", accountID, err)
	}
	return agg, nil
}
