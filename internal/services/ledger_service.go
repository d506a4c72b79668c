package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/accountbook/backend/internal/audit"
	"github.com/accountbook/backend/internal/config"
	"github.com/accountbook/backend/internal/database"
	"github.com/accountbook/backend/internal/ledger"
	"github.com/accountbook/backend/internal/logger"
	"github.com/accountbook/backend/internal/models"
)

// Ledger is the merged, ordered line set of one account book with the
// placeholder row appended.
type Ledger struct {
	BookID int64               `json:"bookId"`
	Lines  []models.LedgerLine `json:"lines"`
	Totals ledger.Totals       `json:"totals"`
}

type SaveResult struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Discarded int `json:"discarded"`
	// IDs maps each inserted temporary id to its stored id.
	IDs     map[string]int64   `json:"ids"`
	Book    models.AccountBook `json:"book"`
	Account models.Aggregate   `json:"account"`
	Ledger  *Ledger            `json:"ledger"`
}

type AccountSummary struct {
	Account models.Account       `json:"account"`
	Books   []models.AccountBook `json:"books"`
	Total   models.Aggregate     `json:"total"`
}

type LedgerService struct {
	db          *sql.DB
	audit       *audit.Logger
	defaults    ledger.LineDefaults
	bookPrefix  string
	saveTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewLedgerService(db *sql.DB, cfg *config.LedgerConfig, auditLogger *audit.Logger) *LedgerService {
	if auditLogger == nil {
		auditLogger = audit.NewLogger()
	}
	return &LedgerService{
		db:    db,
		audit: auditLogger,
		defaults: ledger.LineDefaults{
			Tax:      cfg.DefaultTax,
			Amount:   cfg.DefaultAmount,
			Discount: cfg.DefaultDiscount,
		},
		bookPrefix:  cfg.BookNamePrefix,
		saveTimeout: cfg.SaveTimeout,
		now:         time.Now,
		log:         logger.WithComponent("ledger"),
	}
}

// Defaults are the values new temporary product rows start with.
func (s *LedgerService) Defaults() ledger.LineDefaults {
	return s.defaults
}

// Load reads both line tables of a book and merges them. A failed read
// yields ErrLedgerUnavailable and never a partial ledger.
func (s *LedgerService) Load(ctx context.Context, bookID int64) (*Ledger, error) {
	store := database.NewStore(s.db)

	var products, payments []models.LedgerLine
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = store.ListProductLines(gctx, bookID)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = store.ListPaymentLines(gctx, bookID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Int64("account_book_id", bookID).Msg("Failed to load ledger")
		return nil, fmt.Errorf("%w: %w", ledger.ErrLedgerUnavailable, err)
	}

	return s.assemble(bookID, products, payments), nil
}

func (s *LedgerService) assemble(bookID int64, products, payments []models.LedgerLine) *Ledger {
	all := make([]models.LedgerLine, 0, len(products)+1)
	all = append(all, products...)
	all = append(all, ledger.Placeholder(bookID, s.now(), s.defaults))

	lines := ledger.Merge(all, payments)
	return &Ledger{
		BookID: bookID,
		Lines:  lines,
		Totals: ledger.CalculateTotals(lines),
	}
}

// Save reconciles the lines against storage and settles the book and its
// account. Everything runs in one transaction. A non-empty name renames the
// book.
func (s *LedgerService) Save(ctx context.Context, bookID int64, lines []models.LedgerLine, name string) (*SaveResult, error) {
	if s.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.saveTimeout)
		defer cancel()
	}

	result := &SaveResult{IDs: make(map[string]int64)}
	kept := make([]models.LedgerLine, 0, len(lines))
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, fmt.Errorf("services: %w", err)
		}
		if line.AccountBookID != bookID {
			return nil, fmt.Errorf("services: %w: %s is not in book %d", ledger.ErrLineNotFound, line.ID, bookID)
		}
		// empty temporary rows never reach storage or the totals
		if ledger.Plan(line, nil, nil) == ledger.ActionDiscard {
			result.Discarded++
			continue
		}
		kept = append(kept, line)
	}

	prepared := ledger.PrepareLines(kept)
	now := s.now()

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		store := database.NewStore(tx)
		for i := range prepared {
			if err := s.writeLine(ctx, store, &prepared[i], result); err != nil {
				return err
			}
		}
		return s.settle(ctx, store, bookID, prepared, name, now, result)
	})
	if err != nil {
		s.log.Error().Err(err).Int64("account_book_id", bookID).Msg("Failed to save account book")
		s.audit.LogError(bookID, "", err)
		return nil, err
	}

	s.audit.LogSave(bookID, result.Inserted, result.Updated, result.Skipped, result.Discarded)
	s.audit.LogSettlement(bookID, result.Book.AccountID,
		ledger.FormatMoney(result.Book.Debt), ledger.FormatMoney(result.Book.Balance),
		ledger.FormatMoney(result.Account.Debt), ledger.FormatMoney(result.Account.Balance))

	var products, payments []models.LedgerLine
	for _, line := range prepared {
		if line.Kind == models.KindPayment {
			payments = append(payments, line)
		} else {
			products = append(products, line)
		}
	}
	result.Ledger = s.assemble(bookID, products, payments)
	return result, nil
}

// writeLine applies the reconcile decision for one line. Inserted lines get
// their stored id so the settlement and the returned ledger refer to it.
func (s *LedgerService) writeLine(ctx context.Context, store *database.Store, line *models.LedgerLine, result *SaveResult) error {
	var (
		stored   *models.LedgerLine
		fetchErr error
		storedID *int64
	)
	if id, ok := line.ID.Persisted(); ok {
		storedID = &id
		row, err := store.GetLine(ctx, line.Kind, id)
		if err != nil {
			fetchErr = err
			s.log.Warn().Err(err).Str("line_id", line.ID.String()).Msg("Could not read stored line, writing it")
		} else {
			stored = &row
		}
	}

	switch ledger.Plan(*line, stored, fetchErr) {
	case ledger.ActionSkip:
		result.Skipped++
	case ledger.ActionInsert:
		id, err := store.SaveLine(ctx, *line, nil)
		if err != nil {
			return err
		}
		result.IDs[line.ID.String()] = id
		line.ID = models.PersistedID(id)
		result.Inserted++
	case ledger.ActionUpdate:
		if _, err := store.SaveLine(ctx, *line, storedID); err != nil {
			return err
		}
		result.Updated++
	case ledger.ActionDiscard:
		result.Discarded++
	}
	return nil
}

// settle writes the book aggregate, then rebuilds the account aggregate from
// the other books plus this one. This assumes a single writer per account.
func (s *LedgerService) settle(ctx context.Context, store *database.Store, bookID int64, lines []models.LedgerLine, name string, now time.Time, result *SaveResult) error {
	settlement := ledger.Settle(lines)

	book, err := store.GetAccountBook(ctx, bookID)
	if err != nil {
		return err
	}
	balance := settlement.BookBalance(book.Balance)
	if err := store.UpdateAccountBook(ctx, bookID, settlement.Debt, balance, name); err != nil {
		return err
	}

	if _, err := store.GetAccount(ctx, book.AccountID); err != nil {
		return err
	}
	others, err := store.SumOtherAccountBooks(ctx, book.AccountID, bookID)
	if err != nil {
		return err
	}
	account := settlement.Recombine(others, balance)
	if err := store.UpdateAccountAggregate(ctx, book.AccountID, account.Debt, account.Balance, now); err != nil {
		return err
	}

	book.Debt = settlement.Debt
	book.Balance = balance
	if name != "" {
		book.Name = name
	}
	result.Book = book
	result.Account = account
	return nil
}

// DeleteLine removes one stored line, applies its immediate effect on the
// book aggregate, then reloads and re-saves the book so running balances and
// both aggregates match the remaining lines.
func (s *LedgerService) DeleteLine(ctx context.Context, bookID int64, line models.LedgerLine) (*Ledger, error) {
	id, ok := line.ID.Persisted()
	if !ok {
		return nil, fmt.Errorf("services: line %s is not stored: %w", line.ID, ledger.ErrLineNotFound)
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		store := database.NewStore(tx)

		book, err := store.GetAccountBook(ctx, bookID)
		if err != nil {
			return err
		}
		stored, err := store.GetLine(ctx, line.Kind, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("services: %w: %s", ledger.ErrLineNotFound, line.ID)
			}
			return err
		}
		if stored.AccountBookID != bookID {
			return fmt.Errorf("services: %w: %s is not in book %d", ledger.ErrLineNotFound, line.ID, bookID)
		}

		if _, err := store.DeleteLine(ctx, line.Kind, id); err != nil {
			return err
		}
		agg := ledger.DeletionEffect(book, stored)
		return store.UpdateAccountBook(ctx, bookID, agg.Debt, agg.Balance, "")
	})
	if err != nil {
		s.audit.LogError(bookID, line.ID.String(), err)
		return nil, err
	}
	s.audit.LogDelete(bookID, line.ID.String(), string(line.Kind))

	reloaded, err := s.Load(ctx, bookID)
	if err != nil {
		return nil, err
	}
	result, err := s.Save(ctx, bookID, reloaded.Lines, "")
	if err != nil {
		return nil, err
	}
	return result.Ledger, nil
}

func (s *LedgerService) GetAccountBook(ctx context.Context, bookID int64) (models.AccountBook, error) {
	return database.NewStore(s.db).GetAccountBook(ctx, bookID)
}

// CreateAccountBook opens a new book for the account, named after the
// number of books it already has.
func (s *LedgerService) CreateAccountBook(ctx context.Context, accountID int64) (models.AccountBook, error) {
	var book models.AccountBook
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		store := database.NewStore(tx)
		if _, err := store.GetAccount(ctx, accountID); err != nil {
			return err
		}
		n, err := store.CountAccountBooks(ctx, accountID)
		if err != nil {
			return err
		}
		book, err = store.CreateAccountBook(ctx, accountID, fmt.Sprintf("%s %d", s.bookPrefix, n+1))
		return err
	})
	if err != nil {
		return models.AccountBook{}, err
	}

	s.log.Info().Int64("account_id", accountID).Int64("account_book_id", book.ID).Str("name", book.Name).Msg("Account book created")
	return book, nil
}

// AccountSummary sums every book of the account.
func (s *LedgerService) AccountSummary(ctx context.Context, accountID int64) (*AccountSummary, error) {
	store := database.NewStore(s.db)

	account, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	books, err := store.ListAccountBooks(ctx, accountID)
	if err != nil {
		return nil, err
	}
	total, err := store.SumAccountBooks(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &AccountSummary{Account: account, Books: books, Total: total}, nil
}
