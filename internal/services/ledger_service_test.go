package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountbook/backend/internal/audit"
	"github.com/accountbook/backend/internal/config"
	"github.com/accountbook/backend/internal/ledger"
	"github.com/accountbook/backend/internal/models"
)

var (
	productCols = []string{"id", "name", "account_book_id", "net_price", "amount", "discount", "tax", "price", "total_price", "date"}
	paymentCols = []string{"id", "name", "payment", "old_debt", "old_balance", "account_book_id", "date"}
	bookCols    = []string{"id", "account_id", "name", "debt", "balance"}
	accountCols = []string{"id", "name", "email", "phone", "address", "debt", "balance", "account_type", "created_at", "last_action"}

	day1     = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2     = day1.Add(24 * time.Hour)
	day3     = day2.Add(24 * time.Hour)
	fixedNow = day3.Add(24 * time.Hour)
)

func testConfig() *config.LedgerConfig {
	return &config.LedgerConfig{
		DefaultTax:      "20",
		DefaultAmount:   "1",
		DefaultDiscount: "0",
		BookNamePrefix:  "Account book",
		SaveTimeout:     time.Second,
	}
}

func newTestLedgerService(t *testing.T) (*LedgerService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service := NewLedgerService(db, testConfig(), audit.NewLoggerWith(zerolog.Nop()))
	service.now = func() time.Time { return fixedNow }
	service.log = zerolog.Nop()
	return service, mock
}

func accountRow() *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).
		AddRow(int64(2), "Bakery", "", "", "", "0.00", "0.00", "customer", day1, nil)
}

func TestLedgerService_Load(t *testing.T) {
	t.Run("merges by date and appends the placeholder", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		mock.MatchExpectationsInOrder(false)

		mock.ExpectQuery("FROM account_line WHERE account_book_id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day1).
				AddRow(int64(2), "Salt", int64(7), "10.00", "3", "0.00", "20", "12.00", "36.00", day3))
		mock.ExpectQuery("FROM payments WHERE account_book_id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "120.00", "0.00", int64(7), day2))

		l, err := service.Load(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, l.Lines, 4)

		assert.Equal(t, models.PersistedID(1), l.Lines[0].ID)
		assert.Equal(t, models.KindPayment, l.Lines[1].Kind)
		assert.Equal(t, models.PersistedID(2), l.Lines[2].ID)

		placeholder := l.Lines[3]
		assert.Equal(t, ledger.PlaceholderID, placeholder.ID)
		assert.Equal(t, models.KindProduct, placeholder.Kind)
		assert.Equal(t, "20", placeholder.Product.Tax)
		assert.Equal(t, "1", placeholder.Product.Amount)
		assert.Equal(t, "0", placeholder.Product.Discount)
		assert.Empty(t, placeholder.Product.Name)
		assert.Equal(t, fixedNow, placeholder.Date)

		assert.True(t, l.Totals.TotalGross.Equal(decimal.NewFromInt(156)))
		assert.True(t, l.Totals.TotalPayment.Equal(decimal.NewFromInt(50)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fetch failure is reported as unavailable", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		mock.MatchExpectationsInOrder(false)

		mock.ExpectQuery("FROM account_line WHERE account_book_id = \\$1").
			WillReturnError(errors.New("connection refused"))
		mock.ExpectQuery("FROM payments WHERE account_book_id = \\$1").
			WillReturnError(errors.New("connection refused"))

		l, err := service.Load(context.Background(), 7)
		assert.Nil(t, l)
		assert.ErrorIs(t, err, ledger.ErrLedgerUnavailable)
	})
}

func TestLedgerService_Save(t *testing.T) {
	lines := func() []models.LedgerLine {
		return []models.LedgerLine{
			models.NewProductLine(models.PersistedID(1), 7, day1, models.ProductLine{
				Name: "Flour", NetPrice: "100.00", Amount: "1", Discount: "0.00", Tax: "20", Price: "120.00", TotalPrice: "120.00",
			}),
			models.NewPaymentLine(models.PersistedID(4), 7, day2, models.PaymentLine{
				Name: "cash", Payment: "50.00", OldDebt: "120.00", OldBalance: "0.00",
			}),
			models.NewProductLine(models.TemporaryID(1), 7, day3, models.ProductLine{
				Name: "Salt", NetPrice: "10", Amount: "3", Discount: "0", Tax: "20",
			}),
			ledger.Placeholder(7, fixedNow, ledger.DefaultLineDefaults()),
		}
	}

	t.Run("skips, updates, inserts and settles in one transaction", func(t *testing.T) {
		service, mock := newTestLedgerService(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day1))
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "", "50.00", "120.00", "0.00", int64(7), day2))
		mock.ExpectExec("UPDATE payments").
			WithArgs("cash", "50.00", "120.00", "0.00", int64(7), day2, int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO account_line").
			WithArgs("Salt", int64(7), "10.00", "3", "0.00", "20", "12.00", "36.00", day3).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

		mock.ExpectQuery("FROM account_book WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "0.00", "0.00"))
		mock.ExpectExec("UPDATE account_book SET name = \\$1, debt = \\$2, balance = \\$3 WHERE id = \\$4").
			WithArgs("March", "106.00", "70.00", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM accounts WHERE id = \\$1").
			WithArgs(int64(2)).
			WillReturnRows(accountRow())
		mock.ExpectQuery("WHERE account_id = \\$1 AND id <> \\$2").
			WithArgs(int64(2), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"debt", "balance"}).AddRow("300.00", "-100.00"))
		mock.ExpectExec("UPDATE accounts SET debt = \\$1, balance = \\$2, last_action = \\$3 WHERE id = \\$4").
			WithArgs("406.00", "-30.00", fixedNow, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.Save(context.Background(), 7, lines(), "March")
		require.NoError(t, err)

		assert.Equal(t, 1, result.Inserted)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 1, result.Discarded)
		assert.Equal(t, map[string]int64{"temp-1": 12}, result.IDs)

		assert.Equal(t, "March", result.Book.Name)
		assert.True(t, result.Book.Debt.Equal(decimal.NewFromInt(106)))
		assert.True(t, result.Book.Balance.Equal(decimal.NewFromInt(70)))
		assert.True(t, result.Account.Debt.Equal(decimal.NewFromInt(406)))
		assert.True(t, result.Account.Balance.Equal(decimal.NewFromInt(-30)))

		require.Len(t, result.Ledger.Lines, 4)
		assert.Equal(t, models.PersistedID(12), result.Ledger.Lines[2].ID)
		assert.Equal(t, ledger.PlaceholderID, result.Ledger.Lines[3].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unmodified ledger issues no line writes", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		stored := lines()[:2]

		mock.ExpectBegin()
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day1))
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "120.00", "0.00", int64(7), day2))
		mock.ExpectQuery("FROM account_book WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "70.00", "70.00"))
		mock.ExpectExec("UPDATE account_book SET debt = \\$1, balance = \\$2 WHERE id = \\$3").
			WithArgs("70.00", "70.00", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM accounts WHERE id = \\$1").WithArgs(int64(2)).WillReturnRows(accountRow())
		mock.ExpectQuery("WHERE account_id = \\$1 AND id <> \\$2").
			WillReturnRows(sqlmock.NewRows([]string{"debt", "balance"}).AddRow("0", "0"))
		mock.ExpectExec("UPDATE accounts").
			WithArgs("70.00", "70.00", fixedNow, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.Save(context.Background(), 7, stored, "")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Skipped)
		assert.Zero(t, result.Inserted)
		assert.Zero(t, result.Updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product moved after a payment settles in date order", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		// session order still has the product first, its date now after the payment
		edited := []models.LedgerLine{
			models.NewProductLine(models.PersistedID(1), 7, day3, models.ProductLine{
				Name: "Flour", NetPrice: "100.00", Amount: "1", Discount: "0.00", Tax: "20", Price: "120.00", TotalPrice: "120.00",
			}),
			models.NewPaymentLine(models.PersistedID(4), 7, day2, models.PaymentLine{
				Name: "cash", Payment: "50.00", OldDebt: "120.00", OldBalance: "0.00",
			}),
		}
		expectSettle := func() {
			mock.ExpectQuery("FROM account_book WHERE id = \\$1").
				WithArgs(int64(7)).
				WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "70.00", "70.00"))
			mock.ExpectExec("UPDATE account_book SET debt = \\$1, balance = \\$2 WHERE id = \\$3").
				WithArgs("70.00", "-50.00", int64(7)).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectQuery("FROM accounts WHERE id = \\$1").WithArgs(int64(2)).WillReturnRows(accountRow())
			mock.ExpectQuery("WHERE account_id = \\$1 AND id <> \\$2").
				WillReturnRows(sqlmock.NewRows([]string{"debt", "balance"}).AddRow("0", "0"))
			mock.ExpectExec("UPDATE accounts").
				WithArgs("70.00", "-50.00", fixedNow, int64(2)).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}

		mock.ExpectBegin()
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "120.00", "0.00", int64(7), day2))
		mock.ExpectExec("UPDATE payments").
			WithArgs("cash", "50.00", "0.00", "0.00", int64(7), day2, int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day1))
		mock.ExpectExec("UPDATE account_line").
			WithArgs("Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day3, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectSettle()
		mock.ExpectCommit()

		result, err := service.Save(context.Background(), 7, edited, "")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Updated)
		assert.True(t, result.Book.Balance.Equal(decimal.NewFromInt(-50)))
		require.Len(t, result.Ledger.Lines, 3)
		assert.Equal(t, models.PersistedID(4), result.Ledger.Lines[0].ID)
		assert.Equal(t, "0.00", result.Ledger.Lines[0].Payment.OldDebt)

		// saving the returned ledger against the rows just written changes nothing
		mock.ExpectBegin()
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "0.00", "0.00", int64(7), day2))
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day3))
		expectSettle()
		mock.ExpectCommit()

		again, err := service.Save(context.Background(), 7, result.Ledger.Lines, "")
		require.NoError(t, err)
		assert.Equal(t, 2, again.Skipped)
		assert.Zero(t, again.Updated)
		assert.Zero(t, again.Inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects lines of another book", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		foreign := []models.LedgerLine{
			models.NewPaymentLine(models.PersistedID(4), 8, day2, models.PaymentLine{Name: "cash", Payment: "50"}),
		}

		_, err := service.Save(context.Background(), 7, foreign, "")
		assert.ErrorIs(t, err, ledger.ErrLineNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write failure rolls everything back", func(t *testing.T) {
		service, mock := newTestLedgerService(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day1))
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "120.00", "0.00", int64(7), day2))
		mock.ExpectQuery("INSERT INTO account_line").
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		result, err := service.Save(context.Background(), 7, lines(), "")
		assert.Nil(t, result)
		assert.ErrorContains(t, err, "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed read of a stored line still writes it", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		single := []models.LedgerLine{
			models.NewPaymentLine(models.PersistedID(4), 7, day2, models.PaymentLine{Name: "cash", Payment: "50"}),
		}

		mock.ExpectBegin()
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnError(errors.New("timeout"))
		mock.ExpectExec("UPDATE payments").
			WithArgs("cash", "50.00", "0.00", "0.00", int64(7), day2, int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM account_book WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "0.00", "0.00"))
		mock.ExpectExec("UPDATE account_book SET debt = \\$1, balance = \\$2 WHERE id = \\$3").
			WithArgs("-50.00", "-50.00", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM accounts WHERE id = \\$1").WithArgs(int64(2)).WillReturnRows(accountRow())
		mock.ExpectQuery("WHERE account_id = \\$1 AND id <> \\$2").
			WillReturnRows(sqlmock.NewRows([]string{"debt", "balance"}).AddRow("0", "0"))
		mock.ExpectExec("UPDATE accounts").
			WithArgs("-50.00", "-50.00", fixedNow, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.Save(context.Background(), 7, single, "")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("book without payments keeps its balance", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		single := []models.LedgerLine{
			models.NewProductLine(models.PersistedID(1), 7, day1, models.ProductLine{
				Name: "Flour", NetPrice: "100.00", Amount: "1", Discount: "0.00", Tax: "20", Price: "120.00",
			}),
		}

		mock.ExpectBegin()
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day1))
		mock.ExpectQuery("FROM account_book WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "0.00", "15.00"))
		mock.ExpectExec("UPDATE account_book SET debt = \\$1, balance = \\$2 WHERE id = \\$3").
			WithArgs("120.00", "15.00", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM accounts WHERE id = \\$1").WithArgs(int64(2)).WillReturnRows(accountRow())
		mock.ExpectQuery("WHERE account_id = \\$1 AND id <> \\$2").
			WillReturnRows(sqlmock.NewRows([]string{"debt", "balance"}).AddRow("0", "0"))
		mock.ExpectExec("UPDATE accounts").
			WithArgs("120.00", "15.00", fixedNow, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.Save(context.Background(), 7, single, "")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a line whose variant does not match its kind", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		bad := models.LedgerLine{ID: models.PersistedID(1), Kind: models.KindProduct, AccountBookID: 7}

		_, err := service.Save(context.Background(), 7, []models.LedgerLine{bad}, "")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_DeleteLine(t *testing.T) {
	t.Run("temporary lines never touch storage", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		line := ledger.Placeholder(7, fixedNow, ledger.DefaultLineDefaults())

		_, err := service.DeleteLine(context.Background(), 7, line)
		assert.ErrorIs(t, err, ledger.ErrLineNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product removal cascades and re-settles", func(t *testing.T) {
		service, mock := newTestLedgerService(t)
		mock.MatchExpectationsInOrder(false)

		// delete and immediate aggregate effect
		mock.ExpectBegin()
		mock.ExpectQuery("FROM account_book WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "106.00", "70.00"))
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(1), "Flour", int64(7), "100.00", "1", "0.00", "20", "120.00", "120.00", day1))
		mock.ExpectExec("DELETE FROM account_line WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE account_book SET debt = \\$1, balance = \\$2 WHERE id = \\$3").
			WithArgs("-14.00", "70.00", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// reload
		mock.ExpectQuery("FROM account_line WHERE account_book_id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(12), "Salt", int64(7), "10.00", "3", "0.00", "20", "12.00", "36.00", day3))
		mock.ExpectQuery("FROM payments WHERE account_book_id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "120.00", "0.00", int64(7), day2))

		// re-save: the payment now precedes every product
		mock.ExpectBegin()
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "120.00", "0.00", int64(7), day2))
		mock.ExpectExec("UPDATE payments").
			WithArgs("cash", "50.00", "0.00", "0.00", int64(7), sqlmock.AnyArg(), int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM account_line WHERE id = \\$1").
			WithArgs(int64(12)).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow(int64(12), "Salt", int64(7), "10.00", "3", "0.00", "20", "12.00", "36.00", day3))
		mock.ExpectQuery("FROM account_book WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "-14.00", "70.00"))
		mock.ExpectExec("UPDATE account_book SET debt = \\$1, balance = \\$2 WHERE id = \\$3").
			WithArgs("-14.00", "-50.00", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM accounts WHERE id = \\$1").WithArgs(int64(2)).WillReturnRows(accountRow())
		mock.ExpectQuery("WHERE account_id = \\$1 AND id <> \\$2").
			WillReturnRows(sqlmock.NewRows([]string{"debt", "balance"}).AddRow("0", "0"))
		mock.ExpectExec("UPDATE accounts").
			WithArgs("-14.00", "-50.00", fixedNow, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		line := models.NewProductLine(models.PersistedID(1), 7, day1, models.ProductLine{Name: "Flour"})
		l, err := service.DeleteLine(context.Background(), 7, line)
		require.NoError(t, err)

		require.Len(t, l.Lines, 3)
		assert.Equal(t, models.PersistedID(4), l.Lines[0].ID)
		assert.Equal(t, "0.00", l.Lines[0].Payment.OldDebt)
		assert.Equal(t, models.PersistedID(12), l.Lines[1].ID)
		assert.Equal(t, ledger.PlaceholderID, l.Lines[2].ID)
		assert.True(t, l.Totals.TotalGross.Equal(decimal.NewFromInt(36)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("line from another book is rejected", func(t *testing.T) {
		service, mock := newTestLedgerService(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM account_book WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(int64(7), int64(2), "Account book 1", "0.00", "0.00"))
		mock.ExpectQuery("FROM payments WHERE id = \\$1").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(int64(4), "cash", "50.00", "0.00", "0.00", int64(8), day2))
		mock.ExpectRollback()

		line := models.NewPaymentLine(models.PersistedID(4), 7, day2, models.PaymentLine{})
		_, err := service.DeleteLine(context.Background(), 7, line)
		assert.ErrorIs(t, err, ledger.ErrLineNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_CreateAccountBook(t *testing.T) {
	service, mock := newTestLedgerService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM accounts WHERE id = \\$1").WithArgs(int64(2)).WillReturnRows(accountRow())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM account_book WHERE account_id = \\$1").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("INSERT INTO account_book").
		WithArgs("Account book 3", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	book, err := service.CreateAccountBook(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), book.ID)
	assert.Equal(t, "Account book 3", book.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_AccountSummary(t *testing.T) {
	service, mock := newTestLedgerService(t)

	mock.ExpectQuery("FROM accounts WHERE id = \\$1").WithArgs(int64(2)).WillReturnRows(accountRow())
	mock.ExpectQuery("FROM account_book WHERE account_id = \\$1 ORDER BY id").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(bookCols).
			AddRow(int64(7), int64(2), "Account book 1", "106.00", "70.00").
			AddRow(int64(8), int64(2), "Account book 2", "20.00", "-5.00"))
	mock.ExpectQuery("FROM account_book\\s+WHERE account_id = \\$1$").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"debt", "balance"}).AddRow("126.00", "65.00"))

	summary, err := service.AccountSummary(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Bakery", summary.Account.Name)
	assert.Len(t, summary.Books, 2)
	assert.True(t, summary.Total.Debt.Equal(decimal.NewFromInt(126)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
