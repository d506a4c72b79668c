package audit

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/accountbook/backend/internal/logger"
)

type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	AccountBookID int64     `json:"account_book_id"`
	LineID        string    `json:"line_id,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// Logger writes audit events for every storage-changing ledger operation.
type Logger struct {
	log zerolog.Logger
}

func NewLogger() *Logger {
	return &Logger{log: logger.WithComponent("audit")}
}

// NewLoggerWith uses the given zerolog logger, mainly for tests.
func NewLoggerWith(l zerolog.Logger) *Logger {
	return &Logger{log: l}
}

func (a *Logger) LogSave(bookID int64, inserted, updated, skipped, discarded int) {
	a.emit(Event{
		Timestamp:     time.Now(),
		EventType:     "SAVE",
		AccountBookID: bookID,
		Status:        "SUCCESS",
		Details: map[string]int{
			"inserted":  inserted,
			"updated":   updated,
			"skipped":   skipped,
			"discarded": discarded,
		},
	})
}

func (a *Logger) LogSettlement(bookID, accountID int64, bookDebt, bookBalance, accountDebt, accountBalance string) {
	a.emit(Event{
		Timestamp:     time.Now(),
		EventType:     "SETTLEMENT",
		AccountBookID: bookID,
		Status:        "SUCCESS",
		Details: map[string]any{
			"account_id":      accountID,
			"book_debt":       bookDebt,
			"book_balance":    bookBalance,
			"account_debt":    accountDebt,
			"account_balance": accountBalance,
		},
	})
}

func (a *Logger) LogDelete(bookID int64, lineID, kind string) {
	a.emit(Event{
		Timestamp:     time.Now(),
		EventType:     "DELETE",
		AccountBookID: bookID,
		LineID:        lineID,
		Status:        "SUCCESS",
		Details:       map[string]string{"kind": kind},
	})
}

func (a *Logger) LogError(bookID int64, lineID string, err error) {
	a.emit(Event{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		AccountBookID: bookID,
		LineID:        lineID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *Logger) emit(event Event) {
	level := zerolog.InfoLevel
	if event.Status == "FAILED" {
		level = zerolog.ErrorLevel
	}
	a.log.WithLevel(level).
		Str("event_type", event.EventType).
		Int64("account_book_id", event.AccountBookID).
		Str("line_id", event.LineID).
		Str("status", event.Status).
		Interface("details", event.Details).
		Time("at", event.Timestamp).
		Msg("AUDIT")
}
