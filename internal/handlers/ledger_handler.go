package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/accountbook/backend/internal/database"
	"github.com/accountbook/backend/internal/ledger"
	"github.com/accountbook/backend/internal/logger"
	"github.com/accountbook/backend/internal/models"
	"github.com/accountbook/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// SessionStore keeps edit sessions between requests.
type SessionStore interface {
	Create(ctx context.Context, session *ledger.Session) (string, error)
	Put(ctx context.Context, id string, session *ledger.Session) error
	Get(ctx context.Context, id string) (*ledger.Session, error)
	Delete(ctx context.Context, id string) error
}

type LedgerHandler struct {
	ledger    *services.LedgerService
	sessions  SessionStore
	validator *services.ValidationHelper
	now       func() time.Time
	log       zerolog.Logger
}

func NewLedgerHandler(ledgerService *services.LedgerService, sessions SessionStore) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledgerService,
		sessions:  sessions,
		validator: services.NewValidationHelper(),
		now:       time.Now,
		log:       logger.WithComponent("handlers"),
	}
}

// Routes mounts the ledger API on r.
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Post("/accountbooks", h.CreateAccountBook)
	r.Get("/accountbooks/{bookId}/ledger", h.GetLedger)
	r.Post("/accountbooks/{bookId}/sessions", h.OpenSession)

	r.Get("/sessions/{sessionId}", h.GetSession)
	r.Delete("/sessions/{sessionId}", h.CloseSession)
	r.Post("/sessions/{sessionId}/lines", h.AddLine)
	r.Patch("/sessions/{sessionId}/lines/{lineId}", h.UpdateLine)
	r.Delete("/sessions/{sessionId}/lines/{lineId}", h.DeleteLine)
	r.Post("/sessions/{sessionId}/save", h.Save)

	r.Get("/accounts/{accountId}/summary", h.AccountSummary)
}

type sessionView struct {
	SessionID string              `json:"sessionId,omitempty"`
	BookID    int64               `json:"bookId"`
	Lines     []models.LedgerLine `json:"lines"`
	Totals    ledger.Totals       `json:"totals"`
}

func viewOf(id string, s *ledger.Session) sessionView {
	return sessionView{SessionID: id, BookID: s.BookID, Lines: s.Lines, Totals: s.Totals()}
}

// decodeBody reads exactly one JSON object into dst. An empty body is
// accepted when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return "", true
		}
		return "Invalid request body", false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return "Request body must only contain a single JSON object", false
	}
	return "", true
}

func int64Param(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sendError maps service errors onto HTTP responses.
func (h *LedgerHandler) sendError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ledger.ErrLedgerUnavailable):
		services.SendRetryableError(w, "Ledger could not be loaded, try again")
	case errors.Is(err, services.ErrSessionNotFound):
		services.SendErrorResponse(w, "Session not found", http.StatusNotFound, nil)
	case errors.Is(err, ledger.ErrLineNotFound):
		services.SendErrorResponse(w, "Line not found", http.StatusNotFound, nil)
	case errors.Is(err, database.ErrNotFound):
		services.SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
	case errors.Is(err, ledger.ErrInvalidKind):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		h.log.Error().Err(err).Msg(fallback)
		services.SendErrorResponse(w, fallback, http.StatusInternalServerError, nil)
	}
}

// CreateAccountBook opens a new book for an account
func (h *LedgerHandler) CreateAccountBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID int64 `json:"accountId" validate:"required,gt=0"`
	}
	if msg, ok := decodeBody(w, r, &req, false); !ok {
		services.SendErrorResponse(w, msg, http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	book, err := h.ledger.CreateAccountBook(r.Context(), req.AccountID)
	if err != nil {
		h.sendError(w, err, "Failed to create account book")
		return
	}
	services.SendJSON(w, http.StatusCreated, book)
}

// GetLedger returns the merged ledger of a book without opening a session
func (h *LedgerHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	bookID, ok := int64Param(r, "bookId")
	if !ok {
		services.SendErrorResponse(w, "Invalid account book id", http.StatusBadRequest, nil)
		return
	}

	l, err := h.ledger.Load(r.Context(), bookID)
	if err != nil {
		h.sendError(w, err, "Failed to load ledger")
		return
	}
	services.SendJSON(w, http.StatusOK, sessionView{BookID: l.BookID, Lines: l.Lines, Totals: l.Totals})
}

// OpenSession loads a book into a new edit session
func (h *LedgerHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	bookID, ok := int64Param(r, "bookId")
	if !ok {
		services.SendErrorResponse(w, "Invalid account book id", http.StatusBadRequest, nil)
		return
	}

	l, err := h.ledger.Load(r.Context(), bookID)
	if err != nil {
		h.sendError(w, err, "Failed to load ledger")
		return
	}

	session := ledger.NewSession(bookID, l.Lines, h.ledger.Defaults())
	id, err := h.sessions.Create(r.Context(), session)
	if err != nil {
		h.sendError(w, err, "Failed to open session")
		return
	}
	services.SendJSON(w, http.StatusCreated, viewOf(id, session))
}

func (h *LedgerHandler) loadSession(w http.ResponseWriter, r *http.Request) (string, *ledger.Session, bool) {
	id := chi.URLParam(r, "sessionId")
	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.sendError(w, err, "Failed to read session")
		return "", nil, false
	}
	return id, session, true
}

func (h *LedgerHandler) storeSession(w http.ResponseWriter, r *http.Request, id string, session *ledger.Session) bool {
	if err := h.sessions.Put(r.Context(), id, session); err != nil {
		h.sendError(w, err, "Failed to store session")
		return false
	}
	return true
}

func (h *LedgerHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	services.SendJSON(w, http.StatusOK, viewOf(id, session))
}

// CloseSession discards a session and its unsaved edits
func (h *LedgerHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.sendError(w, err, "Failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLine offers an empty row of the requested kind
func (h *LedgerHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind" validate:"required,oneof=product payment"`
	}
	if msg, ok := decodeBody(w, r, &req, false); !ok {
		services.SendErrorResponse(w, msg, http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	id, session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	lineID, added, err := session.AddLine(models.LineKind(req.Kind), h.now())
	if err != nil {
		h.sendError(w, err, "Failed to add line")
		return
	}
	if added && !h.storeSession(w, r, id, session) {
		return
	}

	line, _ := session.Line(lineID)
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	services.SendJSON(w, status, map[string]any{
		"lineId": lineID,
		"added":  added,
		"line":   line,
		"totals": session.Totals(),
	})
}

type updateLineRequest struct {
	Name     *string    `json:"name" validate:"omitempty,max=255"`
	NetPrice *string    `json:"net_price" validate:"omitempty,decimal"`
	Amount   *string    `json:"amount" validate:"omitempty,decimal"`
	Discount *string    `json:"discount" validate:"omitempty,decimal"`
	Tax      *string    `json:"tax" validate:"omitempty,decimal"`
	Price    *string    `json:"price" validate:"omitempty,decimal"`
	Payment  *string    `json:"payment" validate:"omitempty,decimal"`
	Date     *time.Time `json:"date"`
}

// UpdateLine applies a field patch to one line of the session
func (h *LedgerHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := models.ParseLineID(chi.URLParam(r, "lineId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid line id", http.StatusBadRequest, nil)
		return
	}

	var req updateLineRequest
	if msg, ok := decodeBody(w, r, &req, false); !ok {
		services.SendErrorResponse(w, msg, http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	id, session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	line, err := session.UpdateLine(lineID, ledger.LinePatch{
		Name:     req.Name,
		NetPrice: req.NetPrice,
		Amount:   req.Amount,
		Discount: req.Discount,
		Tax:      req.Tax,
		Price:    req.Price,
		Payment:  req.Payment,
		Date:     req.Date,
	})
	if err != nil {
		h.sendError(w, err, "Failed to update line")
		return
	}
	if !h.storeSession(w, r, id, session) {
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"line":   line,
		"totals": session.Totals(),
	})
}

// DeleteLine drops a temporary line from the session, or deletes a stored
// line and reloads the session from storage
func (h *LedgerHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := models.ParseLineID(chi.URLParam(r, "lineId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid line id", http.StatusBadRequest, nil)
		return
	}

	id, session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	if lineID.IsTemporary() {
		if _, err := session.RemoveLine(lineID); err != nil {
			h.sendError(w, err, "Failed to delete line")
			return
		}
	} else {
		line, found := session.Line(lineID)
		if !found {
			h.sendError(w, ledger.ErrLineNotFound, "Failed to delete line")
			return
		}
		reloaded, err := h.ledger.DeleteLine(r.Context(), session.BookID, line)
		if err != nil {
			h.sendError(w, err, "Failed to delete line")
			return
		}
		session.Reset(reloaded.Lines)
	}

	if !h.storeSession(w, r, id, session) {
		return
	}
	services.SendJSON(w, http.StatusOK, viewOf(id, session))
}

// Save reconciles the session with storage and settles the book
func (h *LedgerHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"omitempty,max=255"`
	}
	if msg, ok := decodeBody(w, r, &req, true); !ok {
		services.SendErrorResponse(w, msg, http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	id, session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	result, err := h.ledger.Save(r.Context(), session.BookID, session.Lines, req.Name)
	if err != nil {
		h.sendError(w, err, "Failed to save account book")
		return
	}

	session.Reset(result.Ledger.Lines)
	if !h.storeSession(w, r, id, session) {
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"inserted":  result.Inserted,
		"updated":   result.Updated,
		"skipped":   result.Skipped,
		"discarded": result.Discarded,
		"ids":       result.IDs,
		"book":      result.Book,
		"account":   result.Account,
		"session":   viewOf(id, session),
	})
}

// AccountSummary returns the account aggregate with its books
func (h *LedgerHandler) AccountSummary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := int64Param(r, "accountId")
	if !ok {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	summary, err := h.ledger.AccountSummary(r.Context(), accountID)
	if err != nil {
		h.sendError(w, err, "Failed to load account summary")
		return
	}
	services.SendJSON(w, http.StatusOK, summary)
}
