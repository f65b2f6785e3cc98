package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/lifecycle"
	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/receipt"
	"github.com/irocky-stack/rjbtranz/internal/store"
)

// TransactionHandler serves the console's transaction lists, the dashboard
// summary, and lifecycle operations.
type TransactionHandler struct {
	store     store.TransactionStore
	lifecycle *lifecycle.Service
	brand     string
}

func NewTransactionHandler(s store.TransactionStore, lc *lifecycle.Service, brand string) *TransactionHandler {
	return &TransactionHandler{store: s, lifecycle: lc, brand: brand}
}

// List returns transactions filtered by status, currency, search and age.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		Currency: q.Get("currency"),
		Search:   q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		status := models.Status(strings.ToUpper(raw))
		if !status.Valid() {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-status", "unknown status filter")
			return
		}
		filter.Status = status
	}
	if raw := q.Get("within"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-within", "within must be a duration")
			return
		}
		filter.Since = time.Now().Add(-window)
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-limit", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	txs, err := h.store.List(r.Context(), filter)
	if err != nil {
		zap.L().Error("list transactions failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "transaction/list-failed", "failed to list transactions")
		return
	}
	RespondJSON(w, http.StatusOK, txs)
}

// Get returns a single transaction.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	tx, err := h.store.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// Summary returns the dashboard roll-up.
func (h *TransactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summary(r.Context())
	if err != nil {
		zap.L().Error("transaction summary failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "transaction/summary-failed", "failed to build summary")
		return
	}
	RespondJSON(w, http.StatusOK, sum)
}

// UpdateStatus applies one lifecycle transition.
func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	next := models.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !next.Valid() {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-status", "unknown status")
		return
	}

	tx, err := h.lifecycle.Transition(r.Context(), id, next)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidStatusTransition) {
			RespondError(w, r, http.StatusConflict, "transaction/invalid-transition", err.Error())
			return
		}
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// CompleteAllPending applies Pending -> Completed across the board, in
// original order, one visible update at a time.
func (h *TransactionHandler) CompleteAllPending(w http.ResponseWriter, r *http.Request) {
	completed, err := h.lifecycle.CompleteAllPending(r.Context())
	if err != nil {
		zap.L().Error("complete all pending failed", zap.Error(err), zap.Int("completed", completed))
		RespondJSON(w, http.StatusInternalServerError, map[string]any{
			"completed": completed,
			"error":     err.Error(),
		})
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"completed": completed})
}

// PrintReceipt prints a transaction receipt in the requested format.
func (h *TransactionHandler) PrintReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	format := receipt.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = receipt.FormatThermal
	}
	if err := h.lifecycle.PrintReceipt(r.Context(), id, format); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "printed"})
}

// Receipt returns the rendered receipt body without printing.
func (h *TransactionHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	tx, err := h.store.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	format := receipt.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = receipt.FormatThermal
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(receipt.Render(h.brand, tx, format)))
}

// SetRate records a manual exchange-rate edit on an existing transaction.
func (h *TransactionHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Rate float64 `json:"exchange_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	if req.Rate <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-rate", "exchange_rate must be positive")
		return
	}
	if err := h.store.SetExchangeRate(r.Context(), id, req.Rate); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	tx, err := h.store.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) transactionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "invalid transaction ID")
		return uuid.Nil, false
	}
	return id, true
}
