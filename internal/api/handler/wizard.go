package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/wizard"
)

// WizardHandler exposes the transaction wizard over HTTP. Each session is
// one wizard instance; the session ID travels in the URL.
type WizardHandler struct {
	manager *wizard.Manager
}

func NewWizardHandler(m *wizard.Manager) *WizardHandler {
	return &WizardHandler{manager: m}
}

// Open creates a fresh wizard session at the overview step.
func (h *WizardHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, wiz := h.manager.Open()
	RespondJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"state":      wiz.Snapshot(),
	})
}

// Snapshot returns the current session state and quote.
func (h *WizardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"state": wiz.Snapshot(),
		"quote": wiz.Quote(),
	})
}

// StartSend begins a send flow.
func (h *WizardHandler) StartSend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(wiz *wizard.Wizard) error { return wiz.StartSend() })
}

// StartReceive begins a receive flow.
func (h *WizardHandler) StartReceive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(wiz *wizard.Wizard) error { return wiz.StartReceive() })
}

// PendingOptions lists pending transactions selectable in a receive flow.
func (h *WizardHandler) PendingOptions(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	txs, err := wiz.PendingOptions(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, txs)
}

// SelectPending picks a pending transaction and moves to the form step.
func (h *WizardHandler) SelectPending(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	id, err := uuid.Parse(req.TransactionID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "invalid transaction ID")
		return
	}
	if err := wiz.SelectPending(r.Context(), id); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"state": wiz.Snapshot()})
}

// SetForm stores the draft form and returns the recalculated quote.
func (h *WizardHandler) SetForm(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	var form wizard.FormInput
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	wiz.SetForm(form)
	RespondJSON(w, http.StatusOK, map[string]any{
		"state": wiz.Snapshot(),
		"quote": wiz.Quote(),
	})
}

// SaveOnly commits the form as a pending transaction and returns to overview.
func (h *WizardHandler) SaveOnly(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, func(wiz *wizard.Wizard) (*models.Transaction, error) {
		return wiz.SaveOnly(r.Context())
	})
}

// SaveAndContinue commits the form and advances to the receiver step.
func (h *WizardHandler) SaveAndContinue(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, func(wiz *wizard.Wizard) (*models.Transaction, error) {
		return wiz.SaveAndContinue(r.Context())
	})
}

// CreateTransaction runs the full securing path; it cannot be cancelled
// once started.
func (h *WizardHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, func(wiz *wizard.Wizard) (*models.Transaction, error) {
		return wiz.CreateTransaction(r.Context())
	})
}

// SubmitReceiver records receiver details and advances to preview.
func (h *WizardHandler) SubmitReceiver(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	var info models.ReceiverInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}
	if err := wiz.SubmitReceiver(info); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"state": wiz.Snapshot()})
}

// ConfirmPreview completes the in-flight transaction and prints its receipt.
func (h *WizardHandler) ConfirmPreview(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, func(wiz *wizard.Wizard) (*models.Transaction, error) {
		return wiz.ConfirmPreview(r.Context())
	})
}

// Back moves one step backwards.
func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(wiz *wizard.Wizard) error { return wiz.Back() })
}

// Cancel abandons the flow and returns the session to overview.
func (h *WizardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	wiz.Cancel()
	RespondJSON(w, http.StatusOK, map[string]any{"state": wiz.Snapshot()})
}

// Close discards the session entirely.
func (h *WizardHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.manager.Close(chi.URLParam(r, "session"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *WizardHandler) session(w http.ResponseWriter, r *http.Request) (*wizard.Wizard, bool) {
	wiz, err := h.manager.Get(chi.URLParam(r, "session"))
	if err != nil {
		RespondDomainError(w, r, err)
		return nil, false
	}
	return wiz, true
}

func (h *WizardHandler) transition(w http.ResponseWriter, r *http.Request, fn func(*wizard.Wizard) error) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := fn(wiz); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"state": wiz.Snapshot()})
}

func (h *WizardHandler) commit(w http.ResponseWriter, r *http.Request, fn func(*wizard.Wizard) (*models.Transaction, error)) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	tx, err := fn(wiz)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"state":       wiz.Snapshot(),
		"transaction": tx,
	})
}
