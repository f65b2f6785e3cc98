package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/irocky-stack/rjbtranz/internal/api/problem"
	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/wizard"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an RFC 7807 error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondDomainError maps the known error taxonomy onto HTTP statuses.
func RespondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		RespondError(w, r, http.StatusUnprocessableEntity, "request/validation", err.Error())
	case errors.Is(err, models.ErrNotFound), errors.Is(err, wizard.ErrSessionNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", err.Error())
	case errors.Is(err, models.ErrCommitInFlight):
		RespondError(w, r, http.StatusConflict, "wizard/commit-in-flight", err.Error())
	case errors.Is(err, wizard.ErrInvalidTransition):
		RespondError(w, r, http.StatusConflict, "wizard/invalid-transition", err.Error())
	case errors.Is(err, models.ErrCreationFailed):
		RespondError(w, r, http.StatusBadGateway, "transaction/creation-failed", err.Error())
	default:
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", err.Error())
	}
}
