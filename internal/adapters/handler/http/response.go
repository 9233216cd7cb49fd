package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

const maxBodyBytes = 64 * 1024

const (
	CodeValidation        = "validation"
	CodePollNotFound      = "poll_not_found"
	CodeOptionNotFound    = "option_not_found"
	CodeDuplicateNetwork  = "duplicate_network"
	CodeDuplicateIdentity = "duplicate_identity"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeError maps domain errors to a status and a stable code. Unknown
// errors are storage failures and are not echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, domain.ErrPollNotFound):
		writeErrorCode(w, http.StatusNotFound, CodePollNotFound, err.Error())
	case errors.Is(err, domain.ErrOptionNotFound):
		writeErrorCode(w, http.StatusNotFound, CodeOptionNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateNetwork):
		writeErrorCode(w, http.StatusForbidden, CodeDuplicateNetwork, err.Error())
	case errors.Is(err, domain.ErrDuplicateIdentity):
		writeErrorCode(w, http.StatusForbidden, CodeDuplicateIdentity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorCode(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return false
	}
	return true
}
