package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/circularsync/gateway/internal/domain"
	"github.com/circularsync/gateway/internal/logger"
	"github.com/circularsync/gateway/internal/resilience"
)

type errorResponse struct {
	Error string `json:"error"`
}

// invalidationResponse is the body of every DELETE endpoint.
type invalidationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted *int64 `json:"deleted,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps a read-path error to a status code. Clients only
// ever see a generic message; the cause is logged.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	log := logger.From(r.Context(), slog.Default())
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg+" not found")
	case errors.Is(err, resilience.ErrCircuitOpen):
		log.Warn("upstream circuit open", "error", err)
		writeError(w, http.StatusServiceUnavailable, "upstream temporarily unavailable")
	case errors.Is(err, domain.ErrMalformed):
		log.Error("malformed upstream payload", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute "+fallbackMsg)
	case errors.Is(err, domain.ErrUpstream):
		log.Error("upstream request failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch "+fallbackMsg)
	default:
		log.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeInvalidation answers a DELETE endpoint.
func writeInvalidation(w http.ResponseWriter, r *http.Request, err error, what string, deleted *int64) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, invalidationResponse{Success: true, Message: what + " cache cleared", Deleted: deleted})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, invalidationResponse{Message: validationMessage(err)})
	case errors.Is(err, domain.ErrPatternUnsupported):
		writeJSON(w, http.StatusNotImplemented, invalidationResponse{Message: "pattern invalidation is not supported by the cache backend"})
	default:
		logger.From(r.Context(), slog.Default()).Error("cache invalidation failed", "target", what, "error", err)
		writeJSON(w, http.StatusInternalServerError, invalidationResponse{Message: "failed to clear " + what + " cache"})
	}
}

// validationMessage strips the sentinel suffix from a validation error.
func validationMessage(err error) string {
	return strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error())
}
