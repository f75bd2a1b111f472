package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/latticehq/lattice/internal/domain"
	"github.com/latticehq/lattice/pkg/validator"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

// respondDomainError maps the shared error taxonomy onto HTTP. Forbidden
// and NotFound deliberately carry the same message text so a caller cannot
// probe for existence. Anything unrecognized is logged and turned into a
// generic 500 with no internal detail.
func respondDomainError(w http.ResponseWriter, log *logrus.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Resource not found or access denied")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found or access denied")
	case errors.Is(err, domain.ErrAlreadyActioned):
		writeError(w, http.StatusConflict, "ALREADY_ACTIONED", "Invitation was already actioned")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", "Operation conflicts with current state")
	case errors.Is(err, domain.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "Upstream fetch timed out")
	default:
		log.WithError(err).Errorf("%s failed", op)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
