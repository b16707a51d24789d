package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/identity"
	"draftkeeper/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the 400 response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeServiceError maps service sentinels to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrPlanUnknown),
		errors.Is(err, identity.ErrRejected):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidSignature):
		http.Error(w, "invalid signature", http.StatusBadRequest)
	case errors.Is(err, identity.ErrInvalidCredentials):
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, service.ErrPlanSelectionRequired):
		http.Error(w, "plan_selection_required", http.StatusForbidden)
	case errors.Is(err, service.ErrUnauthorized):
		http.Error(w, "download_limit_reached", http.StatusForbidden)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, service.ErrDraftUnavailable):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, entitlement.ErrVersionConflict):
		http.Error(w, "profile was modified concurrently, retry", http.StatusConflict)
	default:
		logger.Error().Err(err).Msg("request failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
