package middleware

import (
	"context"
	"errors"
	"net/http"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"

	"github.com/rs/zerolog"
)

// ProfileLoader resolves the caller's profile, applying any pending reset.
type ProfileLoader interface {
	CurrentProfile(ctx context.Context, id model.Identity) (*model.UserProfile, error)
}

// RequireAdmin lets only admin profiles through. Must run after AuthMiddleware.
func RequireAdmin(profiles ProfileLoader, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := loadProfile(w, r, profiles, logger)
			if !ok {
				return
			}
			if !p.IsAdmin() {
				logger.Warn().Str("user_id", p.ID).Str("path", r.URL.Path).Msg("Non-admin access to admin route")
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlanSelection blocks template routes until a non-admin user has
// chosen a plan.
func RequirePlanSelection(profiles ProfileLoader, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := loadProfile(w, r, profiles, logger)
			if !ok {
				return
			}
			if entitlement.RequiresPlanSelection(p) {
				http.Error(w, "plan_selection_required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loadProfile(w http.ResponseWriter, r *http.Request, profiles ProfileLoader, logger zerolog.Logger) (*model.UserProfile, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	p, err := profiles.CurrentProfile(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to load profile")
		if errors.Is(err, entitlement.ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
		} else {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return p, true
}
