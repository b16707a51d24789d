package middleware

import (
	"context"
	"net/http"
	"strings"

	"draftkeeper/internal/model"
	"draftkeeper/internal/util"

	"github.com/rs/zerolog"
)

// Injected key type to avoid context collisions
type contextKey string

const (
	UserContextKey  = contextKey("user")
	TokenContextKey = contextKey("token")
)

// AuthMiddleware validates the bearer token and stores the caller identity
// in the request context.
func AuthMiddleware(jwtSecret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("Authorization header missing")
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("Invalid authorization header")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := parts[1]
			claims, err := util.ValidateJWT(tokenString, jwtSecret)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Invalid token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			id := model.Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
				Name:   claims.UserMetadata.Name,
			}
			ctx := context.WithValue(r.Context(), UserContextKey, id)
			ctx = context.WithValue(ctx, TokenContextKey, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity stored by AuthMiddleware.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(UserContextKey).(model.Identity)
	return id, ok && id.UserID != ""
}

func TokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(TokenContextKey).(string)
	return tok
}

// WithIdentity returns ctx carrying id. Used by tests and internal callers.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, UserContextKey, id)
}
