package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-key"

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":           sub,
		"email":         sub + "@example.com",
		"user_metadata": map[string]any{"name": "Tester"},
		"exp":           exp.Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			http.Error(w, "missing", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(id.UserID + "|" + id.Email + "|" + id.Name + "|" + TokenFrom(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(testSecret, zerolog.Nop())(echoIdentity())
	valid := signToken(t, "user-1", time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signToken(t, "user-1", time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + valid, http.StatusOK, "user-1|user-1@example.com|Tester|" + valid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

type stubProfiles struct {
	profile *model.UserProfile
	err     error
}

func (s stubProfiles) CurrentProfile(context.Context, model.Identity) (*model.UserProfile, error) {
	return s.profile, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func serveGate(gate func(http.Handler) http.Handler, withIdentity bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/drafts", nil)
	if withIdentity {
		req = req.WithContext(WithIdentity(req.Context(), model.Identity{UserID: "u1"}))
	}
	rec := httptest.NewRecorder()
	gate(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestRequirePlanSelection(t *testing.T) {
	now := time.Now()
	fresh := model.NewUserProfile("u1", "u1@example.com", "U", now)
	chosen := fresh.Clone()
	chosen.SelectedPlan = model.ChoosePlan(model.PlanMonthly)
	admin := fresh.Clone()
	admin.Role = model.RoleAdmin

	rec := serveGate(RequirePlanSelection(stubProfiles{profile: fresh}, zerolog.Nop()), true)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "plan_selection_required")

	assert.Equal(t, http.StatusNoContent, serveGate(RequirePlanSelection(stubProfiles{profile: chosen}, zerolog.Nop()), true).Code)
	assert.Equal(t, http.StatusNoContent, serveGate(RequirePlanSelection(stubProfiles{profile: admin}, zerolog.Nop()), true).Code)
	assert.Equal(t, http.StatusUnauthorized, serveGate(RequirePlanSelection(stubProfiles{profile: chosen}, zerolog.Nop()), false).Code)
	assert.Equal(t, http.StatusInternalServerError,
		serveGate(RequirePlanSelection(stubProfiles{err: errors.New("db down")}, zerolog.Nop()), true).Code)
}

func TestRequireAdmin(t *testing.T) {
	user := model.NewUserProfile("u1", "u1@example.com", "U", time.Now())
	admin := user.Clone()
	admin.Role = model.RoleAdmin

	assert.Equal(t, http.StatusForbidden, serveGate(RequireAdmin(stubProfiles{profile: user}, zerolog.Nop()), true).Code)
	assert.Equal(t, http.StatusNoContent, serveGate(RequireAdmin(stubProfiles{profile: admin}, zerolog.Nop()), true).Code)
	assert.Equal(t, http.StatusNotFound,
		serveGate(RequireAdmin(stubProfiles{err: entitlement.ErrProfileNotFound}, zerolog.Nop()), true).Code)
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	h := LoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/plans?x=1", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"uri":"/v1/plans?x=1"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"bytes":15`)
}
