// Package identity talks to the Supabase GoTrue auth API.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"draftkeeper/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

var (
	// ErrInvalidCredentials is returned when sign-in is refused.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRejected is returned when the provider refuses a sign-up, for
	// instance because the email is already registered.
	ErrRejected = errors.New("identity provider rejected the request")
	// ErrConfirmationRequired is returned by SignUp when the account exists
	// but the email must be confirmed before a session is issued.
	ErrConfirmationRequired = errors.New("email confirmation required")
)

// Provider is the authentication collaborator.
type Provider interface {
	SignUp(ctx context.Context, email, password, name string) (*model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

const requestTimeout = 15 * time.Second

type goTrueClient struct {
	baseURL string
	apiKey  string
	logger  zerolog.Logger
}

func NewGoTrueClient(supabaseURL, anonKey string, logger zerolog.Logger) Provider {
	return &goTrueClient{
		baseURL: strings.TrimRight(supabaseURL, "/") + "/auth/v1",
		apiKey:  anonKey,
		logger:  logger.With().Str("service", "GoTrueClient").Logger(),
	}
}

// client returns a gotrue client whose requests carry ctx.
func (c *goTrueClient) client(ctx context.Context) gotrue.Client {
	return gotrue.New("", c.apiKey).
		WithCustomGoTrueURL(c.baseURL).
		WithClient(http.Client{
			Timeout:   requestTimeout,
			Transport: contextTransport{ctx: ctx, next: http.DefaultTransport},
		})
}

func (c *goTrueClient) SignUp(ctx context.Context, email, password, name string) (*model.Session, error) {
	res, err := c.client(ctx).Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     map[string]interface{}{"name": name},
	})
	if err != nil {
		status, detail, ok := statusOf(err)
		if ok && status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %s", ErrRejected, detail)
		}
		return nil, c.callFailed("signup", err)
	}

	if res.AccessToken == "" {
		// With email confirmation enabled the response is the bare user.
		return &model.Session{Identity: toIdentity(res.User, name)}, ErrConfirmationRequired
	}
	s := res.Session
	if s.User.ID == uuid.Nil {
		s.User = res.User
	}
	return toSession(s, name), nil
}

func (c *goTrueClient) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	res, err := c.client(ctx).SignInWithEmailPassword(email, password)
	if err != nil {
		status, detail, ok := statusOf(err)
		if ok && (status == http.StatusBadRequest || status == http.StatusUnauthorized) {
			c.logger.Info().Str("email", email).Int("status_code", status).Msg("Sign-in refused")
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, detail)
		}
		return nil, c.callFailed("sign-in", err)
	}
	return toSession(res.Session, ""), nil
}

func (c *goTrueClient) SignOut(ctx context.Context, accessToken string) error {
	err := c.client(ctx).WithToken(accessToken).Logout()
	if err == nil {
		return nil
	}
	// An already revoked token is as good as signed out.
	if status, _, ok := statusOf(err); ok && (status == http.StatusOK || status == http.StatusUnauthorized) {
		return nil
	}
	return c.callFailed("logout", err)
}

func (c *goTrueClient) callFailed(op string, err error) error {
	if status, _, ok := statusOf(err); !ok || status >= http.StatusInternalServerError {
		c.logger.Error().Err(err).Str("operation", op).Msg("Identity provider request failed")
	}
	return fmt.Errorf("%s: %w", op, err)
}

type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

var statusPattern = regexp.MustCompile(`(?s)response status code (\d+)(?::\s*(.*))?`)

// statusOf extracts the HTTP status and error message gotrue reports for
// non-success responses.
func statusOf(err error) (int, string, bool) {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, "", false
	}
	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, "", false
	}
	return status, decodeError(m[2]), true
}

// goTrueError covers both error shapes the API returns.
type goTrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func decodeError(body string) string {
	body = strings.TrimSpace(body)
	var e goTrueError
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return body
	}
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return body
}

func toIdentity(u types.User, fallbackName string) model.Identity {
	name, _ := u.UserMetadata["name"].(string)
	if name == "" {
		name = fallbackName
	}
	return model.Identity{UserID: u.ID.String(), Email: u.Email, Name: name}
}

func toSession(s types.Session, fallbackName string) *model.Session {
	expires := time.Unix(s.ExpiresAt, 0).UTC()
	if s.ExpiresAt == 0 {
		expires = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return &model.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    expires,
		Identity:     toIdentity(s.User, fallbackName),
	}
}
