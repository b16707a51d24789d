package handler

import (
	"errors"
	"net/http"

	"draftkeeper/internal/api/v1/dto"
	"draftkeeper/internal/identity"
	"draftkeeper/internal/middleware"
	"draftkeeper/internal/model"
	"draftkeeper/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	accounts service.AccountService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewAuthHandler(accounts service.AccountService, v *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, validate: v, logger: logger}
}

// RegisterRoutes mounts the v1 auth routes. Sign-out needs a valid session.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/signup", h.signUp)
	mux.HandleFunc("POST /auth/signin", h.signIn)
	mux.Handle("POST /auth/signout", authMw(http.HandlerFunc(h.signOut)))
}

func (h *AuthHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	sess, profile, err := h.accounts.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if errors.Is(err, identity.ErrConfirmationRequired) {
		writeJSON(w, http.StatusAccepted, dto.AuthResponse{
			User:                 dto.ToProfileResponse(profile),
			ConfirmationRequired: true,
		}, h.logger)
		return
	}
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse(sess, profile), h.logger)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	sess, profile, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, authResponse(sess, profile), h.logger)
}

func (h *AuthHandler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SignOut(r.Context(), middleware.TokenFrom(r.Context())); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func authResponse(sess *model.Session, p *model.UserProfile) dto.AuthResponse {
	return dto.AuthResponse{
		Session: &dto.SessionResponse{
			AccessToken:  sess.AccessToken,
			RefreshToken: sess.RefreshToken,
			ExpiresAt:    sess.ExpiresAt,
		},
		User: dto.ToProfileResponse(p),
	}
}
