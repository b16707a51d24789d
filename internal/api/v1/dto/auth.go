package dto

import "time"

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponse is returned by sign-up and sign-in. Session is nil while the
// email address awaits confirmation.
type AuthResponse struct {
	Session              *SessionResponse `json:"session"`
	User                 ProfileResponse  `json:"user"`
	ConfirmationRequired bool             `json:"confirmation_required,omitempty"`
}
