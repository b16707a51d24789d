package dto

import (
	"time"

	"draftkeeper/internal/model"
)

// ProfileResponse is the public view of a user profile.
type ProfileResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               string     `json:"role"`
	IsPremium          bool       `json:"is_premium"`
	SelectedPlan       *string    `json:"selected_plan"`
	PlanExpiryDate     *time.Time `json:"plan_expiry_date"`
	DownloadsThisMonth int        `json:"downloads_this_month"`
	LastResetDate      time.Time  `json:"last_reset_date"`
	CreatedAt          time.Time  `json:"created_at"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type DownloadHistoryItem struct {
	ID           string    `json:"id"`
	DraftID      string    `json:"draft_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

func ToProfileResponse(p *model.UserProfile) ProfileResponse {
	resp := ProfileResponse{
		ID:                 p.ID,
		Email:              p.Email,
		Name:               p.Name,
		Role:               string(p.Role),
		IsPremium:          p.IsPremium,
		PlanExpiryDate:     p.PlanExpiryDate,
		DownloadsThisMonth: p.DownloadsThisMonth,
		LastResetDate:      p.LastResetDate,
		CreatedAt:          p.CreatedAt,
	}
	if id, ok := p.SelectedPlan.Plan(); ok {
		s := string(id)
		resp.SelectedPlan = &s
	}
	return resp
}
