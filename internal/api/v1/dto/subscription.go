package dto

import (
	"time"

	"draftkeeper/internal/model"
)

type SelectPlanRequest struct {
	PlanID string `json:"plan_id" validate:"required,oneof=monthly quarterly yearly"`
}

type CheckoutRequest struct {
	PlanID string `json:"plan_id" validate:"required,oneof=monthly quarterly yearly"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type SubscriptionStatusResponse struct {
	User                   ProfileResponse `json:"user"`
	PlanName               string          `json:"plan_name"`
	Status                 string          `json:"status"`
	CanDownload            bool            `json:"can_download"`
	RemainingFreeDownloads int             `json:"remaining_free_downloads"`
	FreeDownloadLimit      int             `json:"free_download_limit"`
	ExpiryText             string          `json:"expiry_text,omitempty"`
	Headline               string          `json:"headline"`
	ShowUpgradePrompt      bool            `json:"show_upgrade_prompt"`
	RequiresPlanSelection  bool            `json:"requires_plan_selection"`
}

type PaymentResponse struct {
	ID        string    `json:"id"`
	PlanType  string    `json:"plan_type"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func ToPaymentResponses(payments []model.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, PaymentResponse{
			ID:        p.ID,
			PlanType:  string(p.PlanType),
			Amount:    p.Amount,
			Currency:  p.Currency,
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt,
		})
	}
	return out
}
