package model

import "time"

// Download is an append-only audit fact written once per successful download.
type Download struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	DraftID      string    `json:"draft_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// PaymentStatus tracks a payment row through the checkout flow.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records a provider payment so confirmations can be deduplicated.
type Payment struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	ProviderPaymentID string        `json:"provider_payment_id"`
	ProviderSessionID string        `json:"provider_session_id,omitempty"`
	Amount            int64         `json:"amount"`
	Currency          string        `json:"currency"`
	PlanType          PlanID        `json:"plan_type"`
	Status            PaymentStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// DownloadEvent is queued after every recorded download for the analytics pipeline.
type DownloadEvent struct {
	DownloadID   string    `json:"download_id"`
	UserID       string    `json:"user_id"`
	DraftID      string    `json:"draft_id"`
	Tier         string    `json:"tier"`
	DownloadedAt time.Time `json:"downloaded_at"`
}
