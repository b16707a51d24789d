package handler

import (
	"io"
	"net/http"

	"draftkeeper/internal/api/v1/dto"
	"draftkeeper/internal/middleware"
	"draftkeeper/internal/model"
	"draftkeeper/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxWebhookBytes = 65536

// SubscriptionHandler handles plan, status and payment endpoints.
type SubscriptionHandler struct {
	subs     service.SubscriptionService
	billing  service.BillingService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewSubscriptionHandler(subs service.SubscriptionService, billing service.BillingService, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, billing: billing, validate: v, logger: logger}
}

// RegisterRoutes registers the subscription endpoints. The webhook is
// authenticated by its signature, not by a session.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /plans", h.listPlans)
	mux.Handle("POST /subscriptions/select", authMw(http.HandlerFunc(h.selectPlan)))
	mux.Handle("GET /subscriptions/status", authMw(http.HandlerFunc(h.status)))
	mux.Handle("POST /subscriptions/checkout", authMw(http.HandlerFunc(h.checkout)))
	mux.Handle("GET /subscriptions/payments", authMw(http.HandlerFunc(h.payments)))
	mux.HandleFunc("POST /subscriptions/webhook", h.webhook)
}

func (h *SubscriptionHandler) listPlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.subs.Plans(), h.logger)
}

func (h *SubscriptionHandler) selectPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.SelectPlanRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	p, err := h.subs.SelectPlan(r.Context(), id, model.PlanID(req.PlanID))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileResponse(p), h.logger)
}

func (h *SubscriptionHandler) status(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, err := h.subs.Status(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.SubscriptionStatusResponse{
		User:                   dto.ToProfileResponse(st.Profile),
		PlanName:               st.PlanName,
		Status:                 string(st.Status),
		CanDownload:            st.CanDownload,
		RemainingFreeDownloads: st.RemainingFreeDownloads,
		FreeDownloadLimit:      st.FreeDownloadLimit,
		ExpiryText:             st.ExpiryText,
		Headline:               st.Headline,
		ShowUpgradePrompt:      st.ShowUpgradePrompt,
		RequiresPlanSelection:  st.RequiresPlanSelection,
	}, h.logger)
}

func (h *SubscriptionHandler) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	res, err := h.billing.CreateCheckoutSession(r.Context(), id, model.PlanID(req.PlanID))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.CheckoutResponse{
		SessionID: res.SessionID,
		URL:       res.URL,
		Amount:    res.Amount,
		Currency:  res.Currency,
	}, h.logger)
}

func (h *SubscriptionHandler) payments(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	payments, err := h.billing.Payments(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToPaymentResponses(payments), h.logger)
}

func (h *SubscriptionHandler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.logger.Error().Err(err).Msg("Error reading webhook request body")
		http.Error(w, "error reading request body", http.StatusServiceUnavailable)
		return
	}
	event, err := h.billing.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if err := h.billing.HandleEvent(r.Context(), event); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusOK)
}
