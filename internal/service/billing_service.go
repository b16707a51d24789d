package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/metrics"
	"draftkeeper/internal/model"
	"draftkeeper/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrInvalidSignature is returned for webhook payloads that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutCreator opens a hosted checkout session.
type CheckoutCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// BillingConfig holds the payment settings the service needs.
type BillingConfig struct {
	APIKey        string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type CheckoutResult struct {
	SessionID string
	URL       string
	Amount    int64
	Currency  string
}

// BillingService manages hosted checkout and payment confirmation.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, id model.Identity, planID model.PlanID) (*CheckoutResult, error)
	// ConstructEvent verifies a webhook payload against its signature header.
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
	HandleEvent(ctx context.Context, event stripe.Event) error
	// Payments lists the caller's recorded payments, newest first.
	Payments(ctx context.Context, id model.Identity) ([]model.Payment, error)
}

type billingService struct {
	cfg      BillingConfig
	accounts AccountService
	users    repository.UserRepository
	payments repository.PaymentRepository
	engine   *entitlement.Engine
	checkout CheckoutCreator
	newID    func() string
	logger   zerolog.Logger
}

// NewBillingService sets the Stripe key and returns the service with a scoped logger.
// A nil checkout creator uses the Stripe API.
func NewBillingService(cfg BillingConfig, accounts AccountService, users repository.UserRepository, payments repository.PaymentRepository,
	engine *entitlement.Engine, checkout CheckoutCreator, logger zerolog.Logger) BillingService {
	if cfg.APIKey != "" {
		stripe.Key = cfg.APIKey
	}
	if checkout == nil {
		checkout = checkoutsession.New
	}
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	return &billingService{
		cfg:      cfg,
		accounts: accounts,
		users:    users,
		payments: payments,
		engine:   engine,
		checkout: checkout,
		newID:    uuid.NewString,
		logger:   logger.With().Str("service", "BillingService").Logger(),
	}
}

// CreateCheckoutSession opens a one-time payment for planID. The plan and
// user ride along in the session metadata and come back in the webhook.
func (s *billingService) CreateCheckoutSession(ctx context.Context, id model.Identity, planID model.PlanID) (*CheckoutResult, error) {
	plan, ok := model.LookupPlan(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entitlement.ErrPlanUnknown, planID)
	}
	p, err := s.accounts.CurrentProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return nil, fmt.Errorf("%w: admins have unlimited access", ErrInvalidInput)
	}

	metadata := map[string]string{
		"user_id": p.ID,
		"plan_id": string(plan.ID),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(p.ID),
		CustomerEmail:     stripe.String(p.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.cfg.Currency),
				UnitAmount: stripe.Int64(plan.Price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(model.PremiumDisplayName(model.ChoosePlan(plan.ID))),
					Description: stripe.String(fmt.Sprintf("%s plan, %s downloads %s", plan.Name, strings.ToLower(plan.Downloads), plan.Duration)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: metadata},
		SuccessURL:        stripe.String(s.cfg.SuccessURL + "?status=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.cfg.CancelURL + "?status=cancel"),
		Metadata:          metadata,
	}
	params.Context = ctx

	sess, err := s.checkout(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", p.ID).Str("plan_id", string(plan.ID)).Msg("Failed to create Stripe checkout session")
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	s.logger.Info().Str("user_id", p.ID).Str("plan_id", string(plan.ID)).Str("session_id", sess.ID).Msg("Checkout session created")
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL, Amount: plan.Price, Currency: s.cfg.Currency}, nil
}

func (s *billingService) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		return stripe.Event{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return event, nil
}

// HandleEvent applies paid checkouts to the buyer's profile. Redelivered
// events for an already completed payment are ignored.
func (s *billingService) HandleEvent(ctx context.Context, event stripe.Event) error {
	s.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Stripe webhook received")

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			return fmt.Errorf("%w: checkout session payload: %w", ErrInvalidInput, err)
		}
		return s.confirmCheckout(ctx, &cs)
	case "checkout.session.async_payment_failed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("%w: checkout session payload: %w", ErrInvalidInput, err)
		}
		s.logger.Warn().Str("session_id", cs.ID).Str("user_id", cs.Metadata["user_id"]).Msg("Checkout payment failed")
		return nil
	default:
		s.logger.Debug().Str("event_type", string(event.Type)).Msg("Ignoring Stripe event")
		return nil
	}
}

func (s *billingService) confirmCheckout(ctx context.Context, cs *stripe.CheckoutSession) error {
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logger.Info().Str("session_id", cs.ID).Str("payment_status", string(cs.PaymentStatus)).Msg("Checkout completed without payment, waiting")
		return nil
	}

	userID := cs.Metadata["user_id"]
	if userID == "" {
		userID = cs.ClientReferenceID
	}
	planID := model.PlanID(cs.Metadata["plan_id"])
	if userID == "" || !planID.Valid() {
		s.logger.Error().Str("session_id", cs.ID).Str("plan_id", string(planID)).Msg("Checkout session is missing user or plan metadata")
		return fmt.Errorf("%w: checkout session %s has no user or plan", ErrInvalidInput, cs.ID)
	}
	if plan, _ := model.LookupPlan(planID); cs.AmountTotal != 0 && cs.AmountTotal != plan.Price {
		s.logger.Warn().Str("session_id", cs.ID).Int64("amount_total", cs.AmountTotal).Int64("plan_price", plan.Price).Msg("Paid amount differs from plan price")
	}

	paymentID := cs.ID
	if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
		paymentID = cs.PaymentIntent.ID
	}

	payment := &model.Payment{
		ID:                s.newID(),
		UserID:            userID,
		ProviderPaymentID: paymentID,
		ProviderSessionID: cs.ID,
		Amount:            cs.AmountTotal,
		Currency:          strings.ToLower(string(cs.Currency)),
		PlanType:          planID,
	}
	inserted, err := s.payments.RecordPayment(ctx, payment)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to record payment")
		return err
	}
	if !inserted {
		status, err := s.payments.Status(ctx, paymentID)
		if err != nil {
			return err
		}
		if status == model.PaymentCompleted {
			s.logger.Info().Str("payment_id", paymentID).Str("user_id", userID).Msg("Duplicate payment confirmation ignored")
			return nil
		}
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load profile for payment confirmation")
		return err
	}
	if _, err := s.engine.ApplyPaymentConfirmation(ctx, profile, planID); err != nil {
		return err
	}
	if err := s.payments.MarkStatus(ctx, paymentID, model.PaymentCompleted); err != nil {
		s.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to mark payment completed")
		return err
	}

	metrics.PaymentsConfirmed.WithLabelValues(string(planID)).Inc()
	s.logger.Info().Str("user_id", userID).Str("plan_id", string(planID)).Str("payment_id", paymentID).Msg("Payment confirmed")
	return nil
}

func (s *billingService) Payments(ctx context.Context, id model.Identity) ([]model.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, id.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to list payments")
		return nil, err
	}
	return payments, nil
}
