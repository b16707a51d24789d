package service

import (
	"context"
	"fmt"
	"time"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/metrics"
	"draftkeeper/internal/model"

	"github.com/rs/zerolog"
)

// SubscriptionStatus is the entitlement summary shown on the dashboard.
type SubscriptionStatus struct {
	Profile                *model.UserProfile
	PlanName               string
	Status                 entitlement.PlanStatus
	CanDownload            bool
	RemainingFreeDownloads int
	FreeDownloadLimit      int
	ExpiryText             string
	Headline               string
	// ShowUpgradePrompt is set once a free user is down to the last download.
	ShowUpgradePrompt     bool
	RequiresPlanSelection bool
}

// SubscriptionService defines plan selection and status methods.
type SubscriptionService interface {
	Plans() []model.Plan
	SelectPlan(ctx context.Context, id model.Identity, planID model.PlanID) (*model.UserProfile, error)
	Status(ctx context.Context, id model.Identity) (*SubscriptionStatus, error)
}

type subscriptionService struct {
	accounts AccountService
	engine   *entitlement.Engine
	logger   zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(accounts AccountService, engine *entitlement.Engine, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		accounts: accounts,
		engine:   engine,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) Plans() []model.Plan {
	return model.Plans()
}

// SelectPlan starts the free trial of planID.
func (s *subscriptionService) SelectPlan(ctx context.Context, id model.Identity, planID model.PlanID) (*model.UserProfile, error) {
	p, err := s.accounts.CurrentProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	saved, err := s.engine.ApplyPlanSelection(ctx, p, planID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Str("plan_id", string(planID)).Msg("Failed to select plan")
		return nil, err
	}
	metrics.PlanSelections.WithLabelValues(string(planID)).Inc()
	s.logger.Info().Str("user_id", id.UserID).Str("plan_id", string(planID)).Msg("Trial plan selected")
	return saved, nil
}

func (s *subscriptionService) Status(ctx context.Context, id model.Identity) (*SubscriptionStatus, error) {
	p, err := s.accounts.CurrentProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return Summarize(p, s.engine.Now()), nil
}

// Summarize derives the dashboard summary of p at now.
func Summarize(p *model.UserProfile, now time.Time) *SubscriptionStatus {
	planName := model.PremiumDisplayName(p.SelectedPlan)
	remaining := entitlement.RemainingFreeDownloads(p)

	var headline string
	switch {
	case p.IsAdmin():
		headline = "You have administrator access"
	case p.IsPremium:
		headline = fmt.Sprintf("You're on the %s plan", planName)
	default:
		headline = fmt.Sprintf("You're on %s - %d downloads remaining", planName, remaining)
	}

	return &SubscriptionStatus{
		Profile:                p,
		PlanName:               planName,
		Status:                 entitlement.Status(p, now),
		CanDownload:            entitlement.CanDownload(p),
		RemainingFreeDownloads: remaining,
		FreeDownloadLimit:      entitlement.FreeDownloadLimit,
		ExpiryText:             entitlement.ExpiryText(p, now),
		Headline:               headline,
		ShowUpgradePrompt:      !p.IsAdmin() && !p.IsPremium && p.DownloadsThisMonth >= entitlement.FreeDownloadLimit-1,
		RequiresPlanSelection:  entitlement.RequiresPlanSelection(p),
	}
}
