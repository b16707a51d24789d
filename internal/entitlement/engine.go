package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"draftkeeper/internal/metrics"
	"draftkeeper/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProfileStore is the record store the engine persists profile changes to.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	// UpdateProfile writes the listed fields of p, guarded by p.Version, and
	// returns the stored profile.
	UpdateProfile(ctx context.Context, p *model.UserProfile, fields ...model.ProfileField) (*model.UserProfile, error)
}

// DownloadLog stores the append-only download facts.
type DownloadLog interface {
	// RecordDownload stores d and, when counted is non-nil, the counter change
	// in counted (guarded by its Version) atomically. It returns the stored
	// profile, or nil when counted is nil.
	RecordDownload(ctx context.Context, d *model.Download, counted *model.UserProfile) (*model.UserProfile, error)
}

// Engine applies entitlement state transitions and persists them. It never
// mutates the profile passed in; callers get a new profile only after the
// store accepted the write.
type Engine struct {
	store     ProfileStore
	downloads DownloadLog
	clock     Clock
	newID     func() string
	logger    zerolog.Logger
}

func NewEngine(store ProfileStore, downloads DownloadLog, clock Clock, logger zerolog.Logger) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		store:     store,
		downloads: downloads,
		clock:     clock,
		newID:     uuid.NewString,
		logger:    logger.With().Str("component", "EntitlementEngine").Logger(),
	}
}

// Now exposes the engine clock so callers render status against the same time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// LoadProfile fetches the profile and applies any pending period reset.
func (e *Engine) LoadProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	p, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.EvaluateAndApplyReset(ctx, p)
}

// EvaluateAndApplyReset zeroes the download counter when the counting period
// has elapsed. It runs once per profile load, before any quota decision.
func (e *Engine) EvaluateAndApplyReset(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	now := e.clock.Now()
	if !ShouldReset(p, now) {
		return p, nil
	}

	next := p.Clone()
	next.DownloadsThisMonth = 0
	next.LastResetDate = now

	saved, err := e.persist(ctx, next, model.FieldDownloadsThisMonth, model.FieldLastResetDate)
	if err != nil {
		e.logger.Error().Err(err).Str("user_id", p.ID).Msg("Failed to persist download counter reset")
		return nil, err
	}

	period := PeriodMonths(p)
	metrics.QuotaResets.WithLabelValues(strconv.Itoa(period)).Inc()
	e.logger.Info().Str("user_id", p.ID).Int("period_months", period).Int("previous_downloads", p.DownloadsThisMonth).Msg("Download counter reset")
	return saved, nil
}

// RecordDownload appends the download fact and bumps the counter as one write.
// Admins are not counted. Premium downloads are counted for audit only.
func (e *Engine) RecordDownload(ctx context.Context, p *model.UserProfile, draftID string) (*model.UserProfile, *model.Download, error) {
	if !CanDownload(p) {
		return nil, nil, fmt.Errorf("%w: user %s has used %d of %d free downloads", ErrUnauthorized, p.ID, p.DownloadsThisMonth, FreeDownloadLimit)
	}

	d := &model.Download{
		ID:           e.newID(),
		UserID:       p.ID,
		DraftID:      draftID,
		DownloadedAt: e.clock.Now(),
	}

	var counted *model.UserProfile
	if !p.IsAdmin() {
		counted = p.Clone()
		counted.DownloadsThisMonth++
	}
	saved, err := e.downloads.RecordDownload(ctx, d, counted)
	if err != nil {
		err = asPersistenceFailure(err, "record download for user "+p.ID)
		e.logger.Error().Err(err).Str("user_id", p.ID).Str("draft_id", draftID).Msg("Failed to record download")
		return nil, nil, err
	}
	if saved == nil {
		saved = p.Clone()
	}
	return saved, d, nil
}

// ApplyPlanSelection starts a free trial of planID. Selecting again before
// paying restarts the trial counter.
func (e *Engine) ApplyPlanSelection(ctx context.Context, p *model.UserProfile, planID model.PlanID) (*model.UserProfile, error) {
	if !planID.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrPlanUnknown, planID)
	}

	next := p.Clone()
	next.SelectedPlan = model.ChoosePlan(planID)
	next.IsPremium = false
	next.DownloadsThisMonth = 0
	next.LastResetDate = e.clock.Now()

	saved, err := e.persist(ctx, next,
		model.FieldSelectedPlan,
		model.FieldIsPremium,
		model.FieldDownloadsThisMonth,
		model.FieldLastResetDate,
	)
	if err != nil {
		e.logger.Error().Err(err).Str("user_id", p.ID).Str("plan_id", string(planID)).Msg("Failed to persist plan selection")
		return nil, err
	}
	return saved, nil
}

// ApplyPaymentConfirmation upgrades the profile to premium for planID.
// Deduplicating repeated deliveries of the same payment is the caller's job.
func (e *Engine) ApplyPaymentConfirmation(ctx context.Context, p *model.UserProfile, planID model.PlanID) (*model.UserProfile, error) {
	now := e.clock.Now()
	expiry, err := PlanExpiry(planID, now)
	if err != nil {
		return nil, err
	}

	next := p.Clone()
	next.IsPremium = true
	next.SelectedPlan = model.ChoosePlan(planID)
	next.PlanExpiryDate = &expiry
	next.DownloadsThisMonth = 0
	next.LastResetDate = now

	saved, err := e.persist(ctx, next,
		model.FieldIsPremium,
		model.FieldSelectedPlan,
		model.FieldPlanExpiryDate,
		model.FieldDownloadsThisMonth,
		model.FieldLastResetDate,
	)
	if err != nil {
		e.logger.Error().Err(err).Str("user_id", p.ID).Str("plan_id", string(planID)).Msg("Failed to persist payment confirmation")
		return nil, err
	}
	e.logger.Info().Str("user_id", p.ID).Str("plan_id", string(planID)).Time("plan_expiry_date", expiry).Msg("Premium plan activated")
	return saved, nil
}

func (e *Engine) persist(ctx context.Context, p *model.UserProfile, fields ...model.ProfileField) (*model.UserProfile, error) {
	saved, err := e.store.UpdateProfile(ctx, p, fields...)
	if err != nil {
		return nil, asPersistenceFailure(err, "update profile "+p.ID)
	}
	return saved, nil
}

func asPersistenceFailure(err error, op string) error {
	if errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrPersistenceFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailure, op, err)
}
