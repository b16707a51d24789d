package service

import (
	"context"
	"fmt"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/metrics"
	"draftkeeper/internal/model"
	"draftkeeper/internal/repository"

	"github.com/rs/zerolog"
)

// EventQueue takes download events for asynchronous processing.
type EventQueue interface {
	SendJSON(ctx context.Context, queue string, v any) (int64, error)
}

type DownloadResult struct {
	Draft                  *model.Draft
	URL                    string
	Profile                *model.UserProfile
	RemainingFreeDownloads int
	// UpgradePrompt is set when this download used the last free slot.
	UpgradePrompt bool
}

// DownloadService hands out template files to entitled users.
type DownloadService interface {
	Download(ctx context.Context, id model.Identity, draftID string) (*DownloadResult, error)
	History(ctx context.Context, id model.Identity, limit int) ([]model.Download, error)
}

type downloadService struct {
	accounts  AccountService
	engine    *entitlement.Engine
	drafts    repository.DraftRepository
	downloads repository.DownloadRepository
	files     FileStore
	queue     EventQueue
	queueName string
	logger    zerolog.Logger
}

// NewDownloadService wires the download flow. queue may be nil, in which case
// download events are not published.
func NewDownloadService(accounts AccountService, engine *entitlement.Engine, drafts repository.DraftRepository, downloads repository.DownloadRepository, files FileStore, queue EventQueue, queueName string, logger zerolog.Logger) DownloadService {
	return &downloadService{
		accounts:  accounts,
		engine:    engine,
		drafts:    drafts,
		downloads: downloads,
		files:     files,
		queue:     queue,
		queueName: queueName,
		logger:    logger.With().Str("service", "DownloadService").Logger(),
	}
}

func (s *downloadService) Download(ctx context.Context, id model.Identity, draftID string) (*DownloadResult, error) {
	p, err := s.accounts.CurrentProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if entitlement.RequiresPlanSelection(p) {
		metrics.DownloadsDenied.WithLabelValues("plan_selection_required").Inc()
		return nil, ErrPlanSelectionRequired
	}
	if !entitlement.CanDownload(p) {
		metrics.DownloadsDenied.WithLabelValues("quota_exhausted").Inc()
		s.logger.Info().Str("user_id", p.ID).Int("downloads", p.DownloadsThisMonth).Msg("Download denied, free limit reached")
		return nil, fmt.Errorf("%w: free download limit reached, upgrade to continue", ErrUnauthorized)
	}

	d, err := s.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if !d.IsPublished && !p.IsAdmin() {
		return nil, ErrDraftUnavailable
	}
	if d.StoragePath == "" {
		return nil, fmt.Errorf("%w: no file uploaded", ErrDraftUnavailable)
	}

	// Sign before recording so a storage failure does not use up a download.
	url, err := s.files.PresignDownload(ctx, d.StoragePath, d.FileName)
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", d.ID).Msg("Failed to sign download URL")
		return nil, err
	}

	updated, rec, err := s.engine.RecordDownload(ctx, p, d.ID)
	if err != nil {
		return nil, err
	}
	tier := metrics.Tier(updated.IsAdmin(), updated.IsPremium)
	metrics.DownloadsRecorded.WithLabelValues(tier).Inc()
	s.publish(ctx, rec, tier)

	res := &DownloadResult{
		Draft:                  d,
		URL:                    url,
		Profile:                updated,
		RemainingFreeDownloads: entitlement.RemainingFreeDownloads(updated),
	}
	res.UpgradePrompt = !updated.IsAdmin() && !updated.IsPremium && res.RemainingFreeDownloads == 0
	s.logger.Info().Str("user_id", updated.ID).Str("draft_id", d.ID).Str("tier", tier).Msg("Download recorded")
	return res, nil
}

func (s *downloadService) History(ctx context.Context, id model.Identity, limit int) ([]model.Download, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	list, err := s.downloads.ListByUser(ctx, id.UserID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to list downloads")
		return nil, err
	}
	return list, nil
}

// publish queues the event for the analytics orchestrator. The download is
// already recorded, so a queue failure is only logged.
func (s *downloadService) publish(ctx context.Context, d *model.Download, tier string) {
	if s.queue == nil || d == nil {
		return
	}
	ev := model.DownloadEvent{
		DownloadID:   d.ID,
		UserID:       d.UserID,
		DraftID:      d.DraftID,
		Tier:         tier,
		DownloadedAt: d.DownloadedAt,
	}
	if _, err := s.queue.SendJSON(ctx, s.queueName, ev); err != nil {
		s.logger.Error().Err(err).Str("download_id", d.ID).Msg("Failed to enqueue download event")
	}
}
