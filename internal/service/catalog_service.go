package service

import (
	"context"
	"fmt"
	"strings"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"
	"draftkeeper/internal/repository"
	"draftkeeper/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CatalogCache is the read-through cache in front of the published catalog.
type CatalogCache interface {
	Published(ctx context.Context, filter model.CatalogFilter) ([]model.Draft, bool, error)
	StorePublished(ctx context.Context, filter model.CatalogFilter, drafts []model.Draft) error
	Categories(ctx context.Context) ([]string, bool, error)
	StoreCategories(ctx context.Context, categories []string) error
	Invalidate(ctx context.Context) error
}

// FileStore holds the template files.
type FileStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key, fileName string) (string, error)
	Delete(ctx context.Context, key string) error
}

// DraftInput is the admin form for a new draft.
type DraftInput struct {
	Title       string
	Description string
	FileName    string
	FileSize    string
	Category    string
	Tags        []string
	IsPublished bool
}

type UploadTarget struct {
	URL         string
	ObjectKey   string
	ContentType string
}

// CatalogService serves the template catalog to users and admins.
type CatalogService interface {
	Browse(ctx context.Context, filter model.CatalogFilter) ([]model.Draft, error)
	Categories(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]model.Draft, error)
	Get(ctx context.Context, id string) (*model.Draft, error)
	Create(ctx context.Context, admin model.Identity, in DraftInput) (*model.Draft, error)
	Update(ctx context.Context, id string, upd model.DraftUpdate) (*model.Draft, error)
	Delete(ctx context.Context, id string) error
	// UploadURL returns a presigned URL for the draft file and records where it lives.
	UploadURL(ctx context.Context, id, fileName, fileSize string) (*UploadTarget, error)
	Stats(ctx context.Context) (*model.CatalogStats, error)
}

type catalogService struct {
	drafts repository.DraftRepository
	cache  CatalogCache
	files  FileStore
	clock  entitlement.Clock
	logger zerolog.Logger
}

// NewCatalogService wires the catalog. cache may be nil.
func NewCatalogService(drafts repository.DraftRepository, cache CatalogCache, files FileStore, clock entitlement.Clock, logger zerolog.Logger) CatalogService {
	if clock == nil {
		clock = entitlement.SystemClock{}
	}
	return &catalogService{
		drafts: drafts,
		cache:  cache,
		files:  files,
		clock:  clock,
		logger: logger.With().Str("service", "CatalogService").Logger(),
	}
}

func (s *catalogService) Browse(ctx context.Context, filter model.CatalogFilter) ([]model.Draft, error) {
	if s.cache != nil {
		drafts, ok, err := s.cache.Published(ctx, filter)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Catalog cache read failed")
		} else if ok {
			return drafts, nil
		}
	}

	drafts, err := s.drafts.ListPublished(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("search", filter.Search).Str("category", filter.Category).Msg("Failed to list published drafts")
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.StorePublished(ctx, filter, drafts); err != nil {
			s.logger.Warn().Err(err).Msg("Catalog cache write failed")
		}
	}
	return drafts, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		categories, ok, err := s.cache.Categories(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Catalog cache read failed")
		} else if ok {
			return categories, nil
		}
	}

	categories, err := s.drafts.Categories(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list categories")
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.StoreCategories(ctx, categories); err != nil {
			s.logger.Warn().Err(err).Msg("Catalog cache write failed")
		}
	}
	return categories, nil
}

func (s *catalogService) ListAll(ctx context.Context) ([]model.Draft, error) {
	drafts, err := s.drafts.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list drafts")
		return nil, err
	}
	return drafts, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*model.Draft, error) {
	return s.drafts.GetDraft(ctx, id)
}

func (s *catalogService) Create(ctx context.Context, admin model.Identity, in DraftInput) (*model.Draft, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || in.Category == "" {
		return nil, fmt.Errorf("%w: title and category are required", ErrInvalidInput)
	}

	d := &model.Draft{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		UploadDate:  s.clock.Now(),
		Category:    in.Category,
		Tags:        cleanTags(in.Tags),
		IsPublished: in.IsPublished,
		CreatedBy:   admin.UserID,
	}
	if d.FileName != "" {
		if _, err := storage.ContentTypeFor(d.FileName); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		d.StoragePath = storage.ObjectKey(d.ID, d.FileName)
	}

	created, err := s.drafts.CreateDraft(ctx, d)
	if err != nil {
		s.logger.Error().Err(err).Str("title", d.Title).Msg("Failed to create draft")
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info().Str("draft_id", created.ID).Str("created_by", admin.UserID).Msg("Draft created")
	return created, nil
}

func (s *catalogService) Update(ctx context.Context, id string, upd model.DraftUpdate) (*model.Draft, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if upd.Tags != nil {
		tags := cleanTags(*upd.Tags)
		upd.Tags = &tags
	}
	d, err := s.drafts.UpdateDraft(ctx, id, upd)
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Msg("Failed to update draft")
		return nil, err
	}
	s.invalidate(ctx)
	return d, nil
}

func (s *catalogService) Delete(ctx context.Context, id string) error {
	d, err := s.drafts.DeleteDraft(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Msg("Failed to delete draft")
		return err
	}
	if d.StoragePath != "" {
		if err := s.files.Delete(ctx, d.StoragePath); err != nil {
			// The row is gone; an orphaned object is harmless.
			s.logger.Error().Err(err).Str("storage_path", d.StoragePath).Msg("Failed to delete draft file")
		}
	}
	s.invalidate(ctx)
	s.logger.Info().Str("draft_id", id).Msg("Draft deleted")
	return nil
}

func (s *catalogService) UploadURL(ctx context.Context, id, fileName, fileSize string) (*UploadTarget, error) {
	contentType, err := storage.ContentTypeFor(fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	key := storage.ObjectKey(id, fileName)

	upd := model.DraftUpdate{FileName: &fileName}
	if fileSize != "" {
		upd.FileSize = &fileSize
	}
	if _, err := s.drafts.UpdateDraft(ctx, id, upd); err != nil {
		return nil, err
	}
	url, err := s.files.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.drafts.SetStoragePath(ctx, id, key); err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Msg("Failed to record storage path")
		return nil, err
	}
	s.invalidate(ctx)
	return &UploadTarget{URL: url, ObjectKey: key, ContentType: contentType}, nil
}

func (s *catalogService) Stats(ctx context.Context) (*model.CatalogStats, error) {
	stats, err := s.drafts.Stats(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute catalog stats")
		return nil, err
	}
	return stats, nil
}

func (s *catalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Catalog cache invalidation failed")
	}
}

// cleanTags trims tags and drops empty and repeated ones.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
