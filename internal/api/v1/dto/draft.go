package dto

import (
	"time"

	"draftkeeper/internal/model"
)

type DraftResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	FileName      string    `json:"file_name"`
	FileSize      string    `json:"file_size"`
	UploadDate    time.Time `json:"upload_date"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	DownloadCount int       `json:"download_count"`
	IsPublished   bool      `json:"is_published"`
	HasFile       bool      `json:"has_file"`
}

type CreateDraftRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	FileName    string   `json:"file_name" validate:"omitempty,max=255"`
	FileSize    string   `json:"file_size" validate:"max=32"`
	Category    string   `json:"category" validate:"required,max=100"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
	IsPublished bool     `json:"is_published"`
}

// UpdateDraftRequest is a partial update; absent fields are left alone.
type UpdateDraftRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Category    *string   `json:"category" validate:"omitempty,min=1,max=100"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	IsPublished *bool     `json:"is_published"`
}

type UploadURLRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FileSize string `json:"file_size" validate:"max=32"`
}

type UploadURLResponse struct {
	URL         string `json:"url"`
	ObjectKey   string `json:"object_key"`
	ContentType string `json:"content_type"`
}

type DownloadResponse struct {
	URL                    string        `json:"url"`
	Draft                  DraftResponse `json:"draft"`
	DownloadsThisMonth     int           `json:"downloads_this_month"`
	RemainingFreeDownloads int           `json:"remaining_free_downloads"`
	UpgradePrompt          bool          `json:"upgrade_prompt"`
}

func ToDraftResponse(d *model.Draft) DraftResponse {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return DraftResponse{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		FileName:      d.FileName,
		FileSize:      d.FileSize,
		UploadDate:    d.UploadDate,
		Category:      d.Category,
		Tags:          tags,
		DownloadCount: d.DownloadCount,
		IsPublished:   d.IsPublished,
		HasFile:       d.StoragePath != "",
	}
}

func ToDraftResponses(drafts []model.Draft) []DraftResponse {
	out := make([]DraftResponse, 0, len(drafts))
	for i := range drafts {
		out = append(out, ToDraftResponse(&drafts[i]))
	}
	return out
}

func (r UpdateDraftRequest) ToModel() model.DraftUpdate {
	return model.DraftUpdate{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Tags:        r.Tags,
		IsPublished: r.IsPublished,
	}
}
