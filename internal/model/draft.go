package model

import "time"

// Draft is a downloadable document template in the catalog.
type Draft struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	FileName      string    `json:"file_name"`
	FileSize      string    `json:"file_size"`
	StoragePath   string    `json:"storage_path,omitempty"`
	UploadDate    time.Time `json:"upload_date"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	DownloadCount int       `json:"download_count"`
	IsPublished   bool      `json:"is_published"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DraftUpdate carries a partial update; nil fields are left unchanged.
type DraftUpdate struct {
	Title       *string
	Description *string
	FileName    *string
	FileSize    *string
	Category    *string
	Tags        *[]string
	IsPublished *bool
}

// CatalogFilter narrows the published catalog for browsing.
type CatalogFilter struct {
	Search   string
	Category string // "" or "all" means every category
}

// CatalogStats summarises the catalog for the admin dashboard.
type CatalogStats struct {
	TotalDrafts     int `json:"total_drafts"`
	PublishedDrafts int `json:"published_drafts"`
	TotalDownloads  int `json:"total_downloads"`
	Categories      int `json:"categories"`
}
