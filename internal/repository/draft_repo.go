package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"draftkeeper/internal/model"

	"github.com/lib/pq"
)

// ErrDraftNotFound is returned when no draft matches the given id.
var ErrDraftNotFound = errors.New("draft not found")

const draftSelectColumns = `id, title, description, file_name, file_size, storage_path, upload_date,
	category, tags, download_count, is_published, created_by, created_at, updated_at`

// DraftRepository stores the template catalog.
type DraftRepository interface {
	ListPublished(ctx context.Context, filter model.CatalogFilter) ([]model.Draft, error)
	ListAll(ctx context.Context) ([]model.Draft, error)
	GetDraft(ctx context.Context, id string) (*model.Draft, error)
	CreateDraft(ctx context.Context, d *model.Draft) (*model.Draft, error)
	UpdateDraft(ctx context.Context, id string, upd model.DraftUpdate) (*model.Draft, error)
	SetStoragePath(ctx context.Context, id, path string) error
	// DeleteDraft removes the row and returns it so the stored file can be cleaned up.
	DeleteDraft(ctx context.Context, id string) (*model.Draft, error)
	Categories(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*model.CatalogStats, error)
	IncrementDownloadCount(ctx context.Context, id string) error
}

type draftRepo struct {
	db *sql.DB
}

func NewDraftRepo(db *sql.DB) DraftRepository {
	return &draftRepo{db: db}
}

// ListPublished returns published drafts, newest first. Search matches title,
// description or any tag, case-insensitively.
func (r *draftRepo) ListPublished(ctx context.Context, filter model.CatalogFilter) ([]model.Draft, error) {
	var (
		conds = []string{"is_published = TRUE"}
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%d))", n, n, n))
	}
	if c := strings.TrimSpace(filter.Category); c != "" && !strings.EqualFold(c, "all") {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + draftSelectColumns + ` FROM drafts WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`
	return r.queryDrafts(ctx, query, args...)
}

func (r *draftRepo) ListAll(ctx context.Context) ([]model.Draft, error) {
	query := `SELECT ` + draftSelectColumns + ` FROM drafts ORDER BY created_at DESC`
	return r.queryDrafts(ctx, query)
}

func (r *draftRepo) GetDraft(ctx context.Context, id string) (*model.Draft, error) {
	query := `SELECT ` + draftSelectColumns + ` FROM drafts WHERE id = $1`
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("get draft %s: %w", id, err)
	}
	return d, nil
}

func (r *draftRepo) CreateDraft(ctx context.Context, d *model.Draft) (*model.Draft, error) {
	query := `INSERT INTO drafts (id, title, description, file_name, file_size, storage_path, upload_date,
              category, tags, download_count, is_published, created_by)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)
              RETURNING ` + draftSelectColumns
	created, err := scanDraft(r.db.QueryRowContext(ctx, query,
		d.ID, d.Title, d.Description, d.FileName, d.FileSize, d.StoragePath, d.UploadDate,
		d.Category, pq.Array(nonNilTags(d.Tags)), d.IsPublished, d.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return created, nil
}

func (r *draftRepo) UpdateDraft(ctx context.Context, id string, upd model.DraftUpdate) (*model.Draft, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.FileName != nil {
		set("file_name", *upd.FileName)
	}
	if upd.FileSize != nil {
		set("file_size", *upd.FileSize)
	}
	if upd.Category != nil {
		set("category", *upd.Category)
	}
	if upd.Tags != nil {
		set("tags", pq.Array(nonNilTags(*upd.Tags)))
	}
	if upd.IsPublished != nil {
		set("is_published", *upd.IsPublished)
	}
	if len(sets) == 0 {
		return r.GetDraft(ctx, id)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE drafts SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), draftSelectColumns)
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("update draft %s: %w", id, err)
	}
	return d, nil
}

func (r *draftRepo) SetStoragePath(ctx context.Context, id, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drafts SET storage_path = $1, updated_at = NOW() WHERE id = $2`, path, id)
	if err != nil {
		return fmt.Errorf("set storage path for draft %s: %w", id, err)
	}
	return requireOneRow(res, ErrDraftNotFound)
}

func (r *draftRepo) DeleteDraft(ctx context.Context, id string) (*model.Draft, error) {
	query := `DELETE FROM drafts WHERE id = $1 RETURNING ` + draftSelectColumns
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("delete draft %s: %w", id, err)
	}
	return d, nil
}

func (r *draftRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM drafts WHERE is_published = TRUE ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}
	return categories, nil
}

func (r *draftRepo) Stats(ctx context.Context) (*model.CatalogStats, error) {
	const q = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_published),
		       COALESCE(SUM(download_count), 0),
		       COUNT(DISTINCT category)
		FROM drafts
	`
	var s model.CatalogStats
	if err := r.db.QueryRowContext(ctx, q).Scan(&s.TotalDrafts, &s.PublishedDrafts, &s.TotalDownloads, &s.Categories); err != nil {
		return nil, fmt.Errorf("fetch catalog stats: %w", err)
	}
	return &s, nil
}

func (r *draftRepo) IncrementDownloadCount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drafts SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment download count for draft %s: %w", id, err)
	}
	return requireOneRow(res, ErrDraftNotFound)
}

func (r *draftRepo) queryDrafts(ctx context.Context, query string, args ...any) ([]model.Draft, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying drafts: %w", err)
	}
	defer rows.Close()

	drafts := []model.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning draft row: %w", err)
		}
		drafts = append(drafts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating draft rows: %w", err)
	}
	return drafts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*model.Draft, error) {
	var (
		d           model.Draft
		storagePath sql.NullString
		tags        pq.StringArray
	)
	if err := row.Scan(&d.ID, &d.Title, &d.Description, &d.FileName, &d.FileSize, &storagePath, &d.UploadDate,
		&d.Category, &tags, &d.DownloadCount, &d.IsPublished, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.StoragePath = storagePath.String
	d.Tags = nonNilTags(tags)
	return &d, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func requireOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
