package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"
)

// DownloadRepository is the append-only download log.
type DownloadRepository interface {
	// RecordDownload inserts d and, when counted is non-nil, writes its
	// download counter under the version guard, in one transaction. On error
	// neither row is changed.
	RecordDownload(ctx context.Context, d *model.Download, counted *model.UserProfile) (*model.UserProfile, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Download, error)
}

type downloadRepo struct {
	db *sql.DB
}

func NewDownloadRepo(db *sql.DB) DownloadRepository {
	return &downloadRepo{db: db}
}

func (r *downloadRepo) RecordDownload(ctx context.Context, d *model.Download, counted *model.UserProfile) (saved *model.UserProfile, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin download transaction: %w", entitlement.ErrPersistenceFailure, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback download transaction: %w", rbErr))
			}
		}
	}()

	query := `INSERT INTO downloads (id, user_id, draft_id, downloaded_at) VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, query, d.ID, d.UserID, d.DraftID, d.DownloadedAt); err != nil {
		return nil, fmt.Errorf("%w: append download for user %s: %w", entitlement.ErrPersistenceFailure, d.UserID, err)
	}
	if counted != nil {
		if saved, err = updateProfile(ctx, tx, counted, model.FieldDownloadsThisMonth); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit download for user %s: %w", entitlement.ErrPersistenceFailure, d.UserID, err)
	}
	return saved, nil
}

// ListByUser returns the most recent downloads of a user.
func (r *downloadRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Download, error) {
	query := `SELECT id, user_id, draft_id, downloaded_at FROM downloads
              WHERE user_id = $1 ORDER BY downloaded_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying downloads for user %s: %w", userID, err)
	}
	defer rows.Close()

	downloads := []model.Download{}
	for rows.Next() {
		var d model.Download
		if err := rows.Scan(&d.ID, &d.UserID, &d.DraftID, &d.DownloadedAt); err != nil {
			return nil, fmt.Errorf("scanning download row: %w", err)
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating download rows: %w", err)
	}
	return downloads, nil
}
