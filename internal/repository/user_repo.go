package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"
)

// mutableProfileFields is what UpdateProfile writes when no field list is given.
var mutableProfileFields = []model.ProfileField{
	model.FieldEmail,
	model.FieldName,
	model.FieldRole,
	model.FieldIsPremium,
	model.FieldSelectedPlan,
	model.FieldPlanExpiryDate,
	model.FieldDownloadsThisMonth,
	model.FieldLastResetDate,
}

const profileSelectColumns = `id, email, name, role, is_premium, selected_plan, plan_expiry_date,
	downloads_this_month, last_reset_date, version, created_at, updated_at`

// UserRepository is the record store for user profiles.
type UserRepository interface {
	// CreateProfile inserts p unless a profile with the same id exists, and
	// returns whichever row is stored.
	CreateProfile(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error)
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, p *model.UserProfile, fields ...model.ProfileField) (*model.UserProfile, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateProfile(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	rec := ProfileToRecord(p)
	query := `INSERT INTO user_profiles (id, email, name, role, is_premium, selected_plan, plan_expiry_date,
              downloads_this_month, last_reset_date, version)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
              ON CONFLICT (id) DO NOTHING
              RETURNING ` + profileSelectColumns
	row := r.db.QueryRowContext(ctx, query,
		rec["id"], rec["email"], rec["name"], rec["role"], rec["is_premium"], rec["selected_plan"],
		rec["plan_expiry_date"], rec["downloads_this_month"], rec["last_reset_date"])
	created, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost a provisioning race; the other insert wins.
		return r.GetProfile(ctx, p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create profile %s: %w", entitlement.ErrPersistenceFailure, p.ID, err)
	}
	return created, nil
}

func (r *userRepo) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	query := `SELECT ` + profileSelectColumns + ` FROM user_profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", entitlement.ErrProfileNotFound, userID)
		}
		return nil, fmt.Errorf("%w: get profile %s: %w", entitlement.ErrPersistenceFailure, userID, err)
	}
	return p, nil
}

// UpdateProfile writes the given fields guarded by p.Version. A stale version
// yields entitlement.ErrVersionConflict.
func (r *userRepo) UpdateProfile(ctx context.Context, p *model.UserProfile, fields ...model.ProfileField) (*model.UserProfile, error) {
	return updateProfile(ctx, r.db, p, fields...)
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func updateProfile(ctx context.Context, q rowQuerier, p *model.UserProfile, fields ...model.ProfileField) (*model.UserProfile, error) {
	if len(fields) == 0 {
		fields = mutableProfileFields
	}
	rec := ProfileToRecord(p)

	seen := make(map[string]bool, len(fields))
	var sets []string
	var args []any
	for _, f := range fields {
		column, ok := ColumnFor(f)
		if !ok || f == fieldID || f == fieldVersion {
			return nil, fmt.Errorf("%w: field %q is not writable", entitlement.ErrPersistenceFailure, f)
		}
		if seen[column] {
			continue
		}
		seen[column] = true
		args = append(args, rec[column])
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, p.ID, p.Version)

	query := fmt.Sprintf(`UPDATE user_profiles
              SET %s, version = version + 1, updated_at = NOW()
              WHERE id = $%d AND version = $%d
              RETURNING %s`, strings.Join(sets, ", "), len(args)-1, len(args), profileSelectColumns)

	saved, err := scanProfile(q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: update profile %s: %w", entitlement.ErrPersistenceFailure, p.ID, err)
	}

	var current int64
	err = q.QueryRowContext(ctx, `SELECT version FROM user_profiles WHERE id = $1`, p.ID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %s", entitlement.ErrProfileNotFound, p.ID)
	case err != nil:
		return nil, fmt.Errorf("%w: check profile version %s: %w", entitlement.ErrPersistenceFailure, p.ID, err)
	}
	return nil, fmt.Errorf("%w: user %s expected version %d, found %d", entitlement.ErrVersionConflict, p.ID, p.Version, current)
}

func scanProfile(row *sql.Row) (*model.UserProfile, error) {
	var (
		id, email, name, role string
		isPremium             bool
		selectedPlan          sql.NullString
		expiry                sql.NullTime
		downloads, version    int64
		lastReset             time.Time
		createdAt, updatedAt  time.Time
	)
	if err := row.Scan(&id, &email, &name, &role, &isPremium, &selectedPlan, &expiry,
		&downloads, &lastReset, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec := map[string]any{
		"id":                   id,
		"email":                email,
		"name":                 name,
		"role":                 role,
		"is_premium":           isPremium,
		"selected_plan":        nil,
		"plan_expiry_date":     nil,
		"downloads_this_month": downloads,
		"last_reset_date":      lastReset,
		"version":              version,
	}
	if selectedPlan.Valid {
		rec["selected_plan"] = selectedPlan.String
	}
	if expiry.Valid {
		rec["plan_expiry_date"] = expiry.Time
	}

	p, err := ProfileFromRecord(rec)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return p, nil
}
