package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"draftkeeper/internal/model"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepository records provider payments. The unique provider_payment_id
// is what makes webhook redelivery harmless.
type PaymentRepository interface {
	// RecordPayment inserts p as pending. inserted is false when the payment
	// was already recorded.
	RecordPayment(ctx context.Context, p *model.Payment) (inserted bool, err error)
	Status(ctx context.Context, providerPaymentID string) (model.PaymentStatus, error)
	MarkStatus(ctx context.Context, providerPaymentID string, status model.PaymentStatus) error
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) RecordPayment(ctx context.Context, p *model.Payment) (bool, error) {
	query := `INSERT INTO payments (id, user_id, provider_payment_id, provider_session_id, amount, currency, plan_type, status)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              ON CONFLICT (provider_payment_id) DO NOTHING
              RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.UserID, p.ProviderPaymentID, p.ProviderSessionID, p.Amount, p.Currency, string(p.PlanType), string(model.PaymentPending),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record payment %s: %w", p.ProviderPaymentID, err)
	}
	p.Status = model.PaymentPending
	return true, nil
}

func (r *paymentRepo) Status(ctx context.Context, providerPaymentID string) (model.PaymentStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM payments WHERE provider_payment_id = $1`, providerPaymentID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPaymentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetch payment %s status: %w", providerPaymentID, err)
	}
	return model.PaymentStatus(status), nil
}

func (r *paymentRepo) MarkStatus(ctx context.Context, providerPaymentID string, status model.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE provider_payment_id = $2`,
		string(status), providerPaymentID)
	if err != nil {
		return fmt.Errorf("mark payment %s %s: %w", providerPaymentID, status, err)
	}
	return requireOneRow(res, fmt.Errorf("%w: %s", ErrPaymentNotFound, providerPaymentID))
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	query := `SELECT id, user_id, provider_payment_id, COALESCE(provider_session_id, ''), amount, currency, plan_type, status, created_at, updated_at
              FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		var plan, status string
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProviderPaymentID, &p.ProviderSessionID, &p.Amount, &p.Currency,
			&plan, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning payment row: %w", err)
		}
		p.PlanType = model.PlanID(plan)
		p.Status = model.PaymentStatus(status)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment rows: %w", err)
	}
	return payments, nil
}
