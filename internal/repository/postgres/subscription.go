package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
)

type SubscriptionRepo struct {
	DB DBTX
}

const subscriptionColumns = `id, user_id, plan, status, start_date, expiry_date,
	duration, shift, seat_type, amount_paid, created_at, updated_at`

const createSubscription = `-- name: CreateSubscription
INSERT INTO subscriptions (id, user_id, plan, status, start_date, expiry_date, duration, shift, seat_type, amount_paid)
VALUES ($1, $2, $3, 'Active', $4, $5, $6, $7, $8, $9)
RETURNING ` + subscriptionColumns

func (r *SubscriptionRepo) Create(ctx context.Context, p repository.CreateSubscriptionParams) (models.Subscription, error) {
	rows, _ := r.DB.Query(ctx, createSubscription,
		uuid.New(), p.UserID, p.Plan, p.StartDate, p.ExpiryDate, p.Duration, p.Shift, p.SeatType, p.AmountPaid,
	)
	return collectSubscription(rows)
}

const getSubscriptionByID = `-- name: GetSubscriptionByID
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE id = $1
`

func (r *SubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Subscription, error) {
	rows, _ := r.DB.Query(ctx, getSubscriptionByID, id)
	return collectSubscription(rows)
}

const getLatestSubscriptionByUser = `-- name: GetLatestSubscriptionByUser
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE user_id = $1
ORDER BY created_at DESC, start_date DESC
LIMIT 1
`

func (r *SubscriptionRepo) GetLatestByUser(ctx context.Context, userID uuid.UUID) (models.Subscription, error) {
	rows, _ := r.DB.Query(ctx, getLatestSubscriptionByUser, userID)
	return collectSubscription(rows)
}

const updateSubscriptionStatus = `-- name: UpdateSubscriptionStatus
UPDATE subscriptions
SET status = $2,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + subscriptionColumns

func (r *SubscriptionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (models.Subscription, error) {
	rows, _ := r.DB.Query(ctx, updateSubscriptionStatus, id, status)
	return collectSubscription(rows)
}

const expireOverdueSubscriptions = `-- name: ExpireOverdueSubscriptions
WITH expired AS (
	UPDATE subscriptions
	SET status = 'Expired',
		updated_at = NOW()
	WHERE status = 'Active' AND expiry_date <= $1
	RETURNING id
), cleared AS (
	UPDATE users
	SET current_subscription_id = NULL,
		updated_at = NOW()
	WHERE current_subscription_id IN (SELECT id FROM expired)
)
SELECT COUNT(*) FROM expired
`

func (r *SubscriptionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, expireOverdueSubscriptions, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func collectSubscription(rows pgx.Rows) (models.Subscription, error) {
	sub, err := pgx.CollectOneRow(rows, rowToSubscription)

	switch {
	case err == nil:
		return sub, nil
	case errors.Is(err, pgx.ErrNoRows):
		return sub, apperrors.ErrSubscriptionNotFound
	default:
		return sub, fmt.Errorf("db error: %w", err)
	}
}

func rowToSubscription(row pgx.CollectableRow) (models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Plan,
		&s.Status,
		&s.StartDate,
		&s.ExpiryDate,
		&s.Duration,
		&s.Shift,
		&s.SeatType,
		&s.AmountPaid,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}
