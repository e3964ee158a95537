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
)

type ResetTokenRepo struct {
	DB DBTX
}

const createResetToken = `-- name: CreateResetToken
INSERT INTO password_reset_tokens (id, user_id, token_hash, created_at, expires_at, used_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

func (r *ResetTokenRepo) Create(ctx context.Context, token models.ResetToken) error {
	_, err := r.DB.Exec(ctx, createResetToken, token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt, token.UsedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteUnusedResetTokens = `-- name: DeleteUnusedResetTokens
DELETE FROM password_reset_tokens
WHERE user_id = $1 AND used_at IS NULL
`

func (r *ResetTokenRepo) DeleteUnused(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteUnusedResetTokens, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Single conditional update: concurrent consumers are serialized by the row lock,
// the loser sees used_at already set and gets no rows
const consumeResetToken = `-- name: ConsumeResetToken
UPDATE password_reset_tokens
SET used_at = $2
WHERE token_hash = $1
	AND used_at IS NULL
	AND expires_at > $2
RETURNING id, user_id, token_hash, created_at, expires_at, used_at
`

func (r *ResetTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (models.ResetToken, error) {
	rows, _ := r.DB.Query(ctx, consumeResetToken, tokenHash, now)
	token, err := pgx.CollectOneRow(rows, rowToResetToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrInvalidOrExpiredToken
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteExpiredResetTokens = `-- name: DeleteExpiredResetTokens
DELETE FROM password_reset_tokens
WHERE expires_at <= $1
`

func (r *ResetTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredResetTokens, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToResetToken(row pgx.CollectableRow) (models.ResetToken, error) {
	var t models.ResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.UsedAt)
	return t, err
}
