package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, updated_at, name, email, phone, role, password_hash,
	token_version, password_changed_at, current_subscription_id`

const createUser = `-- name: CreateUser
INSERT INTO users (id, name, email, phone, role, password_hash)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, p repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), p.Name, p.Email, p.Phone, p.Role, p.HashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT ` + userColumns + `
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const updatePassword = `-- name: UpdatePassword
UPDATE users
SET password_hash = $2,
	password_changed_at = $3,
	token_version = token_version + 1,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string, changedAt time.Time) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updatePassword, userID, hashedPassword, changedAt)
	return collectUser(rows)
}

const incrementTokenVersion = `-- name: IncrementTokenVersion
UPDATE users
SET token_version = token_version + 1,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) IncrementTokenVersion(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, incrementTokenVersion, userID)
	return collectUser(rows)
}

const setCurrentSubscription = `-- name: SetCurrentSubscription
UPDATE users
SET current_subscription_id = $2,
	updated_at = NOW()
WHERE id = $1
`

func (r *UserRepo) SetCurrentSubscription(ctx context.Context, userID uuid.UUID, subscriptionID *uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, setCurrentSubscription, userID, subscriptionID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.Role,
		&u.HashedPassword,
		&u.TokenVersion,
		&u.PasswordChangedAt,
		&u.CurrentSubscriptionID,
	)
	return u, err
}
