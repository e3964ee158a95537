package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/seatpass/internal/models"
)

type CreateUserParams struct {
	Name           string
	Email          string
	Phone          string
	Role           string
	HashedPassword string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Replace password hash, set password change time and increment token version in one statement
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string, changedAt time.Time) (models.User, error)

	// Increment token version, so every token issued before becomes invalid
	IncrementTokenVersion(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Point user to the subscription; nil clears the reference
	SetCurrentSubscription(ctx context.Context, userID uuid.UUID, subscriptionID *uuid.UUID) error
}

// Password reset token repository interface
type ResetTokenRepo interface {
	Create(ctx context.Context, token models.ResetToken) error

	// Delete all not used tokens of the user (expired ones included)
	DeleteUnused(ctx context.Context, userID uuid.UUID) (int64, error)

	// Mark token as used if it is not used and not expired at 'now'
	// Has to be atomic: only one of concurrent callers may succeed
	// Otherwise must return apperrors.ErrInvalidOrExpiredToken
	Consume(ctx context.Context, tokenHash string, now time.Time) (models.ResetToken, error)

	// Delete tokens that expired before the moment
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type CreateSubscriptionParams struct {
	UserID     uuid.UUID
	Plan       string
	StartDate  time.Time
	ExpiryDate time.Time
	Duration   int
	Shift      string
	SeatType   string
	AmountPaid decimal.Decimal
}

type SubscriptionRepo interface {
	Create(ctx context.Context, params CreateSubscriptionParams) (models.Subscription, error)

	// If subscription not found must return apperrors.ErrSubscriptionNotFound
	GetByID(ctx context.Context, id uuid.UUID) (models.Subscription, error)

	// Most recently created subscription of the user, whatever its status
	// If user has none must return apperrors.ErrSubscriptionNotFound
	GetLatestByUser(ctx context.Context, userID uuid.UUID) (models.Subscription, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (models.Subscription, error)

	// Move all active subscriptions with expiry date not after 'now' to Expired
	// and clear the users references to them. Returns number of expired subscriptions
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type SeatRepo interface {
	// If seat with the number exists already has to return apperrors.ErrSeatAlreadyExists
	Create(ctx context.Context, number int, seatType string) (models.Seat, error)
	List(ctx context.Context) ([]models.Seat, error)

	// If seat not found must return apperrors.ErrSeatNotFound
	GetByID(ctx context.Context, id uuid.UUID) (models.Seat, error)
	UpdateOccupancy(ctx context.Context, id uuid.UUID, occupied bool, occupancyType *string) (models.Seat, error)
}

type Storage interface {
	User() UserRepo
	ResetToken() ResetTokenRepo
	Subscription() SubscriptionRepo
	Seat() SeatRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
