package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
	"github.com/nkiryanov/seatpass/internal/testutil"
)

func Test_SubscriptionRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	now := mustParseTime("2025-03-01 10:00:00Z")

	withSubscription := func(t *testing.T, expiry time.Time, fn func(s repository.Storage, user models.User, sub models.Subscription)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)
			user, err := s.User().CreateUser(t.Context(), newUserParams("sub@example.com"))
			require.NoError(t, err)

			sub, err := s.Subscription().Create(t.Context(), repository.CreateSubscriptionParams{
				UserID:     user.ID,
				Plan:       "monthly",
				StartDate:  now.AddDate(0, -1, 0),
				ExpiryDate: expiry,
				Duration:   1,
				Shift:      "morning",
				SeatType:   models.SeatTypeRegular,
				AmountPaid: decimal.RequireFromString("499.50"),
			})
			require.NoError(t, err)
			require.NoError(t, s.User().SetCurrentSubscription(t.Context(), user.ID, &sub.ID))

			fn(s, user, sub)
		})
	}

	t.Run("create subscription ok", func(t *testing.T) {
		withSubscription(t, now.Add(24*time.Hour), func(s repository.Storage, user models.User, sub models.Subscription) {
			assert.Equal(t, user.ID, sub.UserID)
			assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
			assert.True(t, decimal.RequireFromString("499.50").Equal(sub.AmountPaid), "amount should be stored exactly")

			got, err := s.Subscription().GetByID(t.Context(), sub.ID)
			require.NoError(t, err)
			assert.Equal(t, sub.ID, got.ID)

			u, err := s.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.NotNil(t, u.CurrentSubscriptionID)
			assert.Equal(t, sub.ID, *u.CurrentSubscriptionID)
		})
	})

	t.Run("get unknown subscription", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			_, err := (&SubscriptionRepo{DB: tx}).GetByID(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrSubscriptionNotFound)
		})
	})

	t.Run("latest by user", func(t *testing.T) {
		withSubscription(t, now.Add(-time.Hour), func(s repository.Storage, user models.User, old models.Subscription) {
			renewed, err := s.Subscription().Create(t.Context(), repository.CreateSubscriptionParams{
				UserID:     user.ID,
				Plan:       "monthly",
				StartDate:  now,
				ExpiryDate: now.AddDate(0, 1, 0),
				Duration:   1,
				Shift:      "evening",
				SeatType:   models.SeatTypeSpecial,
				AmountPaid: decimal.RequireFromString("799"),
			})
			require.NoError(t, err)

			got, err := s.Subscription().GetLatestByUser(t.Context(), user.ID)

			require.NoError(t, err)
			assert.Equal(t, renewed.ID, got.ID)
			assert.NotEqual(t, old.ID, got.ID)
		})
	})

	t.Run("latest by user without subscriptions", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			_, err := (&SubscriptionRepo{DB: tx}).GetLatestByUser(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrSubscriptionNotFound)
		})
	})

	t.Run("update status", func(t *testing.T) {
		withSubscription(t, now.Add(24*time.Hour), func(s repository.Storage, _ models.User, sub models.Subscription) {
			got, err := s.Subscription().UpdateStatus(t.Context(), sub.ID, models.SubscriptionStatusCancelled)

			require.NoError(t, err)
			assert.Equal(t, models.SubscriptionStatusCancelled, got.Status)
		})
	})

	t.Run("expire overdue clears user reference", func(t *testing.T) {
		withSubscription(t, now.Add(-time.Minute), func(s repository.Storage, user models.User, sub models.Subscription) {
			count, err := s.Subscription().ExpireOverdue(t.Context(), now)

			require.NoError(t, err)
			require.Equal(t, int64(1), count)

			got, err := s.Subscription().GetByID(t.Context(), sub.ID)
			require.NoError(t, err)
			assert.Equal(t, models.SubscriptionStatusExpired, got.Status)

			u, err := s.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Nil(t, u.CurrentSubscriptionID)
		})
	})

	t.Run("expire overdue skips running subscriptions", func(t *testing.T) {
		withSubscription(t, now.Add(time.Hour), func(s repository.Storage, _ models.User, _ models.Subscription) {
			count, err := s.Subscription().ExpireOverdue(t.Context(), now)

			require.NoError(t, err)
			require.Equal(t, int64(0), count)
		})
	})
}
