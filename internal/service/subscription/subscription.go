package subscription

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
)

const day = 24 * time.Hour

// Policy holds access decisions that differ between deployments
type Policy struct {
	// Admins pass the active subscription check without subscription
	AdminBypass bool

	// Cancelled subscriptions report zero days remaining
	CancelledZeroDays bool
}

func DefaultPolicy() Policy {
	return Policy{AdminBypass: true, CancelledZeroDays: true}
}

// Current is the subscription view returned to the owner
type Current struct {
	models.Subscription
	DaysRemaining int
}

type SubscriptionService struct {
	storage repository.Storage
	policy  Policy
	logger  logger.Logger
	now     func() time.Time
}

func NewService(storage repository.Storage, policy Policy, l logger.Logger, now func() time.Time) *SubscriptionService {
	if now == nil {
		now = time.Now
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &SubscriptionService{
		storage: storage,
		policy:  policy,
		logger:  l,
		now:     now,
	}
}

type CreateParams struct {
	UserID     uuid.UUID
	Plan       string
	Duration   int // months
	Shift      string
	SeatType   string // REGULAR if empty
	AmountPaid decimal.Decimal
}

// Create starts an active subscription now and makes it the current one of the user.
// Returns apperrors.ErrUserNotFound or apperrors.ErrInvalidSubscription
func (s *SubscriptionService) Create(ctx context.Context, p CreateParams) (models.Subscription, error) {
	var sub models.Subscription

	if p.SeatType == "" {
		p.SeatType = models.SeatTypeRegular
	}
	if p.Plan == "" || p.Duration < 1 || p.AmountPaid.IsNegative() || !models.ValidSeatType(p.SeatType) {
		return sub, apperrors.ErrInvalidSubscription
	}

	start := s.now()
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		if _, err := st.User().GetUserByID(ctx, p.UserID); err != nil {
			return err
		}

		var err error
		sub, err = st.Subscription().Create(ctx, repository.CreateSubscriptionParams{
			UserID:     p.UserID,
			Plan:       p.Plan,
			StartDate:  start,
			ExpiryDate: start.AddDate(0, p.Duration, 0),
			Duration:   p.Duration,
			Shift:      p.Shift,
			SeatType:   p.SeatType,
			AmountPaid: p.AmountPaid,
		})
		if err != nil {
			return err
		}

		return st.User().SetCurrentSubscription(ctx, p.UserID, &sub.ID)
	})
	if err != nil {
		return sub, fmt.Errorf("can't create subscription. Err: %w", err)
	}

	s.logger.Info("Subscription created", "subscription_id", sub.ID, "user_id", p.UserID)
	return sub, nil
}

// GetCurrent returns the latest subscription of the user.
// Active subscription past its expiry is moved to Expired and the user reference is cleared.
// Returns apperrors.ErrSubscriptionNotFound if user never had subscription
func (s *SubscriptionService) GetCurrent(ctx context.Context, userID uuid.UUID) (Current, error) {
	var current Current
	now := s.now()

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		sub, err := st.Subscription().GetLatestByUser(ctx, userID)
		if err != nil {
			return err
		}

		if sub.Status == models.SubscriptionStatusActive && !now.Before(sub.ExpiryDate) {
			sub, err = st.Subscription().UpdateStatus(ctx, sub.ID, models.SubscriptionStatusExpired)
			if err != nil {
				return err
			}
			s.logger.Info("Subscription expired", "subscription_id", sub.ID, "user_id", userID)
		}

		if sub.Status == models.SubscriptionStatusExpired {
			if err := st.User().SetCurrentSubscription(ctx, userID, nil); err != nil {
				return err
			}
		}

		current = Current{Subscription: sub, DaysRemaining: s.DaysRemaining(sub, now)}
		return nil
	})
	if err != nil {
		return current, fmt.Errorf("can't get current subscription. Err: %w", err)
	}

	return current, nil
}

// UpdateStatus sets status chosen by admin. Expired clears the owner reference
func (s *SubscriptionService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (models.Subscription, error) {
	var sub models.Subscription

	if !models.ValidSubscriptionStatus(status) {
		return sub, apperrors.ErrInvalidStatus
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		sub, err = st.Subscription().UpdateStatus(ctx, id, status)
		if err != nil {
			return err
		}

		if status == models.SubscriptionStatusExpired {
			return st.User().SetCurrentSubscription(ctx, sub.UserID, nil)
		}
		return nil
	})
	if err != nil {
		return sub, fmt.Errorf("can't update subscription status. Err: %w", err)
	}

	return sub, nil
}

// DaysRemaining is the number of started days left until expiry, never negative
func (s *SubscriptionService) DaysRemaining(sub models.Subscription, now time.Time) int {
	switch sub.Status {
	case models.SubscriptionStatusExpired:
		return 0
	case models.SubscriptionStatusCancelled:
		if s.policy.CancelledZeroDays {
			return 0
		}
	}

	left := sub.ExpiryDate.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(float64(left) / float64(day)))
}

// CheckAccess tells whether user may use subscriber only resources.
// Never changes stored state.
// Returns apperrors.ErrNoActiveSubscription or apperrors.ErrSubscriptionExpired when access is denied
func (s *SubscriptionService) CheckAccess(ctx context.Context, user models.User) error {
	if s.policy.AdminBypass && user.IsAdmin() {
		return nil
	}

	if user.CurrentSubscriptionID == nil {
		return apperrors.ErrNoActiveSubscription
	}

	sub, err := s.storage.Subscription().GetByID(ctx, *user.CurrentSubscriptionID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrSubscriptionNotFound):
		return apperrors.ErrNoActiveSubscription
	default:
		return fmt.Errorf("can't load subscription. Err: %w", err)
	}

	switch {
	case sub.Status == models.SubscriptionStatusExpired:
		return apperrors.ErrSubscriptionExpired
	case sub.Status != models.SubscriptionStatusActive:
		return apperrors.ErrNoActiveSubscription
	case !s.now().Before(sub.ExpiryDate):
		return apperrors.ErrSubscriptionExpired
	}

	return nil
}
