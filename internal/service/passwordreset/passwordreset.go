package passwordreset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
	"github.com/nkiryanov/seatpass/internal/service/auth"
)

const (
	defaultTokenTTL = 15 * time.Minute
	tokenBytesLen   = 32
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, to string, resetURL string) error
}

// Throttle limits how often reset may be requested for the same key
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)

	// Release frees the key taken by Allow
	Release(ctx context.Context, key string) error
}

type Config struct {
	// Reset link is FrontendURL + "/reset-password?token=..."
	FrontendURL string

	// 15 minutes if not set
	TokenTTL time.Duration

	// auth.BcryptHasher if not set
	Hasher auth.PasswordHasher

	// Optional
	Throttle Throttle

	// time.Now if not set
	Now func() time.Time
}

type Service struct {
	storage repository.Storage
	mailer  Mailer
	logger  logger.Logger

	frontendURL string
	tokenTTL    time.Duration
	hasher      auth.PasswordHasher
	throttle    Throttle
	now         func() time.Time
}

func NewService(cfg Config, storage repository.Storage, mailer Mailer, l logger.Logger) (*Service, error) {
	if mailer == nil {
		return nil, errors.New("mailer must not be nil")
	}
	if _, err := url.Parse(cfg.FrontendURL); err != nil {
		return nil, fmt.Errorf("bad frontend url: %w", err)
	}

	s := &Service{
		storage:     storage,
		mailer:      mailer,
		logger:      l,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		tokenTTL:    cfg.TokenTTL,
		hasher:      cfg.Hasher,
		throttle:    cfg.Throttle,
		now:         cfg.Now,
	}
	if s.tokenTTL == 0 {
		s.tokenTTL = defaultTokenTTL
	}
	if s.hasher == nil {
		s.hasher = auth.BcryptHasher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}

	return s, nil
}

// HashToken is how reset secrets are stored
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newSecret() (string, error) {
	b := make([]byte, tokenBytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating reset token. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RequestReset mails a reset link if the email is registered.
// Unknown emails and throttled requests return nil as well, so callers can't tell them apart
// A failed request releases the throttle, so it may be retried at once
func (s *Service) RequestReset(ctx context.Context, email string) (err error) {
	email = auth.NormalizeEmail(email)

	if s.throttle != nil {
		allowed, throttleErr := s.throttle.Allow(ctx, email)
		switch {
		case throttleErr != nil:
			s.logger.Warn("Reset throttle unavailable, request allowed", "error", throttleErr)
		case !allowed:
			s.logger.Info("Reset request throttled")
			return nil
		default:
			defer func() {
				if err != nil {
					s.releaseThrottle(ctx, email)
				}
			}()
		}
	}

	user, err := s.storage.User().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("can't load user. Err: %w", err)
	}

	raw, err := newSecret()
	if err != nil {
		return err
	}

	now := s.now()
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		if _, err := st.ResetToken().DeleteUnused(ctx, user.ID); err != nil {
			return err
		}

		return st.ResetToken().Create(ctx, models.ResetToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			TokenHash: HashToken(raw),
			CreatedAt: now,
			ExpiresAt: now.Add(s.tokenTTL),
		})
	})
	if err != nil {
		return fmt.Errorf("can't store reset token. Err: %w", err)
	}

	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(raw)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("can't send reset email. Err: %w", err)
	}

	s.logger.Info("Password reset requested", "user_id", user.ID)
	return nil
}

func (s *Service) releaseThrottle(ctx context.Context, email string) {
	if err := s.throttle.Release(context.WithoutCancel(ctx), email); err != nil {
		s.logger.Warn("Can't release reset throttle", "error", err)
	}
}

// ResetPassword consumes the token and sets new password.
// Every session of the user is invalidated and other reset tokens are deleted.
// Returns apperrors.ErrInvalidOrExpiredToken if token is unknown, used or expired
func (s *Service) ResetPassword(ctx context.Context, raw string, newPassword string) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, error=%w", err)
	}

	now := s.now()
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		token, err := st.ResetToken().Consume(ctx, HashToken(raw), now)
		if err != nil {
			return err
		}

		user, err = st.User().UpdatePassword(ctx, token.UserID, hash, now)
		if err != nil {
			return err
		}

		_, err = st.ResetToken().DeleteUnused(ctx, token.UserID)
		return err
	})
	if err != nil {
		return user, fmt.Errorf("can't reset password. Err: %w", err)
	}

	s.logger.Info("Password reset", "user_id", user.ID)
	return user, nil
}
