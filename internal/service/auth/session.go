package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/service/auth/tokenmanager"
)

// Machine readable reasons why request was not authenticated
const (
	ReasonMissingToken    = "missing_token"
	ReasonInvalidToken    = "invalid_token"
	ReasonSessionExpired  = "session_expired"
	ReasonSessionRevoked  = "session_revoked"
	ReasonUserNotFound    = "user_not_found"
	ReasonPasswordChanged = "password_changed"

	// Login with unknown email or wrong password
	ReasonInvalidCredentials = "invalid_credentials"
)

var reasonMessages = map[string]string{
	ReasonMissingToken:    "Access token not found. Please login.",
	ReasonInvalidToken:    "Invalid access token",
	ReasonSessionExpired:  "Session expired. Please login again.",
	ReasonSessionRevoked:  "Session has been invalidated. Please login again.",
	ReasonUserNotFound:    "User not found",
	ReasonPasswordChanged: "Session expired due to password change. Please login again.",
}

// SessionError is returned when credentials do not authenticate the request
type SessionError struct {
	Reason string

	// Internal cause, for logs only
	Err error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("session rejected (%s)", e.Reason)
}

func (e *SessionError) Unwrap() error { return e.Err }

// Message safe to show to the client
func (e *SessionError) Message() string {
	if msg, ok := reasonMessages[e.Reason]; ok {
		return msg
	}
	return "Unauthorized"
}

func reject(reason string, err error) *SessionError {
	return &SessionError{Reason: reason, Err: err}
}

// Raw tokens taken from the request
type Credentials struct {
	Access  string
	Refresh string
}

// Authenticated session.
// Rotated is set when access token was expired and a new pair was issued from refresh token
type Session struct {
	User    models.User
	Rotated *models.TokenPair
}

// Authenticate resolves credentials to a user.
// Invalid access token is rejected right away. Expired or absent access token
// falls back to refresh token, and a new token pair is issued on success.
// Returns *SessionError if credentials are not acceptable, other errors are internal
func (s *AuthService) Authenticate(ctx context.Context, c Credentials) (Session, error) {
	if c.Access != "" {
		res := s.tokens.VerifyAccess(c.Access)

		switch res.Status {
		case tokenmanager.StatusValid:
			return s.checkAccess(ctx, res)
		case tokenmanager.StatusInvalid:
			return Session{}, reject(ReasonInvalidToken, res.Err)
		}
	}

	if c.Refresh == "" {
		if c.Access == "" {
			return Session{}, reject(ReasonMissingToken, nil)
		}
		return Session{}, reject(ReasonSessionExpired, errors.New("access token expired and no refresh token"))
	}

	return s.rotate(ctx, c.Refresh)
}

// RefreshPair issues a new token pair from refresh token
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (Session, error) {
	if refresh == "" {
		return Session{}, reject(ReasonMissingToken, nil)
	}
	return s.rotate(ctx, refresh)
}

func (s *AuthService) rotate(ctx context.Context, refresh string) (Session, error) {
	res := s.tokens.VerifyRefresh(refresh)
	if !res.Valid() {
		return Session{}, reject(ReasonSessionExpired, fmt.Errorf("refresh token %s: %w", res.Status, res.Err))
	}

	user, err := s.loadUser(ctx, res)
	if err != nil {
		return Session{}, err
	}

	if user.TokenVersion != res.Payload.TokenVersion {
		return Session{}, reject(ReasonSessionRevoked, versionMismatch(user, res))
	}

	pair, err := s.tokens.GeneratePair(payloadFor(user))
	if err != nil {
		return Session{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return Session{User: user, Rotated: &pair}, nil
}

func (s *AuthService) checkAccess(ctx context.Context, res tokenmanager.Result) (Session, error) {
	user, err := s.loadUser(ctx, res)
	if err != nil {
		return Session{}, err
	}

	// Token iat has seconds precision, so compare with truncated change time
	if user.PasswordChangedAt != nil && res.IssuedAt.Before(user.PasswordChangedAt.Truncate(time.Second)) {
		return Session{}, reject(ReasonPasswordChanged, nil)
	}

	if user.TokenVersion != res.Payload.TokenVersion {
		return Session{}, reject(ReasonSessionRevoked, versionMismatch(user, res))
	}

	return Session{User: user}, nil
}

func (s *AuthService) loadUser(ctx context.Context, res tokenmanager.Result) (models.User, error) {
	user, err := s.users.GetUserByID(ctx, res.Payload.UserID)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return user, reject(ReasonUserNotFound, err)
	default:
		return user, fmt.Errorf("can't load user. Err: %w", err)
	}
}

func versionMismatch(user models.User, res tokenmanager.Result) error {
	return fmt.Errorf("token version %d, user version %d", res.Payload.TokenVersion, user.TokenVersion)
}

func payloadFor(user models.User) tokenmanager.Payload {
	return tokenmanager.Payload{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}
}
