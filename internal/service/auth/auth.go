package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
	"github.com/nkiryanov/seatpass/internal/service/auth/tokenmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during user registration or login process
	// BcryptHasher if not set
	Hasher PasswordHasher

	// Let anybody register with admin role
	AllowAdminSignup bool

	// Cookies attributes
	Cookies CookieConfig
}

type tokenManager interface {
	GeneratePair(p tokenmanager.Payload) (models.TokenPair, error)
	VerifyAccess(token string) tokenmanager.Result
	VerifyRefresh(token string) tokenmanager.Result
}

// Auth service
type AuthService struct {
	tokens tokenManager
	hasher PasswordHasher
	users  repository.UserRepo

	allowAdminSignup bool
	cookies          CookieConfig

	// Hash to compare with when user not found, so unknown emails take as long as wrong passwords
	dummyHash func() (string, error)
}

func NewService(cfg Config, tokens tokenManager, users repository.UserRepo) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &AuthService{
		tokens:           tokens,
		hasher:           hasher,
		users:            users,
		allowAdminSignup: cfg.AllowAdminSignup,
		cookies:          cfg.Cookies.withDefaults(),
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash("not-a-real-password")
		}),
	}, nil
}

type RegisterParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string // student if empty
}

// NormalizeEmail is the form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, p RegisterParams) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	role := p.Role
	switch role {
	case "":
		role = models.RoleStudent
	case models.RoleStudent:
	case models.RoleAdmin:
		if !s.allowAdminSignup {
			return models.User{}, pair, apperrors.ErrRoleNotAllowed
		}
	default:
		return models.User{}, pair, apperrors.ErrRoleNotAllowed
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return models.User{}, pair, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.users.CreateUser(ctx, repository.CreateUserParams{
		Name:           strings.TrimSpace(p.Name),
		Email:          NormalizeEmail(p.Email),
		Phone:          strings.TrimSpace(p.Phone),
		Role:           role,
		HashedPassword: hash,
	})
	if err != nil {
		return user, pair, err
	}

	pair, err = s.tokens.GeneratePair(payloadFor(user))
	if err != nil {
		return user, pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return user, pair, nil
}

// Login returns apperrors.ErrInvalidCredentials both for unknown email and wrong password
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		if dummy, hashErr := s.dummyHash(); hashErr == nil {
			_ = s.hasher.Compare(dummy, password)
		}
		return user, pair, apperrors.ErrInvalidCredentials
	default:
		return user, pair, fmt.Errorf("can't load user. Err: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return user, pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.tokens.GeneratePair(payloadFor(user))
	if err != nil {
		return user, pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return user, pair, nil
}

// LogoutAll invalidates every token issued to the user so far
func (s *AuthService) LogoutAll(ctx context.Context, user models.User) error {
	_, err := s.users.IncrementTokenVersion(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("can't revoke user tokens. Err: %w", err)
	}
	return nil
}
