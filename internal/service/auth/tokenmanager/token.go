package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/seatpass/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultSigningMethod   = "HS256"
)

// Claims carried by both access and refresh tokens.
// Subject holds the user id
type Claims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	TokenVersion int    `json:"v"`
}

// Payload is what the caller puts into a token and gets back after verification
type Payload struct {
	UserID       uuid.UUID
	Role         string
	TokenVersion int
}

// Token manager with sensible default
type Config struct {
	// Secrets to sign access and refresh tokens
	// Both are required and must differ
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Clock. time.Now if not set
	Now func() time.Time
}

type TokenManager struct {
	accessKey  []byte
	refreshKey []byte

	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing method %q, HMAC expected", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenManager{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *TokenManager) SignAccess(p Payload) (models.IssuedToken, error) {
	return m.sign(p, m.accessKey, m.accessTTL)
}

func (m *TokenManager) SignRefresh(p Payload) (models.IssuedToken, error) {
	return m.sign(p, m.refreshKey, m.refreshTTL)
}

// GeneratePair signs fresh access and refresh tokens for the same payload
func (m *TokenManager) GeneratePair(p Payload) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := m.SignAccess(p)
	if err != nil {
		return pair, err
	}

	refresh, err := m.SignRefresh(p)
	if err != nil {
		return pair, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *TokenManager) VerifyAccess(token string) Result {
	return m.verify(token, m.accessKey)
}

func (m *TokenManager) VerifyRefresh(token string) Result {
	return m.verify(token, m.refreshKey)
}

func (m *TokenManager) sign(p Payload, key []byte, ttl time.Duration) (models.IssuedToken, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(m.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:         p.Role,
		TokenVersion: p.TokenVersion,
	})

	value, err := token.SignedString(key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

func (m *TokenManager) verify(token string, key []byte) Result {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			return key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Result{Status: StatusExpired, Err: err}
	default:
		return Result{Status: StatusInvalid, Err: err}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Result{Status: StatusInvalid, Err: fmt.Errorf("bad subject: %w", err)}
	}
	if claims.IssuedAt == nil {
		return Result{Status: StatusInvalid, Err: errors.New("token has no iat claim")}
	}

	return Result{
		Status: StatusValid,
		Payload: Payload{
			UserID:       userID,
			Role:         claims.Role,
			TokenVersion: claims.TokenVersion,
		},
		IssuedAt: claims.IssuedAt.Time,
	}
}
