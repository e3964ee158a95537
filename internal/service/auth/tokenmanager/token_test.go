package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

// clock is a manually moved time source
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Add(d time.Duration) { c.now = c.now.Add(d) }

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	payload := Payload{
		UserID:       uuid.New(),
		Role:         "student",
		TokenVersion: 3,
	}

	newManager := func(t *testing.T, c *clock) *TokenManager {
		m, err := New(Config{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			Now:           c.Now,
		})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{AccessSecret: "a", RefreshSecret: "r"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, []byte("a"), m.accessKey, "access key should be set")
		require.Equal(t, []byte("r"), m.refreshKey, "refresh key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
		require.NotNil(t, m.now, "default clock should be set")
	})

	t.Run("new fails", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
		}{
			{"no access secret", Config{RefreshSecret: "r"}},
			{"no refresh secret", Config{AccessSecret: "a"}},
			{"same secrets", Config{AccessSecret: "same", RefreshSecret: "same"}},
			{"not hmac", Config{AccessSecret: "a", RefreshSecret: "r", Alg: "RS256"}},
			{"unknown alg", Config{AccessSecret: "a", RefreshSecret: "r", Alg: "nope"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := New(tt.cfg)

				require.Error(t, err)
			})
		}
	})

	t.Run("GeneratePair", func(t *testing.T) {
		t.Run("return token pair", func(t *testing.T) {
			c := &clock{now: mustParseTime("2025-01-01 10:00:00.700Z")}
			m := newManager(t, c)

			pair, err := m.GeneratePair(payload)

			require.NoError(t, err)
			assert.NotEmpty(t, pair.Access.Value, "access token should not be empty")
			assert.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
			assert.WithinDuration(t, mustParseTime("2025-01-01 10:15:00Z"), pair.Access.ExpiresAt, 0, "issue time is truncated to seconds")
			assert.WithinDuration(t, mustParseTime("2025-01-08 10:00:00Z"), pair.Refresh.ExpiresAt, 0)
		})

		t.Run("access claims", func(t *testing.T) {
			c := &clock{now: mustParseTime("2025-01-01 10:00:00Z")}
			m := newManager(t, c)
			pair, err := m.GeneratePair(payload)
			require.NoError(t, err)

			claims := &Claims{}
			_, err = jwt.ParseWithClaims(pair.Access.Value, claims, func(token *jwt.Token) (any, error) {
				return []byte("access-secret"), nil
			}, jwt.WithTimeFunc(c.Now))
			require.NoError(t, err)

			assert.Equal(t, payload.UserID.String(), claims.Subject, "sub should be user id")
			assert.Equal(t, "student", claims.Role)
			assert.Equal(t, 3, claims.TokenVersion)
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, c.now, claims.IssuedAt.Time, 0)
			assert.WithinDuration(t, pair.Access.ExpiresAt, claims.ExpiresAt.Time, 0, "access expires at should match token pair")
		})

		t.Run("generate different tokens in the same second", func(t *testing.T) {
			c := &clock{now: mustParseTime("2025-01-01 10:00:00Z")}
			m := newManager(t, c)

			pair1, err := m.GeneratePair(payload)
			require.NoError(t, err)
			pair2, err := m.GeneratePair(payload)
			require.NoError(t, err)

			assert.NotEqual(t, pair1.Refresh.Value, pair2.Refresh.Value, "refresh tokens should be different")
			assert.NotEqual(t, pair1.Access.Value, pair2.Access.Value, "access tokens should be different")
		})
	})

	t.Run("Verify", func(t *testing.T) {
		t.Run("valid access", func(t *testing.T) {
			c := &clock{now: mustParseTime("2025-01-01 10:00:00Z")}
			m := newManager(t, c)
			access, err := m.SignAccess(payload)
			require.NoError(t, err)

			res := m.VerifyAccess(access.Value)

			require.Equal(t, StatusValid, res.Status, "unexpected error: %v", res.Err)
			require.True(t, res.Valid())
			require.Equal(t, payload, res.Payload)
			require.WithinDuration(t, c.now, res.IssuedAt, 0)
		})

		t.Run("expiry boundary", func(t *testing.T) {
			tests := []struct {
				name     string
				shift    time.Duration
				expected Status
			}{
				{"one second before", 15*time.Minute - time.Second, StatusValid},
				{"exactly at exp", 15 * time.Minute, StatusExpired},
				{"one second after", 15*time.Minute + time.Second, StatusExpired},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					c := &clock{now: mustParseTime("2025-01-01 10:00:00Z")}
					m := newManager(t, c)
					access, err := m.SignAccess(payload)
					require.NoError(t, err)

					c.Add(tt.shift)
					res := m.VerifyAccess(access.Value)

					require.Equal(t, tt.expected, res.Status)
				})
			}
		})

		t.Run("refresh is not an access token", func(t *testing.T) {
			c := &clock{now: mustParseTime("2025-01-01 10:00:00Z")}
			m := newManager(t, c)
			pair, err := m.GeneratePair(payload)
			require.NoError(t, err)

			require.Equal(t, StatusInvalid, m.VerifyAccess(pair.Refresh.Value).Status)
			require.Equal(t, StatusInvalid, m.VerifyRefresh(pair.Access.Value).Status)
			require.Equal(t, StatusValid, m.VerifyRefresh(pair.Refresh.Value).Status)
		})

		t.Run("expired with wrong secret is invalid", func(t *testing.T) {
			c := &clock{now: mustParseTime("2025-01-01 10:00:00Z")}
			m := newManager(t, c)
			access, err := m.SignAccess(payload)
			require.NoError(t, err)

			c.Add(time.Hour)
			res := m.VerifyRefresh(access.Value)

			require.Equal(t, StatusInvalid, res.Status, "bad signature wins over expiry")
		})

		t.Run("not a token", func(t *testing.T) {
			m := newManager(t, &clock{now: time.Now()})

			res := m.VerifyAccess("invalid token")

			require.Equal(t, StatusInvalid, res.Status)
			require.Error(t, res.Err)
		})

		t.Run("not signed token", func(t *testing.T) {
			now := time.Now()
			m := newManager(t, &clock{now: now})
			token := jwt.NewWithClaims(
				jwt.SigningMethodNone,
				Claims{
					RegisteredClaims: jwt.RegisteredClaims{
						ID:        uuid.NewString(),
						Subject:   payload.UserID.String(),
						IssuedAt:  jwt.NewNumericDate(now),
						ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
					},
				},
			)
			access, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)

			res := m.VerifyAccess(access)

			require.Equal(t, StatusInvalid, res.Status, "Valid token with empty alg must fail")
		})

		t.Run("token without exp", func(t *testing.T) {
			now := time.Now()
			m := newManager(t, &clock{now: now})
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:  payload.UserID.String(),
					IssuedAt: jwt.NewNumericDate(now),
				},
			})
			access, err := token.SignedString([]byte("access-secret"))
			require.NoError(t, err)

			require.Equal(t, StatusInvalid, m.VerifyAccess(access).Status)
		})
	})
}
