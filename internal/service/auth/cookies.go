package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/seatpass/internal/models"
)

const (
	defaultAccessCookieName  = "access_token"
	defaultRefreshCookieName = "refresh_token"
	defaultAuthScheme        = "Bearer"
)

type CookieConfig struct {
	AccessName  string
	RefreshName string

	// Production cookies are Secure and SameSite=None, so a frontend on another origin can send them.
	// Otherwise SameSite=Lax without Secure flag for plain http development
	Production bool
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.AccessName == "" {
		c.AccessName = defaultAccessCookieName
	}
	if c.RefreshName == "" {
		c.RefreshName = defaultRefreshCookieName
	}
	return c
}

func (c CookieConfig) cookie(name string, value string, maxAge int, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Production,
		SameSite: http.SameSiteLaxMode,
	}
	if c.Production {
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

// SetTokenPairToResponse sets both tokens as cookies living until tokens expire
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	now := time.Now()
	for _, c := range []struct {
		name  string
		token models.IssuedToken
	}{
		{s.cookies.AccessName, pair.Access},
		{s.cookies.RefreshName, pair.Refresh},
	} {
		maxAge := int(c.token.ExpiresAt.Sub(now).Round(time.Second).Seconds())
		if maxAge <= 0 {
			continue
		}
		http.SetCookie(w, s.cookies.cookie(c.name, c.token.Value, maxAge, c.token.ExpiresAt))
	}
}

// ClearTokens asks the client to drop both cookies
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, s.cookies.cookie(s.cookies.AccessName, "", -1, time.Unix(0, 0)))
	http.SetCookie(w, s.cookies.cookie(s.cookies.RefreshName, "", -1, time.Unix(0, 0)))
}

// CredentialsFromRequest reads access token from cookie falling back to 'Authorization: Bearer' header.
// Refresh token is read from cookie only
func (s *AuthService) CredentialsFromRequest(r *http.Request) Credentials {
	var c Credentials

	if cookie, err := r.Cookie(s.cookies.AccessName); err == nil {
		c.Access = cookie.Value
	}
	if c.Access == "" {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if ok && strings.EqualFold(scheme, defaultAuthScheme) {
			c.Access = strings.TrimSpace(token)
		}
	}

	if cookie, err := r.Cookie(s.cookies.RefreshName); err == nil {
		c.Refresh = cookie.Value
	}

	return c
}
