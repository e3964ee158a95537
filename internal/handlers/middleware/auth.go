package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/seatpass/internal/handlers/render"
	"github.com/nkiryanov/seatpass/internal/handlers/userctx"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/service/auth"
)

type sessionService interface {
	// Read raw tokens from cookies or Authorization header
	CredentialsFromRequest(r *http.Request) auth.Credentials

	// Resolve credentials to user, rotating tokens if access one expired
	// Has to return *auth.SessionError if credentials rejected
	Authenticate(ctx context.Context, c auth.Credentials) (auth.Session, error)

	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
}

type authObserver interface {
	AuthFailed(reason string)
	SessionRefreshed()
}

// AuthMiddleware lets through requests with acceptable session only and puts user to context.
// Silently rotated tokens are set to response cookies before next handler is called
func AuthMiddleware(s sessionService, obs authObserver, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := s.Authenticate(r.Context(), s.CredentialsFromRequest(r))

			var sessErr *auth.SessionError
			switch {
			case err == nil:
			case errors.As(err, &sessErr):
				l.Info("Request not authenticated", "reason", sessErr.Reason, "error", sessErr.Err, "uri", r.RequestURI)
				obs.AuthFailed(sessErr.Reason)
				render.Unauthenticated(w, sessErr.Message(), sessErr.Reason)
				return
			default:
				l.Error("Authentication failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if session.Rotated != nil {
				l.Debug("Session refreshed", "user_id", session.User.ID)
				obs.SessionRefreshed()
				s.SetTokenPairToResponse(w, *session.Rotated)
			}

			ctx := userctx.New(r.Context(), session.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
