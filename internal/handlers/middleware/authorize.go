package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/handlers/render"
	"github.com/nkiryanov/seatpass/internal/handlers/userctx"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/service/auth"
)

// RequireRole must be placed after AuthMiddleware
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userctx.FromContext(r.Context())
			if !ok {
				render.Unauthenticated(w, "Not authenticated", auth.ReasonMissingToken)
				return
			}

			if !slices.Contains(roles, user.Role) {
				render.ServiceError(w, "Access denied", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type accessChecker interface {
	// Has to return apperrors.ErrNoActiveSubscription or apperrors.ErrSubscriptionExpired if access denied
	CheckAccess(ctx context.Context, user models.User) error
}

// RequireActiveSubscription must be placed after AuthMiddleware
func RequireActiveSubscription(c accessChecker, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userctx.FromContext(r.Context())
			if !ok {
				render.Unauthenticated(w, "Not authenticated", auth.ReasonMissingToken)
				return
			}

			err := c.CheckAccess(r.Context(), user)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, apperrors.ErrNoActiveSubscription):
				render.ServiceError(w, "No active subscription", http.StatusForbidden)
			case errors.Is(err, apperrors.ErrSubscriptionExpired):
				render.ServiceError(w, "Subscription expired", http.StatusForbidden)
			default:
				l.Error("Subscription check failed", "error", err, "user_id", user.ID)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
		})
	}
}
