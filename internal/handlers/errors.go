package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/handlers/render"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/service/auth"
)

var errorStatuses = []struct {
	err     error
	message string
	code    int
}{
	{apperrors.ErrUserAlreadyExists, "User already exists", http.StatusConflict},
	{apperrors.ErrUserNotFound, "User not found", http.StatusNotFound},
	{apperrors.ErrRoleNotAllowed, "Role is not allowed", http.StatusForbidden},
	{apperrors.ErrInvalidOrExpiredToken, "Invalid or expired reset token", http.StatusBadRequest},
	{apperrors.ErrNoActiveSubscription, "No active subscription", http.StatusForbidden},
	{apperrors.ErrSubscriptionExpired, "Subscription expired", http.StatusForbidden},
	{apperrors.ErrSubscriptionNotFound, "Subscription not found", http.StatusNotFound},
	{apperrors.ErrInvalidStatus, "Invalid subscription status", http.StatusBadRequest},
	{apperrors.ErrInvalidSubscription, "Invalid subscription parameters", http.StatusBadRequest},
	{apperrors.ErrSeatNotFound, "Seat not found", http.StatusNotFound},
	{apperrors.ErrSeatAlreadyExists, "Seat already exists", http.StatusConflict},
	{apperrors.ErrInvalidSeatType, "Invalid seat type", http.StatusBadRequest},
	{apperrors.ErrInvalidOccupancy, "Invalid occupancy type", http.StatusBadRequest},
}

// writeError renders service error with matching status code.
// Unknown errors are logged and rendered as 500 without details
func writeError(w http.ResponseWriter, l logger.Logger, err error) {
	var sessErr *auth.SessionError
	if errors.As(err, &sessErr) {
		l.Info("Session rejected", "reason", sessErr.Reason, "error", sessErr.Err)
		render.Unauthenticated(w, sessErr.Message(), sessErr.Reason)
		return
	}

	if errors.Is(err, apperrors.ErrInvalidCredentials) {
		render.Unauthenticated(w, "Invalid email or password", auth.ReasonInvalidCredentials)
		return
	}

	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			render.ServiceError(w, s.message, s.code)
			return
		}
	}

	l.Error("Unexpected service error", "error", err)
	render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
}
