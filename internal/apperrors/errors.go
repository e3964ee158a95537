package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRoleNotAllowed     = errors.New("role is not allowed")

	ErrInvalidOrExpiredToken = errors.New("reset token is invalid or expired")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrSubscriptionExpired  = errors.New("subscription expired")
	ErrInvalidStatus        = errors.New("invalid subscription status")
	ErrInvalidSubscription  = errors.New("invalid subscription parameters")

	ErrSeatNotFound      = errors.New("seat not found")
	ErrSeatAlreadyExists = errors.New("seat with the number already exists")
	ErrInvalidSeatType   = errors.New("invalid seat type")
	ErrInvalidOccupancy  = errors.New("invalid occupancy type")
)
