package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SubscriptionStatusActive    = "Active"
	SubscriptionStatusExpired   = "Expired"
	SubscriptionStatusCancelled = "Cancelled"
)

type Subscription struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Plan       string
	Status     string
	StartDate  time.Time
	ExpiryDate time.Time
	Duration   int // months
	Shift      string
	SeatType   string
	AmountPaid decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func ValidSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusExpired, SubscriptionStatusCancelled:
		return true
	default:
		return false
	}
}
