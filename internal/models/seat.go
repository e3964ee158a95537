package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SeatTypeRegular = "REGULAR"
	SeatTypeSpecial = "SPECIAL"

	OccupancyFullDay = "FULL_DAY"
	OccupancyMorning = "MORNING"
	OccupancyEvening = "EVENING"
)

type Seat struct {
	ID            uuid.UUID
	Number        int
	Type          string
	Occupied      bool
	OccupancyType *string // nil when seat is free
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func ValidSeatType(t string) bool {
	return t == SeatTypeRegular || t == SeatTypeSpecial
}

func ValidOccupancyType(t string) bool {
	switch t {
	case OccupancyFullDay, OccupancyMorning, OccupancyEvening:
		return true
	default:
		return false
	}
}
