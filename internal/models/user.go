package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Name           string
	Email          string
	Phone          string
	Role           string
	HashedPassword string

	// Incremented to invalidate every token issued before
	TokenVersion int

	// nil if password was never changed after registration
	PasswordChangedAt *time.Time

	CurrentSubscriptionID *uuid.UUID
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
