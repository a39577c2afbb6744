package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access role of a principal.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleUser       Role = "USER"
	RoleStoreOwner Role = "STORE_OWNER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleStoreOwner:
		return true
	}
	return false
}

// User is a registered account.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Address      string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the admin listing view of a user. OwnedStoreRating is only
// populated for store owners whose store has ratings.
type UserSummary struct {
	ID               uuid.UUID
	Name             string
	Email            string
	Address          string
	Role             Role
	OwnedStoreID     *uuid.UUID
	OwnedStoreRating *float64
}

// Principal is an authenticated caller as resolved by the access gate.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// Counts is a point-in-time snapshot of table sizes.
type Counts struct {
	Users   int64
	Stores  int64
	Ratings int64
}
