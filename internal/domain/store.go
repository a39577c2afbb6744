package domain

import (
	"time"

	"github.com/google/uuid"
)

// Store represents a rated store. AverageRating and RatingCount are owned by
// the aggregation service and are never written by any other path.
type Store struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Address       string
	OwnerID       uuid.UUID
	AverageRating *float64
	RatingCount   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StoreWithCallerRating is a store as seen by a specific caller.
type StoreWithCallerRating struct {
	Store
	CallerRating *Rating
}
