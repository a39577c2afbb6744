package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rating bounds accepted for a single user's rating of a store.
const (
	MinRating = 1
	MaxRating = 5
)

// Rating represents a single user's rating for a store.
type Rating struct {
	UserID    uuid.UUID
	StoreID   uuid.UUID
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingAggregate is the derived mean maintained on the store row.
// Sum and Count are exact; the store row keeps Sum/Count as numeric and
// Average is its float view. Average is nil while the store has no ratings.
type RatingAggregate struct {
	StoreID uuid.UUID
	Sum     int64
	Count   int64
	Average *float64
}

// RaterRating pairs a rating with minimal identity info about who submitted it.
type RaterRating struct {
	Rating
	UserName  string
	UserEmail string
}

// ValidateRating reports whether value is an accepted rating.
func ValidateRating(value int) error {
	if value < MinRating || value > MaxRating {
		return NewValidationError("rating", fmt.Sprintf("must be an integer between %d and %d", MinRating, MaxRating))
	}
	return nil
}
