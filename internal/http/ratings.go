package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/store-rating/internal/aggregation"
	"github.com/Clark-Hu/store-rating/internal/auth"
	"github.com/Clark-Hu/store-rating/internal/domain"
)

type ratingCreateRequest struct {
	StoreID string          `json:"storeId"`
	Rating  json.RawMessage `json:"rating"`
}

type ratingUpdateRequest struct {
	Rating json.RawMessage `json:"rating"`
}

type ratingResponse struct {
	StoreID       uuid.UUID `json:"storeId"`
	UserID        uuid.UUID `json:"userId"`
	Rating        int       `json:"rating"`
	AverageRating *float64  `json:"averageRating"`
	RatingCount   int64     `json:"ratingCount"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// parseRatingValue accepts only unquoted JSON integers; "4", 4.0 and 4.5 are
// rejected.
func parseRatingValue(raw json.RawMessage) (int, error) {
	token := strings.TrimSpace(string(raw))
	if strings.HasPrefix(token, `"`) {
		return 0, domain.NewValidationError("rating", "must be an integer between 1 and 5")
	}
	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, domain.NewValidationError("rating", "must be an integer between 1 and 5")
	}
	if err := domain.ValidateRating(value); err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	var req ratingCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	storeID, err := uuid.Parse(strings.TrimSpace(req.StoreID))
	if err != nil {
		s.respondServiceError(w, r, "submit rating", domain.NewValidationError("storeId", "must be a valid UUID"))
		return
	}
	s.submitRating(w, r, storeID, req.Rating)
}

func (s *Server) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	storeID, err := parseUUIDParam(r, "storeId")
	if err != nil {
		s.respondServiceError(w, r, "submit rating", err)
		return
	}
	var req ratingUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	s.submitRating(w, r, storeID, req.Rating)
}

// submitRating backs both rating routes: the rater is always the
// authenticated principal, 201 marks a first rating and 200 an update.
func (s *Server) submitRating(w http.ResponseWriter, r *http.Request, storeID uuid.UUID, raw json.RawMessage) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	value, err := parseRatingValue(raw)
	if err != nil {
		s.respondServiceError(w, r, "submit rating", err)
		return
	}

	ctx := r.Context()
	if s.cfg.RatingSubmitTimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.RatingSubmitTimeoutSecs)*time.Second)
		defer cancel()
	}

	res, err := s.ratings.SubmitOrUpdateRating(ctx, principal.UserID, storeID, value)
	if err != nil {
		s.respondServiceError(w, r, "submit rating", err)
		return
	}

	status := http.StatusOK
	if res.Inserted {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, toRatingResponse(res))
}

func toRatingResponse(res aggregation.SubmitResult) ratingResponse {
	return ratingResponse{
		StoreID:       res.Rating.StoreID,
		UserID:        res.Rating.UserID,
		Rating:        res.Rating.Value,
		AverageRating: roundAverage(res.Aggregate.Average),
		RatingCount:   res.Aggregate.Count,
		UpdatedAt:     res.Rating.UpdatedAt,
	}
}
