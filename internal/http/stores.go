package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Clark-Hu/store-rating/internal/auth"
	"github.com/Clark-Hu/store-rating/internal/catalog"
	"github.com/Clark-Hu/store-rating/internal/domain"
)

type storeCreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	OwnerID string `json:"ownerId"`
}

type storeResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	OwnerID       uuid.UUID `json:"ownerId"`
	AverageRating *float64  `json:"averageRating"`
	RatingCount   int64     `json:"ratingCount"`
	CreatedAt     time.Time `json:"createdAt"`
	MyRating      *int      `json:"myRating,omitempty"`
}

type storeListResponse struct {
	Items      []storeResponse `json:"items"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

type raterRatingResponse struct {
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Rating    int       `json:"rating"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type storeRatingsResponse struct {
	Store   storeResponse         `json:"store"`
	Ratings []raterRatingResponse `json:"ratings"`
}

func toStoreResponse(st domain.Store) storeResponse {
	return storeResponse{
		ID:            st.ID,
		Name:          st.Name,
		Email:         st.Email,
		Address:       st.Address,
		OwnerID:       st.OwnerID,
		AverageRating: roundAverage(st.AverageRating),
		RatingCount:   st.RatingCount,
		CreatedAt:     st.CreatedAt,
	}
}

func toStoreWithCallerRatingResponse(item domain.StoreWithCallerRating) storeResponse {
	resp := toStoreResponse(item.Store)
	if item.CallerRating != nil {
		value := item.CallerRating.Value
		resp.MyRating = &value
	}
	return resp
}

// parseUUIDParam reads a path parameter as a UUID, reporting a field error
// when it is malformed.
func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a valid UUID")
	}
	return id, nil
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	ownerID, err := uuid.Parse(strings.TrimSpace(req.OwnerID))
	if err != nil {
		s.respondServiceError(w, r, "create store", domain.NewValidationError("ownerId", "must be a valid UUID"))
		return
	}

	st, err := s.catalog.CreateStore(r.Context(), catalog.CreateStoreInput{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		OwnerID: ownerID,
	})
	if err != nil {
		s.respondServiceError(w, r, "create store", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toStoreResponse(st))
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	filters, err := buildStoreFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.catalog.ListStores(r.Context(), principal, filters)
	if err != nil {
		s.respondServiceError(w, r, "list stores", err)
		return
	}

	items := make([]storeResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, toStoreWithCallerRatingResponse(item))
	}
	s.respondJSON(w, http.StatusOK, storeListResponse{Items: items, NextCursor: result.NextCursor})
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	storeID, err := parseUUIDParam(r, "id")
	if err != nil {
		s.respondServiceError(w, r, "get store", err)
		return
	}

	item, err := s.catalog.GetStoreWithCallerRating(r.Context(), principal, storeID)
	if err != nil {
		s.respondServiceError(w, r, "get store", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toStoreWithCallerRatingResponse(item))
}

func (s *Server) handleListStoreRatings(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	storeID, err := parseUUIDParam(r, "id")
	if err != nil {
		s.respondServiceError(w, r, "list store ratings", err)
		return
	}

	result, err := s.catalog.ListRatingsForStore(r.Context(), principal, storeID)
	if err != nil {
		s.respondServiceError(w, r, "list store ratings", err)
		return
	}

	ratings := make([]raterRatingResponse, 0, len(result.Ratings))
	for _, rr := range result.Ratings {
		ratings = append(ratings, raterRatingResponse{
			UserID:    rr.UserID,
			Name:      rr.UserName,
			Email:     rr.UserEmail,
			Rating:    rr.Value,
			UpdatedAt: rr.UpdatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, storeRatingsResponse{Store: toStoreResponse(result.Store), Ratings: ratings})
}
