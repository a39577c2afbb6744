package httpserver

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Clark-Hu/store-rating/internal/catalog"
	"github.com/Clark-Hu/store-rating/internal/domain"
)

type userSummaryResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	Role        domain.Role `json:"role"`
	StoreID     *uuid.UUID  `json:"storeId,omitempty"`
	StoreRating *float64    `json:"storeRating,omitempty"`
}

type userListResponse struct {
	Items      []userSummaryResponse `json:"items"`
	NextCursor *string               `json:"nextCursor,omitempty"`
}

type statsResponse struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalStores  int64 `json:"totalStores"`
	TotalRatings int64 `json:"totalRatings"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateUserInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	user, err := s.catalog.CreateUser(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, "create user", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filters, err := buildUserFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.catalog.ListUsers(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, r, "list users", err)
		return
	}

	items := make([]userSummaryResponse, 0, len(result.Items))
	for _, u := range result.Items {
		items = append(items, userSummaryResponse{
			ID:          u.ID,
			Name:        u.Name,
			Email:       u.Email,
			Address:     u.Address,
			Role:        u.Role,
			StoreID:     u.OwnedStoreID,
			StoreRating: roundAverage(u.OwnedStoreRating),
		})
	}
	s.respondJSON(w, http.StatusOK, userListResponse{Items: items, NextCursor: result.NextCursor})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.catalog.GlobalCounts(r.Context())
	if err != nil {
		s.respondServiceError(w, r, "stats", err)
		return
	}
	s.respondJSON(w, http.StatusOK, statsResponse{
		TotalUsers:   counts.Users,
		TotalStores:  counts.Stores,
		TotalRatings: counts.Ratings,
	})
}
