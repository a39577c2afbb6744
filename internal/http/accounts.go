package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/store-rating/internal/auth"
	"github.com/Clark-Hu/store-rating/internal/domain"
)

type userResponse struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Address   string      `json:"address"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	res, err := s.auth.Signup(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, "signup", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, authResponse{Token: res.Token, User: toUserResponse(res.User)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	res, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, "login", err)
		return
	}
	s.respondJSON(w, http.StatusOK, authResponse{Token: res.Token, User: toUserResponse(res.User)})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req auth.UpdatePasswordInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	if err := s.auth.UpdatePassword(r.Context(), principal.UserID, req); err != nil {
		s.respondServiceError(w, r, "update password", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
