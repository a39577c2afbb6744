// Package auth implements sign-up, login and password changes, and resolves
// request principals from access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/repository"
)

// SignupInput holds the fields of a self-service registration.
type SignupInput struct {
	Name     string `json:"name"     validate:"required,min=20,max=60"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Address  string `json:"address"  validate:"max=400"`
	Password string `json:"password" validate:"required,min=8,max=16,password"`
}

// Normalize trims surrounding whitespace and lowercases the email.
func (i *SignupInput) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Email = strings.ToLower(strings.TrimSpace(i.Email))
	i.Address = strings.TrimSpace(i.Address)
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdatePasswordInput holds a password change request.
type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=16,password"`
}

// Result is returned by Signup and Login.
type Result struct {
	Token string
	User  domain.User
}

// Service runs account operations.
type Service struct {
	users      *repository.UsersRepository
	tokens     *TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates an auth service.
func NewService(users *repository.UsersRepository, tokens *TokenManager, bcryptCost int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.Named("auth"),
	}
}

// Tokens exposes the token manager used to authenticate requests.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Signup registers a USER account and returns an access token for it.
// A taken email yields domain.ErrAlreadyExists.
func (s *Service) Signup(ctx context.Context, input SignupInput) (Result, error) {
	input.Normalize()
	if err := ValidateStruct(input); err != nil {
		return Result{}, err
	}

	hash, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return Result{}, err
	}

	user, err := s.users.Create(ctx, repository.UserCreateParams{
		Name:         input.Name,
		Email:        input.Email,
		Address:      input.Address,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		return Result{}, fmt.Errorf("auth.Signup: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return Result{}, fmt.Errorf("auth.Signup: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	return Result{Token: token, User: user}, nil
}

// Login verifies credentials. An unknown email or wrong password yields
// domain.ErrUnauthenticated.
func (s *Service) Login(ctx context.Context, input LoginInput) (Result, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := ValidateStruct(input); err != nil {
		return Result{}, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{}, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
		}
		return Result{}, fmt.Errorf("auth.Login get user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, input.Password)
	if err != nil {
		return Result{}, fmt.Errorf("auth.Login: %w", err)
	}
	if !ok {
		return Result{}, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return Result{}, fmt.Errorf("auth.Login: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))
	return Result{Token: token, User: user}, nil
}

// UpdatePassword replaces userID's password after checking the current one.
// A wrong current password yields domain.ErrUnauthenticated.
func (s *Service) UpdatePassword(ctx context.Context, userID uuid.UUID, input UpdatePasswordInput) error {
	if err := ValidateStruct(input); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("unknown user: %w", domain.ErrUnauthenticated)
		}
		return fmt.Errorf("auth.UpdatePassword get user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, input.CurrentPassword)
	if err != nil {
		return fmt.Errorf("auth.UpdatePassword: %w", err)
	}
	if !ok {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthenticated)
	}

	hash, err := HashPassword(input.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("auth.UpdatePassword: %w", err)
	}

	s.logger.Info("password updated", zap.String("user_id", userID.String()))
	return nil
}
