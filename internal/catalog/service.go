// Package catalog holds the administrative operations on users and stores
// and the read-only views over ratings. None of it writes store aggregates.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-rating/internal/auth"
	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/repository"
)

// CreateUserInput holds the fields an administrator supplies for a new account.
type CreateUserInput struct {
	Name     string      `json:"name"     validate:"required,min=20,max=60"`
	Email    string      `json:"email"    validate:"required,email,max=255"`
	Address  string      `json:"address"  validate:"max=400"`
	Password string      `json:"password" validate:"required,min=8,max=16,password"`
	Role     domain.Role `json:"role"     validate:"required,oneof=ADMIN USER STORE_OWNER"`
}

// CreateStoreInput holds the fields of a new store.
type CreateStoreInput struct {
	Name    string    `json:"name"    validate:"required,min=1,max=100"`
	Email   string    `json:"email"   validate:"required,email,max=255"`
	Address string    `json:"address" validate:"max=400"`
	OwnerID uuid.UUID `json:"ownerId" validate:"required"`
}

// Service exposes catalog operations.
type Service struct {
	repo       *repository.Repository
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates a catalog service.
func NewService(repo *repository.Repository, bcryptCost int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, bcryptCost: bcryptCost, logger: logger.Named("catalog")}
}

// CreateUser creates an account with any role.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Address = strings.TrimSpace(input.Address)
	if err := auth.ValidateStruct(input); err != nil {
		return domain.User{}, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.Users.Create(ctx, repository.UserCreateParams{
		Name:         input.Name,
		Email:        input.Email,
		Address:      input.Address,
		PasswordHash: hash,
		Role:         input.Role,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("catalog.CreateUser: %w", err)
	}

	s.logger.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return user, nil
}

// ListUsers returns users matching filters. Store owners carry their store's rating.
func (s *Service) ListUsers(ctx context.Context, filters repository.UserListFilters) (repository.UserListResult, error) {
	if filters.Role != nil && !filters.Role.Valid() {
		return repository.UserListResult{}, domain.NewValidationError("role", "must be one of ADMIN, USER, STORE_OWNER")
	}
	result, err := s.repo.Users.List(ctx, filters)
	if err != nil {
		return repository.UserListResult{}, fmt.Errorf("catalog.ListUsers: %w", err)
	}
	return result, nil
}

// CreateStore creates a store owned by an existing STORE_OWNER. An owner
// holds at most one store; a second yields domain.ErrAlreadyExists.
func (s *Service) CreateStore(ctx context.Context, input CreateStoreInput) (domain.Store, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Address = strings.TrimSpace(input.Address)
	if err := auth.ValidateStruct(input); err != nil {
		return domain.Store{}, err
	}

	owner, err := s.repo.Users.GetByID(ctx, input.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Store{}, domain.NewValidationError("ownerId", "must reference an existing user")
		}
		return domain.Store{}, fmt.Errorf("catalog.CreateStore get owner: %w", err)
	}
	if owner.Role != domain.RoleStoreOwner {
		return domain.Store{}, domain.NewValidationError("ownerId", "must reference a STORE_OWNER user")
	}

	st, err := s.repo.Stores.Create(ctx, repository.StoreCreateParams{
		Name:    input.Name,
		Email:   input.Email,
		Address: input.Address,
		OwnerID: input.OwnerID,
	})
	if err != nil {
		return domain.Store{}, fmt.Errorf("catalog.CreateStore: %w", err)
	}

	s.logger.Info("store created", zap.String("store_id", st.ID.String()), zap.String("owner_id", owner.ID.String()))
	return st, nil
}

// ListStores returns stores matching filters with the caller's own rating attached.
func (s *Service) ListStores(ctx context.Context, caller domain.Principal, filters repository.StoreListFilters) (repository.StoreListResult, error) {
	filters.CallerID = caller.UserID
	result, err := s.repo.Stores.List(ctx, filters)
	if err != nil {
		return repository.StoreListResult{}, fmt.Errorf("catalog.ListStores: %w", err)
	}
	return result, nil
}

// GetStoreWithCallerRating returns a store and, if present, the caller's rating of it.
// It reads the committed aggregate and never recomputes it.
func (s *Service) GetStoreWithCallerRating(ctx context.Context, caller domain.Principal, storeID uuid.UUID) (domain.StoreWithCallerRating, error) {
	item, err := s.repo.Stores.GetWithCallerRating(ctx, storeID, caller.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.StoreWithCallerRating{}, fmt.Errorf("catalog.GetStore: %w", domain.ErrStoreNotFound)
		}
		return domain.StoreWithCallerRating{}, fmt.Errorf("catalog.GetStore: %w", err)
	}
	return item, nil
}

// StoreRatings is the owner's view of a store's ratings.
type StoreRatings struct {
	Store   domain.Store
	Ratings []domain.RaterRating
}

// ListRatingsForStore returns every rating of storeID with rater identity.
// Only the store's owner may read it.
func (s *Service) ListRatingsForStore(ctx context.Context, caller domain.Principal, storeID uuid.UUID) (StoreRatings, error) {
	st, err := s.repo.Stores.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return StoreRatings{}, fmt.Errorf("catalog.ListRatingsForStore: %w", domain.ErrStoreNotFound)
		}
		return StoreRatings{}, fmt.Errorf("catalog.ListRatingsForStore: %w", err)
	}
	if caller.Role != domain.RoleStoreOwner || st.OwnerID != caller.UserID {
		return StoreRatings{}, fmt.Errorf("store %s is not owned by caller: %w", storeID, domain.ErrForbidden)
	}

	ratings, err := s.repo.Ratings.ListForStore(ctx, storeID)
	if err != nil {
		return StoreRatings{}, fmt.Errorf("catalog.ListRatingsForStore: %w", err)
	}
	return StoreRatings{Store: st, Ratings: ratings}, nil
}

// GlobalCounts returns the number of users, stores and ratings.
func (s *Service) GlobalCounts(ctx context.Context) (domain.Counts, error) {
	counts, err := s.repo.Stats.Counts(ctx)
	if err != nil {
		return domain.Counts{}, fmt.Errorf("catalog.GlobalCounts: %w", err)
	}
	return counts, nil
}
