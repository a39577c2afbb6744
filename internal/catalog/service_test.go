package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/store-rating/internal/aggregation"
	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/repository"
	"github.com/Clark-Hu/store-rating/internal/store"
	"github.com/Clark-Hu/store-rating/internal/store/storetest"
)

func TestMain(m *testing.M) {
	os.Exit(storetest.Run(m))
}

type testEnv struct {
	ctx     context.Context
	repo    *repository.Repository
	catalog *Service
	ratings *aggregation.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pool := storetest.NewPool(t)
	repo := repository.NewWithPool(pool)
	return &testEnv{
		ctx:     context.Background(),
		repo:    repo,
		catalog: NewService(repo, bcrypt.MinCost, nil),
		ratings: aggregation.NewService(store.NewTxManager(pool), repo, aggregation.Options{}),
	}
}

func (e *testEnv) createUser(t *testing.T, email string, role domain.Role) domain.User {
	t.Helper()
	user, err := e.catalog.CreateUser(e.ctx, CreateUserInput{
		Name:     "Catalog Test Account Holder",
		Email:    email,
		Address:  "5 Market Square",
		Password: "Secret#123",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func principal(u domain.User) domain.Principal {
	return domain.Principal{UserID: u.ID, Role: u.Role}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	user := env.createUser(t, " Owner@Example.com ", domain.RoleStoreOwner)
	assert.Equal(t, "owner@example.com", user.Email)
	assert.Equal(t, domain.RoleStoreOwner, user.Role)

	_, err := env.catalog.CreateUser(env.ctx, CreateUserInput{
		Name:     "Catalog Test Account Holder",
		Email:    "owner@example.com",
		Password: "Secret#123",
		Role:     domain.RoleUser,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = env.catalog.CreateUser(env.ctx, CreateUserInput{
		Name:     "Catalog Test Account Holder",
		Email:    "other@example.com",
		Password: "Secret#123",
		Role:     domain.Role("GUEST"),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateStore(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", domain.RoleStoreOwner)
	plain := env.createUser(t, "plain@example.com", domain.RoleUser)

	input := CreateStoreInput{Name: "Corner Books", Email: "books@example.com", Address: "7 Page Lane", OwnerID: owner.ID}
	st, err := env.catalog.CreateStore(env.ctx, input)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, st.OwnerID)
	assert.Nil(t, st.AverageRating)

	_, err = env.catalog.CreateStore(env.ctx, input)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists, "an owner holds one store")

	input.OwnerID = plain.ID
	_, err = env.catalog.CreateStore(env.ctx, input)
	assert.ErrorIs(t, err, domain.ErrValidation)

	input.OwnerID = uuid.New()
	_, err = env.catalog.CreateStore(env.ctx, input)
	assert.ErrorIs(t, err, domain.ErrValidation)

	input.OwnerID = uuid.Nil
	_, err = env.catalog.CreateStore(env.ctx, input)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStoreViews(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", domain.RoleStoreOwner)
	otherOwner := env.createUser(t, "other-owner@example.com", domain.RoleStoreOwner)
	rater := env.createUser(t, "rater@example.com", domain.RoleUser)
	bystander := env.createUser(t, "bystander@example.com", domain.RoleUser)

	st, err := env.catalog.CreateStore(env.ctx, CreateStoreInput{Name: "Corner Books", Email: "books@example.com", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = env.ratings.SubmitOrUpdateRating(env.ctx, rater.ID, st.ID, 4)
	require.NoError(t, err)

	view, err := env.catalog.GetStoreWithCallerRating(env.ctx, principal(rater), st.ID)
	require.NoError(t, err)
	require.NotNil(t, view.CallerRating)
	assert.Equal(t, 4, view.CallerRating.Value)
	require.NotNil(t, view.AverageRating)
	assert.InDelta(t, 4.0, *view.AverageRating, 1e-9)

	view, err = env.catalog.GetStoreWithCallerRating(env.ctx, principal(bystander), st.ID)
	require.NoError(t, err)
	assert.Nil(t, view.CallerRating)

	_, err = env.catalog.GetStoreWithCallerRating(env.ctx, principal(rater), uuid.New())
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	list, err := env.catalog.ListStores(env.ctx, principal(rater), repository.StoreListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.NotNil(t, list.Items[0].CallerRating)

	ratings, err := env.catalog.ListRatingsForStore(env.ctx, principal(owner), st.ID)
	require.NoError(t, err)
	require.Len(t, ratings.Ratings, 1)
	assert.Equal(t, rater.Email, ratings.Ratings[0].UserEmail)
	assert.Equal(t, rater.Name, ratings.Ratings[0].UserName)

	_, err = env.catalog.ListRatingsForStore(env.ctx, principal(otherOwner), st.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.catalog.ListRatingsForStore(env.ctx, principal(rater), st.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.catalog.ListRatingsForStore(env.ctx, principal(owner), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListUsersAndCounts(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", domain.RoleStoreOwner)
	rater := env.createUser(t, "rater@example.com", domain.RoleUser)
	env.createUser(t, "admin@example.com", domain.RoleAdmin)

	st, err := env.catalog.CreateStore(env.ctx, CreateStoreInput{Name: "Corner Books", Email: "books@example.com", OwnerID: owner.ID})
	require.NoError(t, err)
	_, err = env.ratings.SubmitOrUpdateRating(env.ctx, rater.ID, st.ID, 3)
	require.NoError(t, err)

	role := domain.RoleStoreOwner
	users, err := env.catalog.ListUsers(env.ctx, repository.UserListFilters{Role: &role})
	require.NoError(t, err)
	require.Len(t, users.Items, 1)
	require.NotNil(t, users.Items[0].OwnedStoreRating)
	assert.InDelta(t, 3.0, *users.Items[0].OwnedStoreRating, 1e-9)

	bad := domain.Role("GUEST")
	_, err = env.catalog.ListUsers(env.ctx, repository.UserListFilters{Role: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	counts, err := env.catalog.GlobalCounts(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Users: 3, Stores: 1, Ratings: 1}, counts)
}
