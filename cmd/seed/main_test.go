package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/store-rating/internal/catalog"
	"github.com/Clark-Hu/store-rating/internal/domain"
	"github.com/Clark-Hu/store-rating/internal/repository"
	"github.com/Clark-Hu/store-rating/internal/store/storetest"
)

func TestMain(m *testing.M) {
	os.Exit(storetest.Run(m))
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewWithPool(storetest.NewPool(t))
	svc := catalog.NewService(repo, bcrypt.MinCost, nil)
	opts := seedOptions{
		adminName:     "Portal Administrator Account",
		adminEmail:    "admin@example.com",
		adminPassword: "Admin#Pass1",
		demo:          true,
	}

	report, err := seed(ctx, repo, svc, opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, seedReport{adminCreated: true, ownerCreated: true, storeCreated: true}, report)

	report, err = seed(ctx, repo, svc, opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, seedReport{}, report)

	counts, err := repo.Stats.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Users: 2, Stores: 1, Ratings: 0}, counts)

	admin, err := repo.Users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestSeed_RejectsWeakPassword(t *testing.T) {
	repo := repository.NewWithPool(storetest.NewPool(t))
	svc := catalog.NewService(repo, bcrypt.MinCost, nil)

	_, err := seed(context.Background(), repo, svc, seedOptions{
		adminName:     "Portal Administrator Account",
		adminEmail:    "admin@example.com",
		adminPassword: "weak",
	}, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--admin-email", "root@example.com", "--demo"}))

	email, err := cmd.Flags().GetString("admin-email")
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", email)

	demo, err := cmd.Flags().GetBool("demo")
	require.NoError(t, err)
	assert.True(t, demo)
}
