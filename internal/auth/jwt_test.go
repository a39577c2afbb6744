package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/store-rating/internal/domain"
)

const testSecret = "test-secret-that-is-at-least-32-chars!"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, "store-rating", time.Hour)
	userID := uuid.New()

	token, err := m.Generate(userID, domain.RoleStoreOwner)
	require.NoError(t, err)

	p, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, domain.RoleStoreOwner, p.Role)

	p, err = m.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, "store-rating", time.Hour)
	valid, err := m.Generate(uuid.New(), domain.RoleUser)
	require.NoError(t, err)

	expired := NewTokenManager(testSecret, "store-rating", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Generate(uuid.New(), domain.RoleUser)
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager(testSecret, "someone-else", time.Hour).Generate(uuid.New(), domain.RoleUser)
	require.NoError(t, err)

	otherSecret, err := NewTokenManager("another-secret-that-is-32-chars-long", "store-rating", time.Hour).Generate(uuid.New(), domain.RoleUser)
	require.NoError(t, err)

	badRole, err := m.Generate(uuid.New(), domain.Role("SUPERUSER"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: uuid.NewString(),
		Issuer:  "store-rating",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"wrong scheme", "Basic " + valid},
		{"missing token", "Bearer "},
		{"garbage", "Bearer not-a-token"},
		{"expired", "Bearer " + expiredToken},
		{"wrong issuer", "Bearer " + otherIssuer},
		{"wrong secret", "Bearer " + otherSecret},
		{"unknown role", "Bearer " + badRole},
		{"unsigned", "Bearer " + noneAlg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Authenticate(tt.header)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestRequireRole(t *testing.T) {
	admin := domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}
	user := domain.Principal{UserID: uuid.New(), Role: domain.RoleUser}

	assert.NoError(t, RequireRole(admin, domain.RoleAdmin))
	assert.NoError(t, RequireRole(user, domain.RoleUser, domain.RoleStoreOwner))
	assert.ErrorIs(t, RequireRole(user, domain.RoleAdmin), domain.ErrForbidden)
	assert.ErrorIs(t, RequireRole(user), domain.ErrForbidden)
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	_, ok := PrincipalFromContext(ctx)
	assert.False(t, ok)

	want := domain.Principal{UserID: uuid.New(), Role: domain.RoleUser}
	got, ok := PrincipalFromContext(WithPrincipal(ctx, want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}
