package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/Clark-Hu/store-rating/internal/domain"
)

type principalCtxKey struct{}

// WithPrincipal attaches the authenticated principal to ctx.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(domain.Principal)
	return p, ok
}

// RequireRole fails with domain.ErrForbidden unless p holds one of roles.
func RequireRole(p domain.Principal, roles ...domain.Role) error {
	if slices.Contains(roles, p.Role) {
		return nil
	}
	return fmt.Errorf("role %s not permitted: %w", p.Role, domain.ErrForbidden)
}
