package domain

import (
	"errors"
	"testing"
)

func TestValidateRating(t *testing.T) {
	tests := []struct {
		value int
		valid bool
	}{
		{0, false},
		{1, true},
		{3, true},
		{5, true},
		{6, false},
		{-1, false},
	}

	for _, tt := range tests {
		err := ValidateRating(tt.value)
		if tt.valid && err != nil {
			t.Fatalf("ValidateRating(%d) unexpected error: %v", tt.value, err)
		}
		if !tt.valid && !errors.Is(err, ErrValidation) {
			t.Fatalf("ValidateRating(%d) error = %v, want ErrValidation", tt.value, err)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleUser, RoleStoreOwner} {
		if !r.Valid() {
			t.Fatalf("role %q should be valid", r)
		}
	}
	if Role("ROOT").Valid() {
		t.Fatalf("unknown role should be invalid")
	}
}
