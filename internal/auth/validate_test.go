package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/store-rating/internal/domain"
)

func validSignup() SignupInput {
	return SignupInput{
		Name:     "Alexandra Montgomery-Smith",
		Email:    "alex@example.com",
		Address:  "42 Long Road",
		Password: "Secret#123",
	}
}

func TestValidateStruct_Signup(t *testing.T) {
	require.NoError(t, ValidateStruct(validSignup()))

	tests := []struct {
		name   string
		mutate func(*SignupInput)
		field  string
	}{
		{"name too short", func(i *SignupInput) { i.Name = "Short Name" }, "name"},
		{"name too long", func(i *SignupInput) { i.Name = strings.Repeat("n", 61) }, "name"},
		{"bad email", func(i *SignupInput) { i.Email = "not-an-email" }, "email"},
		{"address too long", func(i *SignupInput) { i.Address = strings.Repeat("a", 401) }, "address"},
		{"password too short", func(i *SignupInput) { i.Password = "Ab#1" }, "password"},
		{"password too long", func(i *SignupInput) { i.Password = "Abcdefgh#12345678" }, "password"},
		{"password without uppercase", func(i *SignupInput) { i.Password = "secret#123" }, "password"},
		{"password without special", func(i *SignupInput) { i.Password = "Secret1234" }, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validSignup()
			tt.mutate(&input)
			err := ValidateStruct(input)
			require.ErrorIs(t, err, domain.ErrValidation)

			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			require.Len(t, vErr.Errors, 1)
			assert.Equal(t, tt.field, vErr.Errors[0].Field)
			assert.NotEmpty(t, vErr.Errors[0].Message)
		})
	}
}

func TestValidateStruct_CollectsAllFields(t *testing.T) {
	err := ValidateStruct(SignupInput{})
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))

	fields := map[string]string{}
	for _, fe := range vErr.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "is required", fields["email"])
	assert.Equal(t, "is required", fields["password"])
	assert.NotContains(t, fields, "address")
}

func TestSignupInput_Normalize(t *testing.T) {
	input := SignupInput{Name: "  Alexandra Montgomery-Smith ", Email: " Alex@Example.COM ", Address: " x "}
	input.Normalize()
	assert.Equal(t, "Alexandra Montgomery-Smith", input.Name)
	assert.Equal(t, "alex@example.com", input.Email)
	assert.Equal(t, "x", input.Address)
}
