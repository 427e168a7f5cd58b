package validation_test

import (
	"testing"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, validation.Struct(signup{Name: "Alice", Email: "alice@example.com"}))

	err := validation.Struct(signup{Name: "  ", Email: "alice@example.com"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	assert.Equal(t, "name cannot be blank", apperr.PublicMessage(err))

	err = validation.Struct(signup{Name: "Alice", Email: "alice"})
	require.Error(t, err)
	assert.Equal(t, "email must be a valid email address", apperr.PublicMessage(err))
}

func TestCheckEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{email: "alice@example.com", want: true},
		{email: "", want: false},
		{email: "not-an-email", want: false},
		{email: "a@b", want: false},
		{email: "alice@localhost", want: false},
		{email: "x@[127.0.0.1]", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, validation.Check(tt.email, "required,email"))
		})
	}
}
