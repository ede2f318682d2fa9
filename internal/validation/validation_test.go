package validation_test

import (
	"testing"

	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/internal/validation"
	"github.com/stretchr/testify/require"
)

type brandInput struct {
	Name  string `json:"name" validate:"required,max=50"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Rank  int    `json:"rank" validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, validation.Struct(brandInput{Name: "Atlantic"}))
	require.NoError(t, validation.Struct(42))

	err := validation.Struct(&brandInput{Email: "nope", Rank: -1})
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Equal(t, "is required", fields["name"])
	require.Equal(t, "must be a valid email", fields["email"])
	require.Equal(t, "must be at least 0", fields["rank"])
	require.Equal(t, "email must be a valid email, name is required, rank must be at least 0", err.Error())
}

func TestStruct_NilPointer(t *testing.T) {
	var in *brandInput
	require.ErrorIs(t, validation.Struct(in), apperrors.ErrInvalidInput)
}
