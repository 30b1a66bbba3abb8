package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want int
	}{
		{CodeInternal, http.StatusInternalServerError},
		{CodeInvalidFormat, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusUnprocessableEntity},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeTooManyRequest, http.StatusTooManyRequests},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeTimeout, http.StatusRequestTimeout},
		{Code(99), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			t.Parallel()
			e := &Error{code: tt.code}
			assert.Equal(t, tt.want, e.StatusCode())
		})
	}
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := NewServer(cause)

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, TypeServer, ge.Type())
	assert.Equal(t, "Internal server error", ge.Msg())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "db down", err.Error())
}

func TestNewInvalidInput(t *testing.T) {
	t.Parallel()

	t.Run("fields", func(t *testing.T) {
		t.Parallel()
		err := NewInvalidInput(nil, "secret", "must be base32", "name", "required")

		var ge *Error
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, CodeInvalidInput, ge.Code())
		assert.Equal(t, map[string]string{"secret": "must be base32", "name": "required"}, ge.Fields())
	})

	t.Run("odd pairs becomes invalid format", func(t *testing.T) {
		t.Parallel()
		err := NewInvalidInput(nil, "secret")
		assert.True(t, HasCode(err, CodeInvalidFormat))
	})

	t.Run("wrapped validator error", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("bad")
		err := NewInvalidInput(cause)
		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodeInvalidInput))
	})
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrap: %w", NewBusiness("nope", CodeForbidden))
	assert.True(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeForbidden))
}

func TestError_ErrorFallbacks(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Validation violation", (&Error{errType: TypeValidation}).Error())
	assert.Equal(t, "Logical business not meet with requirement", (&Error{errType: TypeBusiness}).Error())
	assert.Equal(t, "Internal error", (&Error{errType: TypeServer}).Error())
	assert.Equal(t, "custom", NewInvalidFormat("custom").Error())
}
