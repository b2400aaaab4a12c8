package serverutils

import (
	"testing"

	"loan-insights-be/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func TestValidateRequest(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		err := ValidateRequest(loginForm{Email: "a@b.co", Password: "secret"})
		assert.NoError(t, err)
	})

	t.Run("first violation surfaces as validation error", func(t *testing.T) {
		err := ValidateRequest(loginForm{Password: "secret"})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("message is not treated as a format string", func(t *testing.T) {
		// A percent sign anywhere in the input must come through literally.
		err := ValidateRequest(loginForm{Email: "100%discount", Password: "secret"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field Email failed on email")
		assert.NotContains(t, err.Error(), "%!")
	})
}
