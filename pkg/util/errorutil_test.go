package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("wrapped domain error is preserved", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", NewUnauthorized("unauthorized"))
		de := ToDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, "UNAUTHORIZED", de.Code)
		assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	})

	t.Run("fiber error keeps status", func(t *testing.T) {
		de := ToDomainError(fiber.NewError(http.StatusNotFound, "Cannot GET /nope"))
		assert.Equal(t, "NOT_FOUND", de.Code)
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		cause := errors.New("boom")
		de := ToDomainError(cause)
		assert.Equal(t, "INTERNAL_ERROR", de.Code)
		assert.Equal(t, "internal server error", de.Message)
		assert.ErrorIs(t, de, cause)
	})
}
