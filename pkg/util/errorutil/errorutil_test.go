package errorutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	err := NewForbidden("nope")
	mapped := ToDomainError(err)
	require.NotNil(t, mapped)
	assert.Equal(t, "FORBIDDEN", mapped.Code)
	assert.Equal(t, http.StatusForbidden, mapped.HTTPStatus)
}

func TestToDomainErrorNoRows(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	require.NotNil(t, mapped)
	assert.Equal(t, "NOT_FOUND", mapped.Code)
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	mapped := ToDomainError(errors.New("boom"))
	require.NotNil(t, mapped)
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
	assert.ErrorContains(t, mapped, "boom")
}

func TestInvalidTransitionCarriesCurrentStatus(t *testing.T) {
	err := NewInvalidTransition("transition not allowed", map[string]any{"current_status": "submitted"})
	mapped := ToDomainError(err)
	require.NotNil(t, mapped)
	assert.Equal(t, "INVALID_TRANSITION", mapped.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, mapped.HTTPStatus)
	assert.Equal(t, "submitted", mapped.Details["current_status"])
	assert.True(t, IsCode(err, "INVALID_TRANSITION"))
	assert.False(t, IsCode(err, "CONFLICT"))
}

func TestToDomainErrorKeepsFiberStatus(t *testing.T) {
	mapped := ToDomainError(fiber.NewError(http.StatusForbidden, "insufficient role"))
	require.NotNil(t, mapped)
	assert.Equal(t, "FORBIDDEN", mapped.Code)
	assert.Equal(t, http.StatusForbidden, mapped.HTTPStatus)
	assert.Equal(t, "insufficient role", mapped.Message)

	mapped = ToDomainError(fiber.ErrMethodNotAllowed)
	require.NotNil(t, mapped)
	assert.Equal(t, "METHOD_NOT_ALLOWED", mapped.Code)
	assert.Equal(t, http.StatusMethodNotAllowed, mapped.HTTPStatus)
}
