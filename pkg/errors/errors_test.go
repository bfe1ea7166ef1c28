package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	err := NotFound("prescription", 42)

	assert.Equal(t, "prescription not found with id: 42", err.Error())
	assert.Equal(t, http.StatusNotFound, err.StatusCode())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
}

func TestValidation(t *testing.T) {
	err := Validation("Start date must be before or equal to end date")

	assert.Equal(t, "Start date must be before or equal to end date", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
}

func TestInternal(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
	assert.True(t, errors.Is(err, cause))
}

func TestWrappedDetection(t *testing.T) {
	// Helpers see through fmt.Errorf wrapping.
	wrapped := fmt.Errorf("service failed: %w", NotFound("patient", 7))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(errors.New("plain")))
}
