package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		status  int
		message string
	}{
		{"not found", NewNotFound("inward-invoice", "INV9"), http.StatusNotFound, "inward-invoice INV9 not found"},
		{"unknown resource", NewUnknownResource("widgets"), http.StatusBadRequest, "Unknown resource"},
		{"method", NewMethodNotAllowed("PATCH"), http.StatusMethodNotAllowed, "Unknown method PATCH"},
		{"duplicate", NewDuplicate("product", "productCode", "P1"), http.StatusConflict, "product P1 already exists"},
		{"storage", NewStorage("append", errors.New("disk full")), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Message)
		})
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("update: %w", NewInternal(cause))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.ErrorIs(t, wrapped, cause)

	assert.False(t, IsAppError(cause))
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", NewNotFound("product", "P1"))))
}
