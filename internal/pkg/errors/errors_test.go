package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/outsource-importer/internal/pkg/errors"
)

func TestAppError_WrapKeepsIdentity(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := apperrors.ErrSourceFetch.Wrap(cause)

	assert.True(t, apperrors.Is(err, apperrors.ErrSourceFetch))
	assert.False(t, apperrors.Is(err, apperrors.ErrSourceNotFound))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	// sentinel must stay untouched
	assert.Nil(t, apperrors.ErrSourceFetch.Unwrap())
}

func TestAppError_AsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("import poi 12: %w", apperrors.ErrGeometryTransform.Wrap(fmt.Errorf("bad wkt")))

	appErr, ok := apperrors.As(err)
	assert.True(t, ok)
	assert.Equal(t, "GEOMETRY_TRANSFORM_FAILED", appErr.Code)
	assert.Equal(t, 422, appErr.StatusCode)
}

func TestAppError_WithDetailsCopies(t *testing.T) {
	err := apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{"field": "endpoint"})

	assert.Equal(t, "endpoint", err.Details["field"])
	assert.Empty(t, apperrors.ErrInvalidRequest.Details)
}
