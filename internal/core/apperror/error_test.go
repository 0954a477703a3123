package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStockNamesItem(t *testing.T) {
	err := NewInsufficientStock("M00001", "Red Rose", 10, 5)

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Contains(t, err.Message, "Red Rose")
	assert.Equal(t, int64(10), err.Details["requested"])
	assert.Equal(t, int64(5), err.Details["available"])
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("place order: %w", NewItemNotFound("product", "P1", "A"))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsInsufficientStock(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "P1", appErr.Details["code"])
}

func TestPersistenceKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistence("commit", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDatabase, err.Code)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetHTTPStatusDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusMultiStatus, GetHTTPStatus(NewPartialBatchFailure(1, 3)))
}
