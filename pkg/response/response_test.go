package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lat: %w", models.ErrInvalidLocation), http.StatusBadRequest},
		{models.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("user: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrForbidden, http.StatusForbidden},
		{models.ErrChatLocked, http.StatusForbidden},
		{models.ErrConflict, http.StatusConflict},
		{fmt.Errorf("failed to get: %w: %w", models.ErrStorageUnavailable, errors.New("disk")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestFromError_HidesServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FromError(c, "Failed to load", errors.New("secret detail"))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Empty(t, resp.Error)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	FromError(c, "Chat locked", models.ErrChatLocked)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ErrChatLocked.Error(), resp.Error)
}
