package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
)

func serveError(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondWithError(c, zap.NewNop(), "GET /", err)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"invalid cart", apperr.InvalidCart("cart is empty"), http.StatusBadRequest, "INVALID_CART", "cart is empty"},
		{"insufficient", apperr.ErrInsufficientPoints, http.StatusConflict, "INSUFFICIENT_POINTS", ""},
		{"not found", apperr.NotFound("order not found"), http.StatusNotFound, "NOT_FOUND", "order not found"},
		{"storage", apperr.Storage("find user", errors.New("socket closed")), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serveError(t, tt.err)
			assert.Equal(t, tt.status, status)
			if tt.code == "" {
				assert.NotContains(t, body, "code")
			} else {
				assert.Equal(t, tt.code, body["code"])
			}
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}
			assert.NotContains(t, body["error"], "socket closed")
		})
	}
}

func TestParseLimit(t *testing.T) {
	n, err := parseLimit("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = parseLimit("25")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	for _, bad := range []string{"0", "-3", "ten"} {
		_, err := parseLimit(bad)
		assert.True(t, apperr.IsInvalidInput(err), bad)
	}
}

func TestRespondValidationErrorOnBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	var req creditRequest
	err := json.Unmarshal([]byte(`{"amount":"lots"}`), &req)
	require.Error(t, err)
	respondValidationError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_INPUT")
}
