package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awkns-projects/rom-gateway/internal/vault"
)

func TestHealth(t *testing.T) {
	router := gin.New()
	router.GET("/health", Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStatus(t *testing.T) {
	router := gin.New()
	h := NewStatusHandler("1.0.0", "memory", 100, vault.TierConfigured)
	router.GET("/status", h.Status)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "memory", resp.Gateway.RateLimitBackend)
	assert.Equal(t, "HS256", resp.Gateway.TokenAlgorithm)
	assert.Equal(t, 100, resp.Gateway.RateLimitPerWindow)
	assert.Equal(t, string(vault.TierConfigured), resp.Gateway.VaultKeyTier)
}
