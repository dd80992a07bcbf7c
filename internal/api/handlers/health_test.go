package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/services"
)

func setupHealthRouter(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", h.Health)
	return router
}

func TestHealth_InMemoryFallback(t *testing.T) {
	monitor := services.NewPerformanceMonitor(logging.NewStandardLogger("error", "test"))
	router := setupHealthRouter(NewHealthHandler(nil, monitor, "test"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "disabled (in-memory fallback)", resp.Services["redis"])
}

func TestHealth_RedisReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	monitor := services.NewPerformanceMonitor(logging.NewStandardLogger("error", "test"))
	router := setupHealthRouter(NewHealthHandler(client, monitor, "test"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Services["redis"])
}

func TestHealth_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	monitor := services.NewPerformanceMonitor(logging.NewStandardLogger("error", "test"))
	router := setupHealthRouter(NewHealthHandler(client, monitor, "test"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unreachable")
}
