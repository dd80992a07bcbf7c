package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func setupAuthRouter(am *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/protected", am.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operator_id": c.GetString("operator_id")})
	})
	return router
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	router := setupAuthRouter(NewAuthMiddleware(testSecret))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	router := setupAuthRouter(NewAuthMiddleware(testSecret))

	for _, header := range []string{"Bearer", "Basic abc", "Bearer "} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("Authorization", header)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	router := setupAuthRouter(am)

	token, err := am.GenerateToken("op-1", "operator", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "op-1")
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	router := setupAuthRouter(am)

	token, err := am.GenerateToken("op-1", "operator", -time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestRequireAuth_WrongSecret(t *testing.T) {
	issuer := NewAuthMiddleware("another-secret-key-also-32-chars-xx")
	router := setupAuthRouter(NewAuthMiddleware(testSecret))

	token, err := issuer.GenerateToken("op-1", "operator", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)

	token, err := am.GenerateToken("op-7", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := am.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-7", claims.OperatorID)
	assert.Equal(t, "admin", claims.Role)

	_, err = am.ValidateToken("not-a-token")
	assert.Error(t, err)
}
