package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto_analysis_backend/config"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	old := config.AppConfig
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}
	t.Cleanup(func() { config.AppConfig = old })
}

func protectedRouter(authMiddleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", authMiddleware, func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func TestGenerateAndValidateToken(t *testing.T) {
	setTestConfig(t)

	token, err := GenerateToken(42, "user@example.com", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := validateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestGenerateTokenWithoutSecret(t *testing.T) {
	old := config.AppConfig
	config.AppConfig = &config.Config{}
	t.Cleanup(func() { config.AppConfig = old })

	_, err := GenerateToken(1, "user@example.com", "user")
	assert.Error(t, err)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	setTestConfig(t)

	token, err := GenerateToken(1, "user@example.com", "user")
	require.NoError(t, err)

	_, err = validateToken(token + "x")
	assert.Error(t, err)

	_, err = validateToken("not-a-token")
	assert.Error(t, err)
}

func TestJWTAuthMiddleware(t *testing.T) {
	setTestConfig(t)
	router := protectedRouter(JWTAuthMiddleware())

	// Missing header
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token
	token, err := GenerateToken(7, "user@example.com", "user")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "7")
}

func TestAdminRoleMiddleware(t *testing.T) {
	setTestConfig(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", JWTAuthMiddleware(), AdminRoleMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	userToken, err := GenerateToken(1, "user@example.com", "user")
	require.NoError(t, err)
	adminToken, err := GenerateToken(2, "admin@example.com", "admin")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalJWTAuthMiddleware(t *testing.T) {
	setTestConfig(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/maybe", OptionalJWTAuthMiddleware(), func(c *gin.Context) {
		authenticated, _ := c.Get("authenticated")
		c.JSON(http.StatusOK, gin.H{"authenticated": authenticated})
	})

	// Anonymous access still succeeds
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/maybe", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")

	token, err := GenerateToken(1, "user@example.com", "user")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/maybe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "true")
}
