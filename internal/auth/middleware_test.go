package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type secretVerifier struct {
	secret string
}

func (v secretVerifier) VerifyToken(_ context.Context, token string) (*Principal, error) {
	claims, err := ValidateToken(token, v.secret)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

func newProtectedRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(secretVerifier{secret: testSecret}))
	router.Use(handlers...)
	router.GET("/protected", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func doGet(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := newProtectedRouter()

	t.Run("valid token", func(t *testing.T) {
		token, err := GenerateToken("user-1", "owner@example.com", "", testSecret, nil)
		require.NoError(t, err)

		w := doGet(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"user-1"}`, w.Body.String())
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		token, _ := GenerateToken("user-1", "owner@example.com", "", testSecret, nil)
		w := doGet(router, "bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		w := doGet(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, w.Body.String())
	})

	t.Run("bad format", func(t *testing.T) {
		w := doGet(router, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty token", func(t *testing.T) {
		w := doGet(router, "Bearer   ")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := doGet(router, "Bearer invalid-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, _ := generateToken("user-1", "a@b.c", "", testSecret, nil, -time.Minute)
		w := doGet(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Token expired")
	})
}

func TestRequireAdmin(t *testing.T) {
	router := newProtectedRouter(RequireAdmin([]string{"Ops@Example.com"}))

	t.Run("admin role", func(t *testing.T) {
		token, _ := GenerateToken("user-1", "someone@example.com", RoleAdmin, testSecret, nil)
		assert.Equal(t, http.StatusOK, doGet(router, "Bearer "+token).Code)
	})

	t.Run("allow-listed email", func(t *testing.T) {
		token, _ := GenerateToken("user-2", "ops@example.com", "", testSecret, nil)
		assert.Equal(t, http.StatusOK, doGet(router, "Bearer "+token).Code)
	})

	t.Run("regular user", func(t *testing.T) {
		token, _ := GenerateToken("user-3", "member@example.com", "", testSecret, nil)
		w := doGet(router, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Forbidden"}`, w.Body.String())
	})
}

func TestRequireAdmin_NoPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireAdmin(nil))
	router.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doGet(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
