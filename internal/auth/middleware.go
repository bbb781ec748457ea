package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gymportal/internal/api"
	"gymportal/internal/metrics"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Verifier resolves a bearer token to the caller it was issued for.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Principal, error)
}

func AuthMiddleware(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(c, "missing_header", "Unauthorized")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "Bearer") {
			reject(c, "bad_format", "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			reject(c, "empty_token", "Unauthorized")
			return
		}

		principal, err := verifier.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				reject(c, "expired", "Token expired")
				return
			}
			reject(c, "invalid", "Unauthorized")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func reject(c *gin.Context, reason, message string) {
	metrics.RecordAuthRejection(reason)
	api.AbortWithError(c, http.StatusUnauthorized, message)
}

// RequireAdmin lets through platform administrators: an admin role claim or an allow-listed email.
func RequireAdmin(adminEmails []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		allowed[strings.ToLower(e)] = struct{}{}
	}

	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			api.AbortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if p.Role == RoleAdmin {
			c.Next()
			return
		}
		if _, ok := allowed[strings.ToLower(p.Email)]; ok && p.Email != "" {
			c.Next()
			return
		}

		metrics.RecordAuthRejection("not_admin")
		api.AbortWithError(c, http.StatusForbidden, "Forbidden")
	}
}

func GetPrincipal(c *gin.Context) (*Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

func GetUserID(c *gin.Context) (string, bool) {
	p, ok := GetPrincipal(c)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}

// SetPrincipal is used by handler tests to fake an authenticated request.
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}
