package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Audience carried by session tokens of signed-in users.
	Audience = "authenticated"

	AccessTokenTTL = time.Hour

	RoleAdmin = "admin"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrEmptyJWTSecret = errors.New("jwt secret cannot be empty")
)

// Claims mirrors the access tokens issued by the hosted auth service.
type Claims struct {
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone,omitempty"`
	Role         string                 `json:"role"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller, independent of the identity backend.
type Principal struct {
	UserID   string
	Email    string
	Role     string
	Metadata map[string]interface{}
}

func (p *Principal) MetadataString(key string) string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	v, _ := p.Metadata[key].(string)
	return strings.TrimSpace(v)
}

// Principal converts token claims; the application role lives in app_metadata.
func (c *Claims) Principal() *Principal {
	role, _ := c.AppMetadata["role"].(string)
	return &Principal{
		UserID:   c.Subject,
		Email:    strings.ToLower(c.Email),
		Role:     role,
		Metadata: c.UserMetadata,
	}
}

func ValidateToken(tokenString, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrEmptyJWTSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		},
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
