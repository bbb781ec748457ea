package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken signs an HS256 session token in the hosted auth format.
func GenerateToken(userID, email, appRole, secret string, metadata map[string]interface{}) (string, error) {
	return generateToken(userID, email, appRole, secret, metadata, AccessTokenTTL)
}

func generateToken(userID, email, appRole, secret string, metadata map[string]interface{}, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptyJWTSecret
	}

	now := time.Now()
	claims := &Claims{
		Email:        email,
		Role:         Audience,
		AppMetadata:  map[string]interface{}{"provider": "email"},
		UserMetadata: metadata,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  []string{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if appRole != "" {
		claims.AppMetadata["role"] = appRole
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
