// Package identity talks to the hosted identity provider that owns user
// accounts. The rest of the service only sees the Provider interface.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymportal/internal/auth"
	"gymportal/internal/config"
)

var (
	ErrUserNotFound = errors.New("identity: user not found")
	ErrEmailTaken   = errors.New("identity: email already registered")
)

type User struct {
	ID        string                 `json:"id"`
	Email     string                 `json:"email"`
	Phone     string                 `json:"phone,omitempty"`
	Metadata  map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type CreateUserParams struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

type Provider interface {
	auth.Verifier
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// New builds the provider selected by IDENTITY_PROVIDER.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.IdentityProvider {
	case config.ProviderGoTrue:
		return NewGoTrueClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseService, cfg.SupabaseJWT), nil
	case config.ProviderClerk:
		return NewClerkClient(cfg.ClerkSecretKey), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
