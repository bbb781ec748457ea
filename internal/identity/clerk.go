package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"

	"gymportal/internal/auth"
)

// ClerkClient backs Provider with the Clerk Backend API.
type ClerkClient struct{}

func NewClerkClient(secretKey string) *ClerkClient {
	clerk.SetKey(secretKey)
	return &ClerkClient{}
}

func (c *ClerkClient) VerifyToken(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		return nil, auth.ErrInvalidToken
	}

	usr, err := user.Get(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("load clerk user: %w", err)
	}

	u := clerkUserToIdentity(usr)
	return &auth.Principal{
		UserID:   u.ID,
		Email:    u.Email,
		Role:     metadataRole(usr.PublicMetadata),
		Metadata: u.Metadata,
	}, nil
}

func (c *ClerkClient) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	list, err := user.List(ctx, &user.ListParams{EmailAddresses: []string{normalizeEmail(email)}})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if list == nil || len(list.Users) == 0 {
		return nil, ErrUserNotFound
	}
	return clerkUserToIdentity(list.Users[0]), nil
}

func (c *ClerkClient) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	meta := map[string]interface{}{"full_name": params.Name, "phone": params.Phone}
	if params.Role != "" {
		meta["role"] = params.Role
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	publicMetadata := json.RawMessage(raw)

	usr, err := user.Create(ctx, &user.CreateParams{
		EmailAddresses: &[]string{normalizeEmail(params.Email)},
		Password:       clerk.String(params.Password),
		FirstName:      clerk.String(params.Name),
		PublicMetadata: &publicMetadata,
	})
	if err != nil {
		if isClerkIdentifierTaken(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return clerkUserToIdentity(usr), nil
}

func (c *ClerkClient) DeleteUser(ctx context.Context, id string) error {
	if _, err := user.Delete(ctx, id); err != nil {
		var apiErr *clerk.APIErrorResponse
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func clerkUserToIdentity(usr *clerk.User) *User {
	u := &User{ID: usr.ID, Email: primaryEmail(usr)}
	if usr.CreatedAt > 0 {
		u.CreatedAt = time.UnixMilli(usr.CreatedAt).UTC()
	}
	if len(usr.PublicMetadata) > 0 {
		_ = json.Unmarshal(usr.PublicMetadata, &u.Metadata)
	}
	if u.Metadata == nil {
		u.Metadata = map[string]interface{}{}
	}
	if _, ok := u.Metadata["full_name"]; !ok && usr.FirstName != nil {
		name := strings.TrimSpace(*usr.FirstName)
		if usr.LastName != nil {
			name = strings.TrimSpace(name + " " + *usr.LastName)
		}
		u.Metadata["full_name"] = name
	}
	if phone, ok := u.Metadata["phone"].(string); ok {
		u.Phone = phone
	}
	return u
}

func primaryEmail(usr *clerk.User) string {
	for _, e := range usr.EmailAddresses {
		if e == nil {
			continue
		}
		if usr.PrimaryEmailAddressID != nil && e.ID == *usr.PrimaryEmailAddressID {
			return normalizeEmail(e.EmailAddress)
		}
	}
	if len(usr.EmailAddresses) > 0 && usr.EmailAddresses[0] != nil {
		return normalizeEmail(usr.EmailAddresses[0].EmailAddress)
	}
	return ""
}

func metadataRole(raw json.RawMessage) string {
	var meta struct {
		Role string `json:"role"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &meta) != nil {
		return ""
	}
	return meta.Role
}

func isClerkIdentifierTaken(err error) bool {
	var apiErr *clerk.APIErrorResponse
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, e := range apiErr.Errors {
		if e.Code == "form_identifier_exists" {
			return true
		}
	}
	return false
}
