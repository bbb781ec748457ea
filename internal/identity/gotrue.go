package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gymportal/internal/auth"
	"gymportal/internal/logger"
)

const (
	usersPerPage = 200
	maxUserPages = 50
)

// GoTrueClient calls the auth admin REST API of the hosted backend.
type GoTrueClient struct {
	baseURL    string
	anonKey    string
	serviceKey string
	jwtSecret  string
	maxPages   int
	httpClient *http.Client
}

func NewGoTrueClient(baseURL, anonKey, serviceKey, jwtSecret string) *GoTrueClient {
	return &GoTrueClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		jwtSecret:  jwtSecret,
		maxPages:   maxUserPages,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx answer from the auth service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api: status %d: %s", e.Status, e.Message)
}

type gotrueUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	AppMetadata  map[string]interface{} `json:"app_metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

func (u gotrueUser) toUser() *User {
	return &User{
		ID:        u.ID,
		Email:     normalizeEmail(u.Email),
		Phone:     u.Phone,
		Metadata:  u.UserMetadata,
		CreatedAt: u.CreatedAt,
	}
}

// VerifyToken checks the signature locally when the JWT secret is known,
// otherwise asks the auth service who the token belongs to.
func (c *GoTrueClient) VerifyToken(ctx context.Context, token string) (*auth.Principal, error) {
	if c.jwtSecret != "" {
		claims, err := auth.ValidateToken(token, c.jwtSecret)
		if err != nil {
			return nil, err
		}
		return claims.Principal(), nil
	}

	var u gotrueUser
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", c.anonKey, token, nil, &u)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	role, _ := u.AppMetadata["role"].(string)
	return &auth.Principal{
		UserID:   u.ID,
		Email:    normalizeEmail(u.Email),
		Role:     role,
		Metadata: u.UserMetadata,
	}, nil
}

func (c *GoTrueClient) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	email = normalizeEmail(email)

	for page := 1; page <= c.maxPages; page++ {
		var resp struct {
			Users []gotrueUser `json:"users"`
		}
		path := fmt.Sprintf("/auth/v1/admin/users?page=%d&per_page=%d", page, usersPerPage)
		if err := c.do(ctx, http.MethodGet, path, c.serviceKey, c.serviceKey, nil, &resp); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}

		for _, u := range resp.Users {
			if normalizeEmail(u.Email) == email {
				return u.toUser(), nil
			}
		}

		if len(resp.Users) < usersPerPage {
			return nil, ErrUserNotFound
		}
	}

	logger.Warn("user lookup hit the page limit; the email may exist beyond it",
		"pages", c.maxPages, "per_page", usersPerPage)
	return nil, ErrUserNotFound
}

func (c *GoTrueClient) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	body := map[string]interface{}{
		"email":         normalizeEmail(params.Email),
		"password":      params.Password,
		"email_confirm": true,
		"user_metadata": map[string]interface{}{
			"full_name": params.Name,
			"phone":     params.Phone,
		},
	}
	if params.Role != "" {
		body["app_metadata"] = map[string]interface{}{"role": params.Role}
	}

	var u gotrueUser
	if err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", c.serviceKey, c.serviceKey, body, &u); err != nil {
		if isEmailTaken(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u.toUser(), nil
}

func (c *GoTrueClient) DeleteUser(ctx context.Context, id string) error {
	path := "/auth/v1/admin/users/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, c.serviceKey, c.serviceKey, nil, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func isEmailTaken(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == "email_exists" || apiErr.Code == "user_already_exists" {
		return true
	}
	return apiErr.Status == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(apiErr.Message), "already been registered")
}

func (c *GoTrueClient) do(ctx context.Context, method, path, apiKey, bearer string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Code             interface{} `json:"code"`
		ErrorCode        string      `json:"error_code"`
		Msg              string      `json:"msg"`
		Message          string      `json:"message"`
		Error            string      `json:"error"`
		ErrorDescription string      `json:"error_description"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &APIError{Status: status, Code: payload.ErrorCode}
	if code, ok := payload.Code.(string); ok && apiErr.Code == "" {
		apiErr.Code = code
	}

	for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription, payload.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
