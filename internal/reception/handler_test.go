package reception

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gymportal/internal/auth"
	"gymportal/internal/membership"
	"gymportal/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CheckOwner(ctx context.Context, ownerID string) error {
	return m.Called(ctx, ownerID).Error(0)
}

func (m *MockService) Create(ctx context.Context, ownerID string, req CreateRequest) (*Result, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockService) List(ctx context.Context, ownerID string) ([]membership.Member, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]membership.Member), args.Error(1)
}

func (m *MockService) Remove(ctx context.Context, ownerID, userID string) error {
	return m.Called(ctx, ownerID, userID).Error(0)
}

func setupRouter(svc Service, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			auth.SetPrincipal(c, &auth.Principal{UserID: userID})
		}
	})
	r.POST("/api/admin/create-reception-user", h.Create)
	r.GET("/api/admin/reception-users", h.List)
	r.DELETE("/api/admin/reception-users/:userID", h.Remove)
	return r
}

func perform(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

const createBody = `{"name":"Lucía","email":"lucia@example.com","password":"secret1"}`

func TestCreateHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("CheckOwner", mock.Anything, "owner-1").Return(nil)
	svc.On("Create", mock.Anything, "owner-1", CreateRequest{Name: "Lucía", Email: "lucia@example.com", Password: "secret1"}).
		Return(&Result{
			User:        &user.User{ID: "rec-1", Email: "lucia@example.com", Role: user.RoleReceptionist},
			Permissions: membership.DefaultPermissions(),
			Credentials: Credentials{Email: "lucia@example.com", LoginURL: "https://app.example.com/login"},
		}, nil)

	w, body := perform(setupRouter(svc, "owner-1"), http.MethodPost, "/api/admin/create-reception-user", createBody)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["success"])

	creds := body["credentials"].(map[string]interface{})
	assert.Equal(t, "https://app.example.com/login", creds["login_url"])
	assert.NotContains(t, creds, "password")
}

func TestCreateHandler_Validation(t *testing.T) {
	svc := new(MockService)
	svc.On("CheckOwner", mock.Anything, "owner-1").Return(nil)
	r := setupRouter(svc, "owner-1")

	cases := map[string]string{
		"missing name":   `{"email":"a@example.com","password":"secret1"}`,
		"bad email":      `{"name":"A","email":"nope","password":"secret1"}`,
		"short password": `{"name":"A","email":"a@example.com","password":"123"}`,
		"malformed":      `{"name":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, decoded := perform(r, http.MethodPost, "/api/admin/create-reception-user", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, decoded["success"])
		})
	}
}

func TestCreateHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNoGym, http.StatusForbidden},
		{ErrEmailTaken, http.StatusConflict},
		{errors.New("upstream: relation usuarios does not exist"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		svc := new(MockService)
		svc.On("CheckOwner", mock.Anything, "owner-1").Return(nil)
		svc.On("Create", mock.Anything, "owner-1", mock.Anything).Return(nil, tt.err)

		w, body := perform(setupRouter(svc, "owner-1"), http.MethodPost, "/api/admin/create-reception-user", createBody)
		assert.Equal(t, tt.status, w.Code)
		assert.NotContains(t, body["error"], "relation")
	}
}

func TestCreateHandler_OwnershipCheckedBeforeBody(t *testing.T) {
	svc := new(MockService)
	svc.On("CheckOwner", mock.Anything, "member-1").Return(ErrNoGym)

	w, body := perform(setupRouter(svc, "member-1"), http.MethodPost, "/api/admin/create-reception-user", `{"name":`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", body["error"])
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateHandler_Unauthenticated(t *testing.T) {
	w, _ := perform(setupRouter(new(MockService), ""), http.MethodPost, "/api/admin/create-reception-user", createBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, "owner-1").Return([]membership.Member{{UserID: "rec-1"}}, nil)
	svc.On("List", mock.Anything, "owner-2").Return(nil, ErrNoGym)

	w, body := perform(setupRouter(svc, "owner-1"), http.MethodGet, "/api/admin/reception-users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["users"], 1)

	w, _ = perform(setupRouter(svc, "owner-2"), http.MethodGet, "/api/admin/reception-users", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRemoveHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("Remove", mock.Anything, "owner-1", "rec-1").Return(nil)
	svc.On("Remove", mock.Anything, "owner-1", "ghost").Return(ErrNotReceptionist)
	r := setupRouter(svc, "owner-1")

	w, body := perform(r, http.MethodDelete, "/api/admin/reception-users/rec-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, _ = perform(r, http.MethodDelete, "/api/admin/reception-users/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(r, http.MethodDelete, "/api/admin/reception-users/owner-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
