package reception

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymportal/internal/auth"
	"gymportal/internal/gym"
	"gymportal/internal/identity"
	"gymportal/internal/membership"
	"gymportal/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeIdentities keeps identities in memory so tests can check what survives.
type fakeIdentities struct {
	users     map[string]*identity.User
	createErr error
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{users: map[string]*identity.User{}}
}

func (f *fakeIdentities) VerifyToken(ctx context.Context, token string) (*auth.Principal, error) {
	return nil, auth.ErrInvalidToken
}

func (f *fakeIdentities) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeIdentities) CreateUser(ctx context.Context, params identity.CreateUserParams) (*identity.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u := &identity.User{ID: uuid.NewString(), Email: params.Email, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeIdentities) DeleteUser(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return identity.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeProfiles struct {
	user.Repository
	rows      map[string]*user.User
	createErr error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[string]*user.User{}}
}

func (f *fakeProfiles) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	saved := *u
	f.rows[u.ID] = &saved
	return &saved, nil
}

func (f *fakeProfiles) FindByID(ctx context.Context, id string) (*user.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeProfiles) Delete(ctx context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(f.rows, id)
	return nil
}

type MockGrants struct {
	mock.Mock
}

func (m *MockGrants) Create(ctx context.Context, userID string, gymID uuid.UUID, perms membership.Permissions) (*membership.Grant, error) {
	args := m.Called(ctx, userID, gymID, perms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*membership.Grant), args.Error(1)
}

func (m *MockGrants) Delete(ctx context.Context, userID string, gymID uuid.UUID) error {
	return m.Called(ctx, userID, gymID).Error(0)
}

func (m *MockGrants) ListByGym(ctx context.Context, gymID uuid.UUID, role string) ([]membership.Member, error) {
	args := m.Called(ctx, gymID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]membership.Member), args.Error(1)
}

func (m *MockGrants) OwnerOf(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type stubGyms map[string]*gym.Gym

func (s stubGyms) GetByOwner(ctx context.Context, ownerID string) (*gym.Gym, error) {
	if g, ok := s[ownerID]; ok {
		return g, nil
	}
	return nil, gym.ErrGymNotFound
}

type MockUsage struct {
	mock.Mock
}

func (m *MockUsage) AdjustUsers(ctx context.Context, ownerID string, delta int) error {
	return m.Called(ctx, ownerID, delta).Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendReceptionWelcome(ctx context.Context, to, name, gymName, loginURL string) error {
	return m.Called(ctx, to, name, gymName, loginURL).Error(0)
}

type fixture struct {
	gym        *gym.Gym
	identities *fakeIdentities
	profiles   *fakeProfiles
	grants     *MockGrants
	usage      *MockUsage
	mailer     *MockMailer
}

func newFixture(opts Options) (*fixture, Service) {
	f := &fixture{
		gym:        &gym.Gym{ID: uuid.New(), OwnerID: "owner-1", Name: "Box Norte"},
		identities: newFakeIdentities(),
		profiles:   newFakeProfiles(),
		grants:     new(MockGrants),
		usage:      new(MockUsage),
		mailer:     new(MockMailer),
	}
	svc := NewService(stubGyms{"owner-1": f.gym}, f.identities, f.profiles, f.grants, f.usage, f.mailer, opts)
	return f, svc
}

func validRequest() CreateRequest {
	return CreateRequest{Name: "Lucía", Email: "Lucia@Example.com", Password: "secret1", Phone: "600111222"}
}

func TestCreate_Success(t *testing.T) {
	f, svc := newFixture(Options{LoginURL: "https://app.example.com/login"})

	f.grants.On("Create", mock.Anything, mock.Anything, f.gym.ID, membership.DefaultPermissions()).
		Return(&membership.Grant{ID: uuid.New()}, nil)
	f.usage.On("AdjustUsers", mock.Anything, "owner-1", 1).Return(nil)
	f.mailer.On("SendReceptionWelcome", mock.Anything, "lucia@example.com", "Lucía", "Box Norte", "https://app.example.com/login").Return(nil)

	res, err := svc.Create(context.Background(), "owner-1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, user.RoleReceptionist, res.User.Role)
	assert.Equal(t, "lucia@example.com", res.Credentials.Email)
	assert.Equal(t, "https://app.example.com/login", res.Credentials.LoginURL)
	assert.Empty(t, res.Credentials.Password)
	assert.Len(t, f.identities.users, 1)
	assert.Contains(t, f.profiles.rows, res.User.ID)

	f.grants.AssertExpectations(t)
	f.usage.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
}

func TestCreate_EchoesPasswordWhenEnabled(t *testing.T) {
	f, svc := newFixture(Options{EchoCredentials: true})
	perms := membership.Permissions{Consultas: true}

	f.grants.On("Create", mock.Anything, mock.Anything, f.gym.ID, perms).Return(&membership.Grant{}, nil)
	f.usage.On("AdjustUsers", mock.Anything, "owner-1", 1).Return(errors.New("no subscription"))
	f.mailer.On("SendReceptionWelcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	req := validRequest()
	req.Permissions = &perms
	res, err := svc.Create(context.Background(), "owner-1", req)
	require.NoError(t, err)
	assert.Equal(t, "secret1", res.Credentials.Password)
	assert.False(t, res.Permissions.Asistencias)
}

func TestCreate_CallerWithoutGym(t *testing.T) {
	f, svc := newFixture(Options{})

	_, err := svc.Create(context.Background(), "stranger", validRequest())
	assert.ErrorIs(t, err, ErrNoGym)
	assert.Empty(t, f.identities.users)
}

func TestCheckOwner(t *testing.T) {
	_, svc := newFixture(Options{})

	assert.NoError(t, svc.CheckOwner(context.Background(), "owner-1"))
	assert.ErrorIs(t, svc.CheckOwner(context.Background(), "stranger"), ErrNoGym)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	f, svc := newFixture(Options{})
	f.identities.users["existing"] = &identity.User{ID: "existing", Email: "lucia@example.com"}

	_, err := svc.Create(context.Background(), "owner-1", validRequest())
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, f.identities.users, 1)
	f.grants.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_ProviderReportsDuplicate(t *testing.T) {
	f, svc := newFixture(Options{})
	f.identities.createErr = identity.ErrEmailTaken

	_, err := svc.Create(context.Background(), "owner-1", validRequest())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreate_GrantFailureRemovesIdentityAndProfile(t *testing.T) {
	f, svc := newFixture(Options{})
	f.grants.On("Create", mock.Anything, mock.Anything, f.gym.ID, mock.Anything).Return(nil, errors.New("insert failed"))

	_, err := svc.Create(context.Background(), "owner-1", validRequest())
	require.Error(t, err)

	assert.Empty(t, f.identities.users, "identity created in the failed call must be deleted")
	assert.Empty(t, f.profiles.rows, "profile created in the failed call must be deleted")
	f.usage.AssertNotCalled(t, "AdjustUsers", mock.Anything, mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "SendReceptionWelcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_ProfileFailureRemovesIdentity(t *testing.T) {
	f, svc := newFixture(Options{})
	f.profiles.createErr = errors.New("duplicate key")

	_, err := svc.Create(context.Background(), "owner-1", validRequest())
	require.Error(t, err)
	assert.Empty(t, f.identities.users)
}

func TestCreate_CompensationSurvivesCancelledRequest(t *testing.T) {
	f, svc := newFixture(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	f.grants.On("Create", mock.Anything, mock.Anything, f.gym.ID, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	_, err := svc.Create(ctx, "owner-1", validRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.identities.users)
}

func TestList(t *testing.T) {
	f, svc := newFixture(Options{})
	members := []membership.Member{{UserID: "rec-1", Email: "a@example.com", Role: "recepcionista"}}
	f.grants.On("ListByGym", mock.Anything, f.gym.ID, "recepcionista").Return(members, nil)

	got, err := svc.List(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, members, got)

	_, err = svc.List(context.Background(), "stranger")
	assert.ErrorIs(t, err, ErrNoGym)
}

func TestRemove(t *testing.T) {
	f, svc := newFixture(Options{})
	f.identities.users["rec-1"] = &identity.User{ID: "rec-1"}
	f.profiles.rows["rec-1"] = &user.User{ID: "rec-1", Role: user.RoleReceptionist}
	f.profiles.rows["member-1"] = &user.User{ID: "member-1", Role: user.RoleMember}
	f.grants.On("Delete", mock.Anything, "rec-1", f.gym.ID).Return(nil)
	f.usage.On("AdjustUsers", mock.Anything, "owner-1", -1).Return(nil)

	require.NoError(t, svc.Remove(context.Background(), "owner-1", "rec-1"))
	assert.Empty(t, f.identities.users)
	assert.NotContains(t, f.profiles.rows, "rec-1")

	assert.ErrorIs(t, svc.Remove(context.Background(), "owner-1", "member-1"), ErrNotReceptionist)
	assert.ErrorIs(t, svc.Remove(context.Background(), "owner-1", "ghost"), ErrNotReceptionist)
	f.usage.AssertNumberOfCalls(t, "AdjustUsers", 1)
}

func TestRemove_OtherGymsReceptionist(t *testing.T) {
	f, svc := newFixture(Options{})
	f.profiles.rows["rec-9"] = &user.User{ID: "rec-9", Role: user.RoleReceptionist}
	f.grants.On("Delete", mock.Anything, "rec-9", f.gym.ID).Return(membership.ErrGrantNotFound)

	assert.ErrorIs(t, svc.Remove(context.Background(), "owner-1", "rec-9"), ErrNotReceptionist)
	assert.Contains(t, f.profiles.rows, "rec-9")
}
