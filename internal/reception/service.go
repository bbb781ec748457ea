package reception

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gymportal/internal/gym"
	"gymportal/internal/identity"
	"gymportal/internal/logger"
	"gymportal/internal/membership"
	"gymportal/internal/metrics"
	"gymportal/internal/user"
)

var (
	ErrNoGym           = errors.New("caller does not own a gym")
	ErrEmailTaken      = errors.New("email already registered")
	ErrNotReceptionist = errors.New("user is not a receptionist of this gym")
)

type GymFinder interface {
	GetByOwner(ctx context.Context, ownerID string) (*gym.Gym, error)
}

// UsageCounter tracks how many staff accounts an owner's subscription covers.
type UsageCounter interface {
	AdjustUsers(ctx context.Context, ownerID string, delta int) error
}

type Mailer interface {
	SendReceptionWelcome(ctx context.Context, to, name, gymName, loginURL string) error
}

type Service interface {
	CheckOwner(ctx context.Context, ownerID string) error
	Create(ctx context.Context, ownerID string, req CreateRequest) (*Result, error)
	List(ctx context.Context, ownerID string) ([]membership.Member, error)
	Remove(ctx context.Context, ownerID, userID string) error
}

type Options struct {
	LoginURL        string
	EchoCredentials bool
}

type service struct {
	gyms       GymFinder
	identities identity.Provider
	profiles   user.Repository
	grants     membership.Repository
	usage      UsageCounter
	mailer     Mailer
	opts       Options
}

func NewService(
	gyms GymFinder,
	identities identity.Provider,
	profiles user.Repository,
	grants membership.Repository,
	usage UsageCounter,
	mailer Mailer,
	opts Options,
) Service {
	return &service{
		gyms:       gyms,
		identities: identities,
		profiles:   profiles,
		grants:     grants,
		usage:      usage,
		mailer:     mailer,
		opts:       opts,
	}
}

func (s *service) ownedGym(ctx context.Context, ownerID string) (*gym.Gym, error) {
	g, err := s.gyms.GetByOwner(ctx, ownerID)
	if errors.Is(err, gym.ErrGymNotFound) {
		return nil, ErrNoGym
	}
	if err != nil {
		return nil, fmt.Errorf("find gym: %w", err)
	}
	return g, nil
}

// CheckOwner returns ErrNoGym unless ownerID owns a gym.
func (s *service) CheckOwner(ctx context.Context, ownerID string) error {
	_, err := s.ownedGym(ctx, ownerID)
	return err
}

// Create provisions a receptionist for the owner's gym: identity, profile
// row and membership grant, in that order. If a later step fails the
// earlier ones are undone.
func (s *service) Create(ctx context.Context, ownerID string, req CreateRequest) (*Result, error) {
	g, err := s.ownedGym(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err = s.identities.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, identity.ErrUserNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	ident, err := s.identities.CreateUser(ctx, identity.CreateUserParams{
		Email:    email,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Role:     string(user.RoleReceptionist),
	})
	if errors.Is(err, identity.ErrEmailTaken) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	profile := &user.User{
		ID:    ident.ID,
		Email: email,
		Name:  strings.TrimSpace(req.Name),
		Role:  user.RoleReceptionist,
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		profile.Phone = &phone
	}

	created, err := s.profiles.Create(ctx, profile)
	if err != nil {
		s.compensate(ctx, ident.ID, false)
		return nil, fmt.Errorf("create profile: %w", err)
	}

	perms := membership.DefaultPermissions()
	if req.Permissions != nil {
		perms = *req.Permissions
	}

	if _, err := s.grants.Create(ctx, ident.ID, g.ID, perms); err != nil {
		s.compensate(ctx, ident.ID, true)
		return nil, fmt.Errorf("create grant: %w", err)
	}

	metrics.RecordReceptionUser("created")
	logger.Info("reception user created", "user_id", ident.ID, "gym_id", g.ID.String())

	if s.usage != nil {
		if err := s.usage.AdjustUsers(ctx, ownerID, 1); err != nil {
			logger.Warn("increment users count failed", "owner_id", ownerID, "error", err)
		}
	}
	if s.mailer != nil {
		if err := s.mailer.SendReceptionWelcome(ctx, email, created.Name, g.Name, s.opts.LoginURL); err != nil {
			logger.Warn("queue welcome email failed", "user_id", ident.ID, "error", err)
		}
	}

	creds := Credentials{Email: email, LoginURL: s.opts.LoginURL}
	if s.opts.EchoCredentials {
		creds.Password = req.Password
	}

	return &Result{User: created, Permissions: perms, Credentials: creds}, nil
}

// compensate removes what a failed Create wrote, newest first. It runs on a
// context detached from request cancellation.
func (s *service) compensate(ctx context.Context, userID string, profile bool) {
	ctx = context.WithoutCancel(ctx)

	if profile {
		err := s.profiles.Delete(ctx, userID)
		metrics.RecordCompensation("profile", err)
		if err != nil && !errors.Is(err, user.ErrUserNotFound) {
			logger.Error("compensate profile", "user_id", userID, "error", err)
		}
	}

	err := s.identities.DeleteUser(ctx, userID)
	metrics.RecordCompensation("identity", err)
	if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		logger.Error("compensate identity", "user_id", userID, "error", err)
	}
	metrics.RecordReceptionUser("rolled_back")
}

func (s *service) List(ctx context.Context, ownerID string) ([]membership.Member, error) {
	g, err := s.ownedGym(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.grants.ListByGym(ctx, g.ID, string(user.RoleReceptionist))
}

// Remove deletes a receptionist of the owner's gym: grant, profile, identity.
func (s *service) Remove(ctx context.Context, ownerID, userID string) error {
	g, err := s.ownedGym(ctx, ownerID)
	if err != nil {
		return err
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return ErrNotReceptionist
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile.Role != user.RoleReceptionist {
		return ErrNotReceptionist
	}

	if err := s.grants.Delete(ctx, userID, g.ID); err != nil {
		if errors.Is(err, membership.ErrGrantNotFound) {
			return ErrNotReceptionist
		}
		return fmt.Errorf("delete grant: %w", err)
	}
	if err := s.profiles.Delete(ctx, userID); err != nil && !errors.Is(err, user.ErrUserNotFound) {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.identities.DeleteUser(ctx, userID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return fmt.Errorf("delete identity: %w", err)
	}

	metrics.RecordReceptionUser("removed")
	logger.Info("reception user removed", "user_id", userID, "gym_id", g.ID.String())

	if s.usage != nil {
		if err := s.usage.AdjustUsers(ctx, ownerID, -1); err != nil {
			logger.Warn("decrement users count failed", "owner_id", ownerID, "error", err)
		}
	}
	return nil
}
