package gym

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gymportal/internal/auth"
	"gymportal/internal/logger"
	"gymportal/internal/metrics"
	"gymportal/internal/user"
)

const defaultGymName = "Mi Gimnasio"

var (
	ErrGymNotFound  = errors.New("gym not found")
	ErrGymExists    = errors.New("gym already exists for owner")
	ErrStaffAccount = errors.New("reception accounts cannot own a gym")
)

// TrialStarter opens the owner's trial subscription if none exists yet.
type TrialStarter interface {
	StartTrial(ctx context.Context, userID string) error
}

type Service interface {
	Ensure(ctx context.Context, p *auth.Principal, req EnsureGymRequest) (*Gym, bool, error)
	GetByOwner(ctx context.Context, ownerID string) (*Gym, error)
}

type service struct {
	repo     Repository
	profiles user.Repository
	trials   TrialStarter
}

func NewService(repo Repository, profiles user.Repository, trials TrialStarter) Service {
	return &service{
		repo:     repo,
		profiles: profiles,
		trials:   trials,
	}
}

// Ensure returns the caller's gym, creating it on first call. The bool
// reports whether this call created it.
func (s *service) Ensure(ctx context.Context, p *auth.Principal, req EnsureGymRequest) (*Gym, bool, error) {
	existing, err := s.repo.FindByOwner(ctx, p.UserID)
	if err == nil {
		metrics.RecordGymProvisioned(false)
		return existing, false, nil
	}
	if !errors.Is(err, ErrGymNotFound) {
		return nil, false, fmt.Errorf("find gym: %w", err)
	}
	if err := s.checkOwnerRole(ctx, p.UserID); err != nil {
		return nil, false, err
	}

	created, err := s.repo.Create(ctx, &Gym{
		OwnerID: p.UserID,
		Name:    gymName(p, req),
		Address: optional(req.Address),
		Phone:   optional(firstNonEmpty(req.Phone, p.MetadataString("phone"))),
	})
	if errors.Is(err, ErrGymExists) {
		// lost the insert race to a concurrent call for the same owner
		existing, err = s.repo.FindByOwner(ctx, p.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("reload gym: %w", err)
		}
		metrics.RecordGymProvisioned(false)
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create gym: %w", err)
	}

	s.provisionOwner(ctx, p)
	metrics.RecordGymProvisioned(true)
	logger.Info("gym created", "gym_id", created.ID.String(), "owner_id", p.UserID)

	return created, true, nil
}

func (s *service) GetByOwner(ctx context.Context, ownerID string) (*Gym, error) {
	return s.repo.FindByOwner(ctx, ownerID)
}

// checkOwnerRole refuses callers whose profile is a receptionist. Their role
// must survive so the owning gym can still manage them.
func (s *service) checkOwnerRole(ctx context.Context, userID string) error {
	if s.profiles == nil {
		return nil
	}
	profile, err := s.profiles.FindByID(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile.Role == user.RoleReceptionist {
		return ErrStaffAccount
	}
	return nil
}

// provisionOwner writes the owner's profile row and trial. Failures are logged only.
func (s *service) provisionOwner(ctx context.Context, p *auth.Principal) {
	if s.profiles != nil {
		_, err := s.profiles.Upsert(ctx, &user.User{
			ID:    p.UserID,
			Email: p.Email,
			Name:  p.MetadataString("full_name"),
			Phone: optional(p.MetadataString("phone")),
			Role:  user.RoleAdmin,
		})
		if err != nil {
			logger.Warn("upsert owner profile failed", "user_id", p.UserID, "error", err)
		}
	}

	if s.trials != nil {
		if err := s.trials.StartTrial(ctx, p.UserID); err != nil {
			logger.Warn("start trial failed", "user_id", p.UserID, "error", err)
		}
	}
}

func gymName(p *auth.Principal, req EnsureGymRequest) string {
	if name := printable(req.Name); name != "" {
		return name
	}
	if name := printable(p.MetadataString("gym_name")); name != "" {
		return name
	}
	if name := printable(p.MetadataString("full_name")); name != "" {
		return "Gimnasio de " + name
	}
	return defaultGymName
}

// printable drops control characters.
func printable(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
