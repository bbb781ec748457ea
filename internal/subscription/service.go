package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymportal/internal/entitlement"
	"gymportal/internal/identity"
	"gymportal/internal/logger"
	"gymportal/internal/membership"
	"gymportal/internal/metrics"
)

const (
	DefaultTrialDays = 7
	defaultMaxUsers  = 100
)

var ErrUnknownPlan = errors.New("unknown plan type")

// OwnerResolver finds the gym owner whose subscription a member inherits.
// It returns membership.ErrGrantNotFound when the user holds no grant.
type OwnerResolver interface {
	OwnerOf(ctx context.Context, userID string) (string, error)
}

type UserLookup interface {
	FindUserByEmail(ctx context.Context, email string) (*identity.User, error)
}

type Notifier interface {
	SendPlanAssigned(ctx context.Context, to, planType string, nextBilling time.Time) error
}

type Service interface {
	Status(ctx context.Context, userID string) (*StatusResult, error)
	StartTrial(ctx context.Context, userID string) error
	AssignPlan(ctx context.Context, req AssignPlanRequest) (*Subscription, error)
	ApplyPayment(ctx context.Context, userID string, p Payment) (*Subscription, error)
	SetStatus(ctx context.Context, userID string, status Status) error
	AdjustUsers(ctx context.Context, ownerID string, delta int) error
	Plans() []Plan
}

type service struct {
	repo      Repository
	cache     *Cache
	owners    OwnerResolver
	users     UserLookup
	notifier  Notifier
	trialDays int
	now       func() time.Time
}

func NewService(repo Repository, cache *Cache, owners OwnerResolver, users UserLookup, notifier Notifier, trialDays int) Service {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	return &service{
		repo:      repo,
		cache:     cache,
		owners:    owners,
		users:     users,
		notifier:  notifier,
		trialDays: trialDays,
		now:       time.Now,
	}
}

func Plans() []Plan {
	return []Plan{
		{
			Type:         PlanMonthly,
			Name:         "Mensual",
			Description:  "Facturación mensual por usuario activo",
			PricePerUser: 3.00,
			MaxUsers:     defaultMaxUsers,
		},
		{
			Type:         PlanYearly,
			Name:         "Anual",
			Description:  "Facturación anual por usuario activo, dos meses gratis",
			PricePerUser: 30.00,
			MaxUsers:     defaultMaxUsers,
		},
	}
}

func FindPlan(planType PlanType) (Plan, error) {
	for _, p := range Plans() {
		if p.Type == planType {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownPlan
}

func (s *service) Plans() []Plan {
	return Plans()
}

// Status evaluates the caller's access. Members without their own
// subscription are evaluated against the owner of the gym they belong to.
func (s *service) Status(ctx context.Context, userID string) (*StatusResult, error) {
	sub, err := s.load(ctx, userID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	result := &StatusResult{Subscription: sub}
	if sub == nil && s.owners != nil {
		ownerID, err := s.owners.OwnerOf(ctx, userID)
		if err != nil && !errors.Is(err, membership.ErrGrantNotFound) {
			return nil, fmt.Errorf("resolve owner: %w", err)
		}
		if err == nil && ownerID != "" && ownerID != userID {
			ownerSub, err := s.load(ctx, ownerID)
			if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
				return nil, err
			}
			result.Subscription = ownerSub
			result.OwnerID = ownerID
		}
	}

	result.Access = entitlement.Evaluate(result.Subscription.Record(), s.now())
	metrics.RecordEntitlement(result.Access.Outcome())
	return result, nil
}

func (s *service) load(ctx context.Context, userID string) (*Subscription, error) {
	if sub, ok := s.cache.Get(ctx, userID); ok {
		return sub, nil
	}

	sub, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, sub)
	return sub, nil
}

func (s *service) StartTrial(ctx context.Context, userID string) error {
	start := s.now().UTC()
	created, err := s.repo.StartTrial(ctx, userID, start, start.AddDate(0, 0, s.trialDays))
	if err != nil {
		return fmt.Errorf("start trial: %w", err)
	}
	if created {
		s.cache.Invalidate(ctx, userID)
		logger.Info("trial started", "user_id", userID, "days", s.trialDays)
	}
	return nil
}

// AssignPlan is the administrative override: the account behind req.Email
// becomes active on the chosen plan from now on.
func (s *service) AssignPlan(ctx context.Context, req AssignPlanRequest) (*Subscription, error) {
	plan, err := FindPlan(req.PlanType)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	payment := Payment{
		PlanType:     plan.Type,
		PricePerUser: plan.PricePerUser,
		MaxUsers:     plan.MaxUsers,
		Method:       PaymentAdminOverride,
		PaidAt:       s.now().UTC(),
	}
	if req.PricePerUser != nil {
		payment.PricePerUser = *req.PricePerUser
	}
	if req.MaxUsers != nil {
		payment.MaxUsers = *req.MaxUsers
	}
	payment.NextBilling = plan.Type.NextBilling(payment.PaidAt)

	sub, err := s.ApplyPayment(ctx, u.ID, payment)
	if err != nil {
		return nil, err
	}
	metrics.RecordPlanAssignment(string(plan.Type))

	if s.notifier != nil {
		if err := s.notifier.SendPlanAssigned(ctx, u.Email, string(plan.Type), payment.NextBilling); err != nil {
			logger.Warn("queue plan email failed", "user_id", u.ID, "error", err)
		}
	}

	return sub, nil
}

func (s *service) ApplyPayment(ctx context.Context, userID string, p Payment) (*Subscription, error) {
	sub, err := s.repo.ApplyPayment(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("apply payment: %w", err)
	}
	s.cache.Invalidate(ctx, userID)
	logger.Info("subscription activated", "user_id", userID, "plan_type", string(p.PlanType), "method", p.Method)
	return sub, nil
}

func (s *service) SetStatus(ctx context.Context, userID string, status Status) error {
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, userID)
	logger.Info("subscription status changed", "user_id", userID, "status", string(status))
	return nil
}

func (s *service) AdjustUsers(ctx context.Context, ownerID string, delta int) error {
	if err := s.repo.AdjustUsersCount(ctx, ownerID, delta); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, ownerID)
	return nil
}
