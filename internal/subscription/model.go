package subscription

import (
	"time"

	"gymportal/internal/entitlement"

	"github.com/google/uuid"
)

type Status string
type PlanType string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"

	PlanMonthly PlanType = "monthly"
	PlanYearly  PlanType = "yearly"

	PaymentAdminOverride = "admin_override"
	PaymentStripe        = "stripe"
)

// Subscription is the single billing row of a gym owner.
type Subscription struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	UserID                string     `db:"user_id" json:"user_id"`
	Status                Status     `db:"status" json:"status"`
	TrialStartDate        *time.Time `db:"trial_start_date" json:"trial_start_date,omitempty"`
	TrialEndDate          *time.Time `db:"trial_end_date" json:"trial_end_date,omitempty"`
	SubscriptionStartDate *time.Time `db:"subscription_start_date" json:"subscription_start_date,omitempty"`
	LastBillingDate       *time.Time `db:"last_billing_date" json:"last_billing_date,omitempty"`
	NextBillingDate       *time.Time `db:"next_billing_date" json:"next_billing_date,omitempty"`
	PaymentMethod         *string    `db:"payment_method" json:"payment_method,omitempty"`
	PlanType              PlanType   `db:"plan_type" json:"plan_type"`
	PricePerUser          float64    `db:"price_per_user" json:"price_per_user"`
	MaxUsers              int        `db:"max_users" json:"max_users"`
	CurrentUsersCount     int        `db:"current_users_count" json:"current_users_count"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// Record returns the fields the entitlement evaluator needs. Nil-safe.
func (s *Subscription) Record() *entitlement.Record {
	if s == nil {
		return nil
	}
	return &entitlement.Record{
		Status:          string(s.Status),
		TrialEndDate:    s.TrialEndDate,
		NextBillingDate: s.NextBillingDate,
	}
}

// NextBilling returns the billing date one plan period after from.
func (p PlanType) NextBilling(from time.Time) time.Time {
	if p == PlanYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

type Plan struct {
	Type         PlanType `json:"type"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	PricePerUser float64  `json:"price_per_user"`
	MaxUsers     int      `json:"max_users"`
}

// Payment describes a billing write: an admin override or a settled invoice.
type Payment struct {
	PlanType     PlanType
	PricePerUser float64
	MaxUsers     int
	Method       string
	PaidAt       time.Time
	NextBilling  time.Time
}

type AssignPlanRequest struct {
	Email        string   `json:"email" binding:"required,email"`
	PlanType     PlanType `json:"plan_type" binding:"required,oneof=monthly yearly"`
	PricePerUser *float64 `json:"price_per_user" binding:"omitempty,gt=0"`
	MaxUsers     *int     `json:"max_users" binding:"omitempty,min=1"`
}

// StatusResult is the evaluated access of a caller.
type StatusResult struct {
	Access       entitlement.Access
	Subscription *Subscription
	// OwnerID is set when access was inherited from the gym owner.
	OwnerID string
}
