// Package entitlement decides whether a subscription currently grants
// product access. It performs no I/O.
package entitlement

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Record holds the subscription fields the decision depends on.
type Record struct {
	Status          string
	TrialEndDate    *time.Time
	NextBillingDate *time.Time
}

type Access struct {
	HasAccess     bool `json:"has_access"`
	IsTrialActive bool `json:"is_trial_active"`
	DaysRemaining int  `json:"days_remaining"`
}

// Outcome is a short label for metrics and logs.
func (a Access) Outcome() string {
	switch {
	case a.IsTrialActive:
		return "trial"
	case a.HasAccess:
		return "active"
	default:
		return "denied"
	}
}

// Evaluate returns the access granted by rec at now. A nil record means the
// user has no subscription. Trials are inclusive of their end instant.
func Evaluate(rec *Record, now time.Time) Access {
	if rec == nil {
		return Access{}
	}

	switch rec.Status {
	case "active":
		return Access{HasAccess: true, DaysRemaining: daysUntil(rec.NextBillingDate, now)}
	case "trial":
		if rec.TrialEndDate == nil || now.After(*rec.TrialEndDate) {
			return Access{}
		}
		return Access{
			HasAccess:     true,
			IsTrialActive: true,
			DaysRemaining: daysUntil(rec.TrialEndDate, now),
		}
	default:
		return Access{}
	}
}

func daysUntil(t *time.Time, now time.Time) int {
	if t == nil {
		return 0
	}
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}
