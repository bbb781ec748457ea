package subscription

import (
	"context"
	"time"
)

type Repository interface {
	FindByUser(ctx context.Context, userID string) (*Subscription, error)
	StartTrial(ctx context.Context, userID string, start, end time.Time) (bool, error)
	ApplyPayment(ctx context.Context, userID string, p Payment) (*Subscription, error)
	UpdateStatus(ctx context.Context, userID string, status Status) error
	AdjustUsersCount(ctx context.Context, userID string, delta int) error
}
