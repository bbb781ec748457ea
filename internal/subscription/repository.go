package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

const subscriptionColumns = `id, user_id, status, trial_start_date, trial_end_date, subscription_start_date,
		last_billing_date, next_billing_date, payment_method, plan_type, price_per_user, max_users,
		current_users_count, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByUser(ctx context.Context, userID string) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.GetContext(ctx, sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// StartTrial inserts a trial row unless the user already has a subscription.
// The bool reports whether a row was inserted.
func (r *repository) StartTrial(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, status, trial_start_date, trial_end_date)
		VALUES ($1, 'trial', $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, start, end)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ApplyPayment activates the user's subscription in a single upsert. An
// existing subscription_start_date is preserved.
func (r *repository) ApplyPayment(ctx context.Context, userID string, p Payment) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (user_id, status, subscription_start_date, last_billing_date,
			next_billing_date, payment_method, plan_type, price_per_user, max_users)
		VALUES ($1, 'active', $2, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET status = 'active',
		    subscription_start_date = COALESCE(subscriptions.subscription_start_date, EXCLUDED.subscription_start_date),
		    last_billing_date = EXCLUDED.last_billing_date,
		    next_billing_date = EXCLUDED.next_billing_date,
		    payment_method = EXCLUDED.payment_method,
		    plan_type = EXCLUDED.plan_type,
		    price_per_user = EXCLUDED.price_per_user,
		    max_users = EXCLUDED.max_users,
		    updated_at = NOW()
		RETURNING `+subscriptionColumns,
		userID, p.PaidAt, p.NextBilling, p.Method, p.PlanType, p.PricePerUser, p.MaxUsers,
	).StructScan(sub)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) UpdateStatus(ctx context.Context, userID string, status Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $2,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// AdjustUsersCount moves current_users_count by delta, never below zero.
func (r *repository) AdjustUsersCount(ctx context.Context, userID string, delta int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET current_users_count = GREATEST(current_users_count + $2, 0),
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}
