package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// SubscriptionRepository implements ports.SubscriptionRepository on
// PostgreSQL.
type SubscriptionRepository struct {
	db *DBExecutor
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *DBExecutor) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, merchant_name, amount, frequency,
	next_billing_at, status, created_at`

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	sub.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO subscriptions
		   (id, user_id, merchant_name, amount, frequency, next_billing_at, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.UserID, sub.MerchantName, sub.Amount, string(sub.Frequency),
		sub.NextBillingAt, string(sub.Status), sub.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create subscription", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound.WithDetail("subscription_id", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get subscription", err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		  WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list subscriptions", err)
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan subscription", err)
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update subscription status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound.WithDetail("subscription_id", id)
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "delete subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound.WithDetail("subscription_id", id)
	}
	return nil
}

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var (
		sub       domain.Subscription
		frequency string
		status    string
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.MerchantName, &sub.Amount,
		&frequency, &sub.NextBillingAt, &status, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.Frequency = domain.SubscriptionFrequency(frequency)
	sub.Status = domain.SubscriptionStatus(status)
	return &sub, nil
}
