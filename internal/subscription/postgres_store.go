package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists subscriptions in the subscriptions table.
type PostgresStore struct {
	pool pgQuerier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("subscription: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithExec(exec pgQuerier) *PostgresStore {
	if exec == nil {
		panic("subscription: exec required")
	}
	return &PostgresStore{pool: exec}
}

const selectSubscriptionColumns = `business, plan, status, customer_id, subscription_id, activated_at, canceled_at`

func (s *PostgresStore) Get(ctx context.Context, business string) (*Subscription, error) {
	query := `SELECT ` + selectSubscriptionColumns + ` FROM subscriptions WHERE business = $1`
	sub, err := scanSubscription(s.pool.QueryRow(ctx, query, business))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("subscription: get %s: %w", business, err)
	}
	return sub, nil
}

func (s *PostgresStore) Save(ctx context.Context, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (business, plan, status, customer_id, subscription_id, activated_at, canceled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (business) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			customer_id = EXCLUDED.customer_id,
			subscription_id = EXCLUDED.subscription_id,
			activated_at = EXCLUDED.activated_at,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		sub.Business, string(sub.Plan), string(sub.Status), sub.CustomerID, sub.SubscriptionID, sub.ActivatedAt, sub.CanceledAt)
	if err != nil {
		return fmt.Errorf("subscription: save %s: %w", sub.Business, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Subscription, error) {
	query := `SELECT ` + selectSubscriptionColumns + ` FROM subscriptions ORDER BY business`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("subscription: list: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("subscription: scan: %w", err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subscription: list rows: %w", err)
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub        Subscription
		plan       string
		status     string
		canceledAt *time.Time
	)
	if err := row.Scan(&sub.Business, &plan, &status, &sub.CustomerID, &sub.SubscriptionID, &sub.ActivatedAt, &canceledAt); err != nil {
		return nil, err
	}
	sub.Plan = Plan(plan)
	sub.Status = Status(status)
	sub.CanceledAt = canceledAt
	return &sub, nil
}
