package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	pkgerrors "osprey/pkg/errors"
)

// Repository is the full subscription store: the engine-facing Registry
// plus the CRUD methods behind the management API.
type Repository interface {
	Registry
	CreateSubscription(ctx context.Context, sub *WebhookSubscription) error
	ListByUser(ctx context.Context, userID string) ([]WebhookSubscription, error)
	UpdateSubscription(ctx context.Context, sub *WebhookSubscription) error
	DeleteSubscription(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const subscriptionColumns = `id, user_id, trigger_type, webhook_url, secret_token, filter_expression,
		is_active, success_count, failure_count, last_triggered_at, last_error, created_at, updated_at`

func (r *PostgresRepository) CreateSubscription(ctx context.Context, sub *WebhookSubscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO webhook_subscriptions (id, user_id, trigger_type, webhook_url, secret_token, filter_expression, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.TriggerType, sub.WebhookURL,
		sub.SecretToken, sub.FilterExpression, sub.IsActive,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("subscription for %s to %s already exists", sub.TriggerType, sub.WebhookURL))
			}
		}
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("subscription for %s to %s already exists", sub.TriggerType, sub.WebhookURL))
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*WebhookSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM webhook_subscriptions
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscription not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]WebhookSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM webhook_subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	return r.querySubscriptions(ctx, query, userID)
}

func (r *PostgresRepository) FindActive(ctx context.Context, userID, triggerType string) ([]WebhookSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM webhook_subscriptions
		WHERE user_id = $1 AND trigger_type = $2 AND is_active = TRUE
		ORDER BY created_at ASC
	`

	return r.querySubscriptions(ctx, query, userID, triggerType)
}

func (r *PostgresRepository) querySubscriptions(ctx context.Context, query string, args ...interface{}) ([]WebhookSubscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []WebhookSubscription
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}

	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*WebhookSubscription, error) {
	var sub WebhookSubscription
	var lastTriggered sql.NullTime

	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.TriggerType, &sub.WebhookURL,
		&sub.SecretToken, &sub.FilterExpression,
		&sub.IsActive, &sub.SuccessCount, &sub.FailureCount,
		&lastTriggered, &sub.LastError, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastTriggered.Valid {
		t := lastTriggered.Time
		sub.LastTriggeredAt = &t
	}

	return &sub, nil
}

func (r *PostgresRepository) UpdateSubscription(ctx context.Context, sub *WebhookSubscription) error {
	sub.UpdatedAt = time.Now()

	query := `
		UPDATE webhook_subscriptions
		SET trigger_type = $1, webhook_url = $2, secret_token = $3, filter_expression = $4,
		    is_active = $5, last_error = $6, updated_at = $7
		WHERE id = $8
	`

	res, err := r.db.ExecContext(ctx, query,
		sub.TriggerType, sub.WebhookURL, sub.SecretToken, sub.FilterExpression,
		sub.IsActive, sub.LastError, sub.UpdatedAt, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found")
	}

	return nil
}

func (r *PostgresRepository) DeleteSubscription(ctx context.Context, id string) error {
	query := `DELETE FROM webhook_subscriptions WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found")
	}

	return nil
}

// UpdateStats applies the outcome of a single delivery attempt. Success
// clears last_error and stamps last_triggered_at; failure records the
// error and bumps the failure counter. Single-row writes, no transaction.
func (r *PostgresRepository) UpdateStats(ctx context.Context, id string, patch StatsPatch) error {
	var query string
	var args []interface{}

	if patch.Delivered {
		query = `
			UPDATE webhook_subscriptions
			SET success_count = success_count + 1, last_triggered_at = $1, last_error = '', updated_at = $1
			WHERE id = $2
		`
		args = []interface{}{time.Now(), id}
	} else {
		query = `
			UPDATE webhook_subscriptions
			SET failure_count = failure_count + 1, last_error = $1, updated_at = $2
			WHERE id = $3
		`
		args = []interface{}{patch.LastError, time.Now(), id}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscription stats: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found")
	}

	return nil
}

// Deactivate permanently disables a subscription with a descriptive
// last_error. Nothing in the engine ever flips is_active back; only a
// manual update through the API can.
func (r *PostgresRepository) Deactivate(ctx context.Context, id, reason string) error {
	query := `
		UPDATE webhook_subscriptions
		SET is_active = FALSE, last_error = $1, updated_at = $2
		WHERE id = $3
	`

	res, err := r.db.ExecContext(ctx, query, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("subscription not found")
	}

	return nil
}
