package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PostgresDeliveryLogStore struct {
	db *sql.DB
}

func NewDeliveryLogStore(db *sql.DB) DeliveryLogStore {
	return &PostgresDeliveryLogStore{db: db}
}

func (s *PostgresDeliveryLogStore) Insert(ctx context.Context, entry *DeliveryLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO webhook_deliveries (id, webhook_id, delivery_id, trigger_type, payload, attempt_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.WebhookID, entry.DeliveryID, entry.TriggerType,
		[]byte(entry.Payload), entry.AttemptCount, entry.Status, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}

	return nil
}

func (s *PostgresDeliveryLogStore) MarkDelivered(ctx context.Context, id string, httpStatus int, responseBody string) error {
	query := `
		UPDATE webhook_deliveries
		SET status = 'delivered', http_status = $1, response_body = $2, completed_at = $3
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query, httpStatus, responseBody, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark delivery delivered: %w", err)
	}

	return requireRow(res)
}

func (s *PostgresDeliveryLogStore) MarkFailed(ctx context.Context, id string, httpStatus *int, errorDetail string) error {
	query := `
		UPDATE webhook_deliveries
		SET status = 'failed', http_status = $1, error_detail = $2, completed_at = $3
		WHERE id = $4
	`

	var statusArg interface{}
	if httpStatus != nil {
		statusArg = *httpStatus
	}

	res, err := s.db.ExecContext(ctx, query, statusArg, errorDetail, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark delivery failed: %w", err)
	}

	return requireRow(res)
}

// RecentStatuses returns the statuses of the newest n log rows for a
// webhook, newest first. The engine's failure-streak breaker reads this
// before every attempt.
func (s *PostgresDeliveryLogStore) RecentStatuses(ctx context.Context, webhookID string, n int) ([]string, error) {
	query := `
		SELECT status
		FROM webhook_deliveries
		WHERE webhook_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, webhookID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent delivery statuses: %w", err)
	}
	defer rows.Close()

	var statuses []string
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("failed to scan delivery status: %w", err)
		}
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}

func (s *PostgresDeliveryLogStore) ListByWebhook(ctx context.Context, webhookID string, limit, offset int) ([]DeliveryLogEntry, error) {
	query := `
		SELECT id, webhook_id, delivery_id, trigger_type, payload, attempt_count, status,
		       http_status, response_body, error_detail, created_at, completed_at
		FROM webhook_deliveries
		WHERE webhook_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, webhookID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var entries []DeliveryLogEntry
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var entry DeliveryLogEntry
		var payload []byte
		var httpStatus sql.NullInt64
		var completedAt sql.NullTime

		if err := rows.Scan(
			&entry.ID, &entry.WebhookID, &entry.DeliveryID, &entry.TriggerType,
			&payload, &entry.AttemptCount, &entry.Status,
			&httpStatus, &entry.ResponseBody, &entry.ErrorDetail,
			&entry.CreatedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}

		entry.Payload = payload
		if httpStatus.Valid {
			code := int(httpStatus.Int64)
			entry.HTTPStatus = &code
		}
		if completedAt.Valid {
			t := completedAt.Time
			entry.CompletedAt = &t
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("delivery log entry not found")
	}
	return nil
}
