package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLogger records subscription mutations in Postgres. Writes are
// best-effort from the service's point of view.
type AuditLogger struct {
	db *sql.DB
}

func NewAuditLogger(db *sql.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

type AuditEntry struct {
	ID             string
	SubscriptionID string
	Action         string
	OldValue       interface{}
	NewValue       interface{}
	Actor          string
	Timestamp      time.Time
}

func (a *AuditLogger) LogSubscriptionChange(ctx context.Context, entry AuditEntry) error {
	query := `
		INSERT INTO subscription_audit_logs (id, subscription_id, action, old_value, new_value, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	id := uuid.New().String()
	if entry.ID != "" {
		id = entry.ID
	}

	oldValueJSON, _ := json.Marshal(entry.OldValue)
	newValueJSON, _ := json.Marshal(entry.NewValue)

	timestamp := time.Now()
	if !entry.Timestamp.IsZero() {
		timestamp = entry.Timestamp
	}

	_, err := a.db.ExecContext(ctx, query,
		id, entry.SubscriptionID, entry.Action,
		oldValueJSON, newValueJSON,
		entry.Actor, timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to log audit entry: %w", err)
	}

	return nil
}
