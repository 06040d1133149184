package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"osprey/internal/config"
	"osprey/internal/constants"
	"osprey/internal/dispatch"
	"osprey/internal/logger"
	"osprey/internal/matching/roster"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
	eventuallyTimeout       = 10 * time.Second
	eventuallyTick          = 20 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestDispatchConfig() config.DispatchConfig {
	return config.DispatchConfig{
		UserAgent:   "Osprey-Webhooks-Test/1.0",
		HTTPTimeout: 5 * time.Second,
		Filter: config.FilterConfig{
			Fallback: config.FallbackConfig{OnError: constants.FallbackAllow},
		},
	}
}

func createTestIdempotencyConfig() config.IdempotencyConfig {
	return config.IdempotencyConfig{
		TTLSeconds:   300,
		OnRedisError: constants.FallbackAllow,
	}
}

// testBackoffLadder keeps retry suites in the millisecond range.
func testBackoffLadder() []time.Duration {
	return []time.Duration{
		5 * time.Millisecond,
		5 * time.Millisecond,
		5 * time.Millisecond,
		5 * time.Millisecond,
		5 * time.Millisecond,
	}
}

func createTestFilterEvaluator(t *testing.T) *dispatch.FilterEvaluator {
	t.Helper()

	evaluator, err := dispatch.NewFilterEvaluator(constants.FallbackAllow, createTestLogger())
	require.NoError(t, err)
	return evaluator
}

func createTestSubscription(userID, triggerType, webhookURL string) *dispatch.WebhookSubscription {
	return &dispatch.WebhookSubscription{
		UserID:      userID,
		TriggerType: triggerType,
		WebhookURL:  webhookURL,
		IsActive:    true,
	}
}

func createTestTriggerEvent(userID string) dispatch.TriggerEvent {
	return dispatch.TriggerEvent{
		TriggerType: constants.TriggerAnalysisCompleted,
		UserID:      userID,
		AnalysisID:  uuid.New().String(),
		Data: map[string]interface{}{
			"status": "completed",
			"score":  float64(87),
		},
	}
}

func insertContact(t *testing.T, db *sql.DB, c roster.Contact) roster.Contact {
	t.Helper()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO contacts (id, user_id, name, email, company, phone, domain)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))`,
		c.ID, c.UserID, c.Name, c.Email, c.Company, c.Phone, c.Domain,
	)
	require.NoError(t, err)

	return c
}
