package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osprey/internal/constants"
	"osprey/internal/dispatch"
)

func insertDeliveryEntry(t *testing.T, store dispatch.DeliveryLogStore, webhookID string, attempt int, createdAt time.Time) *dispatch.DeliveryLogEntry {
	t.Helper()

	entry := &dispatch.DeliveryLogEntry{
		WebhookID:    webhookID,
		DeliveryID:   uuid.New().String(),
		TriggerType:  constants.TriggerAnalysisCompleted,
		Payload:      json.RawMessage(`{"trigger_type":"analysis_completed"}`),
		AttemptCount: attempt,
		Status:       constants.DeliveryStatusPending,
		CreatedAt:    createdAt,
	}
	require.NoError(t, store.Insert(context.Background(), entry))
	return entry
}

func TestDeliveryLogStore_Insert(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)

	entry := &dispatch.DeliveryLogEntry{
		WebhookID:    uuid.New().String(),
		DeliveryID:   uuid.New().String(),
		TriggerType:  constants.TriggerAnalysisCompleted,
		Payload:      json.RawMessage(`{"trigger_type":"analysis_completed","data":{"status":"completed"}}`),
		AttemptCount: 1,
		Status:       constants.DeliveryStatusPending,
	}

	require.NoError(t, store.Insert(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestDeliveryLogStore_MarkDelivered(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	webhookID := uuid.New().String()
	entry := insertDeliveryEntry(t, store, webhookID, 1, time.Now())

	require.NoError(t, store.MarkDelivered(ctx, entry.ID, 200, `{"ok":true}`))

	entries, err := store.ListByWebhook(ctx, webhookID, constants.DefaultLimit, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, constants.DeliveryStatusDelivered, got.Status)
	require.NotNil(t, got.HTTPStatus)
	assert.Equal(t, 200, *got.HTTPStatus)
	assert.Equal(t, `{"ok":true}`, got.ResponseBody)
	require.NotNil(t, got.CompletedAt)
}

func TestDeliveryLogStore_MarkFailed(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	webhookID := uuid.New().String()

	// Network failure: no HTTP status at all
	networkEntry := insertDeliveryEntry(t, store, webhookID, 1, time.Now())
	require.NoError(t, store.MarkFailed(ctx, networkEntry.ID, nil, "connection refused"))

	time.Sleep(timestampDelay)

	// Receiver rejection: status recorded
	status := 503
	rejectedEntry := insertDeliveryEntry(t, store, webhookID, 2, time.Now())
	require.NoError(t, store.MarkFailed(ctx, rejectedEntry.ID, &status, "received status 503"))

	entries, err := store.ListByWebhook(ctx, webhookID, constants.DefaultLimit, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first
	assert.Equal(t, rejectedEntry.ID, entries[0].ID)
	require.NotNil(t, entries[0].HTTPStatus)
	assert.Equal(t, 503, *entries[0].HTTPStatus)
	assert.Equal(t, "received status 503", entries[0].ErrorDetail)

	assert.Equal(t, networkEntry.ID, entries[1].ID)
	assert.Nil(t, entries[1].HTTPStatus)
	assert.Equal(t, "connection refused", entries[1].ErrorDetail)
}

func TestDeliveryLogStore_MarkDelivered_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)

	err := store.MarkDelivered(context.Background(), uuid.New().String(), 200, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDeliveryLogStore_RecentStatuses(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	webhookID := uuid.New().String()
	base := time.Now().Add(-time.Minute)

	delivered := insertDeliveryEntry(t, store, webhookID, 1, base)
	require.NoError(t, store.MarkDelivered(ctx, delivered.ID, 200, ""))

	for i := 1; i <= 3; i++ {
		failed := insertDeliveryEntry(t, store, webhookID, i, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, store.MarkFailed(ctx, failed.ID, nil, "timeout"))
	}

	statuses, err := store.RecentStatuses(ctx, webhookID, constants.BreakerWindowSize)
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	assert.Equal(t, []string{
		constants.DeliveryStatusFailed,
		constants.DeliveryStatusFailed,
		constants.DeliveryStatusFailed,
		constants.DeliveryStatusDelivered,
	}, statuses)

	// Limit honored, newest first
	statuses, err = store.RecentStatuses(ctx, webhookID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.DeliveryStatusFailed, constants.DeliveryStatusFailed}, statuses)
}

func TestDeliveryLogStore_ListByWebhook_Pagination(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	webhookID := uuid.New().String()
	base := time.Now().Add(-time.Minute)
	for i := 1; i <= 5; i++ {
		insertDeliveryEntry(t, store, webhookID, i, base.Add(time.Duration(i)*time.Second))
	}

	page, err := store.ListByWebhook(ctx, webhookID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 5, page[0].AttemptCount)
	assert.Equal(t, 4, page[1].AttemptCount)

	page, err = store.ListByWebhook(ctx, webhookID, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 1, page[0].AttemptCount)
}
