package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osprey/internal/constants"
	"osprey/internal/dispatch"
)

func TestDispatchRepository_CreateSubscription(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, "https://example.com/hook")

	err := repo.CreateSubscription(ctx, sub)
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.False(t, sub.CreatedAt.IsZero())
	assert.False(t, sub.UpdatedAt.IsZero())
}

func TestDispatchRepository_CreateSubscription_Duplicate(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	userID := uuid.New().String()
	sub := createTestSubscription(userID, constants.TriggerAnalysisCompleted, "https://example.com/hook")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	dup := createTestSubscription(userID, constants.TriggerAnalysisCompleted, "https://example.com/hook")
	err := repo.CreateSubscription(ctx, dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDispatchRepository_GetSubscription_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.New().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDispatchRepository_ListByUser(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	userID := uuid.New().String()
	otherUserID := uuid.New().String()

	require.NoError(t, repo.CreateSubscription(ctx, createTestSubscription(userID, constants.TriggerAnalysisCompleted, "https://example.com/a")))
	time.Sleep(timestampDelay)
	require.NoError(t, repo.CreateSubscription(ctx, createTestSubscription(userID, constants.TriggerFollowUpDue, "https://example.com/b")))
	require.NoError(t, repo.CreateSubscription(ctx, createTestSubscription(otherUserID, constants.TriggerAnalysisCompleted, "https://example.com/c")))

	subs, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	// Newest first
	assert.Equal(t, "https://example.com/b", subs[0].WebhookURL)
	assert.Equal(t, "https://example.com/a", subs[1].WebhookURL)
}

func TestDispatchRepository_FindActive(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	userID := uuid.New().String()

	active := createTestSubscription(userID, constants.TriggerAnalysisCompleted, "https://example.com/active")
	require.NoError(t, repo.CreateSubscription(ctx, active))
	time.Sleep(timestampDelay)

	inactive := createTestSubscription(userID, constants.TriggerAnalysisCompleted, "https://example.com/inactive")
	inactive.IsActive = false
	require.NoError(t, repo.CreateSubscription(ctx, inactive))

	otherTrigger := createTestSubscription(userID, constants.TriggerFollowUpDue, "https://example.com/other")
	require.NoError(t, repo.CreateSubscription(ctx, otherTrigger))

	subs, err := repo.FindActive(ctx, userID, constants.TriggerAnalysisCompleted)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, active.ID, subs[0].ID)
	assert.True(t, subs[0].IsActive)
}

func TestDispatchRepository_UpdateSubscription(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, "https://example.com/hook")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	sub.WebhookURL = "https://example.com/hook-v2"
	sub.IsActive = false
	require.NoError(t, repo.UpdateSubscription(ctx, sub))

	updated, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook-v2", updated.WebhookURL)
	assert.False(t, updated.IsActive)
}

func TestDispatchRepository_DeleteSubscription(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, "https://example.com/hook")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	require.NoError(t, repo.DeleteSubscription(ctx, sub.ID))

	_, err := repo.Get(ctx, sub.ID)
	require.Error(t, err)

	err = repo.DeleteSubscription(ctx, sub.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDispatchRepository_UpdateStats_Delivered(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, "https://example.com/hook")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	require.NoError(t, repo.UpdateStats(ctx, sub.ID, dispatch.StatsPatch{Delivered: false, LastError: "received status 500"}))
	require.NoError(t, repo.UpdateStats(ctx, sub.ID, dispatch.StatsPatch{Delivered: true}))

	updated, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SuccessCount)
	assert.Equal(t, 1, updated.FailureCount)
	assert.Empty(t, updated.LastError)
	require.NotNil(t, updated.LastTriggeredAt)
	assert.WithinDuration(t, time.Now(), *updated.LastTriggeredAt, time.Minute)
}

func TestDispatchRepository_UpdateStats_Failed(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, "https://example.com/hook")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	require.NoError(t, repo.UpdateStats(ctx, sub.ID, dispatch.StatsPatch{Delivered: false, LastError: "connection refused"}))

	updated, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.SuccessCount)
	assert.Equal(t, 1, updated.FailureCount)
	assert.Equal(t, "connection refused", updated.LastError)
	assert.Nil(t, updated.LastTriggeredAt)
}

func TestDispatchRepository_Deactivate(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, "https://example.com/hook")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	reason := "auto-disabled after 10 consecutive failed deliveries"
	require.NoError(t, repo.Deactivate(ctx, sub.ID, reason))

	updated, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, reason, updated.LastError)

	subs, err := repo.FindActive(ctx, sub.UserID, sub.TriggerType)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
