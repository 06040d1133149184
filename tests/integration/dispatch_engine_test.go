package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osprey/internal/constants"
	"osprey/internal/dispatch"
)

type receivedDelivery struct {
	body    []byte
	headers http.Header
}

// captureServer records every POST it receives and answers with the
// provided status code.
type captureServer struct {
	mu         sync.Mutex
	deliveries []receivedDelivery
	status     int
	server     *httptest.Server
}

func newCaptureServer(t *testing.T, status int) *captureServer {
	t.Helper()

	cs := &captureServer{status: status}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.deliveries = append(cs.deliveries, receivedDelivery{body: body, headers: r.Header.Clone()})
		cs.mu.Unlock()
		w.WriteHeader(cs.status)
	}))
	t.Cleanup(cs.server.Close)

	return cs
}

func (cs *captureServer) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.deliveries)
}

func (cs *captureServer) last() receivedDelivery {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.deliveries[len(cs.deliveries)-1]
}

func newTestEngine(t *testing.T, repo dispatch.Repository, store dispatch.DeliveryLogStore) *dispatch.Engine {
	t.Helper()

	engine := dispatch.NewEngine(
		repo, store, createTestFilterEvaluator(t),
		createTestDispatchConfig(), createTestLogger(),
		dispatch.WithBackoffLadder(testBackoffLadder()),
	)
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		engine.Stop(stopCtx)
	})

	return engine
}

func TestDeliveryEngine_DeliversSignedPayload(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	receiver := newCaptureServer(t, http.StatusOK)

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, receiver.server.URL)
	sub.SecretToken = "test-secret-token"
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	engine := newTestEngine(t, repo, store)

	launched, err := engine.ProcessTriggerEvent(ctx, createTestTriggerEvent(sub.UserID))
	require.NoError(t, err)
	assert.Equal(t, 1, launched)

	require.Eventually(t, func() bool {
		entries, err := store.ListByWebhook(ctx, sub.ID, constants.DefaultLimit, 0)
		return err == nil && len(entries) == 1 && entries[0].Status == constants.DeliveryStatusDelivered
	}, eventuallyTimeout, eventuallyTick)

	require.Equal(t, 1, receiver.count())
	got := receiver.last()
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "Osprey-Webhooks-Test/1.0", got.headers.Get("User-Agent"))
	assert.NotEmpty(t, got.headers.Get(constants.HeaderDeliveryID))
	assert.NotEmpty(t, got.headers.Get(constants.HeaderTimestamp))
	assert.Equal(t, "1", got.headers.Get(constants.HeaderAttempt))
	assert.Equal(t, constants.TriggerAnalysisCompleted, got.headers.Get(constants.HeaderTriggerType))

	// Signature verifies against the exact bytes that arrived
	assert.Equal(t, dispatch.Sign(got.body, sub.SecretToken), got.headers.Get(constants.HeaderSignature))

	updated, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SuccessCount)
	assert.Equal(t, 0, updated.FailureCount)
	assert.NotNil(t, updated.LastTriggeredAt)
}

func TestDeliveryEngine_NoSubscriptions_NoOp(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)

	engine := newTestEngine(t, repo, store)

	launched, err := engine.ProcessTriggerEvent(context.Background(), createTestTriggerEvent(uuid.New().String()))
	require.NoError(t, err)
	assert.Zero(t, launched)
}

func TestDeliveryEngine_RetriesUntilExhausted(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	receiver := newCaptureServer(t, http.StatusInternalServerError)

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, receiver.server.URL)
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	engine := newTestEngine(t, repo, store)

	launched, err := engine.ProcessTriggerEvent(ctx, createTestTriggerEvent(sub.UserID))
	require.NoError(t, err)
	assert.Equal(t, 1, launched)

	require.Eventually(t, func() bool {
		entries, err := store.ListByWebhook(ctx, sub.ID, constants.DefaultLimit, 0)
		return err == nil && len(entries) == constants.MaxDeliveryAttempts
	}, eventuallyTimeout, eventuallyTick)

	// No sixth attempt shows up afterwards
	time.Sleep(100 * time.Millisecond)
	entries, err := store.ListByWebhook(ctx, sub.ID, constants.DefaultLimit, 0)
	require.NoError(t, err)
	require.Len(t, entries, constants.MaxDeliveryAttempts)
	assert.Equal(t, constants.MaxDeliveryAttempts, receiver.count())

	// One row per attempt, newest first, all failed
	for i, entry := range entries {
		assert.Equal(t, constants.MaxDeliveryAttempts-i, entry.AttemptCount)
		assert.Equal(t, constants.DeliveryStatusFailed, entry.Status)
		require.NotNil(t, entry.HTTPStatus)
		assert.Equal(t, http.StatusInternalServerError, *entry.HTTPStatus)
	}

	// Exhausted retries leave the subscription active; only the failure
	// streak breaker disables it
	updated, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.Equal(t, constants.MaxDeliveryAttempts, updated.FailureCount)
	assert.Contains(t, updated.LastError, "500")
}

func TestDeliveryEngine_FailureStreakDisablesSubscription(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	receiver := newCaptureServer(t, http.StatusOK)

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, receiver.server.URL)
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	base := time.Now().Add(-time.Minute)
	for i := 0; i < constants.BreakerWindowSize; i++ {
		entry := insertDeliveryEntry(t, store, sub.ID, 1, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, store.MarkFailed(ctx, entry.ID, nil, "timeout"))
	}

	engine := newTestEngine(t, repo, store)

	launched, err := engine.ProcessTriggerEvent(ctx, createTestTriggerEvent(sub.UserID))
	require.NoError(t, err)
	assert.Equal(t, 1, launched)

	require.Eventually(t, func() bool {
		updated, err := repo.Get(ctx, sub.ID)
		return err == nil && !updated.IsActive
	}, eventuallyTimeout, eventuallyTick)

	// The tripped breaker never let the HTTP request out
	assert.Zero(t, receiver.count())

	updated, err := repo.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Contains(t, updated.LastError, "auto-disabled")

	// No pending row was written for the aborted attempt
	entries, err := store.ListByWebhook(ctx, sub.ID, constants.DefaultLimit, 0)
	require.NoError(t, err)
	assert.Len(t, entries, constants.BreakerWindowSize)
}

func TestDeliveryEngine_InactiveSubscriptionSkipped(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	receiver := newCaptureServer(t, http.StatusOK)

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, receiver.server.URL)
	sub.IsActive = false
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	engine := newTestEngine(t, repo, store)

	launched, err := engine.ProcessTriggerEvent(ctx, createTestTriggerEvent(sub.UserID))
	require.NoError(t, err)
	assert.Zero(t, launched)
	assert.Zero(t, receiver.count())
}

func TestDeliveryEngine_TestDelivery(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := dispatch.NewRepository(infra.PostgresDB)
	store := dispatch.NewDeliveryLogStore(infra.PostgresDB)
	ctx := context.Background()

	receiver := newCaptureServer(t, http.StatusOK)

	sub := createTestSubscription(uuid.New().String(), constants.TriggerAnalysisCompleted, receiver.server.URL)
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	engine := newTestEngine(t, repo, store)

	result, err := engine.TestDelivery(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DeliveryStatusDelivered, result.Outcome)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, 1, receiver.count())

	// Test deliveries are logged like real ones
	entries, err := store.ListByWebhook(ctx, sub.ID, constants.DefaultLimit, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, constants.DeliveryStatusDelivered, entries[0].Status)
}
