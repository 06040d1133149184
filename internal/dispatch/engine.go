package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"osprey/internal/config"
	"osprey/internal/constants"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/metrics"
	"osprey/pkg/models"
)

// defaultBackoffLadder is the wait after the n-th failed attempt. The
// fixed steps are part of the delivery contract; tests swap in
// millisecond ladders through WithBackoffLadder.
var defaultBackoffLadder = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
	45 * time.Second,
	135 * time.Second,
}

type deliveryOutcome int

const (
	outcomeDelivered deliveryOutcome = iota
	outcomeFailed
	outcomeAborted
)

type attemptResult struct {
	outcome    deliveryOutcome
	httpStatus int
	detail     string
}

// Engine fans trigger events out to matching subscriptions and drives
// each delivery chain: attempt, log, retry on the backoff ladder, and
// permanently disable receivers with a full window of failures.
type Engine struct {
	registry      Registry
	logs          DeliveryLogStore
	filter        *FilterEvaluator
	notifier      *LifecycleNotifier
	client        *http.Client
	logger        logger.Logger
	userAgent     string
	maxAttempts   int
	responseLimit int
	ladder        []time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type EngineOption func(*Engine)

func WithHTTPClient(client *http.Client) EngineOption {
	return func(e *Engine) {
		e.client = client
	}
}

func WithBackoffLadder(ladder []time.Duration) EngineOption {
	return func(e *Engine) {
		if len(ladder) > 0 {
			e.ladder = ladder
		}
	}
}

func WithLifecycleNotifier(n *LifecycleNotifier) EngineOption {
	return func(e *Engine) {
		e.notifier = n
	}
}

func NewEngine(registry Registry, logs DeliveryLogStore, filter *FilterEvaluator, cfg config.DispatchConfig, log logger.Logger, opts ...EngineOption) *Engine {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = constants.DeliveryHTTPTimeout
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.MaxDeliveryAttempts
	}

	responseLimit := cfg.ResponseBodyLimit
	if responseLimit <= 0 {
		responseLimit = constants.ResponseBodyLimit
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "Osprey-Webhooks/1.0"
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		registry:      registry,
		logs:          logs,
		filter:        filter,
		client:        &http.Client{Timeout: timeout},
		logger:        log,
		userAgent:     userAgent,
		maxAttempts:   maxAttempts,
		responseLimit: responseLimit,
		ladder:        defaultBackoffLadder,
		baseCtx:       ctx,
		cancel:        cancel,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ProcessTriggerEvent validates the event, enumerates active subscriptions
// for (user_id, trigger_type) and launches one independent delivery chain
// per subscription. It returns as soon as the chains are launched; zero
// matching subscriptions is a successful no-op.
func (e *Engine) ProcessTriggerEvent(ctx context.Context, event TriggerEvent) (int, error) {
	if err := ValidateTriggerEvent(event); err != nil {
		return 0, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	subs, err := e.registry.FindActive(ctx, event.UserID, event.TriggerType)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if len(subs) == 0 {
		e.logger.DebugwCtx(ctx, "No active subscriptions for trigger",
			"user_id", event.UserID,
			"trigger_type", event.TriggerType,
		)
		return 0, nil
	}

	now := time.Now().UTC()
	payload := WebhookPayload{
		TriggerType: event.TriggerType,
		UserID:      event.UserID,
		AnalysisID:  event.AnalysisID,
		Timestamp:   now,
		Data:        event.Data,
	}

	// One marshal per event: every subscription receives, signs and logs
	// the identical bytes.
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	launched := 0
	for i := range subs {
		sub := subs[i]

		ok, err := e.filter.ShouldDeliver(ctx, sub.FilterExpression, event, now)
		if err != nil {
			e.logger.ErrorwCtx(ctx, "Filter evaluation failed, skipping subscription",
				"webhook_id", sub.ID,
				"error", err,
			)
			continue
		}
		if !ok {
			e.logger.DebugwCtx(ctx, "Subscription filter did not match",
				"webhook_id", sub.ID,
				"trigger_type", event.TriggerType,
			)
			continue
		}

		launched++
		e.wg.Add(1)
		go e.runDeliveryChain(sub.ID, event.TriggerType, body)
	}

	e.logger.InfowCtx(ctx, "Trigger event dispatched",
		"user_id", event.UserID,
		"trigger_type", event.TriggerType,
		"subscriptions", len(subs),
		"deliveries_launched", launched,
	)

	return launched, nil
}

// runDeliveryChain performs up to maxAttempts deliveries for one
// subscription, sleeping the ladder value between failures. Retries are
// strictly sequential. Attempts run detached from cancellation so neither
// a caller timeout nor shutdown cuts a POST or its log writes short; the
// HTTP client timeout bounds the attempt, and shutdown lands on the
// ladder sleep between attempts.
func (e *Engine) runDeliveryChain(webhookID, triggerType string, body []byte) {
	defer e.wg.Done()

	metrics.DeliveryChainsActive.Inc()
	defer metrics.DeliveryChainsActive.Dec()

	ctx := context.WithoutCancel(e.baseCtx)

	for attempt := 1; ; attempt++ {
		res := e.attemptDelivery(ctx, webhookID, triggerType, body, attempt)
		if res.outcome != outcomeFailed {
			return
		}

		if attempt >= e.maxAttempts {
			e.logger.WarnwCtx(ctx, "Delivery attempts exhausted",
				"webhook_id", webhookID,
				"attempts", attempt,
			)
			return
		}

		select {
		case <-time.After(e.backoffDelay(attempt)):
		case <-e.baseCtx.Done():
			e.logger.InfowCtx(ctx, "Delivery chain aborted by shutdown",
				"webhook_id", webhookID,
				"attempt", attempt,
			)
			return
		}
	}
}

func (e *Engine) backoffDelay(attempt int) time.Duration {
	idx := attempt - 1
	if idx >= len(e.ladder) {
		idx = len(e.ladder) - 1
	}
	return e.ladder[idx]
}

// attemptDelivery runs one delivery attempt end to end: re-fetch the
// subscription, consult the failure-streak breaker, write the pending log
// row, POST, and settle the row and subscription counters.
func (e *Engine) attemptDelivery(ctx context.Context, webhookID, triggerType string, body []byte, attempt int) attemptResult {
	sub, err := e.registry.Get(ctx, webhookID)
	if err != nil || sub == nil {
		e.logger.WarnwCtx(ctx, "Subscription vanished before delivery",
			"webhook_id", webhookID,
			"error", err,
		)
		return attemptResult{outcome: outcomeAborted, detail: "subscription not found"}
	}

	if !sub.IsActive {
		e.logger.InfowCtx(ctx, "Subscription inactive, aborting delivery",
			"webhook_id", webhookID,
			"attempt", attempt,
		)
		return attemptResult{outcome: outcomeAborted, detail: "subscription inactive"}
	}

	if e.checkFailureStreak(ctx, sub) {
		return attemptResult{outcome: outcomeAborted, detail: "subscription disabled after failure streak"}
	}

	deliveryID := uuid.New().String()
	now := time.Now().UTC()

	entry := &DeliveryLogEntry{
		WebhookID:    webhookID,
		DeliveryID:   deliveryID,
		TriggerType:  triggerType,
		Payload:      body,
		AttemptCount: attempt,
		Status:       constants.DeliveryStatusPending,
	}
	if err := e.logs.Insert(ctx, entry); err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to insert delivery log, aborting chain",
			"webhook_id", webhookID,
			"error", err,
		)
		return attemptResult{outcome: outcomeAborted, detail: "delivery log insert failed"}
	}

	start := time.Now()
	status, respBody, err := e.post(ctx, sub, body, deliveryID, triggerType, attempt, now)
	duration := time.Since(start)

	if err != nil {
		detail := truncate(err.Error(), e.responseLimit)
		if markErr := e.logs.MarkFailed(ctx, entry.ID, nil, detail); markErr != nil {
			e.logger.ErrorwCtx(ctx, "Failed to mark delivery failed",
				"webhook_id", webhookID,
				"error", markErr,
			)
		}
		e.recordFailure(ctx, webhookID, detail)
		metrics.IncDeliveryAttempt("failed")
		metrics.ObserveDeliveryDuration(duration, "failed")
		e.logger.WarnwCtx(ctx, "Webhook delivery failed",
			"webhook_id", webhookID,
			"delivery_id", deliveryID,
			"attempt", attempt,
			"error", err,
		)
		return attemptResult{outcome: outcomeFailed, detail: detail}
	}

	if status >= constants.HTTPStatusOKMin && status < constants.HTTPStatusOKMax {
		if markErr := e.logs.MarkDelivered(ctx, entry.ID, status, respBody); markErr != nil {
			e.logger.ErrorwCtx(ctx, "Failed to mark delivery delivered",
				"webhook_id", webhookID,
				"error", markErr,
			)
		}
		if statsErr := e.registry.UpdateStats(ctx, webhookID, StatsPatch{Delivered: true}); statsErr != nil {
			e.logger.ErrorwCtx(ctx, "Failed to update subscription stats",
				"webhook_id", webhookID,
				"error", statsErr,
			)
		}
		metrics.IncDeliveryAttempt("delivered")
		metrics.ObserveDeliveryDuration(duration, "delivered")
		e.logger.InfowCtx(ctx, "Webhook delivered",
			"webhook_id", webhookID,
			"delivery_id", deliveryID,
			"attempt", attempt,
			"http_status", status,
		)
		return attemptResult{outcome: outcomeDelivered, httpStatus: status}
	}

	detail := fmt.Sprintf("received status %d", status)
	if markErr := e.logs.MarkFailed(ctx, entry.ID, &status, detail); markErr != nil {
		e.logger.ErrorwCtx(ctx, "Failed to mark delivery failed",
			"webhook_id", webhookID,
			"error", markErr,
		)
	}
	e.recordFailure(ctx, webhookID, detail)
	metrics.IncDeliveryAttempt("failed")
	metrics.ObserveDeliveryDuration(duration, "failed")
	e.logger.WarnwCtx(ctx, "Webhook delivery rejected by receiver",
		"webhook_id", webhookID,
		"delivery_id", deliveryID,
		"attempt", attempt,
		"http_status", status,
	)
	return attemptResult{outcome: outcomeFailed, httpStatus: status, detail: detail}
}

func (e *Engine) recordFailure(ctx context.Context, webhookID, detail string) {
	if err := e.registry.UpdateStats(ctx, webhookID, StatsPatch{Delivered: false, LastError: detail}); err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to update subscription stats",
			"webhook_id", webhookID,
			"error", err,
		)
	}
}

// checkFailureStreak disables the subscription when its newest
// BreakerWindowSize log rows are all failures. The trip is permanent:
// nothing here or elsewhere in the engine re-arms a disabled
// subscription.
func (e *Engine) checkFailureStreak(ctx context.Context, sub *WebhookSubscription) bool {
	statuses, err := e.logs.RecentStatuses(ctx, sub.ID, constants.BreakerWindowSize)
	if err != nil {
		e.logger.WarnwCtx(ctx, "Failed to read delivery history, skipping breaker check",
			"webhook_id", sub.ID,
			"error", err,
		)
		return false
	}

	if len(statuses) < constants.BreakerWindowSize {
		return false
	}
	for _, status := range statuses {
		if status != constants.DeliveryStatusFailed {
			return false
		}
	}

	reason := fmt.Sprintf("auto-disabled after %d consecutive failed deliveries", constants.BreakerWindowSize)
	if err := e.registry.Deactivate(ctx, sub.ID, reason); err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to deactivate subscription",
			"webhook_id", sub.ID,
			"error", err,
		)
		return true
	}

	metrics.SubscriptionsDisabledTotal.Inc()
	e.logger.WarnwCtx(ctx, "Subscription disabled after failure streak",
		"webhook_id", sub.ID,
		"window", constants.BreakerWindowSize,
	)

	if e.notifier != nil {
		if err := e.notifier.PublishSubscriptionEvent(ctx, models.ActionDisable, sub, reason, "delivery-engine"); err != nil {
			e.logger.WarnwCtx(ctx, "Failed to publish subscription disabled event",
				"webhook_id", sub.ID,
				"error", err,
			)
		}
	}

	return true
}

func (e *Engine) post(ctx context.Context, sub *WebhookSubscription, body []byte, deliveryID, triggerType string, attempt int, ts time.Time) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set(constants.HeaderDeliveryID, deliveryID)
	req.Header.Set(constants.HeaderTimestamp, ts.Format(time.RFC3339))
	req.Header.Set(constants.HeaderAttempt, strconv.Itoa(attempt))
	req.Header.Set(constants.HeaderTriggerType, triggerType)
	if sub.SecretToken != "" {
		req.Header.Set(constants.HeaderSignature, Sign(body, sub.SecretToken))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, int64(e.responseLimit)))
	if err != nil {
		e.logger.DebugwCtx(ctx, "Failed to read webhook response body",
			"webhook_id", sub.ID,
			"error", err,
		)
	}

	return resp.StatusCode, string(respBody), nil
}

// TestDelivery performs one synchronous delivery with a sample payload and
// no retries. The attempt is logged like any other, so manual tests count
// toward the failure window.
func (e *Engine) TestDelivery(ctx context.Context, webhookID string) (*TestDeliveryResult, error) {
	sub, err := e.registry.Get(ctx, webhookID)
	if err != nil || sub == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", webhookID)
	}

	payload := WebhookPayload{
		TriggerType: sub.TriggerType,
		UserID:      sub.UserID,
		Timestamp:   time.Now().UTC(),
		Data: map[string]interface{}{
			"test":    true,
			"message": "test delivery from osprey",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	res := e.attemptDelivery(ctx, webhookID, sub.TriggerType, body, 1)

	result := &TestDeliveryResult{
		WebhookID:  webhookID,
		HTTPStatus: res.httpStatus,
	}
	switch res.outcome {
	case outcomeDelivered:
		result.Outcome = constants.DeliveryStatusDelivered
	case outcomeFailed:
		result.Outcome = constants.DeliveryStatusFailed
		result.Error = res.detail
	case outcomeAborted:
		result.Outcome = "aborted"
		result.Error = res.detail
	}

	return result, nil
}

// Stop cancels pending retries and waits for delivery chains to wind
// down or for ctx to expire. An attempt already in flight completes,
// bounded by the HTTP client timeout.
func (e *Engine) Stop(ctx context.Context) error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for delivery chains: %w", ctx.Err())
	}
}

// truncate trims s to at most limit bytes without splitting a multi-byte
// rune.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
