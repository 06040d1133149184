package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"osprey/internal/config"
	"osprey/internal/constants"
	"osprey/internal/logger"
	"osprey/pkg/metrics"
	"osprey/pkg/models"
)

// IdempotencyStore claims a key exactly once within the TTL window.
type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) IdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	success, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

// IdempotencyChecker deduplicates at-least-once Kafka trigger consumption.
// The envelope ID is the idempotency key; envelopes without one fall back
// to a content fingerprint.
type IdempotencyChecker struct {
	store  IdempotencyStore
	cfg    config.IdempotencyConfig
	logger logger.Logger
}

func NewIdempotencyChecker(store IdempotencyStore, cfg config.IdempotencyConfig, log logger.Logger) *IdempotencyChecker {
	if cfg.TTLSeconds <= 0 {
		cfg.TTLSeconds = constants.DefaultTTLSeconds
	}
	return &IdempotencyChecker{
		store:  store,
		cfg:    cfg,
		logger: log,
	}
}

// FirstSeen returns true when this envelope has not been processed within
// the TTL window. Redis failures follow the configured fallback: allow
// processes anyway, reject drops, fail surfaces the error.
func (c *IdempotencyChecker) FirstSeen(ctx context.Context, envelope models.EventEnvelope) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := envelope.ID
	if key == "" {
		key = fingerprint(envelope)
	}
	key = constants.CacheKeyPrefixTrigger + key

	first, err := c.store.SetNX(ctx, key, time.Now().Unix(), time.Duration(c.cfg.TTLSeconds)*time.Second)
	if err != nil {
		return c.handleRedisError(ctx, err, envelope.ID)
	}

	if first {
		metrics.TriggerDedupTotal.WithLabelValues("unique").Inc()
	} else {
		metrics.TriggerDedupTotal.WithLabelValues("duplicate").Inc()
	}

	return first, nil
}

func (c *IdempotencyChecker) handleRedisError(ctx context.Context, err error, msgID string) (bool, error) {
	metrics.TriggerDedupTotal.WithLabelValues("error").Inc()

	switch c.cfg.OnRedisError {
	case "reject":
		metrics.FallbackUsageTotal.WithLabelValues("dispatch", "dedup_reject_on_error", "redis_error").Inc()
		c.logger.WarnwCtx(ctx, "Redis error during idempotency check, rejecting message (fallback: reject)",
			"error", err,
		)
		return false, nil
	case "fail":
		return false, fmt.Errorf("redis error during idempotency check for message %s: %w", msgID, err)
	default:
		metrics.FallbackUsageTotal.WithLabelValues("dispatch", "dedup_allow_on_error", "redis_error").Inc()
		c.logger.WarnwCtx(ctx, "Redis error during idempotency check, allowing message (fallback: allow)",
			"error", err,
		)
		return true, nil
	}
}

// fingerprint derives a stable key from the envelope content. Maps marshal
// with sorted keys, so equal payloads produce equal fingerprints.
func fingerprint(envelope models.EventEnvelope) string {
	payload, err := json.Marshal(envelope.Payload)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", envelope.Payload))
	}

	h := sha256.New()
	h.Write([]byte(envelope.Source))
	h.Write([]byte("|"))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
