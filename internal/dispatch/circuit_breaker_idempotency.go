package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"osprey/internal/config"
	"osprey/pkg/circuitbreaker"
)

// CircuitBreakerIdempotencyStore shields trigger ingestion from a sick
// Redis: once the breaker opens, SetNX fails fast and the checker's
// fallback policy decides what happens to the message.
type CircuitBreakerIdempotencyStore struct {
	store IdempotencyStore
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerIdempotencyStore(store IdempotencyStore, cfg config.CircuitBreakerConfig) *CircuitBreakerIdempotencyStore {
	if !cfg.Enabled {
		return &CircuitBreakerIdempotencyStore{
			store: store,
			cb:    nil,
		}
	}

	cbConfig := circuitbreaker.DefaultConfig("redis-idempotency")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerIdempotencyStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(cbConfig),
	}
}

func (s *CircuitBreakerIdempotencyStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if s.cb == nil {
		return s.store.SetNX(ctx, key, value, ttl)
	}

	result, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.store.SetNX(ctx, key, value, ttl)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil {
		if s.cb.IsOpen() {
			return false, fmt.Errorf("circuit breaker is open for redis-idempotency: %w", err)
		}
		return false, err
	}

	success, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("store returned invalid result type")
	}

	return success, nil
}

func (s *CircuitBreakerIdempotencyStore) State() string {
	if s.cb == nil {
		return "disabled"
	}
	return s.cb.State().String()
}

func (s *CircuitBreakerIdempotencyStore) IsOpen() bool {
	if s.cb == nil {
		return false
	}
	return s.cb.IsOpen()
}
