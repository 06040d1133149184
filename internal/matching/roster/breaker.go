package roster

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"osprey/internal/config"
	"osprey/pkg/circuitbreaker"
	pkgerrors "osprey/pkg/errors"
)

// CircuitBreakerProvider guards a provider against a flapping upstream.
// While the breaker is open, fetches fail fast without touching the inner
// provider.
type CircuitBreakerProvider struct {
	inner Provider
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerProvider(inner Provider, cfg circuitbreaker.Config) *CircuitBreakerProvider {
	return &CircuitBreakerProvider{
		inner: inner,
		cb:    circuitbreaker.NewWrapper(cfg),
	}
}

func (p *CircuitBreakerProvider) Name() string {
	return p.inner.Name()
}

func (p *CircuitBreakerProvider) Fetch(ctx context.Context, userID string) ([]Contact, error) {
	result, err := p.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return p.inner.Fetch(ctx, userID)
	})

	p.cb.RecordRequest(err == nil)

	if err != nil {
		if p.cb.IsOpen() {
			return nil, pkgerrors.ErrServiceUnavailable.WithCause(err).WithDetail(
				"message", fmt.Sprintf("circuit breaker is open for roster provider %s", p.inner.Name()),
			)
		}
		return nil, err
	}

	contacts, ok := result.([]Contact)
	if !ok {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "roster provider returned invalid result type")
	}

	return contacts, nil
}

func (p *CircuitBreakerProvider) State() string {
	return p.cb.State().String()
}

func (p *CircuitBreakerProvider) IsOpen() bool {
	return p.cb.IsOpen()
}

// WrapWithCircuitBreaker applies the breaker config to a provider,
// returning the provider unchanged when breaking is disabled.
func WrapWithCircuitBreaker(p Provider, cfg config.CircuitBreakerConfig) Provider {
	if !cfg.Enabled {
		return p
	}

	cbConfig := circuitbreaker.DefaultConfig("roster-" + p.Name())
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

	return NewCircuitBreakerProvider(p, cbConfig)
}
