package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osprey/internal/config"
	"osprey/pkg/circuitbreaker"
	pkgerrors "osprey/pkg/errors"
)

func TestCircuitBreakerProvider_PassesThroughSuccess(t *testing.T) {
	inner := &fakeProvider{contacts: sampleRoster()}
	provider := NewCircuitBreakerProvider(inner, circuitbreaker.DefaultConfig("roster-fake"))

	contacts, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
	assert.Equal(t, "fake", provider.Name())
	assert.False(t, provider.IsOpen())
}

func TestCircuitBreakerProvider_PropagatesInnerErrorWhileClosed(t *testing.T) {
	inner := &fakeProvider{err: errors.New("connection refused")}
	provider := NewCircuitBreakerProvider(inner, circuitbreaker.DefaultConfig("roster-fake"))

	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "circuit breaker is open")
	assert.False(t, provider.IsOpen())
	assert.Equal(t, 1, inner.callCount())
}

func TestCircuitBreakerProvider_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeProvider{err: errors.New("connection refused")}
	provider := NewCircuitBreakerProvider(inner, circuitbreaker.DefaultConfig("roster-fake"))

	// Default trip rule: at least 3 requests with a failure ratio >= 0.5
	for i := 0; i < 3; i++ {
		_, err := provider.Fetch(context.Background(), cacheTestUserID)
		require.Error(t, err)
	}
	assert.Equal(t, 3, inner.callCount())
	assert.True(t, provider.IsOpen())
	assert.Equal(t, "open", provider.State())

	// Open breaker fails fast without touching the inner provider
	_, err := provider.Fetch(context.Background(), cacheTestUserID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrServiceUnavailable))
	assert.Contains(t, err.Error(), "circuit breaker is open for roster provider fake")
	assert.Equal(t, 3, inner.callCount())
}

func TestWrapWithCircuitBreaker_DisabledReturnsSameProvider(t *testing.T) {
	inner := &fakeProvider{}

	wrapped := WrapWithCircuitBreaker(inner, config.CircuitBreakerConfig{Enabled: false})
	assert.Same(t, inner, wrapped)
}

func TestWrapWithCircuitBreaker_EnabledWrapsProvider(t *testing.T) {
	inner := &fakeProvider{contacts: sampleRoster()}

	wrapped := WrapWithCircuitBreaker(inner, config.CircuitBreakerConfig{Enabled: true})
	cbProvider, ok := wrapped.(*CircuitBreakerProvider)
	require.True(t, ok)
	assert.Equal(t, "fake", cbProvider.Name())

	contacts, err := wrapped.Fetch(context.Background(), cacheTestUserID)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestWrapWithCircuitBreaker_CustomTripThreshold(t *testing.T) {
	inner := &fakeProvider{err: errors.New("connection refused")}

	wrapped := WrapWithCircuitBreaker(inner, config.CircuitBreakerConfig{
		Enabled:      true,
		FailureRatio: 1.0,
		MinRequests:  2,
	})

	for i := 0; i < 2; i++ {
		_, err := wrapped.Fetch(context.Background(), cacheTestUserID)
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.callCount())

	_, err := wrapped.Fetch(context.Background(), cacheTestUserID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrServiceUnavailable))
	assert.Equal(t, 2, inner.callCount(), "an open breaker must not invoke the provider")
}
