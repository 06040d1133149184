package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TriggerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_trigger_events_total",
			Help: "Total number of trigger events received (count)",
		},
		[]string{"source", "status"},
	)

	DeliveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_delivery_attempts_total",
			Help: "Total number of webhook delivery attempts (count)",
		},
		[]string{"outcome"},
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osprey_delivery_duration_ms",
			Help:    "Duration of webhook HTTP delivery attempts in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"outcome"},
	)

	DeliveryChainsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "osprey_delivery_chains_active",
			Help: "Number of webhook delivery chains currently in flight (count)",
		},
	)

	SubscriptionsDisabledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "osprey_subscriptions_disabled_total",
			Help: "Total number of subscriptions disabled by the failure-streak breaker (count)",
		},
	)

	FilterEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_filter_evaluations_total",
			Help: "Total number of subscription filter evaluations (count)",
		},
		[]string{"result"},
	)

	TriggerDedupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_trigger_dedup_total",
			Help: "Total number of trigger idempotency checks (count)",
		},
		[]string{"status"},
	)

	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_match_requests_total",
			Help: "Total number of participant match requests (count)",
		},
		[]string{"source", "status"},
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osprey_match_duration_ms",
			Help:    "Duration of participant matching in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	MatchConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osprey_match_confidence",
			Help:    "Top-match confidence distribution (0-100)",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95, 100},
		},
	)

	MatchMethodTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_match_method_total",
			Help: "Total number of top matches per strategy (count)",
		},
		[]string{"method"},
	)

	MatchReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_match_reviews_total",
			Help: "Total number of match reviews persisted (count)",
		},
		[]string{"status"},
	)

	RosterProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_roster_provider_requests_total",
			Help: "Total number of roster provider fetches (count)",
		},
		[]string{"provider", "status"},
	)

	RosterProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osprey_roster_provider_duration_ms",
			Help:    "Duration of roster provider fetches in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"provider"},
	)

	RosterCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_roster_cache_total",
			Help: "Roster cache lookups by result (count)",
		},
		[]string{"result"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_retry_attempts_total",
			Help: "Total number of broker processing retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "osprey_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breakers (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breakers (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)
)

func RegisterDispatchMetrics() {
	prometheus.MustRegister(TriggerEventsTotal)
	prometheus.MustRegister(DeliveryAttemptsTotal)
	prometheus.MustRegister(DeliveryDuration)
	prometheus.MustRegister(DeliveryChainsActive)
	prometheus.MustRegister(SubscriptionsDisabledTotal)
	prometheus.MustRegister(FilterEvaluationsTotal)
	prometheus.MustRegister(TriggerDedupTotal)
	registerSharedMetricsOnce()
}

func RegisterMatchingMetrics() {
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(MatchConfidence)
	prometheus.MustRegister(MatchMethodTotal)
	prometheus.MustRegister(MatchReviewsTotal)
	prometheus.MustRegister(RosterProviderRequestsTotal)
	prometheus.MustRegister(RosterProviderDuration)
	prometheus.MustRegister(RosterCacheTotal)
	registerSharedMetricsOnce()
}

// registerSharedMetricsOnce registers metrics used by both services; each
// binary calls exactly one of the service-level Register functions.
func registerSharedMetricsOnce() {
	prometheus.MustRegister(FallbackUsageTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObserveDeliveryDuration(duration time.Duration, outcome string) {
	DeliveryDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func IncDeliveryAttempt(outcome string) {
	DeliveryAttemptsTotal.WithLabelValues(outcome).Inc()
}

func ObserveMatchDuration(duration time.Duration, status string) {
	MatchDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveMatchConfidence(confidence int) {
	MatchConfidence.Observe(float64(confidence))
}

func IncMatchMethod(method string) {
	MatchMethodTotal.WithLabelValues(method).Inc()
}

func IncRosterProviderRequest(provider, status string) {
	RosterProviderRequestsTotal.WithLabelValues(provider, status).Inc()
}

func ObserveRosterProviderDuration(provider string, duration time.Duration) {
	RosterProviderDuration.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}
