package dispatch

import (
	"context"
)

// Registry is the engine's view of subscription storage. Every delivery
// attempt re-fetches its subscription through Get so disabling takes
// effect between retries.
type Registry interface {
	FindActive(ctx context.Context, userID, triggerType string) ([]WebhookSubscription, error)
	Get(ctx context.Context, id string) (*WebhookSubscription, error)
	UpdateStats(ctx context.Context, id string, patch StatsPatch) error
	Deactivate(ctx context.Context, id, reason string) error
}

// DeliveryLogStore persists per-attempt delivery records.
type DeliveryLogStore interface {
	Insert(ctx context.Context, entry *DeliveryLogEntry) error
	MarkDelivered(ctx context.Context, id string, httpStatus int, responseBody string) error
	MarkFailed(ctx context.Context, id string, httpStatus *int, errorDetail string) error
	RecentStatuses(ctx context.Context, webhookID string, n int) ([]string, error)
	ListByWebhook(ctx context.Context, webhookID string, limit, offset int) ([]DeliveryLogEntry, error)
}

// Service is the subscription management surface exposed over HTTP.
type Service interface {
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*WebhookSubscription, error)
	ListSubscriptions(ctx context.Context, userID string) ([]WebhookSubscription, error)
	GetSubscription(ctx context.Context, id string) (*WebhookSubscription, error)
	UpdateSubscription(ctx context.Context, id string, req UpdateSubscriptionRequest) (*WebhookSubscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	ListDeliveries(ctx context.Context, id string, limit, offset int) ([]DeliveryLogEntry, error)
	TestDelivery(ctx context.Context, id string) (*TestDeliveryResult, error)
}
