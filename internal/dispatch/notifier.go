package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"osprey/internal/broker"
	"osprey/internal/constants"
	"osprey/pkg/models"
)

// LifecycleNotifier publishes subscription lifecycle events to the config
// topic so downstream systems (notification workers, the CRM) learn about
// creations, edits and breaker disables.
type LifecycleNotifier struct {
	producer broker.Producer
	topic    string
}

func NewLifecycleNotifier(producer broker.Producer, topic string) *LifecycleNotifier {
	return &LifecycleNotifier{
		producer: producer,
		topic:    topic,
	}
}

func (n *LifecycleNotifier) PublishSubscriptionEvent(ctx context.Context, action string, sub *WebhookSubscription, reason, changedBy string) error {
	if n == nil || n.producer == nil || n.topic == "" {
		return nil
	}

	event := models.SubscriptionEvent{
		EventType:      models.EventTypeSubscriptionUpdated,
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		TriggerType:    sub.TriggerType,
		Action:         action,
		Reason:         reason,
		ChangedBy:      changedBy,
		Timestamp:      time.Now(),
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(eventJSON, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	envelope := models.NewEventEnvelopeBuilder().
		WithSource(constants.ServiceDispatch).
		WithPayload(payload).
		Build()

	return n.producer.Publish(ctx, n.topic, *envelope)
}
