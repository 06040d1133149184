package dispatch

import (
	"context"
	"encoding/json"

	"osprey/internal/broker"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/metrics"
	"osprey/pkg/models"
)

// TriggerEventHandler adapts the delivery engine to the broker contract.
// Returned errors feed the broker's retry policy, so validation failures
// are marked fatal to send poison messages straight to the DLQ instead of
// replaying them.
func TriggerEventHandler(engine *Engine, checker *IdempotencyChecker, log logger.Logger) broker.HandlerFunc {
	return func(ctx context.Context, envelope models.EventEnvelope) error {
		if checker != nil {
			first, err := checker.FirstSeen(ctx, envelope)
			if err != nil {
				return err
			}
			if !first {
				log.DebugwCtx(ctx, "Duplicate trigger event dropped",
					"event_id", envelope.ID,
					"source", envelope.Source,
				)
				metrics.TriggerEventsTotal.WithLabelValues("kafka", "duplicate").Inc()
				return nil
			}
		}

		event, err := decodeTriggerEvent(envelope)
		if err != nil {
			metrics.TriggerEventsTotal.WithLabelValues("kafka", "invalid").Inc()
			return pkgerrors.ErrValidation.WithCause(err).WithDetail("event_id", envelope.ID)
		}

		launched, err := engine.ProcessTriggerEvent(ctx, event)
		if err != nil {
			if pkgerrors.IsValidation(err) {
				metrics.TriggerEventsTotal.WithLabelValues("kafka", "invalid").Inc()
			} else {
				metrics.TriggerEventsTotal.WithLabelValues("kafka", "error").Inc()
			}
			return err
		}

		metrics.TriggerEventsTotal.WithLabelValues("kafka", "accepted").Inc()
		log.InfowCtx(ctx, "Trigger event consumed",
			"event_id", envelope.ID,
			"trigger_type", event.TriggerType,
			"deliveries_launched", launched,
		)
		return nil
	}
}

func decodeTriggerEvent(envelope models.EventEnvelope) (TriggerEvent, error) {
	var event TriggerEvent

	data, err := json.Marshal(envelope.Payload)
	if err != nil {
		return event, err
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return event, err
	}

	return event, nil
}
