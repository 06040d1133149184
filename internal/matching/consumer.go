package matching

import (
	"context"
	"encoding/json"

	"osprey/internal/broker"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/metrics"
	"osprey/pkg/models"
)

// AnalysisEventHandler feeds analysis-events into batch matching.
// Malformed events are marked fatal so the broker routes them to the
// DLQ instead of replaying them; per-participant failures are already
// absorbed inside the batch.
func AnalysisEventHandler(service Service, log logger.Logger) broker.HandlerFunc {
	return func(ctx context.Context, envelope models.EventEnvelope) error {
		event, err := decodeAnalysisEvent(envelope)
		if err != nil {
			metrics.MatchRequestsTotal.WithLabelValues("kafka", "invalid").Inc()
			return pkgerrors.ErrValidation.WithCause(err).WithDetail("event_id", envelope.ID)
		}

		if event.UserID == "" {
			metrics.MatchRequestsTotal.WithLabelValues("kafka", "invalid").Inc()
			return pkgerrors.ErrValidation.
				WithDetail("message", "analysis event missing user_id").
				WithDetail("event_id", envelope.ID)
		}

		if len(event.Participants) == 0 {
			log.DebugwCtx(ctx, "Analysis event carries no participants",
				"event_id", envelope.ID,
				"analysis_id", event.AnalysisID,
			)
			metrics.MatchRequestsTotal.WithLabelValues("kafka", "empty").Inc()
			return nil
		}

		results, err := service.MatchBatch(ctx, BatchMatchRequest{
			Participants: event.Participants,
			UserID:       event.UserID,
			AnalysisID:   event.AnalysisID,
		})
		if err != nil {
			if pkgerrors.IsValidation(err) {
				metrics.MatchRequestsTotal.WithLabelValues("kafka", "invalid").Inc()
			} else {
				metrics.MatchRequestsTotal.WithLabelValues("kafka", "error").Inc()
			}
			return err
		}

		reviewCount := 0
		for _, r := range results {
			if r.RequiresReview {
				reviewCount++
			}
		}

		metrics.MatchRequestsTotal.WithLabelValues("kafka", "success").Inc()
		log.InfowCtx(ctx, "Analysis event matched",
			"event_id", envelope.ID,
			"analysis_id", event.AnalysisID,
			"participant_count", len(results),
			"requires_review", reviewCount,
		)
		return nil
	}
}

func decodeAnalysisEvent(envelope models.EventEnvelope) (AnalysisEvent, error) {
	var event AnalysisEvent

	data, err := json.Marshal(envelope.Payload)
	if err != nil {
		return event, err
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return event, err
	}

	return event, nil
}
