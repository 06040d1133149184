package config_handler

import (
	"context"
	"encoding/json"

	"osprey/internal/logger"
	"osprey/pkg/models"
)

// RosterInvalidator drops any cached roster for a user so the next match
// request sees freshly synced contacts.
type RosterInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Handler routes config-topic events to the component that reacts to them.
// Events with a different type are ignored so several handlers can share
// the topic.
type Handler struct {
	expectedEventType string
	invalidator       RosterInvalidator
	logger            logger.Logger
}

func NewHandler(expectedEventType string, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType: expectedEventType,
		logger:            log,
	}
}

func NewHandlerWithInvalidator(expectedEventType string, invalidator RosterInvalidator, log logger.Logger) *Handler {
	return NewHandler(expectedEventType, log).WithInvalidator(invalidator)
}

func (h *Handler) WithInvalidator(invalidator RosterInvalidator) *Handler {
	h.invalidator = invalidator
	return h
}

func (h *Handler) HandleConfigEvent(ctx context.Context, envelope models.EventEnvelope) error {
	eventType, ok := envelope.Payload["event_type"].(string)
	if !ok {
		h.logger.Warnw("Config event missing event_type", "id", envelope.ID)
		return nil
	}

	if eventType != h.expectedEventType {
		return nil
	}

	var event models.RosterSyncEvent
	eventJSON, err := json.Marshal(envelope.Payload)
	if err != nil {
		h.logger.Errorw("Failed to marshal event payload", "error", err, "id", envelope.ID)
		return err
	}

	if err := json.Unmarshal(eventJSON, &event); err != nil {
		h.logger.Errorw("Failed to unmarshal roster sync event", "error", err, "id", envelope.ID)
		return err
	}

	if event.UserID == "" {
		h.logger.Warnw("Roster sync event missing user_id", "id", envelope.ID)
		return nil
	}

	h.logger.Infow("Received roster sync event",
		"user_id", event.UserID,
		"contact_count", event.ContactCount,
	)

	if h.invalidator == nil {
		return nil
	}

	if err := h.invalidator.Invalidate(ctx, event.UserID); err != nil {
		h.logger.Errorw("Failed to invalidate cached roster", "error", err, "user_id", event.UserID)
		return err
	}

	h.logger.Infow("Cached roster invalidated", "user_id", event.UserID)
	return nil
}
