package models

import (
	"time"

	"github.com/google/uuid"
)

type EventEnvelopeBuilder struct {
	envelope *EventEnvelope
}

func NewEventEnvelopeBuilder() *EventEnvelopeBuilder {
	return &EventEnvelopeBuilder{
		envelope: &EventEnvelope{
			Payload: make(map[string]interface{}),
		},
	}
}

func (b *EventEnvelopeBuilder) WithID(id string) *EventEnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EventEnvelopeBuilder) WithSource(source string) *EventEnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *EventEnvelopeBuilder) WithTimestamp(timestamp time.Time) *EventEnvelopeBuilder {
	b.envelope.Timestamp = timestamp
	return b
}

func (b *EventEnvelopeBuilder) WithPayload(payload map[string]interface{}) *EventEnvelopeBuilder {
	b.envelope.Payload = payload
	return b
}

// Build fills in the ID and timestamp when the caller did not set them, so
// every produced envelope carries an idempotency key.
func (b *EventEnvelopeBuilder) Build() *EventEnvelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.NewString()
	}
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now()
	}
	return b.envelope
}
