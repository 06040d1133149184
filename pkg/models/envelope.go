package models

import "time"

// EventEnvelope is the message shape on every osprey Kafka topic. The
// payload is the business fact (trigger event, analysis event, sync event);
// the envelope ID doubles as the idempotency key for at-least-once
// consumers.
type EventEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

func (msg *EventEnvelope) GetPayloadField(name string) (interface{}, bool) {
	if msg.Payload == nil {
		return nil, false
	}

	value, ok := msg.Payload[name]
	return value, ok
}

func (msg *EventEnvelope) GetPayloadString(name string) string {
	if value, ok := msg.GetPayloadField(name); ok {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
