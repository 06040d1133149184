package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateEventEnvelope(msg *EventEnvelope) error {
	if msg == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "event envelope cannot be nil",
		}
	}

	if msg.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "envelope ID is required",
		}
	}

	if msg.Source == "" {
		return &ValidationError{
			Field:   "source",
			Message: "envelope source is required",
		}
	}

	if msg.Timestamp.IsZero() {
		return &ValidationError{
			Field:   "timestamp",
			Message: "envelope timestamp is required",
		}
	}

	if msg.Payload == nil {
		return &ValidationError{
			Field:   "payload",
			Message: "envelope payload cannot be nil",
		}
	}

	return nil
}
