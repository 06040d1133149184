package dispatch

import (
	"encoding/json"
	"time"
)

// WebhookSubscription is a user's request to receive POSTs for a trigger
// type. Counters and last_error are maintained by the delivery engine.
type WebhookSubscription struct {
	ID               string     `json:"id" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	TriggerType      string     `json:"trigger_type" db:"trigger_type"`
	WebhookURL       string     `json:"webhook_url" db:"webhook_url"`
	SecretToken      string     `json:"-" db:"secret_token"`
	FilterExpression string     `json:"filter_expression,omitempty" db:"filter_expression"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	SuccessCount     int        `json:"success_count" db:"success_count"`
	FailureCount     int        `json:"failure_count" db:"failure_count"`
	LastTriggeredAt  *time.Time `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	LastError        string     `json:"last_error,omitempty" db:"last_error"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// TriggerEvent is the inbound business fact that fans out to subscriptions.
type TriggerEvent struct {
	TriggerType string                 `json:"trigger_type"`
	UserID      string                 `json:"user_id"`
	AnalysisID  string                 `json:"analysis_id,omitempty"`
	Data        map[string]interface{} `json:"data"`
}

// WebhookPayload is what receivers get. It is marshaled exactly once per
// trigger event; the same bytes are signed, sent and logged.
type WebhookPayload struct {
	TriggerType string                 `json:"trigger_type"`
	UserID      string                 `json:"user_id"`
	AnalysisID  string                 `json:"analysis_id,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data"`
}

// DeliveryLogEntry records a single delivery attempt. A fresh row is
// written per attempt; status moves pending -> delivered or failed.
type DeliveryLogEntry struct {
	ID           string          `json:"id" db:"id"`
	WebhookID    string          `json:"webhook_id" db:"webhook_id"`
	DeliveryID   string          `json:"delivery_id" db:"delivery_id"`
	TriggerType  string          `json:"trigger_type" db:"trigger_type"`
	Payload      json.RawMessage `json:"payload" db:"payload"`
	AttemptCount int             `json:"attempt_count" db:"attempt_count"`
	Status       string          `json:"status" db:"status"`
	HTTPStatus   *int            `json:"http_status,omitempty" db:"http_status"`
	ResponseBody string          `json:"response_body,omitempty" db:"response_body"`
	ErrorDetail  string          `json:"error_detail,omitempty" db:"error_detail"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// StatsPatch carries the per-attempt counter update for a subscription.
// Delivered clears last_error and stamps last_triggered_at.
type StatsPatch struct {
	Delivered bool
	LastError string
}

type CreateSubscriptionRequest struct {
	UserID           string `json:"user_id" binding:"required"`
	TriggerType      string `json:"trigger_type" binding:"required"`
	WebhookURL       string `json:"webhook_url" binding:"required"`
	SecretToken      string `json:"secret_token"`
	FilterExpression string `json:"filter_expression"`
	IsActive         *bool  `json:"is_active"`
}

type UpdateSubscriptionRequest struct {
	TriggerType      *string `json:"trigger_type"`
	WebhookURL       *string `json:"webhook_url"`
	SecretToken      *string `json:"secret_token"`
	FilterExpression *string `json:"filter_expression"`
	IsActive         *bool   `json:"is_active"`
}

// TestDeliveryResult is the synchronous outcome of a manual test POST.
type TestDeliveryResult struct {
	WebhookID  string `json:"webhook_id"`
	Outcome    string `json:"outcome"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TriggerAccepted is the 202 response body for trigger ingestion.
type TriggerAccepted struct {
	Status             string `json:"status"`
	DeliveriesLaunched int    `json:"deliveries_launched"`
}
