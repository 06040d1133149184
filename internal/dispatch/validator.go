package dispatch

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"osprey/internal/constants"
	"osprey/pkg/cel"
)

var validTriggerTypes = map[string]bool{
	constants.TriggerAnalysisCompleted:    true,
	constants.TriggerActionItemsGenerated: true,
	constants.TriggerFollowUpDue:          true,
	constants.TriggerCRMSyncCompleted:     true,
}

const minSecretTokenLength = 8

// ValidateTriggerEvent rejects events that cannot be dispatched. The
// trigger type itself is not checked against the known set here; producers
// may introduce new types ahead of subscribers.
func ValidateTriggerEvent(event TriggerEvent) error {
	if event.TriggerType == "" {
		return fmt.Errorf("trigger_type is required")
	}
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if _, err := uuid.Parse(event.UserID); err != nil {
		return fmt.Errorf("user_id must be a valid UUID: %w", err)
	}
	if event.Data == nil {
		return fmt.Errorf("data is required")
	}
	return nil
}

func ValidateCreateSubscription(req CreateSubscriptionRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return fmt.Errorf("user_id must be a valid UUID: %w", err)
	}
	if req.TriggerType == "" {
		return fmt.Errorf("trigger_type is required")
	}
	if !validTriggerTypes[req.TriggerType] {
		return fmt.Errorf("invalid trigger_type: %s. Allowed: analysis_completed, action_items_generated, follow_up_due, crm_sync_completed", req.TriggerType)
	}
	if err := validateWebhookURL(req.WebhookURL); err != nil {
		return err
	}
	if err := validateSecretToken(req.SecretToken); err != nil {
		return err
	}
	return validateFilterExpression(req.FilterExpression)
}

func ValidateUpdateSubscription(req UpdateSubscriptionRequest) error {
	if req.TriggerType != nil && !validTriggerTypes[*req.TriggerType] {
		return fmt.Errorf("invalid trigger_type: %s. Allowed: analysis_completed, action_items_generated, follow_up_due, crm_sync_completed", *req.TriggerType)
	}
	if req.WebhookURL != nil {
		if err := validateWebhookURL(*req.WebhookURL); err != nil {
			return err
		}
	}
	if req.SecretToken != nil && *req.SecretToken != "" {
		if err := validateSecretToken(*req.SecretToken); err != nil {
			return err
		}
	}
	if req.FilterExpression != nil && *req.FilterExpression != "" {
		return validateFilterExpression(*req.FilterExpression)
	}
	return nil
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("webhook_url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("webhook_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("webhook_url must be absolute")
	}
	return nil
}

func validateSecretToken(token string) error {
	if token == "" {
		return nil
	}
	if len(token) < minSecretTokenLength {
		return fmt.Errorf("secret_token must be at least %d characters", minSecretTokenLength)
	}
	return nil
}

func validateFilterExpression(expression string) error {
	if expression == "" {
		return nil
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	if err := evaluator.ValidateFilterExpression(expression); err != nil {
		return fmt.Errorf("invalid CEL expression: %w", err)
	}

	return nil
}
