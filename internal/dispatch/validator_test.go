package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"osprey/internal/constants"
)

func TestValidateTriggerEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     TriggerEvent
		wantError string
	}{
		{
			name: "valid event",
			event: TriggerEvent{
				TriggerType: constants.TriggerAnalysisCompleted,
				UserID:      testUserID,
				Data:        map[string]interface{}{"score": 82.5},
			},
		},
		{
			name: "unknown trigger type is allowed",
			event: TriggerEvent{
				TriggerType: "meeting_transcribed",
				UserID:      testUserID,
				Data:        map[string]interface{}{},
			},
		},
		{
			name: "empty data map is allowed",
			event: TriggerEvent{
				TriggerType: constants.TriggerFollowUpDue,
				UserID:      testUserID,
				Data:        map[string]interface{}{},
			},
		},
		{
			name: "missing trigger type",
			event: TriggerEvent{
				UserID: testUserID,
				Data:   map[string]interface{}{},
			},
			wantError: "trigger_type",
		},
		{
			name: "missing user id",
			event: TriggerEvent{
				TriggerType: constants.TriggerAnalysisCompleted,
				Data:        map[string]interface{}{},
			},
			wantError: "user_id",
		},
		{
			name: "malformed user id",
			event: TriggerEvent{
				TriggerType: constants.TriggerAnalysisCompleted,
				UserID:      "user-123",
				Data:        map[string]interface{}{},
			},
			wantError: "UUID",
		},
		{
			name: "nil data",
			event: TriggerEvent{
				TriggerType: constants.TriggerAnalysisCompleted,
				UserID:      testUserID,
			},
			wantError: "data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTriggerEvent(tt.event)
			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantError)
			}
		})
	}
}

func TestValidateCreateSubscription(t *testing.T) {
	valid := CreateSubscriptionRequest{
		UserID:      testUserID,
		TriggerType: constants.TriggerAnalysisCompleted,
		WebhookURL:  "https://hooks.example.com/osprey",
		SecretToken: "whsec_secret",
	}

	tests := []struct {
		name      string
		mutate    func(*CreateSubscriptionRequest)
		wantError string
	}{
		{
			name:   "valid request",
			mutate: func(r *CreateSubscriptionRequest) {},
		},
		{
			name: "valid with filter expression",
			mutate: func(r *CreateSubscriptionRequest) {
				r.FilterExpression = `data.score > 50.0`
			},
		},
		{
			name: "no secret token",
			mutate: func(r *CreateSubscriptionRequest) {
				r.SecretToken = ""
			},
		},
		{
			name: "missing user id",
			mutate: func(r *CreateSubscriptionRequest) {
				r.UserID = ""
			},
			wantError: "user_id",
		},
		{
			name: "unknown trigger type",
			mutate: func(r *CreateSubscriptionRequest) {
				r.TriggerType = "meeting_transcribed"
			},
			wantError: "Allowed:",
		},
		{
			name: "relative webhook url",
			mutate: func(r *CreateSubscriptionRequest) {
				r.WebhookURL = "/hooks/osprey"
			},
			wantError: "webhook_url",
		},
		{
			name: "ftp webhook url",
			mutate: func(r *CreateSubscriptionRequest) {
				r.WebhookURL = "ftp://hooks.example.com/osprey"
			},
			wantError: "http or https",
		},
		{
			name: "short secret token",
			mutate: func(r *CreateSubscriptionRequest) {
				r.SecretToken = "short"
			},
			wantError: "secret_token",
		},
		{
			name: "broken filter expression",
			mutate: func(r *CreateSubscriptionRequest) {
				r.FilterExpression = `data.score >`
			},
			wantError: "CEL",
		},
		{
			name: "non-bool filter expression",
			mutate: func(r *CreateSubscriptionRequest) {
				r.FilterExpression = `data.score`
			},
			wantError: "CEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := ValidateCreateSubscription(req)
			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantError)
			}
		})
	}
}

func TestValidateUpdateSubscription(t *testing.T) {
	strPtr := func(s string) *string { return &s }
	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name      string
		req       UpdateSubscriptionRequest
		wantError string
	}{
		{
			name: "empty update",
			req:  UpdateSubscriptionRequest{},
		},
		{
			name: "toggle active only",
			req:  UpdateSubscriptionRequest{IsActive: boolPtr(false)},
		},
		{
			name: "valid new url",
			req:  UpdateSubscriptionRequest{WebhookURL: strPtr("https://hooks.example.com/v2")},
		},
		{
			name:      "invalid new url",
			req:       UpdateSubscriptionRequest{WebhookURL: strPtr("not a url at all")},
			wantError: "webhook_url",
		},
		{
			name:      "invalid trigger type",
			req:       UpdateSubscriptionRequest{TriggerType: strPtr("bogus")},
			wantError: "trigger_type",
		},
		{
			name:      "short secret",
			req:       UpdateSubscriptionRequest{SecretToken: strPtr("abc")},
			wantError: "secret_token",
		},
		{
			name: "clearing secret is allowed",
			req:  UpdateSubscriptionRequest{SecretToken: strPtr("")},
		},
		{
			name: "clearing filter is allowed",
			req:  UpdateSubscriptionRequest{FilterExpression: strPtr("")},
		},
		{
			name:      "invalid filter",
			req:       UpdateSubscriptionRequest{FilterExpression: strPtr("((")},
			wantError: "CEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdateSubscription(tt.req)
			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantError)
			}
		})
	}
}
