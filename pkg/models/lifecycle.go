package models

import "time"

// SubscriptionEvent is published to the lifecycle topic whenever a webhook
// subscription changes, including automatic disabling by the failure-streak
// breaker. Downstream consumers (notification workers, audit sinks) are out
// of scope here.
type SubscriptionEvent struct {
	EventType      string    `json:"event_type"`
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	TriggerType    string    `json:"trigger_type,omitempty"`
	Action         string    `json:"action"`
	Reason         string    `json:"reason,omitempty"`
	ChangedBy      string    `json:"changed_by,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// RosterSyncEvent is published by the CRM sync job when a user's contact
// roster changes; the matcher uses it to invalidate cached rosters.
type RosterSyncEvent struct {
	EventType    string    `json:"event_type"`
	UserID       string    `json:"user_id"`
	ContactCount int       `json:"contact_count,omitempty"`
	SyncedAt     time.Time `json:"synced_at"`
}

const (
	EventTypeSubscriptionUpdated = "subscription_updated"
	EventTypeRosterSynced        = "roster_synced"
)

const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionDisable = "disable"
)
