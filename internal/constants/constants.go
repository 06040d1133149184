package constants

import "time"

const (
	ServiceDispatch = "dispatch-service"
	ServiceMatcher  = "matcher-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	TopicTriggerEvents  = "trigger-events"
	TopicAnalysisEvents = "analysis-events"
	TopicConfigEvents   = "config-events"
)

const (
	// DeliveryHTTPTimeout is the hard cap on a single webhook POST,
	// including connect, TLS and body read.
	DeliveryHTTPTimeout = 30 * time.Second

	// MaxDeliveryAttempts is the total number of tries per trigger,
	// the first attempt included.
	MaxDeliveryAttempts = 5

	// BreakerWindowSize is how many recent delivery logs are inspected
	// before an attempt; a window full of failures disables the
	// subscription permanently.
	BreakerWindowSize = 10

	// ResponseBodyLimit caps how much of the receiver's response body is
	// stored on a delivery log row.
	ResponseBodyLimit = 1000
)

const (
	// RosterAPITimeout bounds a roster fetch from the CRM connector when
	// the config does not set one.
	RosterAPITimeout = 10 * time.Second
)

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

const (
	TriggerAnalysisCompleted    = "analysis_completed"
	TriggerActionItemsGenerated = "action_items_generated"
	TriggerFollowUpDue          = "follow_up_due"
	TriggerCRMSyncCompleted     = "crm_sync_completed"
)

const (
	MatchMethodEmailExact         = "email_exact"
	MatchMethodEmailDomainCompany = "email_domain_company"
	MatchMethodNameCompany        = "name_company"
	MatchMethodCompanyOnly        = "company_only"
)

const (
	ReviewStatusPending      = "pending"
	ReviewStatusAutoApproved = "auto_approved"
	ReviewStatusConfirmed    = "confirmed"
	ReviewStatusRejected     = "rejected"
)

const (
	// ReviewThreshold is the confidence below which a match result is
	// flagged for human review.
	ReviewThreshold = 85

	// MaxSuggestedMatches caps the candidates returned per participant.
	MaxSuggestedMatches = 5
)

const (
	CacheKeyPrefixTrigger = "trigger:"
	CacheKeyPrefixRoster  = "roster:"
)

const (
	DefaultMongoDBName          = "osprey"
	MongoCollectionMatchReviews = "match_reviews"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	DefaultTTLSeconds = 3600
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
	FallbackError = "error"
)

const (
	ProviderNameDatabase = "database"
	ProviderNameAPI      = "api"
	ProviderNameCache    = "cache"
)

const (
	HeaderDeliveryID  = "X-Delivery-Id"
	HeaderTimestamp   = "X-Timestamp"
	HeaderAttempt     = "X-Attempt"
	HeaderTriggerType = "X-Trigger-Type"
	HeaderSignature   = "X-Signature"
)
