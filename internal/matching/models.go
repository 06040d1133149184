package matching

import (
	"time"

	"osprey/internal/matching/roster"
)

// ParsedParticipant is the structured reading of one free-text label.
// Any field the parser could not find is empty.
type ParsedParticipant struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Company string `json:"company,omitempty" bson:"company,omitempty"`
}

// ContactMatch is one candidate produced by a matching strategy.
type ContactMatch struct {
	ContactID   string         `json:"contact_id" bson:"contact_id"`
	Confidence  int            `json:"confidence" bson:"confidence"`
	MatchMethod string         `json:"match_method" bson:"match_method"`
	Reasoning   string         `json:"reasoning" bson:"reasoning"`
	ContactData roster.Contact `json:"contact_data" bson:"contact_data"`
}

// ParticipantMatchResult is the matcher's verdict for one label.
type ParticipantMatchResult struct {
	Participant         string            `json:"participant"`
	Parsed              ParsedParticipant `json:"parsed"`
	SuggestedMatches    []ContactMatch    `json:"suggested_matches"`
	RequiresReview      bool              `json:"requires_review"`
	ConfidenceThreshold int               `json:"confidence_threshold"`
}

// ParticipantData is what a review row keeps about the participant.
type ParticipantData struct {
	Raw    string            `json:"raw" bson:"raw"`
	Parsed ParsedParticipant `json:"parsed" bson:"parsed"`
}

// MatchReview is the persisted human-in-the-loop record. The matcher
// writes pending or auto_approved rows; the review UI moves them to
// confirmed or rejected.
type MatchReview struct {
	ID                 string          `json:"id" bson:"_id,omitempty"`
	UserID             string          `json:"user_id" bson:"user_id"`
	AnalysisID         string          `json:"analysis_id" bson:"analysis_id"`
	ParticipantData    ParticipantData `json:"participant_data" bson:"participant_data"`
	SuggestedMatches   []ContactMatch  `json:"suggested_matches" bson:"suggested_matches"`
	Status             string          `json:"status" bson:"status"`
	ConfirmedContactID string          `json:"confirmed_contact_id,omitempty" bson:"confirmed_contact_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" bson:"updated_at"`
}

// MatchRequest asks for one participant to be matched. Roster, when
// present, overrides the configured provider for this call.
type MatchRequest struct {
	Participant string           `json:"participant" binding:"required"`
	UserID      string           `json:"user_id" binding:"required"`
	AnalysisID  string           `json:"analysis_id"`
	Roster      []roster.Contact `json:"roster"`
}

type BatchMatchRequest struct {
	Participants []string         `json:"participants" binding:"required"`
	UserID       string           `json:"user_id" binding:"required"`
	AnalysisID   string           `json:"analysis_id"`
	Roster       []roster.Contact `json:"roster"`
}

type UpdateReviewRequest struct {
	Status             string `json:"status" binding:"required"`
	ConfirmedContactID string `json:"confirmed_contact_id"`
}

// AnalysisEvent is the analysis-events payload that drives batch
// matching off Kafka.
type AnalysisEvent struct {
	AnalysisID   string   `json:"analysis_id"`
	UserID       string   `json:"user_id"`
	Participants []string `json:"participants"`
}
