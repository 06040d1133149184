package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"osprey/internal/constants"
	"osprey/internal/logger"
	"osprey/internal/matching/roster"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/metrics"
)

// Service is the matcher's operational surface.
type Service interface {
	MatchParticipant(ctx context.Context, req MatchRequest) (*ParticipantMatchResult, error)
	MatchBatch(ctx context.Context, req BatchMatchRequest) ([]ParticipantMatchResult, error)
	ListReviews(ctx context.Context, userID, analysisID string) ([]MatchReview, error)
	UpdateReview(ctx context.Context, id string, req UpdateReviewRequest) (*MatchReview, error)
}

type matchingService struct {
	matcher  *Matcher
	provider roster.Provider
	reviews  ReviewStore
	logger   logger.Logger
}

type ServiceOption func(*matchingService)

// WithRosterProvider installs the configured provider chain. Without
// one, every request must carry an inline roster.
func WithRosterProvider(p roster.Provider) ServiceOption {
	return func(s *matchingService) {
		s.provider = p
	}
}

// WithReviewStore enables the review persistence side effect for
// analysis-scoped matches.
func WithReviewStore(store ReviewStore) ServiceOption {
	return func(s *matchingService) {
		s.reviews = store
	}
}

func NewService(matcher *Matcher, log logger.Logger, opts ...ServiceOption) Service {
	s := &matchingService{
		matcher: matcher,
		logger:  log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *matchingService) MatchParticipant(ctx context.Context, req MatchRequest) (*ParticipantMatchResult, error) {
	if strings.TrimSpace(req.Participant) == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "participant is required")
	}
	if req.UserID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "user_id is required")
	}

	start := time.Now()

	contacts, err := s.resolveRoster(ctx, req.UserID, req.Roster)
	if err != nil {
		metrics.ObserveMatchDuration(time.Since(start), "error")
		return nil, err
	}

	result := s.matcher.Match(req.Participant, contacts)

	metrics.ObserveMatchDuration(time.Since(start), "success")
	if len(result.SuggestedMatches) > 0 {
		top := result.SuggestedMatches[0]
		metrics.ObserveMatchConfidence(top.Confidence)
		metrics.IncMatchMethod(top.MatchMethod)
	}

	s.persistReview(ctx, req.UserID, req.AnalysisID, result)

	s.logger.Debugw("Participant matched",
		"participant", req.Participant,
		"user_id", req.UserID,
		"match_count", len(result.SuggestedMatches),
		"requires_review", result.RequiresReview,
	)

	return &result, nil
}

// MatchBatch runs participants one at a time so a transient roster or
// store failure stays isolated to its participant. The returned slice
// always has one entry per input, failed ones as empty review-required
// placeholders.
func (s *matchingService) MatchBatch(ctx context.Context, req BatchMatchRequest) ([]ParticipantMatchResult, error) {
	if req.UserID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "user_id is required")
	}

	results := make([]ParticipantMatchResult, 0, len(req.Participants))
	for _, participant := range req.Participants {
		results = append(results, s.matchOne(ctx, MatchRequest{
			Participant: participant,
			UserID:      req.UserID,
			AnalysisID:  req.AnalysisID,
			Roster:      req.Roster,
		}))
	}

	s.logger.Infow("Batch match completed",
		"user_id", req.UserID,
		"analysis_id", req.AnalysisID,
		"participant_count", len(req.Participants),
	)

	return results, nil
}

func (s *matchingService) matchOne(ctx context.Context, req MatchRequest) (result ParticipantMatchResult) {
	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.RecoverPanic(r)
			s.logger.Errorw("Participant match panicked",
				"error", err,
				"participant", req.Participant,
			)
			result = emptyResult(req.Participant, s.matcher.Threshold())
		}
	}()

	res, err := s.MatchParticipant(ctx, req)
	if err != nil {
		s.logger.Errorw("Participant match failed",
			"error", err,
			"participant", req.Participant,
			"user_id", req.UserID,
		)
		return emptyResult(req.Participant, s.matcher.Threshold())
	}

	return *res
}

func emptyResult(participant string, threshold int) ParticipantMatchResult {
	return ParticipantMatchResult{
		Participant:         participant,
		SuggestedMatches:    []ContactMatch{},
		RequiresReview:      true,
		ConfidenceThreshold: threshold,
	}
}

func (s *matchingService) ListReviews(ctx context.Context, userID, analysisID string) ([]MatchReview, error) {
	if userID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "user_id is required")
	}
	if s.reviews == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "review store not configured")
	}

	reviews, err := s.reviews.ListReviews(ctx, userID, analysisID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return reviews, nil
}

func (s *matchingService) UpdateReview(ctx context.Context, id string, req UpdateReviewRequest) (*MatchReview, error) {
	if req.Status != constants.ReviewStatusConfirmed && req.Status != constants.ReviewStatusRejected {
		return nil, pkgerrors.ErrValidation.WithDetail(
			"message", fmt.Sprintf("status must be %s or %s", constants.ReviewStatusConfirmed, constants.ReviewStatusRejected),
		)
	}
	if s.reviews == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "review store not configured")
	}

	review, err := s.reviews.UpdateReviewStatus(ctx, id, req.Status, req.ConfirmedContactID)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}

	s.logger.Infow("Match review updated",
		"review_id", id,
		"status", req.Status,
	)

	return review, nil
}

// resolveRoster honors an inline roster override before falling back to
// the configured provider.
func (s *matchingService) resolveRoster(ctx context.Context, userID string, override []roster.Contact) ([]roster.Contact, error) {
	if override != nil {
		return override, nil
	}
	if s.provider == nil {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "no roster provider configured and no roster supplied")
	}

	contacts, err := s.provider.Fetch(ctx, userID)
	if err != nil {
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return contacts, nil
}

// persistReview writes the human-review record for analysis-scoped
// matches. Matching stays advisory: persistence failures are logged and
// swallowed.
func (s *matchingService) persistReview(ctx context.Context, userID, analysisID string, result ParticipantMatchResult) {
	if s.reviews == nil || analysisID == "" || len(result.SuggestedMatches) == 0 {
		return
	}

	status := constants.ReviewStatusAutoApproved
	if result.RequiresReview {
		status = constants.ReviewStatusPending
	}

	review := &MatchReview{
		UserID:     userID,
		AnalysisID: analysisID,
		ParticipantData: ParticipantData{
			Raw:    result.Participant,
			Parsed: result.Parsed,
		},
		SuggestedMatches: result.SuggestedMatches,
		Status:           status,
	}

	if err := s.reviews.CreateReview(ctx, review); err != nil {
		s.logger.Errorw("Failed to persist match review",
			"error", err,
			"user_id", userID,
			"analysis_id", analysisID,
		)
		return
	}

	metrics.MatchReviewsTotal.WithLabelValues(status).Inc()
}

func (s *matchingService) handleNotFoundError(err error, id string) error {
	if pkgerrors.IsNotFound(err) || strings.Contains(err.Error(), "not found") {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}
