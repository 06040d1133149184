package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osprey/internal/constants"
	"osprey/internal/matching"
	"osprey/internal/matching/roster"
)

func newMatchingService(t *testing.T, infra *TestInfra) matching.Service {
	t.Helper()

	provider := roster.NewDatabaseProvider(infra.PostgresDB, createTestLogger())
	store := matching.NewReviewStore(infra.MongoDB)

	return matching.NewService(
		matching.NewMatcher(constants.ReviewThreshold),
		createTestLogger(),
		matching.WithRosterProvider(provider),
		matching.WithReviewStore(store),
	)
}

func TestMatchingService_MatchParticipant_EmailExact(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newMatchingService(t, infra)
	ctx := context.Background()

	userID := uuid.New().String()
	contact := insertContact(t, infra.PostgresDB, roster.Contact{
		UserID:  userID,
		Name:    "Sarah Chen",
		Email:   "sarah@acme.com",
		Company: "Acme Inc",
	})

	result, err := svc.MatchParticipant(ctx, matching.MatchRequest{
		Participant: "Sarah Chen <sarah@acme.com>",
		UserID:      userID,
	})
	require.NoError(t, err)
	require.Len(t, result.SuggestedMatches, 1)
	assert.Equal(t, contact.ID, result.SuggestedMatches[0].ContactID)
	assert.Equal(t, constants.MatchMethodEmailExact, result.SuggestedMatches[0].MatchMethod)
	assert.Equal(t, 98, result.SuggestedMatches[0].Confidence)
	assert.False(t, result.RequiresReview)
}

func TestMatchingService_MatchParticipant_PersistsReview(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newMatchingService(t, infra)
	ctx := context.Background()

	userID := uuid.New().String()
	analysisID := uuid.New().String()
	insertContact(t, infra.PostgresDB, roster.Contact{
		UserID:  userID,
		Name:    "John Smith",
		Company: "Acme Incorporated",
	})

	// name_company lands below the review threshold -> pending review
	result, err := svc.MatchParticipant(ctx, matching.MatchRequest{
		Participant: "John Smith from Acme Inc",
		UserID:      userID,
		AnalysisID:  analysisID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.SuggestedMatches)
	assert.Equal(t, constants.MatchMethodNameCompany, result.SuggestedMatches[0].MatchMethod)
	assert.True(t, result.RequiresReview)

	reviews, err := svc.ListReviews(ctx, userID, analysisID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, constants.ReviewStatusPending, reviews[0].Status)
	assert.Equal(t, "John Smith from Acme Inc", reviews[0].ParticipantData.Raw)
}

func TestMatchingService_MatchParticipant_AutoApproved(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newMatchingService(t, infra)
	ctx := context.Background()

	userID := uuid.New().String()
	analysisID := uuid.New().String()
	insertContact(t, infra.PostgresDB, roster.Contact{
		UserID: userID,
		Name:   "Sarah Chen",
		Email:  "sarah@acme.com",
	})

	result, err := svc.MatchParticipant(ctx, matching.MatchRequest{
		Participant: "sarah@acme.com",
		UserID:      userID,
		AnalysisID:  analysisID,
	})
	require.NoError(t, err)
	assert.False(t, result.RequiresReview)

	reviews, err := svc.ListReviews(ctx, userID, analysisID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, constants.ReviewStatusAutoApproved, reviews[0].Status)
}

func TestMatchingService_MatchParticipant_InlineRosterOverride(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newMatchingService(t, infra)
	ctx := context.Background()

	userID := uuid.New().String()
	insertContact(t, infra.PostgresDB, roster.Contact{
		UserID: userID,
		Name:   "Sarah Chen",
		Email:  "sarah@acme.com",
	})

	// A non-nil override bypasses the provider entirely, even when empty
	result, err := svc.MatchParticipant(ctx, matching.MatchRequest{
		Participant: "sarah@acme.com",
		UserID:      userID,
		Roster:      []roster.Contact{},
	})
	require.NoError(t, err)
	assert.Empty(t, result.SuggestedMatches)
	assert.True(t, result.RequiresReview)
}

func TestMatchingService_MatchBatch_IsolatesFailures(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newMatchingService(t, infra)
	ctx := context.Background()

	userID := uuid.New().String()
	insertContact(t, infra.PostgresDB, roster.Contact{
		UserID: userID,
		Name:   "Sarah Chen",
		Email:  "sarah@acme.com",
	})

	results, err := svc.MatchBatch(ctx, matching.BatchMatchRequest{
		Participants: []string{"sarah@acme.com", "   ", "nobody@globex.com"},
		UserID:       userID,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].RequiresReview)
	require.Len(t, results[0].SuggestedMatches, 1)

	// The blank participant fails validation and comes back as an empty
	// review-required placeholder without aborting the batch
	assert.True(t, results[1].RequiresReview)
	assert.Empty(t, results[1].SuggestedMatches)

	assert.True(t, results[2].RequiresReview)
	assert.Empty(t, results[2].SuggestedMatches)
}

func TestMatchingService_UpdateReview(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newMatchingService(t, infra)
	ctx := context.Background()

	userID := uuid.New().String()
	analysisID := uuid.New().String()
	contact := insertContact(t, infra.PostgresDB, roster.Contact{
		UserID:  userID,
		Name:    "John Smith",
		Company: "Acme Incorporated",
	})

	_, err := svc.MatchParticipant(ctx, matching.MatchRequest{
		Participant: "John Smith from Acme Inc",
		UserID:      userID,
		AnalysisID:  analysisID,
	})
	require.NoError(t, err)

	reviews, err := svc.ListReviews(ctx, userID, analysisID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	updated, err := svc.UpdateReview(ctx, reviews[0].ID, matching.UpdateReviewRequest{
		Status:             constants.ReviewStatusConfirmed,
		ConfirmedContactID: contact.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewStatusConfirmed, updated.Status)
	assert.Equal(t, contact.ID, updated.ConfirmedContactID)
}

func TestMatchingService_UpdateReview_InvalidStatus(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newMatchingService(t, infra)

	_, err := svc.UpdateReview(context.Background(), uuid.New().String(), matching.UpdateReviewRequest{
		Status: constants.ReviewStatusPending,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status must be")
}
