package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osprey/internal/constants"
	"osprey/internal/matching"
	"osprey/internal/matching/roster"
	"osprey/pkg/migrations"
)

func createTestReview(userID, analysisID, status string) *matching.MatchReview {
	return &matching.MatchReview{
		UserID:     userID,
		AnalysisID: analysisID,
		ParticipantData: matching.ParticipantData{
			Raw: "John Smith from Acme Inc",
			Parsed: matching.ParsedParticipant{
				Name:    "John Smith",
				Company: "Acme Inc",
			},
		},
		SuggestedMatches: []matching.ContactMatch{
			{
				ContactID:   uuid.New().String(),
				Confidence:  78,
				MatchMethod: constants.MatchMethodNameCompany,
				Reasoning:   "Name is 100% similar and company names are 100% similar",
				ContactData: roster.Contact{Name: "John Smith", Company: "Acme Incorporated"},
			},
		},
		Status: status,
	}
}

func TestReviewStore_EnsureIndexes(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	err := migrations.EnsureMongoCollection(context.Background(), infra.MongoDB)
	require.NoError(t, err)

	// Idempotent on re-run
	err = migrations.EnsureMongoCollection(context.Background(), infra.MongoDB)
	require.NoError(t, err)
}

func TestReviewStore_CreateAndGet(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	store := matching.NewReviewStore(infra.MongoDB)
	ctx := context.Background()

	review := createTestReview(uuid.New().String(), uuid.New().String(), constants.ReviewStatusPending)

	require.NoError(t, store.CreateReview(ctx, review))
	assert.NotEmpty(t, review.ID)
	assert.False(t, review.CreatedAt.IsZero())

	got, err := store.GetReview(ctx, review.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, review.UserID, got.UserID)
	assert.Equal(t, review.AnalysisID, got.AnalysisID)
	assert.Equal(t, constants.ReviewStatusPending, got.Status)
	assert.Equal(t, "John Smith from Acme Inc", got.ParticipantData.Raw)
	require.Len(t, got.SuggestedMatches, 1)
	assert.Equal(t, 78, got.SuggestedMatches[0].Confidence)
}

func TestReviewStore_GetReview_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	store := matching.NewReviewStore(infra.MongoDB)

	got, err := store.GetReview(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReviewStore_ListReviews(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	store := matching.NewReviewStore(infra.MongoDB)
	ctx := context.Background()

	userID := uuid.New().String()
	analysisID := uuid.New().String()

	first := createTestReview(userID, analysisID, constants.ReviewStatusPending)
	require.NoError(t, store.CreateReview(ctx, first))
	time.Sleep(timestampDelay)

	second := createTestReview(userID, analysisID, constants.ReviewStatusAutoApproved)
	require.NoError(t, store.CreateReview(ctx, second))

	require.NoError(t, store.CreateReview(ctx, createTestReview(userID, uuid.New().String(), constants.ReviewStatusPending)))
	require.NoError(t, store.CreateReview(ctx, createTestReview(uuid.New().String(), analysisID, constants.ReviewStatusPending)))

	// User scope only
	reviews, err := store.ListReviews(ctx, userID, "")
	require.NoError(t, err)
	assert.Len(t, reviews, 3)

	// Analysis scope, newest first
	reviews, err = store.ListReviews(ctx, userID, analysisID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, second.ID, reviews[0].ID)
	assert.Equal(t, first.ID, reviews[1].ID)
}

func TestReviewStore_UpdateReviewStatus(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	store := matching.NewReviewStore(infra.MongoDB)
	ctx := context.Background()

	review := createTestReview(uuid.New().String(), uuid.New().String(), constants.ReviewStatusPending)
	require.NoError(t, store.CreateReview(ctx, review))

	contactID := review.SuggestedMatches[0].ContactID
	updated, err := store.UpdateReviewStatus(ctx, review.ID, constants.ReviewStatusConfirmed, contactID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewStatusConfirmed, updated.Status)
	assert.Equal(t, contactID, updated.ConfirmedContactID)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestReviewStore_UpdateReviewStatus_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	store := matching.NewReviewStore(infra.MongoDB)

	_, err := store.UpdateReviewStatus(context.Background(), uuid.New().String(), constants.ReviewStatusRejected, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
