package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"osprey/internal/constants"
)

// ReviewStore persists match reviews for human confirmation.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *MatchReview) error
	GetReview(ctx context.Context, id string) (*MatchReview, error)
	ListReviews(ctx context.Context, userID, analysisID string) ([]MatchReview, error)
	UpdateReviewStatus(ctx context.Context, id, status, confirmedContactID string) (*MatchReview, error)
}

type mongoReviewStore struct {
	collection *mongo.Collection
}

func NewReviewStore(db *mongo.Database) ReviewStore {
	return &mongoReviewStore{
		collection: db.Collection(constants.MongoCollectionMatchReviews),
	}
}

func (s *mongoReviewStore) CreateReview(ctx context.Context, review *MatchReview) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	_, err := s.collection.InsertOne(ctx, review)
	if err != nil {
		return fmt.Errorf("failed to create match review: %w", err)
	}

	return nil
}

func (s *mongoReviewStore) GetReview(ctx context.Context, id string) (*MatchReview, error) {
	filter := bson.M{"_id": id}

	var review MatchReview
	err := s.collection.FindOne(ctx, filter).Decode(&review)
	if err == mongo.ErrNoDocuments {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match review: %w", err)
	}

	return &review, nil
}

func (s *mongoReviewStore) ListReviews(ctx context.Context, userID, analysisID string) ([]MatchReview, error) {
	filter := bson.M{"user_id": userID}
	if analysisID != "" {
		filter["analysis_id"] = analysisID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list match reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []MatchReview
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode match reviews: %w", err)
	}

	return reviews, nil
}

func (s *mongoReviewStore) UpdateReviewStatus(ctx context.Context, id, status, confirmedContactID string) (*MatchReview, error) {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}}
	if confirmedContactID != "" {
		update["$set"].(bson.M)["confirmed_contact_id"] = confirmedContactID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var review MatchReview
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&review)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("match review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update match review: %w", err)
	}

	return &review, nil
}
