package mongo

import (
	"context"
	"errors"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const progressHistoryCollectionName = "progress_history"

// mongoProgressHistoryRepository implements repository.ProgressHistoryRepository.
// There is deliberately no update method: measurements are append-only.
type mongoProgressHistoryRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressHistoryRepository creates a new ProgressHistory repository.
func NewMongoProgressHistoryRepository(db *mongo.Database) repository.ProgressHistoryRepository {
	return &mongoProgressHistoryRepository{
		collection: db.Collection(progressHistoryCollectionName),
	}
}

// Create appends a measurement.
func (r *mongoProgressHistoryRepository) Create(ctx context.Context, entry *domain.ProgressHistory) (primitive.ObjectID, error) {
	if entry.ProgressID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("progress history requires progressId")
	}
	entry.ID = primitive.NewObjectID()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// ListByProgress retrieves the measurements of a goal, newest first.
func (r *mongoProgressHistoryRepository) ListByProgress(ctx context.Context, progressID primitive.ObjectID) ([]domain.ProgressHistory, error) {
	entries := []domain.ProgressHistory{}
	findOptions := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"progressId": progressID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteByProgress purges every measurement of a goal.
func (r *mongoProgressHistoryRepository) DeleteByProgress(ctx context.Context, progressID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"progressId": progressID})
	return err
}

// EnsureProgressHistoryIndexes creates necessary indexes. Call during startup.
func EnsureProgressHistoryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "progressId", Value: 1}, {Key: "recordedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
