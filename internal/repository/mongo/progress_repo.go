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

const progressCollectionName = "progress"

// mongoProgressRepository implements repository.ProgressRepository
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new Progress repository.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// Create inserts a new goal.
func (r *mongoProgressRepository) Create(ctx context.Context, goal *domain.Progress) (primitive.ObjectID, error) {
	if goal.UserID == primitive.NilObjectID || goal.GoalType == "" {
		return primitive.NilObjectID, errors.New("progress requires userId and goalType")
	}
	goal.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if goal.StartedAt.IsZero() {
		goal.StartedAt = now
	}
	goal.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, goal)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// GetByID retrieves a single goal by its ID.
func (r *mongoProgressRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Progress, error) {
	var goal domain.Progress
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&goal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &goal, nil
}

// ListByUser retrieves every goal owned by userID, newest first.
func (r *mongoProgressRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Progress, error) {
	goals := []domain.Progress{}
	findOptions := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// Update writes the mutable goal fields. The owner, initial value and start date never change.
func (r *mongoProgressRepository) Update(ctx context.Context, goal *domain.Progress) error {
	if goal.ID == primitive.NilObjectID {
		return errors.New("progress ID is required for update")
	}

	now := time.Now().UTC()
	updateDoc := bson.M{
		"$set": bson.M{
			"goalType":        goal.GoalType,
			"goalDescription": goal.GoalDescription,
			"currentValue":    goal.CurrentValue,
			"targetValue":     goal.TargetValue,
			"unit":            goal.Unit,
			"targetDate":      goal.TargetDate,
			"isCompleted":     goal.IsCompleted,
			"updatedAt":       now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": goal.ID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	goal.UpdatedAt = now
	return nil
}

// Delete removes the goal document. History rows are purged by the caller first.
func (r *mongoProgressRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureProgressIndexes creates necessary indexes. Call during startup.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "startedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
