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

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// Create inserts a new exercise into the database.
func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if exercise.Name == "" || exercise.ScheduleID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("exercise name and schedule ID are required")
	}

	exercise.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, exercise)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// ListBySchedule retrieves the exercises of a schedule in their stored order.
func (r *mongoExerciseRepository) ListBySchedule(ctx context.Context, scheduleID primitive.ObjectID) ([]domain.Exercise, error) {
	exercises := []domain.Exercise{}
	findOptions := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"scheduleId": scheduleID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// ToggleCompleted flips the completed flag with a pipeline update, so the read and the write
// happen in one server-side step. The filter includes scheduleId: an exercise that belongs to
// another schedule is reported as not found.
func (r *mongoExerciseRepository) ToggleCompleted(ctx context.Context, scheduleID, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	filter := bson.M{"_id": exerciseID, "scheduleId": scheduleID}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var exercise domain.Exercise
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// DeleteBySchedule removes every exercise of a schedule.
func (r *mongoExerciseRepository) DeleteBySchedule(ctx context.Context, scheduleID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"scheduleId": scheduleID})
	return err
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "scheduleId", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
