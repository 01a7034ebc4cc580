// internal/repository/mongo/workout_repo.go
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

const workoutScheduleCollectionName = "workout_schedules"

// mongoWorkoutScheduleRepository implements repository.WorkoutScheduleRepository
type mongoWorkoutScheduleRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutScheduleRepository creates a new WorkoutSchedule repository.
func NewMongoWorkoutScheduleRepository(db *mongo.Database) repository.WorkoutScheduleRepository {
	return &mongoWorkoutScheduleRepository{
		collection: db.Collection(workoutScheduleCollectionName),
	}
}

// Create inserts a new schedule. Exercises are written separately by the caller.
func (r *mongoWorkoutScheduleRepository) Create(ctx context.Context, schedule *domain.WorkoutSchedule) (primitive.ObjectID, error) {
	if schedule.UserID == primitive.NilObjectID || schedule.Title == "" {
		return primitive.NilObjectID, errors.New("workout schedule requires userId and title")
	}
	schedule.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	if schedule.Days == nil {
		schedule.Days = []string{}
	}

	result, err := r.collection.InsertOne(ctx, schedule)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// GetByID retrieves a single schedule by its ID.
func (r *mongoWorkoutScheduleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSchedule, error) {
	var schedule domain.WorkoutSchedule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&schedule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

// ListByUser retrieves every schedule owned by userID, newest first.
func (r *mongoWorkoutScheduleRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSchedule, error) {
	schedules := []domain.WorkoutSchedule{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// Update rewrites the schedule's own fields. The owner and creation time never change.
func (r *mongoWorkoutScheduleRepository) Update(ctx context.Context, schedule *domain.WorkoutSchedule) error {
	if schedule.ID == primitive.NilObjectID {
		return errors.New("workout schedule ID is required for update")
	}

	now := time.Now().UTC()
	updateDoc := bson.M{
		"$set": bson.M{
			"title":       schedule.Title,
			"description": schedule.Description,
			"days":        schedule.Days,
			"intensity":   schedule.Intensity,
			"duration":    schedule.Duration,
			"updatedAt":   now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": schedule.ID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	schedule.UpdatedAt = now
	return nil
}

// Delete removes the schedule document. Exercises are removed by the caller in the same transaction.
func (r *mongoWorkoutScheduleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureWorkoutScheduleIndexes creates necessary indexes. Call during startup.
func EnsureWorkoutScheduleIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
