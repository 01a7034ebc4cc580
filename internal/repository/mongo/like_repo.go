package mongo

import (
	"context"
	"gymhub/social-fitness/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const likeCollectionName = "post_likes"

// mongoLikeRepository implements repository.LikeRepository
type mongoLikeRepository struct {
	collection *mongo.Collection
}

// NewMongoLikeRepository creates a new Like repository backed by MongoDB.
func NewMongoLikeRepository(db *mongo.Database) repository.LikeRepository {
	return &mongoLikeRepository{
		collection: db.Collection(likeCollectionName),
	}
}

// Add records the like with an upsert keyed on (postId, userId). Together with the unique index
// this makes concurrent likes by the same user collapse into one document.
func (r *mongoLikeRepository) Add(ctx context.Context, postID, userID primitive.ObjectID) error {
	filter := bson.M{"postId": postID, "userId": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"postId":    postID,
			"userId":    userID,
			"createdAt": time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Two upserts raced; the other one inserted the like, which is the state we want.
		return nil
	}
	return err
}

// Remove deletes the like if present. Removing a like that does not exist is not an error.
func (r *mongoLikeRepository) Remove(ctx context.Context, postID, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"postId": postID, "userId": userID})
	return err
}

// Exists reports whether userID has liked postID.
func (r *mongoLikeRepository) Exists(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"postId": postID, "userId": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountByPost returns how many users like postID.
func (r *mongoLikeRepository) CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"postId": postID})
}

// DeleteByPost removes every like on postID.
func (r *mongoLikeRepository) DeleteByPost(ctx context.Context, postID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"postId": postID})
	return err
}

// EnsureLikeIndexes creates necessary indexes for the post_likes collection.
func EnsureLikeIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One like per user per post
			Keys:    bson.D{{Key: "postId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
