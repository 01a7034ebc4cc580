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

const postCollectionName = "posts"

// mongoPostRepository implements repository.PostRepository
type mongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new Post repository backed by MongoDB.
func NewMongoPostRepository(db *mongo.Database) repository.PostRepository {
	return &mongoPostRepository{
		collection: db.Collection(postCollectionName),
	}
}

// Create inserts a post and its embedded media in a single document write.
func (r *mongoPostRepository) Create(ctx context.Context, post *domain.Post) (primitive.ObjectID, error) {
	if post.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("post requires userId")
	}
	if len(post.Images) > domain.MaxPostImages {
		return primitive.NilObjectID, errors.New("post cannot carry more than 3 images")
	}

	post.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	for i := range post.Images {
		if post.Images[i].ID == primitive.NilObjectID {
			post.Images[i].ID = primitive.NewObjectID()
		}
	}
	if post.Video != nil {
		if post.Video.ID == primitive.NilObjectID {
			post.Video.ID = primitive.NewObjectID()
		}
		post.Video.CreatedAt = now
	}

	result, err := r.collection.InsertOne(ctx, post)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// GetByID retrieves a single post.
func (r *mongoPostRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	var post domain.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// List retrieves every post, newest first.
func (r *mongoPostRepository) List(ctx context.Context) ([]domain.Post, error) {
	return r.find(ctx, bson.M{})
}

// ListByUser retrieves the posts written by userID, newest first.
func (r *mongoPostRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Post, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M) ([]domain.Post, error) {
	posts := []domain.Post{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateText replaces the post body. Media and author are never changed here.
func (r *mongoPostRepository) UpdateText(ctx context.Context, id primitive.ObjectID, text string) error {
	update := bson.M{
		"$set": bson.M{
			"text":      text,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the post document, embedded media metadata included.
func (r *mongoPostRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePostIndexes creates necessary indexes for the posts collection.
func EnsurePostIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Profile feed: posts by author, newest first
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
