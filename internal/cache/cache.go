package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"gymhub/social-fitness/internal/domain"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultTTL is how long a cached post view lives.
	DefaultTTL = 5 * time.Minute
	// versionTTL outlives any single read; an expired version reads as 0.
	versionTTL = 24 * time.Hour
)

// ErrMiss is returned by Get when nothing is cached for the post.
var ErrMiss = errors.New("cache miss")

// PostCache stores the viewer-independent part of a post view. LikedByCurrentUser is never
// cached and is always false in values returned by Get.
//
// Every post has a version that Invalidate bumps. A reader takes Version before it loads the
// post from the database and hands it to Set; Set stores nothing if an Invalidate happened in
// between, so a view built from data older than the last write is never cached.
type PostCache interface {
	Get(ctx context.Context, postID primitive.ObjectID) (*domain.PostView, error)
	Version(ctx context.Context, postID primitive.ObjectID) (int64, error)
	Set(ctx context.Context, view *domain.PostView, version int64) error
	Invalidate(ctx context.Context, postID primitive.ObjectID) error
}

type redisPostCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisPostCache returns a PostCache backed by client. A non-positive ttl means DefaultTTL.
func NewRedisPostCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) PostCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisPostCache{client: client, ttl: ttl, logger: logger}
}

func postKey(postID primitive.ObjectID) string {
	return fmt.Sprintf("post:%s", postID.Hex())
}

func versionKey(postID primitive.ObjectID) string {
	return fmt.Sprintf("post:%s:version", postID.Hex())
}

func (c *redisPostCache) Get(ctx context.Context, postID primitive.ObjectID) (*domain.PostView, error) {
	result, err := c.client.Get(ctx, postKey(postID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}

	var view domain.PostView
	if err := json.Unmarshal(result, &view); err != nil {
		// A stale layout is treated as a miss and overwritten on the next Set.
		c.logger.Warn("discarding undecodable cached post", "postId", postID.Hex(), "error", err)
		return nil, ErrMiss
	}
	view.LikedByCurrentUser = false
	return &view, nil
}

func (c *redisPostCache) Version(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	return readVersion(ctx, c.client, postID)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, cmd getter, postID primitive.ObjectID) (int64, error) {
	v, err := cmd.Get(ctx, versionKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set writes the view under WATCH on the version key. A version that moved since the caller
// read it, or that changes before EXEC, drops the write.
func (c *redisPostCache) Set(ctx context.Context, view *domain.PostView, version int64) error {
	stored := *view
	stored.LikedByCurrentUser = false

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, view.ID)
		if err != nil {
			return err
		}
		if current != version {
			c.logger.Debug("skipping stale post cache write", "postId", view.ID.Hex(), "read", version, "current", current)
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, postKey(view.ID), data, c.ttl)
			return nil
		})
		return err
	}, versionKey(view.ID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *redisPostCache) Invalidate(ctx context.Context, postID primitive.ObjectID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(postID))
		pipe.Expire(ctx, versionKey(postID), versionTTL)
		pipe.Del(ctx, postKey(postID))
		return nil
	})
	return err
}

type noopPostCache struct{}

// NewNoopPostCache returns a PostCache that never holds anything.
func NewNoopPostCache() PostCache { return noopPostCache{} }

func (noopPostCache) Get(context.Context, primitive.ObjectID) (*domain.PostView, error) {
	return nil, ErrMiss
}

func (noopPostCache) Version(context.Context, primitive.ObjectID) (int64, error) { return 0, nil }

func (noopPostCache) Set(context.Context, *domain.PostView, int64) error { return nil }

func (noopPostCache) Invalidate(context.Context, primitive.ObjectID) error { return nil }
