package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects
const (
	SubjectPostCreated      = "post.created"
	SubjectPostLiked        = "post.liked"
	SubjectPostDeleted      = "post.deleted"
	SubjectCommentCreated   = "comment.created"
	SubjectProgressRecorded = "progress.recorded"
)

// Publisher emits domain events. Publishing is fire-and-forget: callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close()
}

// Event structures

type PostCreatedEvent struct {
	PostID     string `json:"post_id"`
	AuthorID   string `json:"author_id"`
	Text       string `json:"text"`
	ImageCount int    `json:"image_count"`
	HasVideo   bool   `json:"has_video"`
	Timestamp  string `json:"timestamp"`
}

type PostLikedEvent struct {
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	Likes     int64  `json:"likes"`
	Timestamp string `json:"timestamp"`
}

type PostDeletedEvent struct {
	PostID    string `json:"post_id"`
	AuthorID  string `json:"author_id"`
	Timestamp string `json:"timestamp"`
}

type CommentCreatedEvent struct {
	CommentID string `json:"comment_id"`
	PostID    string `json:"post_id"`
	AuthorID  string `json:"author_id"`
	Timestamp string `json:"timestamp"`
}

type ProgressRecordedEvent struct {
	ProgressID string  `json:"progress_id"`
	UserID     string  `json:"user_id"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Timestamp  string  `json:"timestamp"`
}

// Timestamp formats t the way every event carries it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to url and returns a Publisher.
func NewNATSPublisher(url string, logger *slog.Logger) (Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("gymhub-server"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info("NATS connected", "url", conn.ConnectedUrl())
	return &natsPublisher{conn: conn, logger: logger}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", "subject", subject)
	return nil
}

func (p *natsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
	}
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

func (noopPublisher) Close() {}
