package repository

import (
	"context"
	"gymhub/social-fitness/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicateKey = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn so that every repository call made with the ctx it receives commits or
// rolls back together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) // ErrDuplicateKey on username/email clash
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
}

// PostRepository stores posts together with their embedded media.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)                                   // Newest first
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Post, error) // Newest first
	UpdateText(ctx context.Context, id primitive.ObjectID, text string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// LikeRepository manages the (post, user) like set. Add and Remove are idempotent.
type LikeRepository interface {
	Add(ctx context.Context, postID, userID primitive.ObjectID) error
	Remove(ctx context.Context, postID, userID primitive.ObjectID) error
	Exists(ctx context.Context, postID, userID primitive.ObjectID) (bool, error)
	CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) error
}

// CommentRepository defines the interface for interacting with post comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID primitive.ObjectID) ([]domain.Comment, error) // Oldest first
	UpdateText(ctx context.Context, id primitive.ObjectID, text string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) error
}

// WorkoutScheduleRepository defines the interface for interacting with workout schedules.
// Exercises are not loaded here; see ExerciseRepository.
type WorkoutScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.WorkoutSchedule) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSchedule, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSchedule, error) // Newest first
	Update(ctx context.Context, schedule *domain.WorkoutSchedule) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ExerciseRepository defines the interface for interacting with schedule exercises.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	ListBySchedule(ctx context.Context, scheduleID primitive.ObjectID) ([]domain.Exercise, error) // By position
	// ToggleCompleted flips Completed on the exercise if it belongs to scheduleID.
	ToggleCompleted(ctx context.Context, scheduleID, exerciseID primitive.ObjectID) (*domain.Exercise, error)
	DeleteBySchedule(ctx context.Context, scheduleID primitive.ObjectID) error
}

// ProgressRepository defines the interface for interacting with progress goals.
type ProgressRepository interface {
	Create(ctx context.Context, goal *domain.Progress) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Progress, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Progress, error) // Newest first
	Update(ctx context.Context, goal *domain.Progress) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProgressHistoryRepository is append-only apart from the bulk purge on goal deletion.
type ProgressHistoryRepository interface {
	Create(ctx context.Context, entry *domain.ProgressHistory) (primitive.ObjectID, error)
	ListByProgress(ctx context.Context, progressID primitive.ObjectID) ([]domain.ProgressHistory, error) // Newest first
	DeleteByProgress(ctx context.Context, progressID primitive.ObjectID) error
}
