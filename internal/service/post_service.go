package service

import (
	"context"
	"errors"
	"fmt"
	"gymhub/social-fitness/internal/cache"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/events"
	"gymhub/social-fitness/internal/repository"
	"gymhub/social-fitness/internal/storage"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPostNotFound    = fmt.Errorf("post %w", ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", ErrNotFound)
)

// MediaFile is one uploaded file. Files with Size 0 are ignored.
type MediaFile struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type CreatePostInput struct {
	Text   string
	Images []MediaFile // Only the first MaxPostImages non-empty files are kept
	Video  *MediaFile
}

// PostService covers posts, likes and comments. Every view is computed for a viewer.
type PostService interface {
	CreatePost(ctx context.Context, authorID primitive.ObjectID, in CreatePostInput) (*domain.PostView, error)
	GetPost(ctx context.Context, postID, viewerID primitive.ObjectID) (*domain.PostView, error)
	ListPosts(ctx context.Context, viewerID primitive.ObjectID) ([]domain.PostView, error)
	ListUserPosts(ctx context.Context, userID, viewerID primitive.ObjectID) ([]domain.PostView, error)
	UpdatePost(ctx context.Context, postID, requesterID primitive.ObjectID, text string) (*domain.PostView, error)
	DeletePost(ctx context.Context, postID, requesterID primitive.ObjectID) error

	Like(ctx context.Context, postID, userID primitive.ObjectID) (*domain.PostView, error)
	Unlike(ctx context.Context, postID, userID primitive.ObjectID) (*domain.PostView, error)

	ListComments(ctx context.Context, postID primitive.ObjectID) ([]domain.CommentView, error)
	AddComment(ctx context.Context, postID, authorID primitive.ObjectID, text string) (*domain.CommentView, error)
	UpdateComment(ctx context.Context, postID, commentID, requesterID primitive.ObjectID, text string) (*domain.CommentView, error)
	DeleteComment(ctx context.Context, postID, commentID, requesterID primitive.ObjectID) error
}

// postService implements the PostService interface.
type postService struct {
	tx          repository.Transactor
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	media       storage.Gateway
	publicPath  string
	cache       cache.PostCache
	publisher   events.Publisher
	logger      *slog.Logger
}

// NewPostService creates a new instance of postService.
func NewPostService(
	tx repository.Transactor,
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	media storage.Gateway,
	publicPath string,
	postCache cache.PostCache,
	publisher events.Publisher,
	logger *slog.Logger,
) PostService {
	return &postService{
		tx:          tx,
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		media:       media,
		publicPath:  publicPath,
		cache:       postCache,
		publisher:   publisher,
		logger:      logger,
	}
}

// === Posts ===

// CreatePost stores the media first and then inserts the post with the media embedded. If the
// insert fails the stored files are removed again.
func (s *postService) CreatePost(ctx context.Context, authorID primitive.ObjectID, in CreatePostInput) (*domain.PostView, error) {
	// 1. Validate input
	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	images := nonEmpty(in.Images)
	if len(images) > domain.MaxPostImages {
		images = images[:domain.MaxPostImages]
	}
	var video *MediaFile
	if in.Video != nil && in.Video.Size > 0 && in.Video.Content != nil {
		video = in.Video
	}
	text := strings.TrimSpace(in.Text)
	if text == "" && len(images) == 0 && video == nil {
		return nil, validationError("post text is required when no media is attached")
	}

	// 2. Store media
	post := &domain.Post{UserID: author.ID, Text: text}
	for _, f := range images {
		name, err := s.media.Store(ctx, storage.CategoryImages, f.FileName, f.ContentType, f.Content)
		if err != nil {
			s.removeMedia(post)
			return nil, fmt.Errorf("store image %q: %w", f.FileName, err)
		}
		post.Images = append(post.Images, domain.PostImage{
			FileName: name,
			FileType: f.ContentType,
			URL:      storage.PublicURL(s.publicPath, storage.CategoryImages, name),
		})
	}
	if video != nil {
		name, err := s.media.Store(ctx, storage.CategoryVideos, video.FileName, video.ContentType, video.Content)
		if err != nil {
			s.removeMedia(post)
			return nil, fmt.Errorf("store video %q: %w", video.FileName, err)
		}
		post.Video = &domain.PostVideo{
			FileName:  name,
			FileType:  video.ContentType,
			URL:       storage.PublicURL(s.publicPath, storage.CategoryVideos, name),
			Duration:  domain.DefaultVideoDuration,
			CreatedAt: time.Now().UTC(),
		}
	}

	// 3. Insert the post
	if _, err = s.postRepo.Create(ctx, post); err != nil {
		s.removeMedia(post)
		return nil, err
	}

	s.logger.Info("post created", "postId", post.ID.Hex(), "userId", author.ID.Hex(),
		"images", len(post.Images), "video", post.Video != nil)
	s.publish(ctx, events.SubjectPostCreated, events.PostCreatedEvent{
		PostID:     post.ID.Hex(),
		AuthorID:   author.ID.Hex(),
		Text:       post.Text,
		ImageCount: len(post.Images),
		HasVideo:   post.Video != nil,
		Timestamp:  events.Timestamp(post.CreatedAt),
	})

	view := newPostView(post, author.Summary(), 0, 0)
	return &view, nil
}

// GetPost retrieves one post as viewerID sees it.
func (s *postService) GetPost(ctx context.Context, postID, viewerID primitive.ObjectID) (*domain.PostView, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.viewFor(ctx, post, viewerID)
}

// ListPosts retrieves every post, newest first.
func (s *postService) ListPosts(ctx context.Context, viewerID primitive.ObjectID) ([]domain.PostView, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.viewsFor(ctx, posts, viewerID)
}

// ListUserPosts retrieves the posts written by userID, newest first.
func (s *postService) ListUserPosts(ctx context.Context, userID, viewerID primitive.ObjectID) ([]domain.PostView, error) {
	posts, err := s.postRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.viewsFor(ctx, posts, viewerID)
}

// UpdatePost replaces the text of a post. Only the author may do this.
func (s *postService) UpdatePost(ctx context.Context, postID, requesterID primitive.ObjectID, text string) (*domain.PostView, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !domain.Owns(requesterID, post) {
		return nil, ErrForbidden
	}

	text = strings.TrimSpace(text)
	if text == "" && len(post.Images) == 0 && post.Video == nil {
		return nil, validationError("post text is required when no media is attached")
	}

	if err := s.postRepo.UpdateText(ctx, postID, text); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	s.invalidate(ctx, postID)

	post.Text = text
	post.UpdatedAt = time.Now().UTC()
	return s.viewFor(ctx, post, requesterID)
}

// DeletePost removes the post with its comments and likes in one transaction. Media files are
// deleted after the commit; failures there are logged and ignored.
func (s *postService) DeletePost(ctx context.Context, postID, requesterID primitive.ObjectID) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if !domain.Owns(requesterID, post) {
		return ErrForbidden
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.commentRepo.DeleteByPost(ctx, postID); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := s.likeRepo.DeleteByPost(ctx, postID); err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		return s.postRepo.Delete(ctx, postID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	s.removeMedia(post)
	s.invalidate(ctx, postID)
	s.logger.Info("post deleted", "postId", postID.Hex(), "userId", requesterID.Hex())
	s.publish(ctx, events.SubjectPostDeleted, events.PostDeletedEvent{
		PostID:    postID.Hex(),
		AuthorID:  post.UserID.Hex(),
		Timestamp: events.Timestamp(time.Now()),
	})
	return nil
}

// === Likes ===

// Like records that userID likes the post. Liking twice is a no-op.
func (s *postService) Like(ctx context.Context, postID, userID primitive.ObjectID) (*domain.PostView, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.likeRepo.Add(ctx, postID, userID); err != nil {
		return nil, err
	}
	s.invalidate(ctx, postID)

	view, err := s.viewFor(ctx, post, userID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.SubjectPostLiked, events.PostLikedEvent{
		PostID:    postID.Hex(),
		UserID:    userID.Hex(),
		Likes:     view.LikesCount,
		Timestamp: events.Timestamp(time.Now()),
	})
	return view, nil
}

// Unlike removes userID's like. Unliking a post that is not liked is a no-op.
func (s *postService) Unlike(ctx context.Context, postID, userID primitive.ObjectID) (*domain.PostView, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.likeRepo.Remove(ctx, postID, userID); err != nil {
		return nil, err
	}
	s.invalidate(ctx, postID)
	return s.viewFor(ctx, post, userID)
}

// === Helpers ===

func (s *postService) getPost(ctx context.Context, postID primitive.ObjectID) (*domain.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) viewFor(ctx context.Context, post *domain.Post, viewerID primitive.ObjectID) (*domain.PostView, error) {
	views, err := s.viewsFor(ctx, []domain.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// viewsFor builds the views for posts. The viewer-independent part comes from the cache when
// possible; LikedByCurrentUser is always looked up.
//
// On a miss the cache version is taken before the post and its counts are re-read, so a write
// that lands while the view is being built makes the cache drop it instead of storing stale
// counts.
func (s *postService) viewsFor(ctx context.Context, posts []domain.Post, viewerID primitive.ObjectID) ([]domain.PostView, error) {
	views := make([]domain.PostView, len(posts))
	var misses []int
	for i := range posts {
		cached, err := s.cache.Get(ctx, posts[i].ID)
		if err != nil {
			if !errors.Is(err, cache.ErrMiss) {
				s.logger.Warn("post cache read failed", "postId", posts[i].ID.Hex(), "error", err)
			}
			misses = append(misses, i)
			continue
		}
		views[i] = *cached
	}

	if len(misses) > 0 {
		versions := make(map[primitive.ObjectID]int64, len(misses))
		fresh := make([]domain.Post, 0, len(misses))
		for _, i := range misses {
			post := posts[i]
			version, err := s.cache.Version(ctx, post.ID)
			if err != nil {
				s.logger.Warn("post cache version read failed", "postId", post.ID.Hex(), "error", err)
				version = -1
			}
			reloaded, err := s.postRepo.GetByID(ctx, post.ID)
			switch {
			case err == nil:
				post = *reloaded
			case errors.Is(err, repository.ErrNotFound):
				// Deleted meanwhile; answer with what was loaded but do not cache it.
				version = -1
			default:
				return nil, err
			}
			versions[post.ID] = version
			fresh = append(fresh, post)
		}

		authorIDs := make([]primitive.ObjectID, 0, len(fresh))
		for i := range fresh {
			authorIDs = append(authorIDs, fresh[i].UserID)
		}
		authors, err := s.summaries(ctx, authorIDs)
		if err != nil {
			return nil, err
		}
		for n, i := range misses {
			post := &fresh[n]
			likes, err := s.likeRepo.CountByPost(ctx, post.ID)
			if err != nil {
				return nil, err
			}
			comments, err := s.commentRepo.CountByPost(ctx, post.ID)
			if err != nil {
				return nil, err
			}
			views[i] = newPostView(post, authors[post.UserID], likes, comments)
			if version := versions[post.ID]; version >= 0 {
				if err := s.cache.Set(ctx, &views[i], version); err != nil {
					s.logger.Warn("post cache write failed", "postId", post.ID.Hex(), "error", err)
				}
			}
		}
	}

	for i := range views {
		liked, err := s.likeRepo.Exists(ctx, views[i].ID, viewerID)
		if err != nil {
			return nil, err
		}
		views[i].LikedByCurrentUser = liked
	}
	return views, nil
}

// summaries resolves user IDs to public summaries. Users that no longer exist keep just their ID.
func (s *postService) summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.UserSummary, error) {
	unique := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]domain.UserSummary, len(unique))
	for _, id := range unique {
		out[id] = domain.UserSummary{ID: id}
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out, nil
}

func newPostView(post *domain.Post, author domain.UserSummary, likes, comments int64) domain.PostView {
	images := post.Images
	if images == nil {
		images = []domain.PostImage{}
	}
	return domain.PostView{
		ID:            post.ID,
		Text:          post.Text,
		User:          author,
		Images:        images,
		Video:         post.Video,
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
		LikesCount:    likes,
		CommentsCount: comments,
	}
}

// removeMedia deletes every file the post references. Failures are logged only.
func (s *postService) removeMedia(post *domain.Post) {
	ctx := context.Background()
	for _, img := range post.Images {
		if err := s.media.Delete(ctx, storage.CategoryImages, img.FileName); err != nil {
			s.logger.Warn("failed to delete post image", "postId", post.ID.Hex(), "name", img.FileName, "error", err)
		}
	}
	if post.Video != nil {
		if err := s.media.Delete(ctx, storage.CategoryVideos, post.Video.FileName); err != nil {
			s.logger.Warn("failed to delete post video", "postId", post.ID.Hex(), "name", post.Video.FileName, "error", err)
		}
	}
}

func (s *postService) invalidate(ctx context.Context, postID primitive.ObjectID) {
	if err := s.cache.Invalidate(ctx, postID); err != nil {
		s.logger.Warn("post cache invalidation failed", "postId", postID.Hex(), "error", err)
	}
}

func (s *postService) publish(ctx context.Context, subject string, event any) {
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}

func nonEmpty(files []MediaFile) []MediaFile {
	out := make([]MediaFile, 0, len(files))
	for _, f := range files {
		if f.Size > 0 && f.Content != nil {
			out = append(out, f)
		}
	}
	return out
}
