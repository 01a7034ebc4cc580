package service

import (
	"context"
	"errors"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/events"
	"gymhub/social-fitness/internal/repository"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListComments retrieves the comments of a post, oldest first.
func (s *postService) ListComments(ctx context.Context, postID primitive.ObjectID) ([]domain.CommentView, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]primitive.ObjectID, len(comments))
	for i := range comments {
		authorIDs[i] = comments[i].UserID
	}
	authors, err := s.summaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.CommentView, len(comments))
	for i := range comments {
		views[i] = newCommentView(&comments[i], authors[comments[i].UserID])
	}
	return views, nil
}

// AddComment adds a comment by authorID to the post.
func (s *postService) AddComment(ctx context.Context, postID, authorID primitive.ObjectID, text string) (*domain.CommentView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("comment text is required")
	}
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{PostID: postID, UserID: authorID, Text: text}
	if _, err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.invalidate(ctx, postID)

	s.publish(ctx, events.SubjectCommentCreated, events.CommentCreatedEvent{
		CommentID: comment.ID.Hex(),
		PostID:    postID.Hex(),
		AuthorID:  authorID.Hex(),
		Timestamp: events.Timestamp(comment.CreatedAt),
	})

	authors, err := s.summaries(ctx, []primitive.ObjectID{authorID})
	if err != nil {
		return nil, err
	}
	view := newCommentView(comment, authors[authorID])
	return &view, nil
}

// UpdateComment replaces the text of a comment. Only its author may do this.
func (s *postService) UpdateComment(ctx context.Context, postID, commentID, requesterID primitive.ObjectID, text string) (*domain.CommentView, error) {
	comment, err := s.getComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if !domain.Owns(requesterID, comment) {
		return nil, ErrForbidden
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("comment text is required")
	}
	if err := s.commentRepo.UpdateText(ctx, commentID, text); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	comment.Text = text
	comment.UpdatedAt = time.Now().UTC()
	authors, err := s.summaries(ctx, []primitive.ObjectID{comment.UserID})
	if err != nil {
		return nil, err
	}
	view := newCommentView(comment, authors[comment.UserID])
	return &view, nil
}

// DeleteComment removes a comment. Its author and the owner of the post may do this.
func (s *postService) DeleteComment(ctx context.Context, postID, commentID, requesterID primitive.ObjectID) error {
	comment, err := s.getComment(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if !domain.Owns(requesterID, comment) {
		post, err := s.getPost(ctx, postID)
		if err != nil {
			return err
		}
		if !domain.Owns(requesterID, post) {
			return ErrForbidden
		}
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	s.invalidate(ctx, postID)
	return nil
}

// getComment loads a comment and checks it belongs to postID.
func (s *postService) getComment(ctx context.Context, postID, commentID primitive.ObjectID) (*domain.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if comment.PostID != postID {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func newCommentView(c *domain.Comment, author domain.UserSummary) domain.CommentView {
	return domain.CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Text:      c.Text,
		User:      author,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
