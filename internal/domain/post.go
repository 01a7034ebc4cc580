package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// MaxPostImages is how many images a single post keeps; extra uploads are dropped.
	MaxPostImages = 3
	// DefaultVideoDuration is recorded for uploaded videos, in seconds.
	DefaultVideoDuration = 30
)

// Post is a feed entry. Media metadata is embedded so it is written together with the post;
// likes and comments live in their own collections and reference the post by ID.
type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"` // Author
	Text      string             `bson:"text" json:"text"`
	Images    []PostImage        `bson:"images,omitempty" json:"images,omitempty"`
	Video     *PostVideo         `bson:"video,omitempty" json:"video,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OwnerID implements Owned.
func (p *Post) OwnerID() primitive.ObjectID {
	if p == nil {
		return primitive.NilObjectID
	}
	return p.UserID
}

// PostImage points at an image stored by the media gateway.
type PostImage struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FileName string             `bson:"fileName" json:"fileName"` // Generated storage name
	FileType string             `bson:"fileType" json:"fileType"` // MIME type reported on upload
	URL      string             `bson:"url" json:"url"`
}

// PostVideo points at the single video a post may carry.
type PostVideo struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FileName  string             `bson:"fileName" json:"fileName"`
	FileType  string             `bson:"fileType" json:"fileType"`
	URL       string             `bson:"url" json:"url"`
	Duration  int                `bson:"duration" json:"duration"` // Seconds
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// PostLike records that a user liked a post. (postId, userId) is unique.
type PostLike struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Comment is a reply on a post. Only its author may edit it; the author or the post owner may
// delete it.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OwnerID implements Owned.
func (c *Comment) OwnerID() primitive.ObjectID {
	if c == nil {
		return primitive.NilObjectID
	}
	return c.UserID
}

// PostView is a post as a particular viewer sees it.
type PostView struct {
	ID                 primitive.ObjectID `json:"id"`
	Text               string             `json:"text"`
	User               UserSummary        `json:"user"`
	Images             []PostImage        `json:"images"`
	Video              *PostVideo         `json:"video,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	LikesCount         int64              `json:"likesCount"`
	CommentsCount      int64              `json:"commentsCount"`
	LikedByCurrentUser bool               `json:"likedByCurrentUser"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	PostID    primitive.ObjectID `json:"postId"`
	Text      string             `json:"text"`
	User      UserSummary        `json:"user"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
