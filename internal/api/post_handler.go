package api

import (
	"errors"
	"gymhub/social-fitness/internal/service"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// PostHandler serves posts, likes and comments.
type PostHandler struct {
	errorResponder
	postService    service.PostService
	maxUploadBytes int64
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(postService service.PostService, maxUploadBytes int64, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		errorResponder: errorResponder{logger: logger},
		postService:    postService,
		maxUploadBytes: maxUploadBytes,
	}
}

// --- DTOs ---

type PostTextRequest struct {
	Text string `json:"text"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreatePost godoc
// @Summary Create a post
// @Description multipart/form-data with text, up to 3 images and one video; a JSON body {text} is accepted too.
// @Tags Posts
// @Accept mpfd,json
// @Produce json
// @Success 201 {object} domain.PostView
// @Router /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var in service.CreatePostInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if h.maxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
		}
		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
				abortWithError(c, http.StatusRequestEntityTooLarge, "Upload too large")
				return
			}
			abortWithError(c, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
			return
		}
		if texts := form.Value["text"]; len(texts) > 0 {
			in.Text = texts[0]
		}

		var closers []io.Closer
		defer func() {
			for _, cl := range closers {
				cl.Close()
			}
		}()
		open := func(fh *multipart.FileHeader) (service.MediaFile, bool) {
			f, err := fh.Open()
			if err != nil {
				abortWithError(c, http.StatusBadRequest, "Could not read uploaded file "+fh.Filename)
				return service.MediaFile{}, false
			}
			closers = append(closers, f)
			return service.MediaFile{
				FileName:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Content:     f,
			}, true
		}

		for _, fh := range form.File["images"] {
			mf, ok := open(fh)
			if !ok {
				return
			}
			in.Images = append(in.Images, mf)
		}
		if videos := form.File["video"]; len(videos) > 0 {
			mf, ok := open(videos[0])
			if !ok {
				return
			}
			in.Video = &mf
		}
	} else {
		var req PostTextRequest
		if !bindJSON(c, &req) {
			return
		}
		in.Text = req.Text
	}

	view, err := h.postService.CreatePost(c.Request.Context(), userID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListPosts returns the whole feed, newest first.
func (h *PostHandler) ListPosts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	views, err := h.postService.ListPosts(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListUserPosts returns the posts of one author, newest first.
func (h *PostHandler) ListUserPosts(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		return
	}
	authorID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	views, err := h.postService.ListUserPosts(c.Request.Context(), authorID, viewerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.postService.GetPost(c.Request.Context(), postID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req PostTextRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.postService.UpdatePost(c.Request.Context(), postID, userID, req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.postService.DeletePost(c.Request.Context(), postID, userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) LikePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.postService.Like(c.Request.Context(), postID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PostHandler) UnlikePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.postService.Unlike(c.Request.Context(), postID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// === Comments ===

func (h *PostHandler) ListComments(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	views, err := h.postService.ListComments(c.Request.Context(), postID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *PostHandler) AddComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.postService.AddComment(c.Request.Context(), postID, userID, req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *PostHandler) UpdateComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := parseIDParam(c, "commentId")
	if !ok {
		return
	}
	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.postService.UpdateComment(c.Request.Context(), postID, commentID, userID, req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := parseIDParam(c, "commentId")
	if !ok {
		return
	}
	if err := h.postService.DeleteComment(c.Request.Context(), postID, commentID, userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
