package api

import (
	"errors"
	"fmt"
	"gymhub/social-fitness/internal/storage"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// FileHandler streams stored media. Routes are public because media URLs are embedded in feed
// responses.
type FileHandler struct {
	media  storage.Gateway
	logger *slog.Logger
}

func NewFileHandler(media storage.Gateway, logger *slog.Logger) *FileHandler {
	return &FileHandler{media: media, logger: logger}
}

// Serve returns a handler for one media category.
func (h *FileHandler) Serve(category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		rc, info, err := h.media.Open(c.Request.Context(), category, name)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				abortWithError(c, http.StatusNotFound, "File not found")
				return
			}
			h.logger.Error("failed to open media", "category", category, "name", name, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		defer rc.Close()

		contentType := info.ContentType
		if contentType == "" {
			contentType = storage.ContentTypeFor(category, name)
		}
		c.Header("Content-Type", contentType)
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", info.Name))
		if info.Size > 0 {
			c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
		}
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil {
			h.logger.Warn("media stream interrupted", "category", category, "name", name, "error", err)
		}
	}
}
