package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Media categories. Each maps to its own directory (local) or key prefix (S3).
const (
	CategoryImages = "images"
	CategoryVideos = "videos"
)

// Error constants for storage layer
var (
	ErrInvalidCategory = errors.New("invalid media category")
	ErrObjectNotFound  = errors.New("object not found in storage")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
}

// Gateway defines the interface for media storage operations.
type Gateway interface {
	// Store writes the content of r under a freshly generated name and returns that name.
	// Only the extension of originalName is kept.
	Store(ctx context.Context, category, originalName, contentType string, r io.Reader) (string, error)

	// Open returns the stored object. The caller closes the reader.
	Open(ctx context.Context, category, name string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes an object. Callers treat failures as best effort.
	Delete(ctx context.Context, category, name string) error
}

// ValidCategory reports whether category is a known media category.
func ValidCategory(category string) bool {
	return category == CategoryImages || category == CategoryVideos
}

// GenerateName returns a collision-free object name that keeps only the lowercased extension
// of originalName.
func GenerateName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// validName rejects anything that could escape the category directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// PublicURL is the URL under which the files endpoint serves an object.
func PublicURL(publicPath, category, name string) string {
	return path.Join("/", publicPath, category, name)
}

// ContentTypeFor infers a MIME type from the object name's extension.
func ContentTypeFor(category, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if category == CategoryVideos {
		switch ext {
		case ".webm":
			return "video/webm"
		case ".mov":
			return "video/quicktime"
		default:
			return "video/mp4"
		}
	}
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
