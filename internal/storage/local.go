package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// localStorage implements Gateway on the local filesystem: <root>/<category>/<name>.
type localStorage struct {
	root   string
	logger *slog.Logger
}

// NewLocalStorage creates the category directories under root and returns a Gateway.
func NewLocalStorage(root string, logger *slog.Logger) (Gateway, error) {
	for _, category := range []string{CategoryImages, CategoryVideos} {
		if err := os.MkdirAll(filepath.Join(root, category), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", category, err)
		}
	}
	logger.Info("local storage initialized", "root", root)
	return &localStorage{root: root, logger: logger}, nil
}

func (s *localStorage) Store(ctx context.Context, category, originalName, contentType string, r io.Reader) (string, error) {
	if !ValidCategory(category) {
		return "", ErrInvalidCategory
	}
	name := GenerateName(originalName)
	target := filepath.Join(s.root, category, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err = f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	s.logger.Debug("stored object", "category", category, "name", name, "contentType", contentType)
	return name, nil
}

func (s *localStorage) Open(ctx context.Context, category, name string) (io.ReadCloser, ObjectInfo, error) {
	if !ValidCategory(category) {
		return nil, ObjectInfo{}, ErrInvalidCategory
	}
	if !validName(name) {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}

	f, err := os.Open(filepath.Join(s.root, category, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	return f, ObjectInfo{Name: name, Size: st.Size(), ContentType: ContentTypeFor(category, name)}, nil
}

func (s *localStorage) Delete(ctx context.Context, category, name string) error {
	if !ValidCategory(category) {
		return ErrInvalidCategory
	}
	if !validName(name) {
		return ErrObjectNotFound
	}
	err := os.Remove(filepath.Join(s.root, category, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		s.logger.Error("failed to delete object", "category", category, "name", name, "error", err)
		return err
	}
	s.logger.Info("deleted object", "category", category, "name", name)
	return nil
}
