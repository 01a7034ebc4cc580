package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) (Gateway, string) {
	t.Helper()
	root := t.TempDir()
	gw, err := NewLocalStorage(root, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return gw, root
}

func TestLocalStorageRoundTrip(t *testing.T) {
	gw, root := newTestLocal(t)
	ctx := context.Background()

	name, err := gw.Store(ctx, CategoryImages, "Holiday.PNG", "image/png", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotContains(t, name, "Holiday")

	rc, info, err := gw.Open(ctx, CategoryImages, name)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(body))
	assert.Equal(t, int64(6), info.Size)
	assert.Equal(t, "image/png", info.ContentType)

	_, err = os.Stat(filepath.Join(root, CategoryImages, name))
	require.NoError(t, err)

	require.NoError(t, gw.Delete(ctx, CategoryImages, name))
	_, _, err = gw.Open(ctx, CategoryImages, name)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorageNamesAreUnique(t *testing.T) {
	gw, _ := newTestLocal(t)
	ctx := context.Background()

	a, err := gw.Store(ctx, CategoryVideos, "clip.mp4", "video/mp4", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := gw.Store(ctx, CategoryVideos, "clip.mp4", "video/mp4", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocalStorageRejectsBadInput(t *testing.T) {
	gw, root := newTestLocal(t)
	ctx := context.Background()

	_, err := gw.Store(ctx, "documents", "a.txt", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidCategory)

	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("s"), 0o600))

	for _, name := range []string{"../secret.txt", "..", "", `..\secret.txt`, "a/b.png"} {
		_, _, err = gw.Open(ctx, CategoryImages, name)
		assert.ErrorIs(t, err, ErrObjectNotFound, name)
	}

	name, err := gw.Store(ctx, CategoryImages, "../../evil.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, CategoryImages, name))
	assert.NoError(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeFor(CategoryImages, "a.JPG"))
	assert.Equal(t, "image/webp", ContentTypeFor(CategoryImages, "a.webp"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor(CategoryImages, "a.bmp"))
	assert.Equal(t, "video/webm", ContentTypeFor(CategoryVideos, "a.webm"))
	assert.Equal(t, "video/quicktime", ContentTypeFor(CategoryVideos, "a.mov"))
	assert.Equal(t, "video/mp4", ContentTypeFor(CategoryVideos, "a.avi"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "/api/v1/files/images/x.png", PublicURL("/api/v1/files", CategoryImages, "x.png"))
	assert.Equal(t, "/media/videos/y.mp4", PublicURL("media/", CategoryVideos, "y.mp4"))
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://minio:9000", endpointURL("minio:9000", true))
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000", false))
	assert.Equal(t, "http://minio:9000", endpointURL("http://minio:9000", true))
	assert.Equal(t, "", endpointURL("", true))
}
