package api

import (
	"bytes"
	"context"
	"encoding/json"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/metrics"
	"gymhub/social-fitness/internal/service"
	"gymhub/social-fitness/internal/storage"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const validToken = "valid-token"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// --- stubs ---

type stubAuth struct {
	user        *domain.User
	registerErr error
}

func (s *stubAuth) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &domain.User{ID: primitive.NewObjectID(), Username: in.Username, Email: in.Email}, nil
}

func (s *stubAuth) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username != s.user.Username || password != "secret1" {
		return "", nil, service.ErrAuthenticationFailed
	}
	return validToken, s.user, nil
}

func (s *stubAuth) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	if token != validToken {
		return nil, service.ErrUnauthenticated
	}
	return s.user, nil
}

// stubPosts implements only what the tests call; anything else panics on the nil interface.
type stubPosts struct {
	service.PostService
	created     *service.CreatePostInput
	imageBodies []string
	getErr      error
}

func (s *stubPosts) CreatePost(ctx context.Context, authorID primitive.ObjectID, in service.CreatePostInput) (*domain.PostView, error) {
	s.created = &in
	for _, img := range in.Images {
		b, err := io.ReadAll(img.Content)
		if err != nil {
			return nil, err
		}
		s.imageBodies = append(s.imageBodies, string(b))
	}
	return &domain.PostView{ID: primitive.NewObjectID(), Text: in.Text}, nil
}

func (s *stubPosts) GetPost(ctx context.Context, postID, viewerID primitive.ObjectID) (*domain.PostView, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &domain.PostView{ID: postID}, nil
}

type stubProgress struct {
	service.ProgressService
	recorded []float64
}

func (s *stubProgress) AddHistory(ctx context.Context, goalID, requesterID primitive.ObjectID, value float64, notes string) (*domain.ProgressHistory, error) {
	s.recorded = append(s.recorded, value)
	return &domain.ProgressHistory{ID: primitive.NewObjectID(), ProgressID: goalID, MeasurementValue: value, Notes: notes}, nil
}

type testServer struct {
	router   *gin.Engine
	auth     *stubAuth
	posts    *stubPosts
	progress *stubProgress
	media    storage.Gateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	media, err := storage.NewLocalStorage(t.TempDir(), logger)
	require.NoError(t, err)

	ts := &testServer{
		auth:     &stubAuth{user: &domain.User{ID: primitive.NewObjectID(), Username: "alice", Email: "alice@example.com"}},
		posts:    &stubPosts{},
		progress: &stubProgress{},
		media:    media,
	}
	ts.router = NewRouter(RouterConfig{CORSOrigins: []string{"*"}, MaxUploadBytes: 1 << 20}, Services{
		Auth:     ts.auth,
		Posts:    ts.posts,
		Progress: ts.progress,
		Media:    media,
	}, metrics.New(), logger)
	return ts
}

func (ts *testServer) do(req *http.Request, authed bool) *httptest.ResponseRecorder {
	if authed {
		req.Header.Set("Authorization", "Bearer "+validToken)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

// --- tests ---

func TestPing(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(httptest.NewRequest(http.MethodGet, "/ping", nil), false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authorization header is missing", errorMessage(t, w))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = ts.do(req, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = ts.do(req, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", errorMessage(t, w))

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestSignupAndSignin(t *testing.T) {
	ts := newTestServer(t)

	signup := map[string]string{"username": "bobby", "email": "bob@example.com", "password": "secret1"}
	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/auth/signup", signup), false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"User registered successfully!"}`, w.Body.String())

	ts.auth.registerErr = service.ErrUsernameTaken
	w = ts.do(jsonRequest(t, http.MethodPost, "/api/v1/auth/signup", signup), false)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Error: Username is already taken!", errorMessage(t, w))

	w = ts.do(jsonRequest(t, http.MethodPost, "/api/v1/auth/signup", map[string]string{"username": "b"}), false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(jsonRequest(t, http.MethodPost, "/api/v1/auth/signin", map[string]string{"username": "alice", "password": "wrong"}), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(jsonRequest(t, http.MethodPost, "/api/v1/auth/signin", map[string]string{"username": "alice", "password": "secret1"}), false)
	require.Equal(t, http.StatusOK, w.Code)
	var resp SigninResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, validToken, resp.Token)
	assert.Equal(t, "Bearer", resp.Type)
	assert.Equal(t, ts.auth.user.ID.Hex(), resp.ID)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	url := "/api/v1/posts/" + primitive.NewObjectID().Hex()

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/not-an-id", nil), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id format", errorMessage(t, w))

	cases := []struct {
		err    error
		status int
	}{
		{service.ErrPostNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrValidation, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		ts.posts.getErr = tc.err
		w = ts.do(httptest.NewRequest(http.MethodGet, url, nil), true)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
	assert.Equal(t, "internal server error", errorMessage(t, w))
}

func TestCreatePostMultipart(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "leg day"))
	for _, name := range []string{"a.png", "b.jpg"} {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	part, err := mw.CreateFormFile("video", "clip.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("video"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := ts.do(req, true)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, ts.posts.created)
	assert.Equal(t, "leg day", ts.posts.created.Text)
	require.Len(t, ts.posts.created.Images, 2)
	assert.Equal(t, "a.png", ts.posts.created.Images[0].FileName)
	assert.Equal(t, []string{"content of a.png", "content of b.jpg"}, ts.posts.imageBodies)
	require.NotNil(t, ts.posts.created.Video)
	assert.Equal(t, "clip.mp4", ts.posts.created.Video.FileName)
}

func TestCreatePostJSON(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/posts", map[string]string{"text": "hello"}), true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "hello", ts.posts.created.Text)
	assert.Empty(t, ts.posts.created.Images)
	assert.Nil(t, ts.posts.created.Video)
}

func TestCreatePostTooLarge(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("images", "big.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := ts.do(req, true)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, ts.posts.created)
}

func TestServeFile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/images/missing.png", nil), false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	name, err := ts.media.Store(context.Background(), storage.CategoryImages, "photo.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/images/"+name, nil), false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="`+name+`"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestAddHistoryRequiresValue(t *testing.T) {
	ts := newTestServer(t)
	url := "/api/v1/progress/" + primitive.NewObjectID().Hex() + "/history"

	w := ts.do(jsonRequest(t, http.MethodPost, url, map[string]string{"notes": "no value"}), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.progress.recorded)

	w = ts.do(jsonRequest(t, http.MethodPost, url, map[string]any{"value": 0, "notes": "zero is a value"}), true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []float64{0}, ts.progress.recorded)
}

func TestDateUnmarshal(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-01"`), &d))
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, 3, int(d.Month()))

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-01T10:00:00+02:00"`), &d))
	assert.Equal(t, 8, d.Hour())

	assert.Error(t, json.Unmarshal([]byte(`"next week"`), &d))

	var p *Date
	assert.Nil(t, p.ptr())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(httptest.NewRequest(http.MethodGet, "/ping", nil), false)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/ping",status="200"} 1`)
}

// typedGateway serves one fixed object with whatever content type it was given.
type typedGateway struct {
	storage.Gateway
	contentType string
}

func (g typedGateway) Open(ctx context.Context, category, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	return io.NopCloser(strings.NewReader("data")), storage.ObjectInfo{Name: name, Size: 4, ContentType: g.contentType}, nil
}

func TestServeFileUsesGatewayContentType(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()

	handler := NewFileHandler(typedGateway{contentType: "image/webp"}, logger)
	router.GET("/images/:name", handler.Serve(storage.CategoryImages))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/x.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/webp", w.Header().Get("Content-Type"))
	assert.Equal(t, "4", w.Header().Get("Content-Length"))

	handler = NewFileHandler(typedGateway{}, logger)
	router = gin.New()
	router.GET("/videos/:name", handler.Serve(storage.CategoryVideos))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/videos/clip.webm", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/webm", w.Header().Get("Content-Type"))
}
