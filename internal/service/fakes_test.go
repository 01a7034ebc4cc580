package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gymhub/social-fitness/internal/cache"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/repository"
	"gymhub/social-fitness/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory stand-ins for the repositories, the media gateway and the event publisher.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type inlineTransactor struct{ calls int }

func (t *inlineTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) add(username string) domain.User {
	u := domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x", FullName: username}
	_, _ = r.Create(context.Background(), &u)
	return u
}

// --- posts, likes, comments ---

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]domain.Post
	seq   int
	fail  error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[primitive.ObjectID]domain.Post{}}
}

func (r *fakePostRepo) Create(_ context.Context, post *domain.Post) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return primitive.NilObjectID, r.fail
	}
	r.seq++
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	post.UpdatedAt = post.CreatedAt
	for i := range post.Images {
		post.Images[i].ID = primitive.NewObjectID()
	}
	if post.Video != nil {
		post.Video.ID = primitive.NewObjectID()
	}
	r.posts[post.ID] = *post
	return post.ID, nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakePostRepo) list(match func(domain.Post) bool) []domain.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Post{}
	for _, p := range r.posts {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakePostRepo) List(_ context.Context) ([]domain.Post, error) {
	return r.list(func(domain.Post) bool { return true }), nil
}

func (r *fakePostRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.Post, error) {
	return r.list(func(p domain.Post) bool { return p.UserID == userID }), nil
}

func (r *fakePostRepo) UpdateText(_ context.Context, id primitive.ObjectID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Text = text
	p.UpdatedAt = time.Now().UTC()
	r.posts[id] = p
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

type likeKey struct{ post, user primitive.ObjectID }

type fakeLikeRepo struct {
	mu    sync.Mutex
	likes map[likeKey]bool
}

func newFakeLikeRepo() *fakeLikeRepo { return &fakeLikeRepo{likes: map[likeKey]bool{}} }

func (r *fakeLikeRepo) Add(_ context.Context, postID, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.likes[likeKey{postID, userID}] = true
	return nil
}

func (r *fakeLikeRepo) Remove(_ context.Context, postID, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.likes, likeKey{postID, userID})
	return nil
}

func (r *fakeLikeRepo) Exists(_ context.Context, postID, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.likes[likeKey{postID, userID}], nil
}

func (r *fakeLikeRepo) CountByPost(_ context.Context, postID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.likes {
		if k.post == postID {
			n++
		}
	}
	return n, nil
}

func (r *fakeLikeRepo) DeleteByPost(_ context.Context, postID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.likes {
		if k.post == postID {
			delete(r.likes, k)
		}
	}
	return nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[primitive.ObjectID]domain.Comment
	seq      int
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: map[primitive.ObjectID]domain.Comment{}}
}

func (r *fakeCommentRepo) Create(_ context.Context, c *domain.Comment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	c.UpdatedAt = c.CreatedAt
	r.comments[c.ID] = *c
	return c.ID, nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCommentRepo) ListByPost(_ context.Context, postID primitive.ObjectID) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Comment{}
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCommentRepo) UpdateText(_ context.Context, id primitive.ObjectID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Text = text
	r.comments[id] = c
	return nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}

func (r *fakeCommentRepo) CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	list, _ := r.ListByPost(ctx, postID)
	return int64(len(list)), nil
}

func (r *fakeCommentRepo) DeleteByPost(_ context.Context, postID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.comments {
		if c.PostID == postID {
			delete(r.comments, id)
		}
	}
	return nil
}

// --- workout ---

type fakeScheduleRepo struct {
	mu        sync.Mutex
	schedules map[primitive.ObjectID]domain.WorkoutSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: map[primitive.ObjectID]domain.WorkoutSchedule{}}
}

func (r *fakeScheduleRepo) Create(_ context.Context, s *domain.WorkoutSchedule) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = primitive.NewObjectID()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	stored := *s
	stored.Exercises = nil
	r.schedules[s.ID] = stored
	return s.ID, nil
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *fakeScheduleRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.WorkoutSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.WorkoutSchedule{}
	for _, s := range r.schedules {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Update(_ context.Context, s *domain.WorkoutSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[s.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *s
	stored.Exercises = nil
	r.schedules[s.ID] = stored
	return nil
}

func (r *fakeScheduleRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.schedules, id)
	return nil
}

type fakeExerciseRepo struct {
	mu        sync.Mutex
	exercises map[primitive.ObjectID]domain.Exercise
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{exercises: map[primitive.ObjectID]domain.Exercise{}}
}

func (r *fakeExerciseRepo) Create(_ context.Context, e *domain.Exercise) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = primitive.NewObjectID()
	r.exercises[e.ID] = *e
	return e.ID, nil
}

func (r *fakeExerciseRepo) ListBySchedule(_ context.Context, scheduleID primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Exercise{}
	for _, e := range r.exercises {
		if e.ScheduleID == scheduleID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeExerciseRepo) ToggleCompleted(_ context.Context, scheduleID, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exercises[exerciseID]
	if !ok || e.ScheduleID != scheduleID {
		return nil, repository.ErrNotFound
	}
	e.Completed = !e.Completed
	r.exercises[exerciseID] = e
	return &e, nil
}

func (r *fakeExerciseRepo) DeleteBySchedule(_ context.Context, scheduleID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.exercises {
		if e.ScheduleID == scheduleID {
			delete(r.exercises, id)
		}
	}
	return nil
}

// --- progress ---

type fakeProgressRepo struct {
	mu    sync.Mutex
	goals map[primitive.ObjectID]domain.Progress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{goals: map[primitive.ObjectID]domain.Progress{}}
}

func (r *fakeProgressRepo) Create(_ context.Context, g *domain.Progress) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.ID = primitive.NewObjectID()
	g.UpdatedAt = time.Now().UTC()
	r.goals[g.ID] = *g
	return g.ID, nil
}

func (r *fakeProgressRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (r *fakeProgressRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Progress{}
	for _, g := range r.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) Update(_ context.Context, g *domain.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.goals[g.ID]; !ok {
		return repository.ErrNotFound
	}
	r.goals[g.ID] = *g
	return nil
}

func (r *fakeProgressRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.goals[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.goals, id)
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.ProgressHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, e *domain.ProgressHistory) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = primitive.NewObjectID()
	r.entries = append(r.entries, *e)
	return e.ID, nil
}

// ListByProgress returns newest first; insertion order breaks timestamp ties.
func (r *fakeHistoryRepo) ListByProgress(_ context.Context, progressID primitive.ObjectID) ([]domain.ProgressHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ProgressHistory{}
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].ProgressID == progressID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) DeleteByProgress(_ context.Context, progressID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.ProgressID != progressID {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

// --- media and events ---

type fakeGateway struct {
	mu      sync.Mutex
	objects map[string][]byte // "<category>/<name>"
	seq     int
}

func newFakeGateway() *fakeGateway { return &fakeGateway{objects: map[string][]byte{}} }

func (g *fakeGateway) Store(_ context.Context, category, originalName, _ string, r io.Reader) (string, error) {
	if !storage.ValidCategory(category) {
		return "", storage.ErrInvalidCategory
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	name := storage.GenerateName(originalName)
	g.objects[category+"/"+name] = data
	return name, nil
}

func (g *fakeGateway) Open(_ context.Context, category, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.objects[category+"/"+name]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Name: name, Size: int64(len(data))}, nil
}

func (g *fakeGateway) Delete(_ context.Context, category, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := category + "/" + name
	if _, ok := g.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(g.objects, key)
	return nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.objects)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() {}

// memoryPostCache follows the versioning contract of cache.PostCache. beforeSet, when set, runs
// once just before the next Set checks its version, which lets a test interleave a write.
type memoryPostCache struct {
	mu            sync.Mutex
	views         map[primitive.ObjectID]domain.PostView
	versions      map[primitive.ObjectID]int64
	hits          int
	skipped       int
	invalidations int
	beforeSet     func()
}

func newMemoryPostCache() *memoryPostCache {
	return &memoryPostCache{
		views:    map[primitive.ObjectID]domain.PostView{},
		versions: map[primitive.ObjectID]int64{},
	}
}

func (c *memoryPostCache) Get(_ context.Context, postID primitive.ObjectID) (*domain.PostView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[postID]
	if !ok {
		return nil, cache.ErrMiss
	}
	c.hits++
	v.LikedByCurrentUser = false
	return &v, nil
}

func (c *memoryPostCache) Version(_ context.Context, postID primitive.ObjectID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[postID], nil
}

func (c *memoryPostCache) Set(_ context.Context, view *domain.PostView, version int64) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[view.ID] != version {
		c.skipped++
		return nil
	}
	stored := *view
	stored.LikedByCurrentUser = false
	c.views[view.ID] = stored
	return nil
}

func (c *memoryPostCache) Invalidate(_ context.Context, postID primitive.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[postID]++
	c.invalidations++
	delete(c.views, postID)
	return nil
}

func (c *memoryPostCache) cached(postID primitive.ObjectID) (domain.PostView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[postID]
	return v, ok
}
