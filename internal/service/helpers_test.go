package service

import (
	"context"
	"testing"
	"time"

	"witwaves/internal/cache"
	"witwaves/internal/models"
	"witwaves/internal/notifications"
	"witwaves/internal/repository"
	"witwaves/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository. Unset funcs return
// zero values.
type postRepoStub struct {
	getByIDFn      func(context.Context, string) (*models.Post, error)
	isSlugUniqueFn func(context.Context, string) (bool, error)
	createFn       func(context.Context, *models.Post) error
	updateFn       func(context.Context, string, repository.PostUpdate) error
	setArchivedFn  func(context.Context, string, bool) error
	addLikeFn      func(context.Context, string, string) (int, error)
	removeLikeFn   func(context.Context, string, string) (int, error)
	deleteFn       func(context.Context, string) error
	listFn         func(context.Context, int) ([]*models.Post, error)
	driftFn        func(context.Context) ([]repository.CounterDrift, error)
	setCountersFn  func(context.Context, string, int, int) error
}

func (s *postRepoStub) List(ctx context.Context, limit int) ([]*models.Post, error) {
	if s.listFn == nil {
		return []*models.Post{}, nil
	}
	return s.listFn(ctx, limit)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if s.getByIDFn == nil {
		return nil, models.ErrPostNotFound
	}
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetTitle(context.Context, string) (string, error) { return "", nil }
func (s *postRepoStub) GetByUserID(context.Context, string) ([]*models.Post, error) {
	return []*models.Post{}, nil
}
func (s *postRepoStub) GetByTag(context.Context, string) ([]*models.Post, error) {
	return []*models.Post{}, nil
}
func (s *postRepoStub) GetByArchive(context.Context, int, int) ([]*models.Post, error) {
	return []*models.Post{}, nil
}
func (s *postRepoStub) GetLikedByUser(context.Context, string) ([]*models.Post, error) {
	return []*models.Post{}, nil
}
func (s *postRepoStub) GetAllTags(context.Context) ([]string, error) { return []string{}, nil }
func (s *postRepoStub) GetArchivePeriods(context.Context) ([]models.ArchivePeriod, error) {
	return []models.ArchivePeriod{}, nil
}
func (s *postRepoStub) IsSlugUnique(ctx context.Context, slug string) (bool, error) {
	if s.isSlugUniqueFn == nil {
		return true, nil
	}
	return s.isSlugUniqueFn(ctx, slug)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, post)
}
func (s *postRepoStub) UpdateContent(ctx context.Context, id string, upd repository.PostUpdate) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, id, upd)
}
func (s *postRepoStub) SetArchived(ctx context.Context, id string, archived bool) error {
	if s.setArchivedFn == nil {
		return nil
	}
	return s.setArchivedFn(ctx, id, archived)
}
func (s *postRepoStub) IsLiked(context.Context, string, string) (bool, error) { return false, nil }
func (s *postRepoStub) AddLike(ctx context.Context, postID, userID string) (int, error) {
	if s.addLikeFn == nil {
		return 1, nil
	}
	return s.addLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) RemoveLike(ctx context.Context, postID, userID string) (int, error) {
	if s.removeLikeFn == nil {
		return 0, nil
	}
	return s.removeLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) FindCounterDrift(ctx context.Context) ([]repository.CounterDrift, error) {
	if s.driftFn == nil {
		return nil, nil
	}
	return s.driftFn(ctx)
}
func (s *postRepoStub) SetCounters(ctx context.Context, postID string, likes, comments int) error {
	if s.setCountersFn == nil {
		return nil
	}
	return s.setCountersFn(ctx, postID, likes, comments)
}

// ownedPostRepo returns a stub holding one post authored by userID.
func ownedPostRepo(id, userID string) *postRepoStub {
	return &postRepoStub{
		getByIDFn: func(_ context.Context, got string) (*models.Post, error) {
			if got != id {
				return nil, models.ErrPostNotFound
			}
			return &models.Post{ID: id, Title: "Owned", UserID: userID, Tags: []string{"go"}, LikedBy: []string{}, CreatedAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)}, nil
		},
	}
}

func assertValidationError(t *testing.T, res ActionResult, field string) {
	t.Helper()
	assert.False(t, res.Success)
	assert.Equal(t, models.CodeValidation, res.Code)
	assert.Contains(t, res.Errors, field)
}

func assertForbidden(t *testing.T, res ActionResult) {
	t.Helper()
	assert.False(t, res.Success)
	assert.Equal(t, models.CodeUnauthorized, res.Code)
	assert.NotEmpty(t, res.Message)
}

// testEnv wires every service over an in-memory store, object store and Redis.
type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	objects  *testutil.MemoryObjectStore
	posts    repository.PostRepository
	comments repository.CommentRepository
	images   repository.ImageRepository
	profiles repository.ProfileRepository

	postSvc    *PostService
	commentSvc *CommentService
	imageSvc   *ImageService
	profileSvc *ProfileService
	postQ      *PostQueries
	commentQ   *CommentQueries
	reconciler *Reconciler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)
	mr := miniredis.RunT(t)
	rdb, err := cache.NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	notifier := notifications.NewNotifier(rdb)
	views := cache.NewViewInvalidator(rdb, notifier)
	viewCache := cache.NewViewCache(rdb, time.Minute)

	env := &testEnv{
		db:      db,
		mr:      mr,
		rdb:     rdb,
		objects: testutil.NewMemoryObjectStore(),
	}
	env.posts = repository.NewPostRepository(db)
	env.comments = repository.NewCommentRepository(db, env.posts)
	env.images = repository.NewImageRepository(db)
	env.profiles = repository.NewProfileRepository(db)

	env.postSvc = NewPostService(env.posts, env.comments, env.objects, views, notifier)
	env.commentSvc = NewCommentService(env.comments, env.posts, views, notifier)
	env.imageSvc = NewImageService(env.images, env.objects, views)
	env.profileSvc = NewProfileService(env.profiles, views)
	env.postQ = NewPostQueries(env.posts, viewCache)
	env.commentQ = NewCommentQueries(env.comments, viewCache)
	env.reconciler = NewReconciler(env.posts, views)
	return env
}

func (e *testEnv) createPost(t *testing.T, userID, title string, tags ...string) string {
	t.Helper()
	res := e.postSvc.CreatePost(context.Background(), CreatePostInput{
		UserID:  userID,
		Title:   title,
		Content: "Some content that is long enough.",
		Tags:    tags,
	})
	require.True(t, res.Success, res.Message)
	return res.Data.(CreatedPost).PostID
}
