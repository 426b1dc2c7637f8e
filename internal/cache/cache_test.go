package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"witwaves/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestViewKeys(t *testing.T) {
	assert.Equal(t, "post:hello-world", PostKey("hello-world"))
	assert.Equal(t, "post:hello-world:comments", PostCommentsKey("hello-world"))
	assert.Equal(t, "tag:go", TagKey("go"))
	assert.Equal(t, "archive:2024-01", ArchiveKey(2024, 0))
	assert.Equal(t, "archive:2023-12", ArchiveKey(2023, 11))
	assert.Equal(t, "user:u1", UserKey("u1"))
	assert.Equal(t, "user:u1:liked", UserLikedKey("u1"))
	assert.Equal(t, "user:u1:comments", UserCommentsKey("u1"))
}

func TestViewKind(t *testing.T) {
	assert.Equal(t, "posts", viewKind("posts"))
	assert.Equal(t, "post", viewKind("post:abc"))
	assert.Equal(t, "post_comments", viewKind("post:abc:comments"))
	assert.Equal(t, "user_liked", viewKind("user:u:liked"))
}

func TestKeys_Dedup(t *testing.T) {
	var k Keys
	k.Add(PostsKey, TagKey("go"), "", PostsKey).Add(TagKey("go"), TagsKey)
	assert.Equal(t, []string{"posts", "tag:go", "tags"}, k.List())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("redis://%zz")
	assert.Error(t, err)
}

func TestViewCache_AsideMissThenHit(t *testing.T) {
	mr, rdb := setupRedis(t)
	vc := NewViewCache(rdb, time.Minute)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]string) func() error {
		return func() error {
			calls++
			*dest = []string{"go", "rust"}
			return nil
		}
	}

	var first []string
	require.NoError(t, vc.Aside(ctx, TagsKey, &first, fetch(&first)))
	assert.Equal(t, []string{"go", "rust"}, first)
	assert.True(t, mr.Exists(TagsKey))

	var second []string
	require.NoError(t, vc.Aside(ctx, TagsKey, &second, fetch(&second)))
	assert.Equal(t, []string{"go", "rust"}, second)
	assert.Equal(t, 1, calls)
}

func TestViewCache_FetchErrorNotCached(t *testing.T) {
	mr, rdb := setupRedis(t)
	vc := NewViewCache(rdb, time.Minute)

	var dest []string
	err := vc.Aside(context.Background(), PostsKey, &dest, func() error { return errors.New("boom") })
	assert.Error(t, err)
	assert.False(t, mr.Exists(PostsKey))
}

func TestViewCache_DisabledAlwaysFetches(t *testing.T) {
	vc := NewViewCache(nil, time.Minute)
	assert.False(t, vc.Enabled())

	calls := 0
	var dest int
	for i := 0; i < 2; i++ {
		require.NoError(t, vc.Aside(context.Background(), PostsKey, &dest, func() error {
			calls++
			dest = 7
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestViewCache_UnreachableRedisFallsBack(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	defer func() { _ = rdb.Close() }()
	vc := NewViewCache(rdb, time.Minute)
	mr.Close()

	var dest string
	require.NoError(t, vc.Aside(context.Background(), PostsKey, &dest, func() error {
		dest = "fresh"
		return nil
	}))
	assert.Equal(t, "fresh", dest)
}

func TestViewInvalidator_DeletesAndPublishes(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, mr.Set(PostsKey, "[]"))
	require.NoError(t, mr.Set(PostKey("a"), "{}"))
	require.NoError(t, mr.Set(TagsKey, "[]"))

	notifier := notifications.NewNotifier(rdb)
	events := make(chan notifications.ViewEvent, 1)
	require.NoError(t, notifier.StartViewSubscriber(ctx, func(ev notifications.ViewEvent) { events <- ev }))

	inv := NewViewInvalidator(rdb, notifier)
	require.NoError(t, inv.Invalidate(ctx, "deletePost", []string{PostsKey, PostKey("a")}))

	assert.False(t, mr.Exists(PostsKey))
	assert.False(t, mr.Exists(PostKey("a")))
	assert.True(t, mr.Exists(TagsKey))

	select {
	case ev := <-events:
		assert.Equal(t, "deletePost", ev.Origin)
		assert.ElementsMatch(t, []string{PostsKey, PostKey("a")}, ev.Keys)
	case <-time.After(time.Second):
		t.Fatal("invalidation event not published")
	}
}

func TestViewInvalidator_NilDependencies(t *testing.T) {
	inv := NewViewInvalidator(nil, nil)
	assert.NoError(t, inv.Invalidate(context.Background(), "x", []string{PostsKey}))

	var nilInv *ViewInvalidator
	assert.NoError(t, nilInv.Invalidate(context.Background(), "x", []string{PostsKey}))
}
