package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T) *Notifier {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewNotifier(rdb)
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()
	assert.NoError(t, n.PublishViewsInvalidated(ctx, "test", []string{"posts"}))
	assert.NoError(t, n.PublishUserActivity(ctx, "u1", ActivityEvent{Kind: "like"}))
	assert.NoError(t, n.StartViewSubscriber(ctx, func(ViewEvent) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishViewsInvalidated(ctx, "test", []string{"posts"}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:abc123", UserChannel("abc123"))
}

func TestNotifier_ViewSubscriberReceivesKeys(t *testing.T) {
	n := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan ViewEvent, 1)
	require.NoError(t, n.StartViewSubscriber(ctx, func(ev ViewEvent) { events <- ev }))

	require.NoError(t, n.PublishViewsInvalidated(context.Background(), "createPost", []string{"posts", "post:hello"}))

	select {
	case ev := <-events:
		assert.Equal(t, []string{"posts", "post:hello"}, ev.Keys)
		assert.Equal(t, "createPost", ev.Origin)
	case <-time.After(time.Second):
		t.Fatal("view event not delivered")
	}
}

func TestNotifier_EmptyKeysNotPublished(t *testing.T) {
	n := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	require.NoError(t, n.StartViewSubscriber(ctx, func(ViewEvent) { atomic.AddInt32(&received, 1) }))
	require.NoError(t, n.PublishViewsInvalidated(context.Background(), "noop", nil))

	assert.Never(t, func() bool { return atomic.LoadInt32(&received) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_ActivitySubscriberStopsOnCancel(t *testing.T) {
	n := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.StartActivitySubscriber(ctx, func(channel, payload string) {
		assert.Equal(t, "notifications:user:author", channel)
		payloads <- payload
	}))

	require.NoError(t, n.PublishUserActivity(context.Background(), "author", ActivityEvent{Kind: "comment", PostID: "p", ActorID: "x"}))
	select {
	case payload := <-payloads:
		var ev ActivityEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		assert.Equal(t, "comment", ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("activity event not delivered")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, n.PublishUserActivity(context.Background(), "author", ActivityEvent{Kind: "like"}))
	assert.Never(t, func() bool { return len(payloads) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}
