// Package notifications publishes view-change and user-activity events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewsChannel carries ViewEvent payloads for every mutation.
const ViewsChannel = "views:invalidated"

// ViewEvent names the derived views a mutation made stale.
type ViewEvent struct {
	Keys   []string  `json:"keys"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// ActivityEvent tells a post author that someone interacted with their post.
type ActivityEvent struct {
	Kind    string `json:"kind"` // "like" or "comment"
	PostID  string `json:"post_id"`
	ActorID string `json:"actor_id"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel returns the activity channel for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// PublishViewsInvalidated announces stale view keys. A nil client is a no-op.
func (n *Notifier) PublishViewsInvalidated(ctx context.Context, origin string, keys []string) error {
	if n == nil || n.rdb == nil || len(keys) == 0 {
		return nil
	}
	payload, err := json.Marshal(ViewEvent{Keys: keys, Origin: origin, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal view event: %w", err)
	}
	return n.rdb.Publish(ctx, ViewsChannel, payload).Err()
}

// PublishUserActivity sends an activity event to a user's channel.
func (n *Notifier) PublishUserActivity(ctx context.Context, userID string, event ActivityEvent) error {
	if n == nil || n.rdb == nil || userID == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal activity event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartViewSubscriber subscribes to ViewsChannel and calls onEvent for each
// decodable message until ctx is cancelled. It returns once the subscription
// is confirmed by the server.
func (n *Notifier) StartViewSubscriber(ctx context.Context, onEvent func(ViewEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, ViewsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", ViewsChannel, err)
	}
	return n.consume(ctx, sub, func(_ string, payload string) {
		var ev ViewEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			log.Printf("dropping malformed view event: %v", err)
			return
		}
		onEvent(ev)
	})
}

// StartActivitySubscriber subscribes to every user's activity channel and
// calls onMessage with the channel and raw payload.
func (n *Notifier) StartActivitySubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("psubscribe notifications: %w", err)
	}
	return n.consume(ctx, sub, onMessage)
}

func (n *Notifier) consume(ctx context.Context, sub *redis.PubSub, onMessage func(channel, payload string)) error {
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
