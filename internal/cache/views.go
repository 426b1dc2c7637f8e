package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"witwaves/internal/middleware"
	"witwaves/internal/notifications"
	"witwaves/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ViewCache stores rendered read views in Redis. A nil client disables caching.
type ViewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewViewCache creates a cache with the given entry TTL.
func NewViewCache(rdb *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether lookups reach Redis.
func (v *ViewCache) Enabled() bool {
	return v != nil && v.rdb != nil && v.ttl > 0
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (v *ViewCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !v.Enabled() {
		return false, nil
	}
	s, err := v.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals val and sets the key with the cache TTL.
func (v *ViewCache) SetJSON(ctx context.Context, key string, val any) error {
	if !v.Enabled() {
		return nil
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return v.rdb.Set(ctx, key, b, v.ttl).Err()
}

// Aside tries Redis first; on a miss or cache failure it calls fetch, which
// must populate dest, then stores dest best-effort.
func (v *ViewCache) Aside(ctx context.Context, key string, dest any, fetch func() error) error {
	found, err := v.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.ViewCacheLookups.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "view cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	case found:
		observability.ViewCacheLookups.WithLabelValues("hit").Inc()
		return nil
	case v.Enabled():
		observability.ViewCacheLookups.WithLabelValues("miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = v.SetJSON(ctx, key, dest)
	return nil
}

// ViewInvalidator drops cached views and announces the stale keys.
type ViewInvalidator struct {
	rdb      *redis.Client
	notifier *notifications.Notifier
}

// NewViewInvalidator wires the cache client and the event publisher. Either may be nil.
func NewViewInvalidator(rdb *redis.Client, notifier *notifications.Notifier) *ViewInvalidator {
	return &ViewInvalidator{rdb: rdb, notifier: notifier}
}

// Invalidate deletes every cached entry under keys and publishes a view
// event attributed to origin.
func (i *ViewInvalidator) Invalidate(ctx context.Context, origin string, keys []string) error {
	if i == nil || len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		observability.ViewInvalidations.WithLabelValues(viewKind(k)).Inc()
	}

	var errs []error
	if i.rdb != nil {
		if err := i.rdb.Del(ctx, keys...).Err(); err != nil {
			errs = append(errs, fmt.Errorf("delete cached views: %w", err))
		}
	}
	if err := i.notifier.PublishViewsInvalidated(ctx, origin, keys); err != nil {
		errs = append(errs, fmt.Errorf("publish view event: %w", err))
	}
	return errors.Join(errs...)
}
