package service

import (
	"context"
	"log/slog"

	"witwaves/internal/cache"
	"witwaves/internal/models"
	"witwaves/internal/notifications"
	"witwaves/internal/observability"
)

// postViewKeys lists the views that show post: the listing, the post page,
// each tag page, the tag index, its archive month, the archive index and the
// author's page.
func postViewKeys(post *models.Post) *cache.Keys {
	keys := &cache.Keys{}
	keys.Add(cache.PostsKey, cache.PostKey(post.ID))
	for _, t := range post.Tags {
		keys.Add(cache.TagKey(t))
	}
	keys.Add(cache.TagsKey)
	if !post.CreatedAt.IsZero() {
		created := post.CreatedAt.UTC()
		keys.Add(cache.ArchiveKey(created.Year(), int(created.Month())-1))
	}
	keys.Add(cache.ArchiveIndexKey)
	if post.UserID != "" {
		keys.Add(cache.UserKey(post.UserID))
	}
	return keys
}

// invalidate drops the cached views after a committed mutation. Failures are
// logged; the mutation already happened.
func invalidate(ctx context.Context, views *cache.ViewInvalidator, origin string, keys []string) {
	if err := views.Invalidate(ctx, origin, keys); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "view invalidation failed",
			slog.String("action", origin), slog.String("error", err.Error()))
	}
}

// notifyAuthor tells a post's author about activity by someone else.
func notifyAuthor(ctx context.Context, n *notifications.Notifier, post *models.Post, kind, actorID string) {
	if post.UserID == "" || post.UserID == actorID {
		return
	}
	ev := notifications.ActivityEvent{Kind: kind, PostID: post.ID, ActorID: actorID}
	if err := n.PublishUserActivity(ctx, post.UserID, ev); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "activity notification failed",
			slog.String("kind", kind), slog.String("post_id", post.ID), slog.String("error", err.Error()))
	}
}
