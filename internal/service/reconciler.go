package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"witwaves/internal/cache"
	"witwaves/internal/observability"
	"witwaves/internal/repository"
)

// Reconciler repairs cached like and comment counters that drifted from
// the post_likes and comments rows.
type Reconciler struct {
	posts repository.PostRepository
	views *cache.ViewInvalidator
}

// NewReconciler creates a reconciler. views may be nil.
func NewReconciler(posts repository.PostRepository, views *cache.ViewInvalidator) *Reconciler {
	return &Reconciler{posts: posts, views: views}
}

// Run recomputes the counters of every drifted post and returns how many
// posts were repaired.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	ctx, span := observability.StartAction(ctx, "reconcileCounters")
	repaired, err := r.run(ctx)
	observability.EndSpan(span, err)
	return repaired, err
}

func (r *Reconciler) run(ctx context.Context) (int, error) {
	drift, err := r.posts.FindCounterDrift(ctx)
	if err != nil {
		return 0, fmt.Errorf("find counter drift: %w", err)
	}

	keys := &cache.Keys{}
	repaired := 0
	for _, d := range drift {
		if err := r.posts.SetCounters(ctx, d.PostID, d.ActualLikes, d.ActualComments); err != nil {
			return repaired, fmt.Errorf("repair counters of %s: %w", d.PostID, err)
		}
		if d.LikeCount != d.ActualLikes {
			observability.CounterRepairs.WithLabelValues("like_count").Inc()
		}
		if d.CommentCount != d.ActualComments {
			observability.CounterRepairs.WithLabelValues("comment_count").Inc()
		}
		observability.GlobalLogger.InfoContext(ctx, "repaired post counters",
			slog.String("post_id", d.PostID),
			slog.Int("like_count", d.LikeCount),
			slog.Int("actual_likes", d.ActualLikes),
			slog.Int("comment_count", d.CommentCount),
			slog.Int("actual_comments", d.ActualComments),
		)
		keys.Add(cache.PostKey(d.PostID))
		post, err := r.posts.GetByID(ctx, d.PostID)
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "reload of repaired post failed",
				slog.String("post_id", d.PostID), slog.String("error", err.Error()))
		} else {
			keys.Add(postViewKeys(post).List()...)
		}
		repaired++
	}

	if repaired > 0 {
		keys.Add(cache.PostsKey)
		invalidate(ctx, r.views, "reconcileCounters", keys.List())
	}
	return repaired, nil
}

// Start runs the reconciler every interval until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.LogAsyncOperationStart(ctx, "reconcile_counters")
				n, err := r.Run(ctx)
				if err != nil {
					observability.LogAsyncOperationError(ctx, "reconcile_counters", err)
					continue
				}
				observability.LogAsyncOperationEnd(ctx, "reconcile_counters", "repaired", n)
			}
		}
	}()
}
