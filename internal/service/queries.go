package service

import (
	"context"
	"errors"
	"log/slog"

	"witwaves/internal/cache"
	"witwaves/internal/models"
	"witwaves/internal/observability"
	"witwaves/internal/repository"
	"witwaves/internal/validation"
)

// PostQueries serves the post read views through the view cache. A store
// failure is logged and yields an empty result.
type PostQueries struct {
	posts repository.PostRepository
	views *cache.ViewCache
}

// NewPostQueries creates the post read API. views may be nil.
func NewPostQueries(posts repository.PostRepository, views *cache.ViewCache) *PostQueries {
	return &PostQueries{posts: posts, views: views}
}

// GetPosts returns up to limit published posts, newest first. limit <= 0
// means all of them.
func (q *PostQueries) GetPosts(ctx context.Context, limit int) []*models.Post {
	posts := q.listing(ctx, cache.PostsKey, func() ([]*models.Post, error) {
		return q.posts.List(ctx, 0)
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

// GetPost returns the post with id in any archive state, or nil.
func (q *PostQueries) GetPost(ctx context.Context, id string) *models.Post {
	var post *models.Post
	err := q.views.Aside(ctx, cache.PostKey(id), &post, func() error {
		var err error
		post, err = q.posts.GetByID(ctx, id)
		return err
	})
	if err != nil {
		if !errors.Is(err, models.ErrPostNotFound) {
			logReadFailure(ctx, "getPost", err)
		}
		return nil
	}
	return post
}

// GetPostsByUserID returns every post of the author, archived included.
func (q *PostQueries) GetPostsByUserID(ctx context.Context, userID string) []*models.Post {
	return q.listing(ctx, cache.UserKey(userID), func() ([]*models.Post, error) {
		return q.posts.GetByUserID(ctx, userID)
	})
}

// GetPostsByTag returns the published posts carrying tag.
func (q *PostQueries) GetPostsByTag(ctx context.Context, tag string) []*models.Post {
	tag = validation.NormalizeTag(tag)
	if tag == "" {
		return []*models.Post{}
	}
	return q.listing(ctx, cache.TagKey(tag), func() ([]*models.Post, error) {
		return q.posts.GetByTag(ctx, tag)
	})
}

// GetPostsByArchive returns the published posts created in the given month
// (zero-indexed).
func (q *PostQueries) GetPostsByArchive(ctx context.Context, year, month int) []*models.Post {
	if month < 0 || month > 11 {
		return []*models.Post{}
	}
	return q.listing(ctx, cache.ArchiveKey(year, month), func() ([]*models.Post, error) {
		return q.posts.GetByArchive(ctx, year, month)
	})
}

// GetLikedPostsByUser returns the published posts userID likes.
func (q *PostQueries) GetLikedPostsByUser(ctx context.Context, userID string) []*models.Post {
	return q.listing(ctx, cache.UserLikedKey(userID), func() ([]*models.Post, error) {
		return q.posts.GetLikedByUser(ctx, userID)
	})
}

// GetAllTags returns every tag of a published post, sorted.
func (q *PostQueries) GetAllTags(ctx context.Context) []string {
	tags := []string{}
	err := q.views.Aside(ctx, cache.TagsKey, &tags, func() error {
		var err error
		tags, err = q.posts.GetAllTags(ctx)
		return err
	})
	if err != nil {
		logReadFailure(ctx, "getAllTags", err)
		return []string{}
	}
	return tags
}

// GetArchivePeriods returns the months that have published posts, newest first.
func (q *PostQueries) GetArchivePeriods(ctx context.Context) []models.ArchivePeriod {
	periods := []models.ArchivePeriod{}
	err := q.views.Aside(ctx, cache.ArchiveIndexKey, &periods, func() error {
		var err error
		periods, err = q.posts.GetArchivePeriods(ctx)
		return err
	})
	if err != nil {
		logReadFailure(ctx, "getArchivePeriods", err)
		return []models.ArchivePeriod{}
	}
	return periods
}

func (q *PostQueries) listing(ctx context.Context, key string, fetch func() ([]*models.Post, error)) []*models.Post {
	posts := []*models.Post{}
	err := q.views.Aside(ctx, key, &posts, func() error {
		var err error
		posts, err = fetch()
		return err
	})
	if err != nil {
		logReadFailure(ctx, key, err)
		return []*models.Post{}
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts
}

// CommentQueries serves the comment read views.
type CommentQueries struct {
	comments repository.CommentRepository
	views    *cache.ViewCache
}

// NewCommentQueries creates the comment read API. views may be nil.
func NewCommentQueries(comments repository.CommentRepository, views *cache.ViewCache) *CommentQueries {
	return &CommentQueries{comments: comments, views: views}
}

// GetCommentsForPost returns the comments of a post, oldest first.
func (q *CommentQueries) GetCommentsForPost(ctx context.Context, postID string) []*models.Comment {
	comments := []*models.Comment{}
	err := q.views.Aside(ctx, cache.PostCommentsKey(postID), &comments, func() error {
		var err error
		comments, err = q.comments.ListByPost(ctx, postID)
		return err
	})
	if err != nil {
		logReadFailure(ctx, "getCommentsForPost", err)
		return []*models.Comment{}
	}
	return comments
}

// GetCommentsByUser returns the comments userID wrote, newest first, each
// with its post's title.
func (q *CommentQueries) GetCommentsByUser(ctx context.Context, userID string) []*models.CommentWithPost {
	comments := []*models.CommentWithPost{}
	err := q.views.Aside(ctx, cache.UserCommentsKey(userID), &comments, func() error {
		var err error
		comments, err = q.comments.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		logReadFailure(ctx, "getCommentsByUser", err)
		return []*models.CommentWithPost{}
	}
	return comments
}

func logReadFailure(ctx context.Context, view string, err error) {
	observability.GlobalLogger.ErrorContext(ctx, "read failed",
		slog.String("view", view), slog.String("error", err.Error()))
}
