package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"witwaves/internal/models"
	"witwaves/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Add(ctx context.Context, comment *models.Comment) error
	CommenterIDs(ctx context.Context, postID string) ([]string, error)
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.CommentWithPost, error)
}

type commentRepository struct {
	db    *gorm.DB
	posts PostRepository
	log   *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository. Post titles for
// ListByUser are resolved through posts.
func NewCommentRepository(db *gorm.DB, posts PostRepository) CommentRepository {
	return &commentRepository{db: db, posts: posts, log: observability.NewRepoLogger("comments")}
}

// Add stores the comment and bumps its post's commentCount in one
// transaction. The post must exist.
func (r *commentRepository) Add(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()
	if strings.TrimSpace(comment.PostID) == "" {
		return models.ErrPostNotFound
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, comment.PostID); err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return incrementCommentCount(tx, comment.PostID, 1)
	})
	if err != nil {
		if !errors.Is(err, models.ErrPostNotFound) {
			r.log.LogError(ctx, err, "create", "post_id", comment.PostID)
		}
		return err
	}
	r.log.LogWrite(ctx, "create", "comment_id", comment.ID, "post_id", comment.PostID)
	return nil
}

// CommenterIDs returns the distinct ids of users who commented on a post.
func (r *commentRepository) CommenterIDs(ctx context.Context, postID string) ([]string, error) {
	defer observability.TrackQuery("commenters", "comments")()
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ?", postID).Distinct("user_id").Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListByPost returns a post's comments, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	defer observability.TrackQuery("list_by_post", "comments")()
	comments := []*models.Comment{}
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).
		Order("created_at ASC").Order("id").Find(&comments).Error
	return comments, err
}

// ListByUser returns a user's comments, newest first, each with its post
// title. Titles are fetched once per distinct post; comments whose post is
// gone keep an empty title.
func (r *commentRepository) ListByUser(ctx context.Context, userID string) ([]*models.CommentWithPost, error) {
	defer observability.TrackQuery("list_by_user", "comments")()
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id").Find(&comments).Error; err != nil {
		return nil, err
	}

	titles := make(map[string]string)
	out := make([]*models.CommentWithPost, 0, len(comments))
	for _, c := range comments {
		title, ok := titles[c.PostID]
		if !ok {
			t, err := r.posts.GetTitle(ctx, c.PostID)
			switch {
			case errors.Is(err, models.ErrPostNotFound):
			case err != nil:
				return nil, err
			default:
				title = t
			}
			titles[c.PostID] = title
		}
		out = append(out, &models.CommentWithPost{Comment: *c, PostTitle: title})
	}
	return out, nil
}
