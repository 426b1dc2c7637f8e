// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"witwaves/internal/models"
	"witwaves/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostUpdate carries the fields an edit may overwrite. ImageURL and
// ImageStoragePath replace the thumbnail when ImageURL is set; RemoveImage
// clears both.
type PostUpdate struct {
	Title            string
	Content          string
	Tags             []string
	ImageURL         *string
	ImageStoragePath *string
	RemoveImage      bool
}

// CounterDrift is a post whose cached counters disagree with its rows.
type CounterDrift struct {
	PostID         string `gorm:"column:id"`
	LikeCount      int    `gorm:"column:like_count"`
	CommentCount   int    `gorm:"column:comment_count"`
	ActualLikes    int    `gorm:"column:actual_likes"`
	ActualComments int    `gorm:"column:actual_comments"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context, limit int) ([]*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetTitle(ctx context.Context, id string) (string, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Post, error)
	GetByTag(ctx context.Context, tag string) ([]*models.Post, error)
	GetByArchive(ctx context.Context, year, month int) ([]*models.Post, error)
	GetLikedByUser(ctx context.Context, userID string) ([]*models.Post, error)
	GetAllTags(ctx context.Context) ([]string, error)
	GetArchivePeriods(ctx context.Context) ([]models.ArchivePeriod, error)
	IsSlugUnique(ctx context.Context, slug string) (bool, error)

	Create(ctx context.Context, post *models.Post) error
	UpdateContent(ctx context.Context, id string, upd PostUpdate) error
	SetArchived(ctx context.Context, id string, archived bool) error
	IsLiked(ctx context.Context, postID, userID string) (bool, error)
	AddLike(ctx context.Context, postID, userID string) (int, error)
	RemoveLike(ctx context.Context, postID, userID string) (int, error)
	Delete(ctx context.Context, id string) error

	FindCounterDrift(ctx context.Context) ([]CounterDrift, error)
	SetCounters(ctx context.Context, postID string, likes, comments int) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) published(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.is_archived = ?", false)
}

func (r *postRepository) find(ctx context.Context, q *gorm.DB) ([]*models.Post, error) {
	var posts []*models.Post
	if err := q.Order("posts.created_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := hydrate(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	q := r.published(ctx)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.find(ctx, q)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	if !ValidSlug(id) {
		return nil, models.ErrPostNotFound
	}
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrPostNotFound
		}
		return nil, err
	}
	if err := hydrate(ctx, r.db, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetTitle(ctx context.Context, id string) (string, error) {
	var titles []string
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).Limit(1).Pluck("title", &titles).Error; err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", models.ErrPostNotFound
	}
	return titles[0], nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Post, error) {
	defer observability.TrackQuery("list_by_user", "posts")()
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.user_id = ?", userID)
	return r.find(ctx, q)
}

func (r *postRepository) GetByTag(ctx context.Context, tag string) ([]*models.Post, error) {
	defer observability.TrackQuery("list_by_tag", "posts")()
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return []*models.Post{}, nil
	}
	sub := r.db.Model(&models.PostTag{}).Select("post_id").Where("tag = ?", tag)
	return r.find(ctx, r.published(ctx).Where("posts.id IN (?)", sub))
}

// GetByArchive lists published posts created in the given month (zero-indexed, UTC).
func (r *postRepository) GetByArchive(ctx context.Context, year, month int) ([]*models.Post, error) {
	defer observability.TrackQuery("list_by_month", "posts")()
	if month < 0 || month > 11 {
		return []*models.Post{}, nil
	}
	start := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	q := r.published(ctx).Where("posts.created_at >= ? AND posts.created_at < ?", start, end)
	return r.find(ctx, q)
}

func (r *postRepository) GetLikedByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	defer observability.TrackQuery("list_liked", "posts")()
	sub := r.db.Model(&models.PostLike{}).Select("post_id").Where("user_id = ?", userID)
	return r.find(ctx, r.published(ctx).Where("posts.id IN (?)", sub))
}

func (r *postRepository) GetAllTags(ctx context.Context) ([]string, error) {
	defer observability.TrackQuery("list_tags", "post_tags")()
	var raw []string
	err := r.db.WithContext(ctx).Model(&models.PostTag{}).
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Where("posts.is_archived = ?", false).
		Pluck("post_tags.tag", &raw).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// GetArchivePeriods groups published posts by UTC calendar month, newest first.
func (r *postRepository) GetArchivePeriods(ctx context.Context) ([]models.ArchivePeriod, error) {
	defer observability.TrackQuery("archive_periods", "posts")()
	var created []time.Time
	if err := r.published(ctx).Pluck("posts.created_at", &created).Error; err != nil {
		return nil, err
	}

	type ym struct{ y, m int }
	counts := make(map[ym]int)
	for _, ts := range created {
		u := ts.UTC()
		counts[ym{u.Year(), int(u.Month())}]++
	}

	periods := make([]models.ArchivePeriod, 0, len(counts))
	for k, n := range counts {
		periods = append(periods, models.ArchivePeriod{Year: k.y, Month: k.m, Count: n})
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Year != periods[j].Year {
			return periods[i].Year > periods[j].Year
		}
		return periods[i].Month > periods[j].Month
	})
	return periods, nil
}

func (r *postRepository) IsSlugUnique(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// Create inserts the post and its tags. The insert is conditional on the id
// being free; a taken id yields models.ErrSlugTaken.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = now

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(post)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrSlugTaken
		}
		return replaceTags(tx, post.ID, post.Tags)
	})
	if err != nil {
		if !errors.Is(err, models.ErrSlugTaken) {
			r.log.LogError(ctx, err, "create")
		}
		return err
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}
	r.log.LogWrite(ctx, "create", "post_id", post.ID)
	return nil
}

func (r *postRepository) UpdateContent(ctx context.Context, id string, upd PostUpdate) error {
	defer observability.TrackQuery("update", "posts")()
	fields := map[string]interface{}{
		"title":      upd.Title,
		"content":    upd.Content,
		"updated_at": time.Now().UTC(),
	}
	switch {
	case upd.RemoveImage:
		fields["image_url"] = nil
		fields["image_storage_path"] = nil
	case upd.ImageURL != nil:
		fields["image_url"] = *upd.ImageURL
		fields["image_storage_path"] = upd.ImageStoragePath
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrPostNotFound
		}
		return replaceTags(tx, id, upd.Tags)
	})
	if err != nil && !errors.Is(err, models.ErrPostNotFound) {
		r.log.LogError(ctx, err, "update", "post_id", id)
	}
	return err
}

func (r *postRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_archived": archived, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "archive", "post_id", id)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrPostNotFound
	}
	return nil
}

func (r *postRepository) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddLike adds userID to the liked-by set and bumps likeCount when the
// membership is new. It returns the resulting likeCount.
func (r *postRepository) AddLike(ctx context.Context, postID, userID string) (int, error) {
	defer observability.TrackQuery("like", "post_likes")()
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
				return err
			}
		}
		return readLikeCount(tx, postID, &count)
	})
	if err != nil && !errors.Is(err, models.ErrPostNotFound) {
		r.log.LogError(ctx, err, "like", "post_id", postID)
	}
	return count, err
}

// RemoveLike removes userID from the liked-by set and decrements likeCount,
// never below zero, when a membership was removed.
func (r *postRepository) RemoveLike(ctx context.Context, postID, userID string) (int, error) {
	defer observability.TrackQuery("unlike", "post_likes")()
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
		}
		return readLikeCount(tx, postID, &count)
	})
	if err != nil && !errors.Is(err, models.ErrPostNotFound) {
		r.log.LogError(ctx, err, "unlike", "post_id", postID)
	}
	return count, err
}

// Delete removes the post with its comments, tags and likes in one transaction.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "posts")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrPostNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, models.ErrPostNotFound) {
			r.log.LogError(ctx, err, "delete", "post_id", id)
		}
		return err
	}
	r.log.LogWrite(ctx, "delete", "post_id", id)
	return nil
}

func (r *postRepository) FindCounterDrift(ctx context.Context) ([]CounterDrift, error) {
	var drift []CounterDrift
	err := r.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT p.id, p.like_count, p.comment_count,
				(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) AS actual_likes,
				(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS actual_comments
			FROM posts p
		) d
		WHERE d.like_count <> d.actual_likes OR d.comment_count <> d.actual_comments
		ORDER BY d.id`).Scan(&drift).Error
	return drift, err
}

func (r *postRepository) SetCounters(ctx context.Context, postID string, likes, comments int) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumns(map[string]interface{}{"like_count": likes, "comment_count": comments})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrPostNotFound
	}
	return nil
}

func lockPost(tx *gorm.DB, postID string) error {
	var ids []string
	q := tx.Model(&models.Post{}).Where("id = ?", postID).Limit(1)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return models.ErrPostNotFound
	}
	return nil
}

func readLikeCount(tx *gorm.DB, postID string, out *int) error {
	var counts []int
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Limit(1).Pluck("like_count", &counts).Error; err != nil {
		return err
	}
	if len(counts) == 0 {
		return models.ErrPostNotFound
	}
	*out = counts[0]
	return nil
}

func incrementCommentCount(tx *gorm.DB, postID string, delta int) error {
	res := tx.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrPostNotFound
	}
	return nil
}

func replaceTags(tx *gorm.DB, postID string, tags []string) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}
	rows := make([]models.PostTag, 0, len(tags))
	for i, t := range tags {
		rows = append(rows, models.PostTag{PostID: postID, Tag: t, Position: i})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert tags: %w", err)
	}
	return nil
}

// hydrate fills Tags and LikedBy from the membership tables.
func hydrate(ctx context.Context, db *gorm.DB, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	byID := make(map[string]*models.Post, len(posts))
	for _, p := range posts {
		p.Tags = []string{}
		p.LikedBy = []string{}
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	var tags []models.PostTag
	if err := db.WithContext(ctx).Where("post_id IN ?", ids).
		Order("post_id, position").Find(&tags).Error; err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	for _, t := range tags {
		if p := byID[t.PostID]; p != nil {
			p.Tags = append(p.Tags, t.Tag)
		}
	}

	var likes []models.PostLike
	if err := db.WithContext(ctx).Where("post_id IN ?", ids).
		Order("created_at").Find(&likes).Error; err != nil {
		return fmt.Errorf("load likes: %w", err)
	}
	for _, l := range likes {
		if p := byID[l.PostID]; p != nil {
			p.LikedBy = append(p.LikedBy, l.UserID)
		}
	}
	return nil
}
