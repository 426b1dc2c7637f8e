// Package service contains the mutation actions and cached read queries
// built on the repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"witwaves/internal/cache"
	"witwaves/internal/models"
	"witwaves/internal/notifications"
	"witwaves/internal/observability"
	"witwaves/internal/repository"
	"witwaves/internal/storage"
	"witwaves/internal/validation"
)

// PostService runs the post mutation actions.
type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	objects  storage.ObjectStore
	views    *cache.ViewInvalidator
	notifier *notifications.Notifier
}

// NewPostService wires the post actions. comments, objects, views and
// notifier may be nil; without comments, commenters' views are not
// invalidated on delete or rename.
func NewPostService(posts repository.PostRepository, comments repository.CommentRepository, objects storage.ObjectStore, views *cache.ViewInvalidator, notifier *notifications.Notifier) *PostService {
	return &PostService{posts: posts, comments: comments, objects: objects, views: views, notifier: notifier}
}

// CreatePostInput holds the fields of a new post.
type CreatePostInput struct {
	UserID           string   `form:"userId" validate:"required"`
	Title            string   `form:"title" validate:"required,min=3"`
	Content          string   `form:"content" validate:"required,min=10"`
	Tags             []string `form:"tags" validate:"max=20,dive,max=50"`
	ImageURL         string   `form:"imageUrl" validate:"omitempty,httpurl"`
	ImageStoragePath string   `form:"imageStoragePath"`
}

// CreatePostInputFromFields decodes a submitted form. userID is the
// authenticated author.
func CreatePostInputFromFields(userID string, f Fields) CreatePostInput {
	return CreatePostInput{
		UserID:           userID,
		Title:            f.Get("title"),
		Content:          f.Get("content"),
		Tags:             validation.ParseTags(f.Raw("tags")),
		ImageURL:         f.Get("imageUrl"),
		ImageStoragePath: f.Get("imageStoragePath"),
	}
}

func (in *CreatePostInput) normalize() {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Tags = validation.NormalizeTags(in.Tags)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ImageStoragePath = strings.TrimSpace(in.ImageStoragePath)
}

// UpdatePostInput holds an edit. An empty ImageURL keeps the current
// thumbnail unless RemoveImage is set.
type UpdatePostInput struct {
	UserID           string   `form:"userId" validate:"required"`
	PostID           string   `form:"postId" validate:"required"`
	Title            string   `form:"title" validate:"required,min=3"`
	Content          string   `form:"content" validate:"required,min=10"`
	Tags             []string `form:"tags" validate:"max=20,dive,max=50"`
	ImageURL         string   `form:"imageUrl" validate:"omitempty,httpurl"`
	ImageStoragePath string   `form:"imageStoragePath"`
	RemoveImage      bool     `form:"removeImage"`
}

// UpdatePostInputFromFields decodes a submitted edit form.
func UpdatePostInputFromFields(userID, postID string, f Fields) UpdatePostInput {
	return UpdatePostInput{
		UserID:           userID,
		PostID:           postID,
		Title:            f.Get("title"),
		Content:          f.Get("content"),
		Tags:             validation.ParseTags(f.Raw("tags")),
		ImageURL:         f.Get("imageUrl"),
		ImageStoragePath: f.Get("imageStoragePath"),
		RemoveImage:      f.Bool("removeImage"),
	}
}

func (in *UpdatePostInput) normalize() {
	in.UserID = strings.TrimSpace(in.UserID)
	in.PostID = strings.TrimSpace(in.PostID)
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Tags = validation.NormalizeTags(in.Tags)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ImageStoragePath = strings.TrimSpace(in.ImageStoragePath)
}

// PostRef identifies a post and the acting user.
type PostRef struct {
	UserID string `form:"userId" validate:"required"`
	PostID string `form:"postId" validate:"required"`
}

func (in *PostRef) normalize() {
	in.UserID = strings.TrimSpace(in.UserID)
	in.PostID = strings.TrimSpace(in.PostID)
}

// CreatedPost is the payload of CreatePost.
type CreatedPost struct {
	PostID string `json:"post_id"`
}

// CreatePost allocates a slug from the title and stores a new active post.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) ActionResult {
	const action = "createPost"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.normalize()
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "Please correct the highlighted fields.", errs)
		}

		post := &models.Post{
			Title:   in.Title,
			Content: in.Content,
			Tags:    in.Tags,
			UserID:  in.UserID,
		}
		if in.ImageURL != "" {
			post.ImageURL = &in.ImageURL
			if in.ImageStoragePath != "" {
				post.ImageStoragePath = &in.ImageStoragePath
			}
		}

		if err := repository.AllocateSlug(ctx, s.posts, post); err != nil {
			if errors.Is(err, models.ErrEmptySlug) {
				return invalid(action, "Please correct the highlighted fields.", map[string][]string{
					"title": {"Title must contain at least one letter or number."},
				})
			}
			return fail(ctx, action, err)
		}

		keys := postViewKeys(post).List()
		invalidate(ctx, s.views, action, keys)
		return succeed(action, "Post created.", CreatedPost{PostID: post.ID}, keys)
	})
}

// UpdatePost overwrites the title, content, tags and thumbnail of a post
// owned by the acting user. A replaced or removed thumbnail object is
// deleted best-effort.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) ActionResult {
	const action = "updatePost"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.normalize()
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "Please correct the highlighted fields.", errs)
		}

		post, err := s.ownedPost(ctx, in.PostID, in.UserID, "edit")
		if err != nil {
			return fail(ctx, action, err)
		}

		upd := repository.PostUpdate{
			Title:       in.Title,
			Content:     in.Content,
			Tags:        in.Tags,
			RemoveImage: in.RemoveImage && in.ImageURL == "",
		}
		if in.ImageURL != "" {
			upd.ImageURL = &in.ImageURL
			if in.ImageStoragePath != "" {
				upd.ImageStoragePath = &in.ImageStoragePath
			}
		}
		var commenters []string
		if in.Title != post.Title {
			commenters = s.commenters(ctx, action, post.ID)
		}
		if err := s.posts.UpdateContent(ctx, post.ID, upd); err != nil {
			return fail(ctx, action, postNotFound(err, post.ID))
		}

		if old := post.ImageStoragePath; old != nil && (upd.RemoveImage || (upd.ImageURL != nil && (upd.ImageStoragePath == nil || *upd.ImageStoragePath != *old))) {
			s.removeThumbnail(ctx, action, *old)
		}

		keys := postViewKeys(post)
		for _, t := range in.Tags {
			keys.Add(cache.TagKey(t))
		}
		for _, uid := range commenters {
			keys.Add(cache.UserCommentsKey(uid))
		}
		list := keys.List()
		invalidate(ctx, s.views, action, list)
		return succeed(action, "Post updated.", CreatedPost{PostID: post.ID}, list)
	})
}

// DeletePost removes a post owned by the acting user together with its
// comments, tags and likes, then deletes its thumbnail object best-effort.
func (s *PostService) DeletePost(ctx context.Context, in PostRef) ActionResult {
	const action = "deletePost"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.normalize()
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "A post and a signed-in user are required.", errs)
		}

		post, err := s.ownedPost(ctx, in.PostID, in.UserID, "delete")
		if err != nil {
			return fail(ctx, action, err)
		}

		commenters := s.commenters(ctx, action, post.ID)
		if err := s.posts.Delete(ctx, post.ID); err != nil {
			return fail(ctx, action, postNotFound(err, post.ID))
		}
		if post.ImageStoragePath != nil {
			s.removeThumbnail(ctx, action, *post.ImageStoragePath)
		}

		keys := postViewKeys(post)
		keys.Add(cache.PostCommentsKey(post.ID))
		for _, uid := range post.LikedBy {
			keys.Add(cache.UserLikedKey(uid))
		}
		for _, uid := range commenters {
			keys.Add(cache.UserCommentsKey(uid))
		}
		list := keys.List()
		invalidate(ctx, s.views, action, list)
		return succeed(action, "Post deleted.", CreatedPost{PostID: post.ID}, list)
	})
}

// ToggleLikePost likes the post for the acting user, or removes the like
// when one exists. The membership read precedes the write; the write and its
// counter update are one transaction.
func (s *PostService) ToggleLikePost(ctx context.Context, in PostRef) ActionResult {
	const action = "toggleLikePost"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.normalize()
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "A post and a signed-in user are required.", errs)
		}

		post, err := s.posts.GetByID(ctx, in.PostID)
		if err != nil {
			return fail(ctx, action, postNotFound(err, in.PostID))
		}

		status := models.LikeStatus{PostID: post.ID}
		if post.IsLikedBy(in.UserID) {
			status.NewCount, err = s.posts.RemoveLike(ctx, post.ID, in.UserID)
		} else {
			status.Liked = true
			status.NewCount, err = s.posts.AddLike(ctx, post.ID, in.UserID)
		}
		if err != nil {
			return fail(ctx, action, postNotFound(err, post.ID))
		}

		keys := postViewKeys(post)
		keys.Add(cache.UserLikedKey(in.UserID))
		list := keys.List()
		invalidate(ctx, s.views, action, list)
		if status.Liked {
			notifyAuthor(ctx, s.notifier, post, "like", in.UserID)
		}

		msg := "Post unliked."
		if status.Liked {
			msg = "Post liked."
		}
		return succeed(action, msg, status, list)
	})
}

// ToggleArchivePost flips the archive state of a post owned by the acting user.
func (s *PostService) ToggleArchivePost(ctx context.Context, in PostRef) ActionResult {
	const action = "toggleArchivePost"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.normalize()
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "A post and a signed-in user are required.", errs)
		}

		post, err := s.ownedPost(ctx, in.PostID, in.UserID, "archive")
		if err != nil {
			return fail(ctx, action, err)
		}

		archived := !post.IsArchived
		if err := s.posts.SetArchived(ctx, post.ID, archived); err != nil {
			return fail(ctx, action, postNotFound(err, post.ID))
		}

		keys := postViewKeys(post)
		for _, uid := range post.LikedBy {
			keys.Add(cache.UserLikedKey(uid))
		}
		list := keys.List()
		invalidate(ctx, s.views, action, list)
		msg := "Post restored."
		if archived {
			msg = "Post archived."
		}
		return succeed(action, msg, models.ArchiveStatus{PostID: post.ID, IsArchived: archived}, list)
	})
}

// ownedPost loads a post and checks that userID authored it. Posts without
// an author cannot be changed through actions.
func (s *PostService) ownedPost(ctx context.Context, postID, userID, verb string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, postNotFound(err, postID)
	}
	if post.UserID == "" || post.UserID != userID {
		return nil, models.NewUnauthorizedError("You can only " + verb + " your own posts.")
	}
	return post, nil
}

// removeThumbnail deletes a post's thumbnail object. Every failure is
// tolerated: an absent object silently, anything else with a log line and a
// metric.
func (s *PostService) removeThumbnail(ctx context.Context, action, path string) {
	if s.objects == nil || path == "" {
		return
	}
	err := s.objects.Delete(ctx, path)
	if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
		return
	}
	observability.StorageCleanupFailures.WithLabelValues(action).Inc()
	observability.GlobalLogger.WarnContext(ctx, "thumbnail cleanup failed",
		slog.String("action", action),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

// commenters reads the distinct commenter ids of a post before a write
// changes what their comment views show. A failed read is logged and leaves
// those views to expire.
func (s *PostService) commenters(ctx context.Context, action, postID string) []string {
	if s.comments == nil {
		return nil
	}
	ids, err := s.comments.CommenterIDs(ctx, postID)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "commenter lookup failed",
			slog.String("action", action),
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return ids
}

func postNotFound(err error, postID string) error {
	if errors.Is(err, models.ErrPostNotFound) {
		return models.NewNotFoundError("Post", postID)
	}
	return err
}
