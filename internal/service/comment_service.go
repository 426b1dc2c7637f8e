package service

import (
	"context"
	"strings"

	"witwaves/internal/cache"
	"witwaves/internal/models"
	"witwaves/internal/notifications"
	"witwaves/internal/repository"
	"witwaves/internal/validation"
)

// CommentService runs the comment action.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	views    *cache.ViewInvalidator
	notifier *notifications.Notifier
}

// NewCommentService creates a new comment service.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, views *cache.ViewInvalidator, notifier *notifications.Notifier) *CommentService {
	return &CommentService{comments: comments, posts: posts, views: views, notifier: notifier}
}

// AddCommentInput holds a new comment.
type AddCommentInput struct {
	PostID          string `form:"postId" validate:"required"`
	UserID          string `form:"userId" validate:"required"`
	UserDisplayName string `form:"userDisplayName" validate:"required"`
	UserPhotoURL    string `form:"userPhotoURL" validate:"omitempty,httpurl"`
	Text            string `form:"text" validate:"notblank,max=1000"`
}

// AddCommentInputFromFields decodes a submitted comment form.
func AddCommentInputFromFields(userID, postID string, f Fields) AddCommentInput {
	return AddCommentInput{
		PostID:          postID,
		UserID:          userID,
		UserDisplayName: f.Get("userDisplayName"),
		UserPhotoURL:    f.Get("userPhotoURL"),
		Text:            f.Get("text"),
	}
}

func (in *AddCommentInput) normalize() {
	in.PostID = strings.TrimSpace(in.PostID)
	in.UserID = strings.TrimSpace(in.UserID)
	in.UserDisplayName = strings.TrimSpace(in.UserDisplayName)
	in.UserPhotoURL = strings.TrimSpace(in.UserPhotoURL)
	in.Text = strings.TrimSpace(in.Text)
}

// AddComment stores a comment and bumps its post's comment count together.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) ActionResult {
	const action = "addComment"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.normalize()
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "Please correct the highlighted fields.", errs)
		}

		post, err := s.posts.GetByID(ctx, in.PostID)
		if err != nil {
			return fail(ctx, action, postNotFound(err, in.PostID))
		}

		comment := &models.Comment{
			PostID:          post.ID,
			UserID:          in.UserID,
			UserDisplayName: in.UserDisplayName,
			Text:            in.Text,
		}
		if in.UserPhotoURL != "" {
			comment.UserPhotoURL = &in.UserPhotoURL
		}
		if err := s.comments.Add(ctx, comment); err != nil {
			return fail(ctx, action, postNotFound(err, post.ID))
		}

		keys := postViewKeys(post).Add(
			cache.PostCommentsKey(post.ID),
			cache.UserCommentsKey(in.UserID),
		).List()
		invalidate(ctx, s.views, action, keys)
		notifyAuthor(ctx, s.notifier, post, "comment", in.UserID)
		return succeed(action, "Comment added.", comment, keys)
	})
}
