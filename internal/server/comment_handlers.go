package server

import (
	"context"

	"witwaves/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCommentsForPost handles GET /api/posts/:id/comments
// @Summary List comments of a post
// @Description Oldest first.
// @Tags comments
// @Produce json
// @Param id path string true "Post slug"
// @Success 200 {array} models.Comment
// @Router /posts/{id}/comments [get]
func (s *Server) GetCommentsForPost(c *fiber.Ctx) error {
	return c.JSON(s.commentQueries.GetCommentsForPost(c.UserContext(), c.Params("id")))
}

// GetCommentsByUser handles GET /api/users/:uid/comments
// @Summary List a user's comments
// @Description Newest first, each with its post title.
// @Tags users
// @Produce json
// @Param uid path string true "User ID"
// @Success 200 {array} models.CommentWithPost
// @Router /users/{uid}/comments [get]
func (s *Server) GetCommentsByUser(c *fiber.Ctx) error {
	return c.JSON(s.commentQueries.GetCommentsByUser(c.UserContext(), c.Params("uid")))
}

// AddComment handles POST /api/posts/:id/comments
// @Summary Add comment
// @Tags comments
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param id path string true "Post slug"
// @Param request body object{userDisplayName=string,userPhotoURL=string,text=string} true "Comment"
// @Success 200 {object} service.ActionResult{data=models.Comment}
// @Failure 400 {object} service.ActionResult
// @Failure 404 {object} service.ActionResult
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID := c.Params("id")
	return withFields(c, func(ctx context.Context, uid string, f service.Fields) service.ActionResult {
		return s.commentService.AddComment(ctx, service.AddCommentInputFromFields(uid, postID, f))
	})
}
