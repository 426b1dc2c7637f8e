package server

import (
	"context"

	"witwaves/internal/models"
	"witwaves/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts?limit=
// @Summary List posts
// @Description Non-archived posts, newest first.
// @Tags posts
// @Produce json
// @Param limit query int false "Maximum number of posts"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	return c.JSON(s.postQueries.GetPosts(c.UserContext(), c.QueryInt("limit", 0)))
}

// GetPost handles GET /api/posts/:id
// @Summary Get post by slug
// @Tags posts
// @Produce json
// @Param id path string true "Post slug"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id := c.Params("id")
	post := s.postQueries.GetPost(c.UserContext(), id)
	if post == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Post", id))
	}
	return c.JSON(post)
}

// GetAllTags handles GET /api/tags
// @Summary List tags
// @Description Distinct tags of non-archived posts, sorted.
// @Tags tags
// @Produce json
// @Success 200 {array} string
// @Router /tags [get]
func (s *Server) GetAllTags(c *fiber.Ctx) error {
	return c.JSON(s.postQueries.GetAllTags(c.UserContext()))
}

// GetPostsByTag handles GET /api/tags/:tag/posts
// @Summary List posts by tag
// @Tags tags
// @Produce json
// @Param tag path string true "Tag (case-insensitive)"
// @Success 200 {array} models.Post
// @Router /tags/{tag}/posts [get]
func (s *Server) GetPostsByTag(c *fiber.Ctx) error {
	return c.JSON(s.postQueries.GetPostsByTag(c.UserContext(), c.Params("tag")))
}

// GetArchivePeriods handles GET /api/archive
// @Summary List archive months
// @Tags archive
// @Produce json
// @Success 200 {array} models.ArchivePeriod
// @Router /archive [get]
func (s *Server) GetArchivePeriods(c *fiber.Ctx) error {
	return c.JSON(s.postQueries.GetArchivePeriods(c.UserContext()))
}

// GetPostsByArchive handles GET /api/archive/:year/:month/posts
// @Summary List posts of a month
// @Tags archive
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /archive/{year}/{month}/posts [get]
func (s *Server) GetPostsByArchive(c *fiber.Ctx) error {
	year, month, err := archiveMonth(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	return c.JSON(s.postQueries.GetPostsByArchive(c.UserContext(), year, month))
}

// GetPostsByUser handles GET /api/users/:uid/posts
// @Summary List a user's posts
// @Description Includes archived posts.
// @Tags users
// @Produce json
// @Param uid path string true "User ID"
// @Success 200 {array} models.Post
// @Router /users/{uid}/posts [get]
func (s *Server) GetPostsByUser(c *fiber.Ctx) error {
	return c.JSON(s.postQueries.GetPostsByUserID(c.UserContext(), c.Params("uid")))
}

// GetLikedPostsByUser handles GET /api/users/:uid/liked
// @Summary List posts a user liked
// @Tags users
// @Produce json
// @Param uid path string true "User ID"
// @Success 200 {array} models.Post
// @Router /users/{uid}/liked [get]
func (s *Server) GetLikedPostsByUser(c *fiber.Ctx) error {
	return c.JSON(s.postQueries.GetLikedPostsByUser(c.UserContext(), c.Params("uid")))
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description The slug is derived from the title; the author is the token subject.
// @Tags posts
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param request body object{title=string,content=string,tags=string,imageUrl=string,imageStoragePath=string} true "Post fields"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} service.ActionResult
// @Failure 401 {object} object{error=string}
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	return withFields(c, func(ctx context.Context, uid string, f service.Fields) service.ActionResult {
		return s.postService.CreatePost(ctx, service.CreatePostInputFromFields(uid, f))
	})
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update post
// @Tags posts
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param id path string true "Post slug"
// @Param request body object{title=string,content=string,tags=string,imageUrl=string,imageStoragePath=string,removeImage=bool} true "Post fields"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} service.ActionResult
// @Failure 403 {object} service.ActionResult
// @Failure 404 {object} service.ActionResult
// @Security BearerAuth
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id := c.Params("id")
	return withFields(c, func(ctx context.Context, uid string, f service.Fields) service.ActionResult {
		return s.postService.UpdatePost(ctx, service.UpdatePostInputFromFields(uid, id, f))
	})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Description Removes the post with its comments, tags and likes.
// @Tags posts
// @Produce json
// @Param id path string true "Post slug"
// @Success 200 {object} service.ActionResult
// @Failure 403 {object} service.ActionResult
// @Failure 404 {object} service.ActionResult
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx, uid := actor(c)
	return respondResult(c, s.postService.DeletePost(ctx, service.PostRef{UserID: uid, PostID: c.Params("id")}))
}

// ToggleLikePost handles POST /api/posts/:id/like
// @Summary Like or unlike post
// @Tags posts
// @Produce json
// @Param id path string true "Post slug"
// @Success 200 {object} service.ActionResult{data=models.LikeStatus}
// @Failure 404 {object} service.ActionResult
// @Security BearerAuth
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLikePost(c *fiber.Ctx) error {
	ctx, uid := actor(c)
	return respondResult(c, s.postService.ToggleLikePost(ctx, service.PostRef{UserID: uid, PostID: c.Params("id")}))
}

// ToggleArchivePost handles POST /api/posts/:id/archive
// @Summary Archive or restore post
// @Tags posts
// @Produce json
// @Param id path string true "Post slug"
// @Success 200 {object} service.ActionResult{data=models.ArchiveStatus}
// @Failure 403 {object} service.ActionResult
// @Failure 404 {object} service.ActionResult
// @Security BearerAuth
// @Router /posts/{id}/archive [post]
func (s *Server) ToggleArchivePost(c *fiber.Ctx) error {
	ctx, uid := actor(c)
	return respondResult(c, s.postService.ToggleArchivePost(ctx, service.PostRef{UserID: uid, PostID: c.Params("id")}))
}
