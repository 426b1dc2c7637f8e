package server

import (
	"context"

	"witwaves/internal/models"
	"witwaves/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/:uid/profile
// @Summary Get profile
// @Tags users
// @Produce json
// @Param uid path string true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{uid}/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	uid := c.Params("uid")
	profile := s.profileService.GetProfile(c.UserContext(), uid)
	if profile == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Profile", uid))
	}
	return c.JSON(profile)
}

// UpdateProfile handles PUT /api/profile for the authenticated user.
// @Summary Update own profile
// @Tags users
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param request body object{displayName=string,username=string,bio=string,photoURL=string,socialLinks=object,interests=string} true "Profile fields"
// @Success 200 {object} service.ActionResult{data=models.UserProfile}
// @Failure 400 {object} service.ActionResult
// @Security BearerAuth
// @Router /profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	return withFields(c, func(ctx context.Context, uid string, f service.Fields) service.ActionResult {
		return s.profileService.UpdateUserProfile(ctx, service.UpdateProfileInputFromFields(uid, f))
	})
}
