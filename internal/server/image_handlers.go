package server

import (
	"witwaves/internal/models"
	"witwaves/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserImages handles GET /api/users/:uid/images
// @Summary List a user's uploaded images
// @Tags users
// @Produce json
// @Param uid path string true "User ID"
// @Success 200 {array} models.UserUploadedImage
// @Failure 500 {object} models.ErrorResponse
// @Router /users/{uid}/images [get]
func (s *Server) GetUserImages(c *fiber.Ctx) error {
	images, err := s.imageService.ListImages(c.UserContext(), c.Params("uid"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(images)
}

// DeleteUserImage handles DELETE /api/images/:id
// @Summary Delete uploaded image
// @Tags images
// @Produce json
// @Param id path string true "Image ID"
// @Success 200 {object} service.ActionResult
// @Failure 403 {object} service.ActionResult
// @Failure 404 {object} service.ActionResult
// @Security BearerAuth
// @Router /images/{id} [delete]
func (s *Server) DeleteUserImage(c *fiber.Ctx) error {
	ctx, uid := actor(c)
	return respondResult(c, s.imageService.DeleteUserImage(ctx, service.DeleteImageInput{
		ImageID: c.Params("id"),
		UserID:  uid,
	}))
}
