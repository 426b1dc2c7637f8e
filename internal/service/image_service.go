package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"witwaves/internal/cache"
	"witwaves/internal/models"
	"witwaves/internal/repository"
	"witwaves/internal/storage"
	"witwaves/internal/validation"
)

// ImageService manages a user's uploaded images.
type ImageService struct {
	images  repository.ImageRepository
	objects storage.ObjectStore
	views   *cache.ViewInvalidator
}

// NewImageService creates a new image service.
func NewImageService(images repository.ImageRepository, objects storage.ObjectStore, views *cache.ViewInvalidator) *ImageService {
	return &ImageService{images: images, objects: objects, views: views}
}

// DeleteImageInput identifies an image and the acting user.
type DeleteImageInput struct {
	ImageID string `form:"imageId" validate:"required"`
	UserID  string `form:"userId" validate:"required"`
}

// ListImages returns the images uploaded by userID, newest first.
func (s *ImageService) ListImages(ctx context.Context, userID string) ([]*models.UserUploadedImage, error) {
	return s.images.ListByUser(ctx, userID)
}

// DeleteUserImage removes the stored object and then its metadata. An
// object that is already gone is not an error; any other storage failure
// fails the action and keeps the metadata.
func (s *ImageService) DeleteUserImage(ctx context.Context, in DeleteImageInput) ActionResult {
	const action = "deleteUserImage"
	return perform(ctx, action, func(ctx context.Context) ActionResult {
		in.ImageID = strings.TrimSpace(in.ImageID)
		in.UserID = strings.TrimSpace(in.UserID)
		if errs := validation.Fields(in); errs != nil {
			return invalid(action, "An image and a signed-in user are required.", errs)
		}

		image, err := s.images.GetByID(ctx, in.ImageID)
		if err != nil {
			return fail(ctx, action, imageNotFound(err, in.ImageID))
		}
		if image.UserID != in.UserID {
			return fail(ctx, action, models.NewUnauthorizedError("You can only delete your own images."))
		}

		if s.objects != nil {
			if err := s.objects.Delete(ctx, image.StoragePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
				return fail(ctx, action, fmt.Errorf("delete stored image: %w", err))
			}
		}
		if err := s.images.Delete(ctx, image.ID); err != nil {
			return fail(ctx, action, imageNotFound(err, image.ID))
		}

		keys := []string{cache.UserKey(in.UserID)}
		invalidate(ctx, s.views, action, keys)
		return succeed(action, "Image deleted.", image, keys)
	})
}

func imageNotFound(err error, id string) error {
	if errors.Is(err, models.ErrImageNotFound) {
		return models.NewNotFoundError("Image", id)
	}
	return err
}
