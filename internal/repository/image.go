package repository

import (
	"context"
	"errors"

	"witwaves/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines storage operations for uploaded image metadata.
type ImageRepository interface {
	Create(ctx context.Context, image *models.UserUploadedImage) error
	GetByID(ctx context.Context, id string) (*models.UserUploadedImage, error)
	ListByUser(ctx context.Context, userID string) ([]*models.UserUploadedImage, error)
	Delete(ctx context.Context, id string) error
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.UserUploadedImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *imageRepository) GetByID(ctx context.Context, id string) (*models.UserUploadedImage, error) {
	var image models.UserUploadedImage
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

func (r *imageRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserUploadedImage, error) {
	images := []*models.UserUploadedImage{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("uploaded_at DESC").Find(&images).Error
	return images, err
}

func (r *imageRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UserUploadedImage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrImageNotFound
	}
	return nil
}
