package repository

import (
	"context"
	"errors"
	"time"

	"witwaves/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUsernameTaken is returned when another profile already holds the username.
var ErrUsernameTaken = errors.New("username already taken")

// ProfileRepository reads and upserts user profiles.
type ProfileRepository interface {
	GetByUID(ctx context.Context, uid string) (*models.UserProfile, error)
	IsUsernameAvailable(ctx context.Context, username, uid string) (bool, error)
	Upsert(ctx context.Context, profile *models.UserProfile) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUID(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// IsUsernameAvailable reports whether username is free or already held by uid.
func (r *profileRepository) IsUsernameAvailable(ctx context.Context, username, uid string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("username = ? AND uid <> ?", username, uid).
		Count(&count).Error
	return count == 0, err
}

// Upsert writes every profile field, creating the row on first save. A
// username held by another profile yields ErrUsernameTaken.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "username", "bio", "photo_url", "social_links", "interests", "updated_at",
		}),
	}).Create(profile).Error
	if errors.Is(translateError(r.db, err), gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return err
}

// translateError maps driver errors to gorm's sentinel errors when the
// dialector supports it.
func translateError(db *gorm.DB, err error) error {
	if err == nil {
		return nil
	}
	if t, ok := db.Dialector.(gorm.ErrorTranslator); ok {
		return t.Translate(err)
	}
	return err
}
