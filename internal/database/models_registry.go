package database

import "witwaves/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Post{},
		&models.PostTag{},
		&models.PostLike{},
		&models.Comment{},
		&models.UserUploadedImage{},
		&models.UserProfile{},
	}
}
