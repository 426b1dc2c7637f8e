package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserUploadedImage is the metadata record of an object a user uploaded.
// StoragePath and DownloadURL refer to the same stored object.
type UserUploadedImage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:128;not null;index" json:"user_id"`
	StoragePath string    `gorm:"not null" json:"storage_path"`
	DownloadURL string    `gorm:"not null" json:"download_url"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	UploadedAt  time.Time `gorm:"index" json:"uploaded_at"`
}

// BeforeCreate assigns a generated ID and upload time when missing.
func (i *UserUploadedImage) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.UploadedAt.IsZero() {
		i.UploadedAt = time.Now().UTC()
	}
	return nil
}
