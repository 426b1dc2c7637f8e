package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reader comment on a post. Comments are immutable.
type Comment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	PostID          string    `gorm:"size:220;not null;index" json:"post_id"`
	UserID          string    `gorm:"size:128;not null;index" json:"user_id"`
	UserDisplayName string    `gorm:"not null" json:"user_display_name"`
	UserPhotoURL    *string   `json:"user_photo_url,omitempty"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a generated ID when none is set.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CommentWithPost is a comment together with its parent post's title.
type CommentWithPost struct {
	Comment
	PostTitle string `json:"post_title"`
}
