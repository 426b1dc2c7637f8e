package models

import (
	"time"
)

// Social link kinds a profile may carry.
const (
	SocialTwitter   = "twitter"
	SocialLinkedIn  = "linkedin"
	SocialInstagram = "instagram"
	SocialPortfolio = "portfolio"
	SocialGitHub    = "github"
)

// UserProfile is the public profile of an authenticated user. UID matches
// the auth subject.
type UserProfile struct {
	UID         string            `gorm:"primaryKey;size:128" json:"uid"`
	DisplayName string            `gorm:"not null" json:"display_name"`
	Username    *string           `gorm:"size:64;uniqueIndex" json:"username,omitempty"`
	Bio         string            `gorm:"size:600" json:"bio"`
	PhotoURL    string            `json:"photo_url"`
	SocialLinks map[string]string `gorm:"type:text;serializer:json" json:"social_links"`
	Interests   []string          `gorm:"type:text;serializer:json" json:"interests"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
