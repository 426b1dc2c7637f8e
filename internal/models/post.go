// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post is a blog post. ID is the slug allocated from the title at creation
// and never recomputed.
type Post struct {
	ID      string `gorm:"primaryKey;size:220" json:"id"`
	Title   string `gorm:"not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	// Tags is hydrated from post_tags, in insertion order.
	Tags     []string  `gorm:"-" json:"tags"`
	TagRows  []PostTag `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID   string    `gorm:"size:128;index" json:"user_id,omitempty"`
	ImageURL *string   `json:"image_url,omitempty"`
	// ImageStoragePath locates the thumbnail object for cascade cleanup.
	ImageStoragePath *string `json:"-"`
	// LikedBy is hydrated from post_likes.
	LikedBy []string `gorm:"-" json:"liked_by"`
	// LikeCount and CommentCount are cached counters maintained with atomic
	// increments; they can drift from post_likes / comments.
	LikeCount    int       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	IsArchived   bool      `gorm:"not null;default:false;index" json:"is_archived"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostTag is one entry of a post's tag set.
type PostTag struct {
	PostID   string `gorm:"primaryKey;size:220" json:"post_id"`
	Tag      string `gorm:"primaryKey;size:50;index" json:"tag"`
	Position int    `gorm:"not null;default:0" json:"position"`
}

// TableName specifies the table name for GORM.
func (PostTag) TableName() string {
	return "post_tags"
}

// PostLike records that a user likes a post.
// The combination of PostID and UserID is unique.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;size:220" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:128;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PostLike) TableName() string {
	return "post_likes"
}

// IsLikedBy reports whether userID is in the post's liked-by set.
func (p *Post) IsLikedBy(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ArchivePeriod is the number of published posts in one calendar month.
type ArchivePeriod struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
	Count int `json:"count"`
}

// LikeStatus is the payload of a like toggle.
type LikeStatus struct {
	PostID   string `json:"post_id"`
	Liked    bool   `json:"liked"`
	NewCount int    `json:"new_count"`
}

// ArchiveStatus is the payload of an archive toggle.
type ArchiveStatus struct {
	PostID     string `json:"post_id"`
	IsArchived bool   `json:"is_archived"`
}
