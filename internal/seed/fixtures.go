package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"witwaves/internal/models"
	"witwaves/internal/repository"
	"witwaves/internal/validation"

	"gopkg.in/yaml.v3"
)

// Fixtures is a hand-written data set, usually loaded from YAML.
type Fixtures struct {
	Profiles []ProfileFixture `yaml:"profiles"`
	Posts    []PostFixture    `yaml:"posts"`
}

// ProfileFixture describes one user.
type ProfileFixture struct {
	UID         string            `yaml:"uid"`
	DisplayName string            `yaml:"display_name"`
	Username    string            `yaml:"username"`
	Bio         string            `yaml:"bio"`
	PhotoURL    string            `yaml:"photo_url"`
	SocialLinks map[string]string `yaml:"social_links"`
	Interests   []string          `yaml:"interests"`
}

// PostFixture describes one post with its engagement.
type PostFixture struct {
	Title     string           `yaml:"title"`
	Content   string           `yaml:"content"`
	Author    string           `yaml:"author"`
	Tags      []string         `yaml:"tags"`
	ImageURL  string           `yaml:"image_url"`
	CreatedAt time.Time        `yaml:"created_at"`
	Archived  bool             `yaml:"archived"`
	LikedBy   []string         `yaml:"liked_by"`
	Comments  []CommentFixture `yaml:"comments"`
}

// CommentFixture describes one comment.
type CommentFixture struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// LoadFixtures reads and parses a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures parses YAML fixtures and checks their references.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	known := make(map[string]struct{}, len(fx.Profiles))
	for _, p := range fx.Profiles {
		if p.UID == "" {
			return nil, errors.New("fixture profile without uid")
		}
		known[p.UID] = struct{}{}
	}
	for _, p := range fx.Posts {
		if _, ok := known[p.Author]; !ok {
			return nil, fmt.Errorf("post %q: unknown author %q", p.Title, p.Author)
		}
		for _, c := range p.Comments {
			if _, ok := known[c.Author]; !ok {
				return nil, fmt.Errorf("post %q: unknown comment author %q", p.Title, c.Author)
			}
		}
	}
	return &fx, nil
}

// ApplyFixtures writes fx and returns the ids allocated to its posts, in order.
func (s *Seeder) ApplyFixtures(ctx context.Context, fx *Fixtures) ([]string, error) {
	profiles := make(map[string]*models.UserProfile, len(fx.Profiles))
	for _, pf := range fx.Profiles {
		p := &models.UserProfile{
			UID:         pf.UID,
			DisplayName: pf.DisplayName,
			Bio:         pf.Bio,
			PhotoURL:    pf.PhotoURL,
			SocialLinks: pf.SocialLinks,
			Interests:   validation.NormalizeTags(pf.Interests),
		}
		if pf.Username != "" {
			username := pf.Username
			p.Username = &username
		}
		if err := s.profiles.Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", pf.UID, err)
		}
		profiles[pf.UID] = p
	}

	ids := make([]string, 0, len(fx.Posts))
	for _, pf := range fx.Posts {
		post := &models.Post{
			Title:     pf.Title,
			Content:   pf.Content,
			Tags:      validation.NormalizeTags(pf.Tags),
			UserID:    pf.Author,
			CreatedAt: pf.CreatedAt,
		}
		if pf.ImageURL != "" {
			url := pf.ImageURL
			post.ImageURL = &url
		}
		if err := repository.AllocateSlug(ctx, s.posts, post); err != nil {
			return ids, fmt.Errorf("post %q: %w", pf.Title, err)
		}
		for _, uid := range pf.LikedBy {
			if _, err := s.posts.AddLike(ctx, post.ID, uid); err != nil {
				return ids, fmt.Errorf("like %s: %w", post.ID, err)
			}
		}
		for i, cf := range pf.Comments {
			author := profiles[cf.Author]
			c := &models.Comment{
				PostID:          post.ID,
				UserID:          author.UID,
				UserDisplayName: author.DisplayName,
				Text:            cf.Text,
				CreatedAt:       post.CreatedAt.Add(time.Duration(i+1) * time.Minute),
			}
			if err := s.comments.Add(ctx, c); err != nil {
				return ids, fmt.Errorf("comment on %s: %w", post.ID, err)
			}
		}
		if pf.Archived {
			if err := s.posts.SetArchived(ctx, post.ID, true); err != nil {
				return ids, fmt.Errorf("archive %s: %w", post.ID, err)
			}
		}
		ids = append(ids, post.ID)
	}
	return ids, nil
}
