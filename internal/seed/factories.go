package seed

import (
	"fmt"
	"strings"
	"time"

	"witwaves/internal/models"
	"witwaves/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var topics = []string{
	"writing", "technology", "ai", "travel", "books", "poetry", "science", "history",
	"philosophy", "music", "film", "food", "design", "startups", "programming", "go",
	"photography", "nature", "productivity", "essays",
}

// Factory builds blog entities with realistic fake content. It does not
// touch the store.
type Factory struct {
	faker   *gofakeit.Faker
	maxDays int
	now     time.Time
}

// NewFactory creates a factory. A zero seed picks a random one.
func NewFactory(seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 365
	}
	return &Factory{faker: gofakeit.New(seed), maxDays: maxDays, now: time.Now().UTC()}
}

// BuildProfile returns a profile for a new user; n keeps usernames unique.
func (f *Factory) BuildProfile(n int) *models.UserProfile {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := fmt.Sprintf("%s.%s%d", strings.ToLower(first), strings.ToLower(last), n)
	username = strings.Map(func(r rune) rune {
		if validation.IsUsername(string(r)) {
			return r
		}
		return -1
	}, username)

	interests := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		interests = append(interests, f.faker.RandomString(topics))
	}

	return &models.UserProfile{
		UID:         uuid.NewString(),
		DisplayName: first + " " + last,
		Username:    &username,
		Bio:         f.faker.Sentence(12),
		PhotoURL:    fmt.Sprintf("https://picsum.photos/seed/%s/200/200", f.faker.UUID()),
		SocialLinks: map[string]string{
			models.SocialGitHub:    "https://github.com/" + username,
			models.SocialPortfolio: "https://" + f.faker.DomainName(),
		},
		Interests: validation.NormalizeTags(interests),
	}
}

// BuildPost returns an unsaved post by author, created within the
// factory's day window.
func (f *Factory) BuildPost(authorID string) *models.Post {
	tagCount := f.faker.Number(1, 4)
	tags := make([]string, 0, tagCount)
	for i := 0; i < tagCount; i++ {
		tags = append(tags, f.faker.RandomString(topics))
	}

	post := &models.Post{
		Title:     strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), "."),
		Content:   f.faker.Paragraph(2, 4, 12, "\n\n"),
		Tags:      validation.NormalizeTags(tags),
		UserID:    authorID,
		CreatedAt: f.createdAt(),
	}
	if f.faker.Bool() {
		id := f.faker.UUID()
		url := fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", id)
		path := fmt.Sprintf("thumbnails/%s/%s.jpg", authorID, id)
		post.ImageURL = &url
		post.ImageStoragePath = &path
	}
	return post
}

// BuildComment returns an unsaved comment on postID by profile.
func (f *Factory) BuildComment(postID string, author *models.UserProfile, after time.Time) *models.Comment {
	created := after.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
	if created.After(f.now) {
		created = f.now
	}
	photo := author.PhotoURL
	return &models.Comment{
		PostID:          postID,
		UserID:          author.UID,
		UserDisplayName: author.DisplayName,
		UserPhotoURL:    &photo,
		Text:            f.faker.Sentence(f.faker.Number(4, 20)),
		CreatedAt:       created,
	}
}

// BuildImage returns an unsaved upload record for userID.
func (f *Factory) BuildImage(userID string) *models.UserUploadedImage {
	id := f.faker.UUID()
	name := id + ".jpg"
	return &models.UserUploadedImage{
		UserID:      userID,
		StoragePath: fmt.Sprintf("uploads/%s/%s", userID, name),
		DownloadURL: fmt.Sprintf("https://picsum.photos/seed/%s/800/600", id),
		FileName:    name,
		MimeType:    "image/jpeg",
		UploadedAt:  f.createdAt(),
	}
}

func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now.Add(-back)
}

func (f *Factory) pick(n int) int {
	return f.faker.Number(0, n-1)
}
