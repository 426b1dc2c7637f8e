// Package seed fills the store with demo content for development and tests.
package seed

import (
	"context"
	"fmt"
	"log"

	"witwaves/internal/database"
	"witwaves/internal/models"
	"witwaves/internal/repository"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers        int
	NumPosts        int
	MaxLikes        int
	MaxComments     int
	ImagesPerUser   int
	ArchiveFraction float64
	MaxDays         int
	ShouldClean     bool
	// Seed makes the generated content reproducible; 0 is random.
	Seed int64
}

// Summary counts what a run created.
type Summary struct {
	Profiles int
	Posts    int
	Likes    int
	Comments int
	Images   int
}

// Seeder writes generated content through the repositories, so counters
// and tag rows stay consistent with what the actions produce.
type Seeder struct {
	db       *gorm.DB
	opts     Options
	factory  *Factory
	posts    repository.PostRepository
	comments repository.CommentRepository
	images   repository.ImageRepository
	profiles repository.ProfileRepository
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	posts := repository.NewPostRepository(db)
	return &Seeder{
		db:       db,
		opts:     opts,
		factory:  NewFactory(opts.Seed, opts.MaxDays),
		posts:    posts,
		comments: repository.NewCommentRepository(db, posts),
		images:   repository.NewImageRepository(db),
		profiles: repository.NewProfileRepository(db),
	}
}

// ClearAll deletes every row of every table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// Run generates profiles, posts, likes, comments and uploads.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	log.Printf("🌱 Seeding %d users and %d posts...", s.opts.NumUsers, s.opts.NumPosts)

	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
	}

	users := make([]*models.UserProfile, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		p := s.factory.BuildProfile(i)
		if err := s.profiles.Upsert(ctx, p); err != nil {
			return sum, fmt.Errorf("create profile: %w", err)
		}
		users = append(users, p)
		for j := 0; j < s.opts.ImagesPerUser; j++ {
			if err := s.images.Create(ctx, s.factory.BuildImage(p.UID)); err != nil {
				return sum, fmt.Errorf("create image: %w", err)
			}
			sum.Images++
		}
	}
	sum.Profiles = len(users)
	if len(users) == 0 {
		return sum, nil
	}
	log.Printf("✓ %d profiles created", sum.Profiles)

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.factory.pick(len(users))]
		post := s.factory.BuildPost(author.UID)
		if err := repository.AllocateSlug(ctx, s.posts, post); err != nil {
			return sum, fmt.Errorf("create post %q: %w", post.Title, err)
		}
		sum.Posts++

		likes, comments, err := s.engage(ctx, post, users)
		if err != nil {
			return sum, err
		}
		sum.Likes += likes
		sum.Comments += comments

		if s.opts.ArchiveFraction > 0 && float64(s.factory.pick(1000))/1000 < s.opts.ArchiveFraction {
			if err := s.posts.SetArchived(ctx, post.ID, true); err != nil {
				return sum, fmt.Errorf("archive %s: %w", post.ID, err)
			}
		}
	}
	log.Printf("✓ %d posts, %d likes, %d comments created", sum.Posts, sum.Likes, sum.Comments)
	return sum, nil
}

func (s *Seeder) engage(ctx context.Context, post *models.Post, users []*models.UserProfile) (int, int, error) {
	likes := 0
	if s.opts.MaxLikes > 0 {
		n := s.factory.pick(s.opts.MaxLikes + 1)
		for k := 0; k < n; k++ {
			fan := users[s.factory.pick(len(users))]
			if _, err := s.posts.AddLike(ctx, post.ID, fan.UID); err != nil {
				return 0, 0, fmt.Errorf("like %s: %w", post.ID, err)
			}
		}
		liked, err := s.posts.GetByID(ctx, post.ID)
		if err != nil {
			return 0, 0, err
		}
		likes = liked.LikeCount
	}

	comments := 0
	if s.opts.MaxComments > 0 {
		n := s.factory.pick(s.opts.MaxComments + 1)
		for k := 0; k < n; k++ {
			c := s.factory.BuildComment(post.ID, users[s.factory.pick(len(users))], post.CreatedAt)
			if err := s.comments.Add(ctx, c); err != nil {
				return 0, 0, fmt.Errorf("comment on %s: %w", post.ID, err)
			}
			comments++
		}
	}
	return likes, comments, nil
}
