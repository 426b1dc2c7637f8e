// Command seed fills the store with generated demo content or YAML fixtures.
package main

import (
	"context"
	"flag"
	"log"

	"witwaves/internal/config"
	"witwaves/internal/database"
	"witwaves/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 10, "Number of profiles to create")
	numPosts := flag.Int("posts", 40, "Number of posts to create")
	maxLikes := flag.Int("max-likes", 8, "Maximum likes per post")
	maxComments := flag.Int("max-comments", 5, "Maximum comments per post")
	images := flag.Int("images", 2, "Uploaded images per user")
	archived := flag.Float64("archived", 0.1, "Fraction of posts to archive")
	days := flag.Int("days", 365, "Spread post dates over this many past days")
	seedValue := flag.Int64("seed", 0, "Random seed (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	cleanOnly := flag.Bool("clean-only", false, "Only delete existing content")
	file := flag.String("file", "", "Load YAML fixtures instead of generating content")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		MaxLikes:        *maxLikes,
		MaxComments:     *maxComments,
		ImagesPerUser:   *images,
		ArchiveFraction: *archived,
		MaxDays:         *days,
		ShouldClean:     *shouldClean && *file == "",
		Seed:            *seedValue,
	})

	if *cleanOnly {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		log.Println("All content deleted.")
		return
	}

	if *file != "" {
		fx, err := seed.LoadFixtures(*file)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		if *shouldClean {
			if err := s.ClearAll(ctx); err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
		}
		ids, err := s.ApplyFixtures(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("Created %d posts from %s", len(ids), *file)
		return
	}

	summary, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d profiles, %d posts, %d likes, %d comments, %d images",
		summary.Profiles, summary.Posts, summary.Likes, summary.Comments, summary.Images)
}
