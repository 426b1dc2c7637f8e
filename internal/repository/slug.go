package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"witwaves/internal/models"
)

const (
	// MaxSlugLength bounds post ids accepted by GetByID.
	MaxSlugLength = 200
	// MaxSlugAttempts bounds the candidates AllocateSlug tries: the base slug
	// and then suffixes 1 through MaxSlugAttempts-1.
	MaxSlugAttempts = 10

	maxSlugBase = MaxSlugLength - 10
)

var (
	separatorRun = regexp.MustCompile(`[\s_]+`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRun    = regexp.MustCompile(`-{2,}`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// GenerateSlug derives a URL slug from a title: lowercase, whitespace and
// underscores become hyphens, other characters outside [a-z0-9-] are dropped,
// hyphen runs collapse, and leading or trailing hyphens are trimmed.
func GenerateSlug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = separatorRun.ReplaceAllString(s, "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugBase {
		s = strings.TrimRight(s[:maxSlugBase], "-")
	}
	return s
}

// ValidSlug reports whether s has the shape GenerateSlug and AllocateSlug produce.
func ValidSlug(s string) bool {
	return len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}

// AllocateSlug assigns post.ID from its title and creates it, probing
// base, base-1, ... base-9. A candidate lost to a concurrent
// create is skipped like a taken one.
func AllocateSlug(ctx context.Context, posts PostRepository, post *models.Post) error {
	base := GenerateSlug(post.Title)
	if base == "" {
		return models.ErrEmptySlug
	}

	for attempt := 0; attempt < MaxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}

		unique, err := posts.IsSlugUnique(ctx, candidate)
		if err != nil {
			return fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !unique {
			continue
		}

		post.ID = candidate
		err = posts.Create(ctx, post)
		if errors.Is(err, models.ErrSlugTaken) {
			continue
		}
		if err != nil {
			post.ID = ""
			return err
		}
		return nil
	}

	post.ID = ""
	return fmt.Errorf("%w for %q", models.ErrSlugExhausted, base)
}
