package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"witwaves/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlug(t *testing.T) {
	t.Parallel()
	tests := []struct {
		title string
		want  string
	}{
		{"Hello, World!", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Go 1.22 -- what's new?", "go-122-whats-new"},
		{"snake_case_title", "snake-case-title"},
		{"---", ""},
		{"Café au lait", "caf-au-lait"},
		{"!!!", ""},
		{"Multiple\t\nwhitespace   runs", "multiple-whitespace-runs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateSlug(tt.title), tt.title)
	}
}

func TestGenerateSlug_Properties(t *testing.T) {
	t.Parallel()
	faker := gofakeit.New(42)
	shape := regexp.MustCompile(`^[a-z0-9-]*$`)

	titles := []string{strings.Repeat("long title ", 60), " nbsp ", "Ünïcödé — dash"}
	for i := 0; i < 200; i++ {
		titles = append(titles, faker.Sentence(faker.Number(1, 12)), faker.Phrase(), faker.HipsterSentence(5))
	}

	for _, title := range titles {
		s := GenerateSlug(title)
		assert.Equal(t, strings.ToLower(s), s, title)
		assert.Regexp(t, shape, s, title)
		assert.False(t, strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-"), title)
		assert.NotContains(t, s, "--", title)
		assert.LessOrEqual(t, len(s), maxSlugBase, title)
		if s != "" {
			assert.True(t, ValidSlug(s), title)
			assert.True(t, ValidSlug(s+"-10"), title)
		}
		assert.Equal(t, s, GenerateSlug(title), "deterministic")
	}
}

func TestValidSlug(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidSlug("hello-world-1"))
	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("Hello"))
	assert.False(t, ValidSlug("-x"))
	assert.False(t, ValidSlug("a--b"))
	assert.False(t, ValidSlug(strings.Repeat("a", MaxSlugLength+1)))
}

func TestAllocateSlug_ScenarioHelloWorld(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	first := &models.Post{Title: "Hello, World!", Content: "<p>first</p>", UserID: "u1"}
	require.NoError(t, AllocateSlug(ctx, r.posts, first))
	assert.Equal(t, "hello-world", first.ID)

	second := &models.Post{Title: "Hello, World!", Content: "<p>second</p>", UserID: "u1"}
	require.NoError(t, AllocateSlug(ctx, r.posts, second))
	assert.Equal(t, "hello-world-1", second.ID)
}

func TestAllocateSlug_Exhaustion(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	for i := 0; i < MaxSlugAttempts; i++ {
		p := &models.Post{Title: "Same", Content: "<p>c</p>", UserID: "u"}
		require.NoError(t, AllocateSlug(ctx, r.posts, p))
	}
	last, err := r.posts.GetByID(ctx, "same-9")
	require.NoError(t, err)
	assert.Equal(t, "Same", last.Title)

	p := &models.Post{Title: "Same", Content: "<p>c</p>", UserID: "u"}
	err = AllocateSlug(ctx, r.posts, p)
	assert.ErrorIs(t, err, models.ErrSlugExhausted)
	assert.Empty(t, p.ID)
}

func TestAllocateSlug_EmptyTitle(t *testing.T) {
	err := AllocateSlug(context.Background(), nil, &models.Post{Title: "?!"})
	assert.ErrorIs(t, err, models.ErrEmptySlug)
}

// raceRepo reports every candidate as free but loses the first insert, as
// when a concurrent create claims the id between check and insert.
type raceRepo struct {
	PostRepository
	created []string
	lost    bool
	failErr error
}

func (r *raceRepo) IsSlugUnique(context.Context, string) (bool, error) { return true, nil }

func (r *raceRepo) Create(_ context.Context, p *models.Post) error {
	if r.failErr != nil {
		return r.failErr
	}
	if !r.lost {
		r.lost = true
		return models.ErrSlugTaken
	}
	r.created = append(r.created, p.ID)
	return nil
}

func TestAllocateSlug_LostRaceProbesNext(t *testing.T) {
	repo := &raceRepo{}
	p := &models.Post{Title: "Race"}
	require.NoError(t, AllocateSlug(context.Background(), repo, p))
	assert.Equal(t, "race-1", p.ID)
	assert.Equal(t, []string{"race-1"}, repo.created)
}

func TestAllocateSlug_StoreErrorStops(t *testing.T) {
	boom := errors.New("store down")
	repo := &raceRepo{failErr: boom}
	p := &models.Post{Title: "Race"}
	assert.ErrorIs(t, AllocateSlug(context.Background(), repo, p), boom)
	assert.Empty(t, p.ID)
}

// takenRepo reports every candidate as taken and records the checks.
type takenRepo struct {
	PostRepository
	checked []string
}

func (r *takenRepo) IsSlugUnique(_ context.Context, slug string) (bool, error) {
	r.checked = append(r.checked, slug)
	return false, nil
}

func TestAllocateSlug_TriesBoundedCandidates(t *testing.T) {
	repo := &takenRepo{}
	err := AllocateSlug(context.Background(), repo, &models.Post{Title: "Busy"})
	assert.ErrorIs(t, err, models.ErrSlugExhausted)
	require.Len(t, repo.checked, MaxSlugAttempts)
	assert.Equal(t, "busy", repo.checked[0])
	assert.Equal(t, "busy-9", repo.checked[MaxSlugAttempts-1])
}
