package repository

import (
	"context"
	"testing"
	"time"

	"witwaves/internal/models"
	"witwaves/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

type testRepos struct {
	db       *gorm.DB
	posts    PostRepository
	comments CommentRepository
}

func setupRepos(t *testing.T) testRepos {
	t.Helper()
	db := testutil.OpenTestDB(t)
	posts := NewPostRepository(db)
	return testRepos{db: db, posts: posts, comments: NewCommentRepository(db, posts)}
}

func seedPost(t *testing.T, repo PostRepository, id, userID string, created time.Time, tags ...string) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:        id,
		Title:     id,
		Content:   "<p>seeded content</p>",
		UserID:    userID,
		Tags:      tags,
		CreatedAt: created,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func ids(posts []*models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}
