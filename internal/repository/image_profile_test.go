package repository

import (
	"context"
	"testing"

	"witwaves/internal/models"
	"witwaves/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRepository_Lifecycle(t *testing.T) {
	repo := NewImageRepository(testutil.OpenTestDB(t))
	ctx := context.Background()

	img := &models.UserUploadedImage{UserID: "u1", StoragePath: "images/u1/a.png", DownloadURL: "https://cdn/a.png", FileName: "a.png", MimeType: "image/png"}
	require.NoError(t, repo.Create(ctx, img))
	require.NotEmpty(t, img.ID)
	assert.False(t, img.UploadedAt.IsZero())

	got, err := repo.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "images/u1/a.png", got.StoragePath)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, img.ID))
	_, err = repo.GetByID(ctx, img.ID)
	assert.ErrorIs(t, err, models.ErrImageNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, img.ID), models.ErrImageNotFound)
}

func TestProfileRepository_Upsert(t *testing.T) {
	repo := NewProfileRepository(testutil.OpenTestDB(t))
	ctx := context.Background()

	_, err := repo.GetByUID(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrProfileNotFound)

	name := "jane.doe"
	require.NoError(t, repo.Upsert(ctx, &models.UserProfile{
		UID: "u1", DisplayName: "Jane", Username: &name,
		SocialLinks: map[string]string{"github": "https://github.com/jane"},
		Interests:   []string{"go"},
	}))

	available, err := repo.IsUsernameAvailable(ctx, "jane.doe", "u2")
	require.NoError(t, err)
	assert.False(t, available)
	available, err = repo.IsUsernameAvailable(ctx, "jane.doe", "u1")
	require.NoError(t, err)
	assert.True(t, available)

	require.NoError(t, repo.Upsert(ctx, &models.UserProfile{UID: "u1", DisplayName: "Jane D.", Bio: "hi"}))
	got, err := repo.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Jane D.", got.DisplayName)
	assert.Equal(t, "hi", got.Bio)
	assert.Nil(t, got.Username)
	assert.Empty(t, got.SocialLinks)
}

func TestProfileRepository_UpsertRejectsTakenUsername(t *testing.T) {
	repo := NewProfileRepository(testutil.OpenTestDB(t))
	ctx := context.Background()

	name := "jane.doe"
	require.NoError(t, repo.Upsert(ctx, &models.UserProfile{UID: "u1", DisplayName: "Jane", Username: &name}))

	same := "jane.doe"
	err := repo.Upsert(ctx, &models.UserProfile{UID: "u2", DisplayName: "Other", Username: &same})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = repo.GetByUID(ctx, "u2")
	assert.ErrorIs(t, err, models.ErrProfileNotFound)

	require.NoError(t, repo.Upsert(ctx, &models.UserProfile{UID: "u1", DisplayName: "Jane again", Username: &name}))
}
