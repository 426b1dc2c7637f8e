package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"witwaves/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Delete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "images", "u1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "u1", "a.png"), []byte("x"), 0o644))

	ctx := context.Background()
	require.NoError(t, store.Delete(ctx, "images/u1/a.png"))
	_, statErr := os.Stat(filepath.Join(root, "images", "u1", "a.png"))
	assert.True(t, os.IsNotExist(statErr))

	assert.ErrorIs(t, store.Delete(ctx, "images/u1/a.png"), ErrObjectNotFound)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"../etc/passwd", "images/../../x", "", "/"} {
		assert.ErrorIs(t, store.Delete(context.Background(), p), ErrInvalidPath, p)
	}
}

func TestLocalStore_AllowsDotsInsideNames(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	full, err := store.Resolve("images/u1/a..b.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "images", "u1", "a..b.png"), full)

	require.NoError(t, os.WriteFile(filepath.Join(root, "..hidden.png"), []byte("x"), 0o644))
	require.NoError(t, store.Delete(context.Background(), "..hidden.png"))

	for _, p := range []string{"images/u1/..", "..\\x.png", "images//../x"} {
		_, err := store.Resolve(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestNew_SelectsLocal(t *testing.T) {
	store, err := New(context.Background(), &config.Config{StorageDriver: "local", StorageLocalRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), &config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}

type s3Mock struct {
	mock.Mock
}

func (m *s3Mock) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Key))
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *s3Mock) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Key))
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func TestS3Store_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("existing object", func(t *testing.T) {
		m := new(s3Mock)
		m.On("HeadObject", ctx, "thumbs/p.png").Return(&s3.HeadObjectOutput{}, nil)
		m.On("DeleteObject", ctx, "thumbs/p.png").Return(&s3.DeleteObjectOutput{}, nil)

		store := &S3Store{client: m, bucket: "b"}
		require.NoError(t, store.Delete(ctx, "/thumbs/p.png"))
		m.AssertExpectations(t)
	})

	t.Run("missing object", func(t *testing.T) {
		m := new(s3Mock)
		m.On("HeadObject", ctx, "gone.png").Return(nil, &types.NotFound{})

		store := &S3Store{client: m, bucket: "b"}
		assert.ErrorIs(t, store.Delete(ctx, "gone.png"), ErrObjectNotFound)
		m.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
	})

	t.Run("generic api not found", func(t *testing.T) {
		m := new(s3Mock)
		m.On("HeadObject", ctx, "gone.png").Return(nil, &smithy.GenericAPIError{Code: "NoSuchKey"})

		store := &S3Store{client: m, bucket: "b"}
		assert.ErrorIs(t, store.Delete(ctx, "gone.png"), ErrObjectNotFound)
	})

	t.Run("access denied propagates", func(t *testing.T) {
		m := new(s3Mock)
		denied := &smithy.GenericAPIError{Code: "AccessDenied"}
		m.On("HeadObject", ctx, "x.png").Return(nil, denied)

		store := &S3Store{client: m, bucket: "b"}
		err := store.Delete(ctx, "x.png")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrObjectNotFound))
	})

	t.Run("empty key", func(t *testing.T) {
		store := &S3Store{client: new(s3Mock), bucket: "b"}
		assert.ErrorIs(t, store.Delete(ctx, "/"), ErrInvalidPath)
	})
}
