// Package storage deletes uploaded objects (post thumbnails, user images)
// from the configured object store.
package storage

import (
	"context"
	"errors"
	"fmt"

	"witwaves/internal/config"
)

// ErrObjectNotFound is returned when the object to delete does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the slice of object storage the service consumes.
type ObjectStore interface {
	Delete(ctx context.Context, path string) error
}

// New selects the object store named by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "local", "":
		return NewLocalStore(cfg.StorageLocalRoot)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
