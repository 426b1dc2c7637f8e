package database

import (
	"context"
	"testing"

	"witwaves/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: "file::memory:"}

	db, err := Connect(cfg)
	require.NoError(t, err)

	for _, table := range []string{"posts", "post_tags", "post_likes", "comments", "user_uploaded_images", "user_profiles"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.NoError(t, Ping(context.Background(), db))
}

func TestDialector_Selection(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"}).Name())
	assert.Equal(t, "postgres", Dialector(&config.Config{DBDriver: "postgres"}).Name())
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	base := NewGormLogger(nil)
	silenced := base.LogMode(logger.Silent)
	assert.NotSame(t, base, silenced)
	_, ok := silenced.(*CustomGormLogger)
	assert.True(t, ok)
}
