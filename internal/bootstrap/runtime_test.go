package bootstrap

import (
	"context"
	"testing"

	"witwaves/internal/cache"
	"witwaves/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, mr *miniredis.Miniredis) *config.Config {
	t.Helper()
	return &config.Config{
		DBDriver:         "sqlite",
		SQLitePath:       "file::memory:",
		RedisURL:         mr.Addr(),
		StorageDriver:    "local",
		StorageLocalRoot: t.TempDir(),
	}
}

func TestInitRuntime_ConnectsEverything(t *testing.T) {
	cfg := testConfig(t, miniredis.RunT(t))

	rt, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	assert.NotNil(t, rt.Redis)
	assert.NotNil(t, rt.Objects)
	assert.NotNil(t, rt.Notifier)
	assert.NotNil(t, rt.Views)
	require.NoError(t, rt.Redis.Ping(context.Background()).Err())
}

func TestInitRuntime_StorageFailureClosesConnections(t *testing.T) {
	cfg := testConfig(t, miniredis.RunT(t))
	cfg.StorageDriver = "floppy"

	rt, err := InitRuntime(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.Nil(t, rt)

	client := cache.GetClient()
	require.NotNil(t, client)
	assert.ErrorIs(t, client.Ping(context.Background()).Err(), redis.ErrClosed)
}
