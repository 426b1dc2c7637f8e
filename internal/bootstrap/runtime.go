// Package bootstrap wires the process-wide dependencies shared by the
// server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"witwaves/internal/cache"
	"witwaves/internal/config"
	"witwaves/internal/database"
	"witwaves/internal/featureflags"
	"witwaves/internal/middleware"
	"witwaves/internal/models"
	"witwaves/internal/notifications"
	"witwaves/internal/observability"
	"witwaves/internal/seed"
	"witwaves/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty store with generated demo content.
	SeedDemo bool
	Seed     seed.Options
}

// Runtime holds the connected dependencies.
type Runtime struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Objects storage.ObjectStore
	Flags   *featureflags.Manager
	// Notifier is nil when Redis is unreachable.
	Notifier    *notifications.Notifier
	Views       *cache.ViewCache
	Invalidator *cache.ViewInvalidator
}

// InitRuntime connects to the store, Redis and object storage and optionally
// runs demo seeding.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	observability.SetLogger(middleware.Logger)

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	rt := &Runtime{
		DB:    db,
		Redis: r,
		Flags: featureflags.NewManager(cfg.FeatureFlags),
	}

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("object storage init failed: %w", err)
	}
	rt.Objects = objects

	if r != nil {
		rt.Notifier = notifications.NewNotifier(r)
	}
	rt.Invalidator = cache.NewViewInvalidator(r, rt.Notifier)
	if rt.Flags.Switch(featureflags.ViewCache, true) {
		rt.Views = cache.NewViewCache(r, cfg.ViewCacheTTL)
	}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, db, opts.Seed); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to seed demo content: %w", err)
		}
	}

	return rt, nil
}

// ActivityNotifier returns the notifier for author activity events, or nil
// when the activity_notifications flag is off.
func (rt *Runtime) ActivityNotifier() *notifications.Notifier {
	if !rt.Flags.Switch(featureflags.ActivityNotifications, true) {
		return nil
	}
	return rt.Notifier
}

// Close releases the store and Redis connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if sqlDB, err := rt.DB.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}
	if rt.Redis != nil {
		if rerr := rt.Redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, opts seed.Options) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		middleware.Logger.Info("store already has posts, skipping demo seed", slog.Int64("posts", count))
		return nil
	}
	summary, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("demo content seeded",
		slog.Int("profiles", summary.Profiles),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments))
	return nil
}
