package tracker

import (
	"context"
	"fmt"

	"video-dubber/models"
)

// OpenStore creates a JobStore based on the backend configuration.
func OpenStore(ctx context.Context, cfg models.TrackerConfig) (JobStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires tracker.path")
		}
		return OpenSqliteStore(cfg.Path)
	case "badger":
		return OpenBadgerStore(cfg.Path)
	case "redis":
		return OpenRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
