package storage

import (
	"context"
	"fmt"

	"github.com/kickoff-ai/core/internal/config"
	"github.com/kickoff-ai/core/pkg/database/pool"
)

// Open builds the driver selected by cfg.Storage.Driver
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Storage.FilePath)
	case "redis":
		return NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case "postgres":
		dbPool, err := pool.New(ctx, cfg.DatabaseURL(), pool.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store, err := NewPostgresStore(ctx, dbPool, cfg.Database.Table)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
