package store

import (
	"context"
	"fmt"

	"github.com/amishk599/upfeed/internal/config"
)

// NewBackend builds the backend selected by cfg.Type.
func NewBackend(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Type {
	case "json":
		return NewJSONFile(cfg.Path), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "redis":
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
