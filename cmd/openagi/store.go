package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/openagi/internal/config"
	redisAdapter "github.com/aretw0/openagi/pkg/adapters/redis"
	"github.com/aretw0/openagi/pkg/persistence/middleware"
	"github.com/aretw0/openagi/pkg/ports"
)

// errNoSharedStore is returned by commands that need the redis workspace store.
var errNoSharedStore = errors.New("no shared workspace store: set redis.addr or OPENAGI_REDIS_ADDR")

// openStore connects to the redis workspace store described by cfg, sealing API keys when an
// encryption key is configured. Without redis.addr it returns a nil store and redis client.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.WorkspaceStore, *redisAdapter.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, nil, func() {}, nil
	}

	store := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		redisAdapter.WithPrefix(cfg.Redis.Prefix+"workspace:"),
		redisAdapter.WithTTL(cfg.Redis.TTL),
	)
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}

	var ws ports.WorkspaceStore = store
	if cfg.Encryption.Enabled() {
		active, fallback, err := cfg.Encryption.Keys()
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		ws = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return ws, store, cleanup, nil
}
