// Package infrastructure assembles the shared systems the prompt service
// depends on: logging, Postgres, the Redis cache, lease locks, and the
// optional archive store.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/promptvault/internal/config"
	"github.com/JaimeStill/promptvault/pkg/cache"
	"github.com/JaimeStill/promptvault/pkg/database"
	"github.com/JaimeStill/promptvault/pkg/lifecycle"
	"github.com/JaimeStill/promptvault/pkg/lock"
	"github.com/JaimeStill/promptvault/pkg/storage"
)

// Infrastructure holds the core systems required by domain modules.
// Storage is nil when archiving is not configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Cache     cache.System
	Locks     lock.Manager
	Storage   storage.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	c, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}

	locks, err := newLocks(&cfg.Lock, c)
	if err != nil {
		return nil, fmt.Errorf("lock init failed: %w", err)
	}

	var store storage.System
	if cfg.Storage.Enabled {
		store, err = storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Cache:     c,
		Locks:     locks,
		Storage:   store,
	}, nil
}

// newLocks shares the cache connection for the redis backend.
func newLocks(cfg *lock.Config, c cache.System) (lock.Manager, error) {
	switch cfg.Backend {
	case "memory":
		return lock.NewMemory(), nil
	default:
		return lock.NewRedis(c.Client(), cfg.Prefix)
	}
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Cache.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("cache start failed: %w", err)
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	return nil
}
