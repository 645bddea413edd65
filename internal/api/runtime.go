package api

import (
	"time"

	"github.com/JaimeStill/promptvault/internal/config"
	"github.com/JaimeStill/promptvault/internal/infrastructure"
	"github.com/JaimeStill/promptvault/pkg/lock"
	"github.com/JaimeStill/promptvault/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Prompts    config.PromptsConfig
	LockPolicy lock.Policy
	// LockTimeout bounds row lock waits inside deletion transactions.
	LockTimeout time.Duration
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Cache:     infra.Cache,
			Locks:     infra.Locks,
			Storage:   infra.Storage,
		},
		Pagination:  cfg.API.Pagination,
		Prompts:     cfg.Prompts,
		LockPolicy:  cfg.Lock.Policy(),
		LockTimeout: cfg.Database.LockTimeoutDuration(),
	}
}
