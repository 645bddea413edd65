package api

import (
	"github.com/JaimeStill/promptvault/internal/prompts"
	"github.com/JaimeStill/promptvault/pkg/storage"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Prompts prompts.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	var archive storage.System
	if runtime.Prompts.ArchiveDeleted() {
		archive = runtime.Storage
	}

	promptsSystem := prompts.New(
		prompts.NewPostgresStore(runtime.Database.Connection(), runtime.LockTimeout),
		runtime.Locks,
		runtime.Cache,
		prompts.Options{
			ProtectedLabels: runtime.Prompts.ProtectedLabels,
			Lock:            runtime.LockPolicy,
			Archive:         archive,
		},
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Prompts: promptsSystem,
	}
}
