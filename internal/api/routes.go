package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/promptvault/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	groups := []routes.Group{domain.Prompts.Handler().Routes()}

	if runtime.Prompts.ArchiveDeleted() && runtime.Storage != nil {
		groups = append(groups, newArchiveHandler(runtime.Storage, runtime.Logger).routes())
	}

	routes.Register(mux, groups...)

	for _, pattern := range routes.Patterns(groups...) {
		runtime.Logger.Debug("route registered", slog.String("pattern", pattern))
	}
}
