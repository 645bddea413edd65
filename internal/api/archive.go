package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/promptvault/pkg/handlers"
	"github.com/JaimeStill/promptvault/pkg/routes"
	"github.com/JaimeStill/promptvault/pkg/storage"
)

// ArchiveStatus reports whether a deleted prompt version was archived.
type ArchiveStatus struct {
	Key      string `json:"key"`
	Archived bool   `json:"archived"`
}

type archiveHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newArchiveHandler(store storage.System, logger *slog.Logger) *archiveHandler {
	return &archiveHandler{
		store:  store,
		logger: logger.With("handler", "archive"),
	}
}

func (h *archiveHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/archive",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.status},
		},
	}
}

func (h *archiveHandler) status(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	archived, err := h.store.Exists(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ArchiveStatus{Key: key, Archived: archived})
}
