package prompts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JaimeStill/promptvault/pkg/handlers"
	"github.com/JaimeStill/promptvault/pkg/pagination"
	"github.com/JaimeStill/promptvault/pkg/routes"
)

// Handler provides HTTP endpoints for prompt operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// DeleteResponse is the body returned by a successful deletion.
type DeleteResponse struct {
	Message string       `json:"message"`
	Result  DeleteResult `json:"result"`
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "prompts"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for prompt endpoints.
// Prompt names may contain slashes, so the name segment is a trailing wildcard.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/projects/{project}/prompts",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "GET", Pattern: "/{name...}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{name...}", Handler: h.Delete},
		},
	}
}

// List returns a paginated list of prompt versions with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), r.PathValue("project"), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching prompt versions.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.List(r.Context(), r.PathValue("project"), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find resolves one prompt version by the version or label query parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	version, label, err := parseSelector(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	prompt, err := h.sys.Find(r.Context(), FindQuery{
		ProjectID: r.PathValue("project"),
		Name:      r.PathValue("name"),
		Version:   version,
		Label:     label,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, prompt)
}

// Delete removes the prompt versions selected by the version and label query parameters.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	version, label, err := parseSelector(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Delete(r.Context(), DeleteCommand{
		ProjectID: r.PathValue("project"),
		Name:      r.PathValue("name"),
		Version:   version,
		Label:     label,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, DeleteResponse{
		Message: result.Message(),
		Result:  result,
	})
}

func parseSelector(values url.Values) (*int, *string, error) {
	var (
		version *int
		label   *string
	)

	if v := values.Get("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, nil, fmt.Errorf("%w: version must be a positive integer", ErrInvalidInput)
		}
		version = &n
	}

	if l := values.Get("label"); l != "" {
		label = &l
	}

	return version, label, nil
}
