package classifier

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/arbor/pkg/handlers"
	"github.com/JaimeStill/arbor/pkg/pagination"
	"github.com/JaimeStill/arbor/pkg/routes"
)

// Handler provides the HTTP surface for classification.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "classifier"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for classification endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/classify", Handler: h.Classify},
			{Method: "POST", Pattern: "/classify/batch", Handler: h.ClassifyBatch},
			{Method: "GET", Pattern: "/mappings", Handler: h.ListMappings},
		},
	}
}

// Classify runs a single chunk through the pipeline.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Classify(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// ClassifyBatch runs multiple chunks through the pipeline with bounded
// concurrency, returning every outcome.
func (h *Handler) ClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var cmds []Command
	if err := json.NewDecoder(r.Body).Decode(&cmds); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if len(cmds) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("empty batch"))
		return
	}

	items, err := h.sys.ClassifyBatch(r.Context(), cmds)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// ListMappings returns a paginated list of document mappings.
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := MappingFiltersFromQuery(r.URL.Query())

	result, err := h.sys.ListMappings(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
