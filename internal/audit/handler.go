package audit

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/arbor/pkg/handlers"
	"github.com/JaimeStill/arbor/pkg/pagination"
	"github.com/JaimeStill/arbor/pkg/routes"
)

// Handler provides the read-only HTTP surface for the audit log.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "audit"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for audit endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/audit",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
		},
	}
}

// List returns a paginated list of audit entries with optional query
// parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
