package taxonomy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/pkg/handlers"
	"github.com/JaimeStill/arbor/pkg/routes"
)

var errInvalidVersion = errors.New("invalid version")

// Handler provides the HTTP surface for taxonomy operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "taxonomy"),
	}
}

// Routes returns the route group definition for taxonomy endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/taxonomy",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/versions", Handler: h.ListVersions},
			{Method: "POST", Pattern: "/versions", Handler: h.CreateVersion},
			{Method: "GET", Pattern: "/diff", Handler: h.Diff},
			{Method: "POST", Pattern: "/rollback/{version}", Handler: h.Rollback},
			{Method: "GET", Pattern: "/{version}/tree", Handler: h.GetTree},
			{Method: "GET", Pattern: "/{version}/validate", Handler: h.ValidateAcyclic},
			{Method: "POST", Pattern: "/{version}/nodes", Handler: h.AddNode},
			{Method: "POST", Pattern: "/{version}/edges", Handler: h.AddEdge},
			{Method: "POST", Pattern: "/{version}/nodes/{id}/move", Handler: h.MoveNode},
			{Method: "PUT", Pattern: "/{version}/nodes/{id}/label", Handler: h.RenameNode},
		},
	}
}

// CreateVersion creates a new taxonomy version, optionally snapshotting an
// existing one.
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var cmd CreateVersionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	version, err := h.sys.CreateVersion(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, version)
}

// ListVersions returns the version catalog.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.sys.ListVersions(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, versions)
}

// AddNode creates a node within a version.
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	version, err := pathVersion(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd AddNodeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	node, err := h.sys.AddNode(r.Context(), version, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, node)
}

// AddEdge links two nodes within a version.
func (h *Handler) AddEdge(w http.ResponseWriter, r *http.Request) {
	version, err := pathVersion(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd AddEdgeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.sys.AddEdge(r.Context(), version, cmd); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusNoContent, nil)
}

// MoveNode reparents a node and cascades the path rewrite to its subtree.
func (h *Handler) MoveNode(w http.ResponseWriter, r *http.Request) {
	version, nodeID, err := pathVersionNode(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd MoveNodeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	node, err := h.sys.MoveNode(r.Context(), version, nodeID, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, node)
}

// RenameNode relabels a node and cascades the path rewrite to its subtree.
func (h *Handler) RenameNode(w http.ResponseWriter, r *http.Request) {
	version, nodeID, err := pathVersionNode(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd RenameNodeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	node, err := h.sys.RenameNode(r.Context(), version, nodeID, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, node)
}

// GetTree returns the full node and edge set of a version.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	version, err := pathVersion(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	tree, err := h.sys.GetTree(r.Context(), version)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, tree)
}

// ValidateAcyclic reports whether a version's edge set is acyclic.
func (h *Handler) ValidateAcyclic(w http.ResponseWriter, r *http.Request) {
	version, err := pathVersion(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	valid, err := h.sys.ValidateAcyclic(r.Context(), version)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"version": version,
		"acyclic": valid,
	})
}

// Diff compares two versions given as from and to query parameters.
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	from, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidVersion)
		return
	}
	to, err := strconv.Atoi(r.URL.Query().Get("to"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidVersion)
		return
	}

	diff, err := h.sys.Diff(r.Context(), from, to)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, diff)
}

// Rollback reverts the taxonomy to the path version.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	version, err := pathVersion(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd RollbackCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	cmd.TargetVersion = version

	result, err := h.sys.Rollback(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func pathVersion(r *http.Request) (int, error) {
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		return 0, errInvalidVersion
	}
	return version, nil
}

func pathVersionNode(r *http.Request) (int, uuid.UUID, error) {
	version, err := pathVersion(r)
	if err != nil {
		return 0, uuid.Nil, err
	}

	nodeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return 0, uuid.Nil, errors.New("invalid node id")
	}

	return version, nodeID, nil
}
