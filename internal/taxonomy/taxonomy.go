// Package taxonomy implements the versioned taxonomy graph domain: node and
// edge storage per version, acyclicity enforcement, version diffing, and
// transactional rollback with a full audit trail.
//
// The graph uses single-parent-per-version (tree) semantics: every node has
// exactly one canonical path per version, and structural edits produce
// migration records that let document mappings follow path changes across
// versions.
package taxonomy

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Path is a canonical path: the ordered list of labels from the taxonomy
// root to a node. It is the node's stable identity within a version.
type Path []string

// Key returns the path's unique string form used for storage constraints
// and comparison.
func (p Path) Key() string {
	return strings.Join(p, "/")
}

// Equal reports whether two paths are identical.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Child returns a new path extending p with label.
func (p Path) Child(label string) Path {
	child := make(Path, 0, len(p)+1)
	child = append(child, p...)
	return append(child, label)
}

// HasPrefix reports whether p starts with prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Node is a taxonomy node within a single version. Nodes are immutable once
// their version is superseded; structural changes produce new versions.
type Node struct {
	ID         uuid.UUID `json:"id"`
	Version    int       `json:"version"`
	Label      string    `json:"label"`
	Path       Path      `json:"path"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Edge is a parent→child relation between two nodes of the same version.
type Edge struct {
	ParentID uuid.UUID `json:"parent_id"`
	ChildID  uuid.UUID `json:"child_id"`
	Version  int       `json:"version"`
}

// Tree is the full node and edge set of one version.
type Tree struct {
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// Version is a catalog entry for one taxonomy version.
type Version struct {
	Version   int       `json:"version"`
	BasedOn   *int      `json:"based_on,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MigrationRecord captures a canonical path change between two versions.
// Records are append-only and drive mapping rewrites during rollback and
// moved-node detection during diffs.
type MigrationRecord struct {
	ID          int64     `json:"id"`
	FromVersion int       `json:"from_version"`
	ToVersion   int       `json:"to_version"`
	FromPath    Path      `json:"from_path"`
	ToPath      Path      `json:"to_path"`
	Rationale   string    `json:"rationale"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateVersionCommand snapshots FromVersion as the base of a new version.
// FromVersion 0 creates an empty initial version.
type CreateVersionCommand struct {
	FromVersion int    `json:"from_version"`
	Actor       string `json:"actor"`
}

// AddNodeCommand creates a node under ParentPath. An empty ParentPath
// creates a root node.
type AddNodeCommand struct {
	Label      string  `json:"label"`
	ParentPath Path    `json:"parent_path"`
	Confidence float64 `json:"confidence"`
	Actor      string  `json:"actor"`
}

// AddEdgeCommand links two existing nodes of the same version.
type AddEdgeCommand struct {
	ParentID uuid.UUID `json:"parent_id"`
	ChildID  uuid.UUID `json:"child_id"`
	Actor    string    `json:"actor"`
}

// MoveNodeCommand reparents a node, cascading the path rewrite to its
// entire subtree.
type MoveNodeCommand struct {
	NewParentID uuid.UUID `json:"new_parent_id"`
	Rationale   string    `json:"rationale"`
	Actor       string    `json:"actor"`
}

// RenameNodeCommand relabels a node, cascading the path rewrite to its
// entire subtree.
type RenameNodeCommand struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
	Actor     string `json:"actor"`
}

// RollbackCommand reverts the taxonomy to TargetVersion.
type RollbackCommand struct {
	TargetVersion int    `json:"target_version"`
	Actor         string `json:"actor"`
}

// RollbackResult reports what a completed rollback changed.
type RollbackResult struct {
	Success           bool          `json:"success"`
	TargetVersion     int           `json:"target_version"`
	Duration          time.Duration `json:"-"`
	DurationMs        int64         `json:"duration_ms"`
	MappingsRewritten int           `json:"mappings_rewritten"`
	MappingsDeleted   int           `json:"mappings_deleted"`
	EdgesDeleted      int           `json:"edges_deleted"`
	NodesDeleted      int           `json:"nodes_deleted"`
}

// Moved reports a node present in both versions under different paths.
type Moved struct {
	FromPath Path `json:"from_path"`
	ToPath   Path `json:"to_path"`
}

// Modified reports a node present at the same path in both versions with
// differing metadata.
type Modified struct {
	Path           Path    `json:"path"`
	FromConfidence float64 `json:"from_confidence"`
	ToConfidence   float64 `json:"to_confidence"`
}

// Diff is the structural difference between two versions. Nodes are matched
// by canonical path, not by internal id.
type Diff struct {
	From     int        `json:"from"`
	To       int        `json:"to"`
	Added    []Path     `json:"added"`
	Removed  []Path     `json:"removed"`
	Moved    []Moved    `json:"moved"`
	Modified []Modified `json:"modified"`
}
