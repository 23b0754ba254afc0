package taxonomy

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for taxonomy graph operations:
// versioned storage, structural mutation, diffing, and rollback.
type System interface {
	Handler() *Handler

	CreateVersion(ctx context.Context, cmd CreateVersionCommand) (*Version, error)
	ListVersions(ctx context.Context) ([]Version, error)

	AddNode(ctx context.Context, version int, cmd AddNodeCommand) (*Node, error)
	AddEdge(ctx context.Context, version int, cmd AddEdgeCommand) error
	MoveNode(ctx context.Context, version int, nodeID uuid.UUID, cmd MoveNodeCommand) (*Node, error)
	RenameNode(ctx context.Context, version int, nodeID uuid.UUID, cmd RenameNodeCommand) (*Node, error)

	GetTree(ctx context.Context, version int) (*Tree, error)
	ValidateAcyclic(ctx context.Context, version int) (bool, error)
	Diff(ctx context.Context, from, to int) (*Diff, error)

	Rollback(ctx context.Context, cmd RollbackCommand) (*RollbackResult, error)

	// FindByPath resolves a canonical path within a version. Used by the
	// classification pipeline for candidate validation and by review
	// resolution.
	FindByPath(ctx context.Context, version int, path Path) (*Node, error)
	// CurrentVersion returns the highest finalized version number.
	CurrentVersion(ctx context.Context) (int, error)
}
