package review

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/pkg/pagination"
)

// System defines the public contract for the human-in-the-loop review queue.
// EnqueueTx composes an enqueue into a caller's transaction so escalation
// commits atomically with the classification that triggered it.
type System interface {
	Handler() *Handler

	Enqueue(ctx context.Context, cmd EnqueueCommand) (*Item, error)
	EnqueueTx(ctx context.Context, tx *sql.Tx, cmd EnqueueCommand) (*Item, error)
	ListPending(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Item], error)

	Assign(ctx context.Context, id uuid.UUID, cmd AssignCommand) (*Item, error)
	Resolve(ctx context.Context, id uuid.UUID, cmd ResolveCommand) (*Item, error)
	Skip(ctx context.Context, id uuid.UUID, cmd SkipCommand) (*Item, error)
}
