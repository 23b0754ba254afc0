package audit

import (
	"context"
	"database/sql"

	"github.com/JaimeStill/arbor/pkg/pagination"
)

// System defines the public contract for the audit log. Append and AppendTx
// are the only write operations; AppendTx composes an entry into a caller's
// transaction so audit rows commit or abort with the mutation they record.
type System interface {
	Handler() *Handler

	Append(ctx context.Context, entry Entry) (*LogEntry, error)
	AppendTx(ctx context.Context, tx *sql.Tx, entry Entry) error

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[LogEntry], error)
}
