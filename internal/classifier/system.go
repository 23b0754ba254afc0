package classifier

import (
	"context"

	"github.com/JaimeStill/arbor/pkg/pagination"
)

// System defines the public contract for the classification pipeline.
type System interface {
	Handler() *Handler

	Classify(ctx context.Context, cmd Command) (*Result, error)
	ClassifyBatch(ctx context.Context, cmds []Command) ([]BatchItem, error)

	ListMappings(
		ctx context.Context,
		page pagination.PageRequest,
		filters MappingFilters,
	) (*pagination.PageResult[Mapping], error)
}
