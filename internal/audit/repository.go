package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/arbor/pkg/pagination"
	"github.com/JaimeStill/arbor/pkg/query"
	"github.com/JaimeStill/arbor/pkg/repository"
)

const insertQ = `
	INSERT INTO audit_log(action, actor, target, detail)
	VALUES ($1, $2, $3, $4)
	RETURNING id, action, actor, target, detail, created_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an audit repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "audit"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Append(ctx context.Context, entry Entry) (*LogEntry, error) {
	detail, err := marshalDetail(entry.Detail)
	if err != nil {
		return nil, err
	}

	e, err := repository.QueryOne(
		ctx, r.db, insertQ,
		[]any{entry.Action, entry.Actor, entry.Target, detail},
		scanEntry,
	)
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	return &e, nil
}

func (r *repo) AppendTx(ctx context.Context, tx *sql.Tx, entry Entry) error {
	detail, err := marshalDetail(entry.Detail)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		"INSERT INTO audit_log(action, actor, target, detail) VALUES ($1, $2, $3, $4)",
		entry.Action, entry.Actor, entry.Target, detail,
	); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[LogEntry], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Action", "Target")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func marshalDetail(detail map[string]any) ([]byte, error) {
	if detail == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal audit detail: %w", err)
	}
	return data, nil
}
