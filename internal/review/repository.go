package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/audit"
	"github.com/JaimeStill/arbor/internal/taxonomy"
	"github.com/JaimeStill/arbor/pkg/pagination"
	"github.com/JaimeStill/arbor/pkg/query"
	"github.com/JaimeStill/arbor/pkg/repository"
)

const itemColumns = `id, chunk_id, candidates, suggested_paths, confidence,
	priority, status, assigned_to, resolution, created_at, resolved_at`

const (
	insertItemQ = `
		INSERT INTO review_queue
			(id, chunk_id, candidates, suggested_paths, confidence, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + itemColumns

	getItemQ = `
		SELECT ` + itemColumns + `
		FROM review_queue
		WHERE id = $1`

	getItemForUpdateQ = getItemQ + `
		FOR UPDATE`

	assignItemQ = `
		UPDATE review_queue
		SET status = 'assigned', assigned_to = $1
		WHERE id = $2
		RETURNING ` + itemColumns

	closeItemQ = `
		UPDATE review_queue
		SET status = $1,
			resolution = $2,
			assigned_to = COALESCE(assigned_to, $3),
			resolved_at = $4
		WHERE id = $5
		RETURNING ` + itemColumns

	upsertMappingQ = `
		INSERT INTO document_mappings
			(id, doc_id, node_id, version, path, confidence, hitl_required)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		ON CONFLICT (doc_id, node_id, version) DO UPDATE
		SET path = EXCLUDED.path,
			confidence = EXCLUDED.confidence,
			hitl_required = false`

	clearProvisionalQ = `
		DELETE FROM document_mappings
		WHERE doc_id = $1 AND hitl_required = true AND node_id <> $2`
)

type repo struct {
	db         *sql.DB
	taxonomy   taxonomy.System
	audit      audit.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a review queue repository implementing the System interface.
func New(
	db *sql.DB,
	taxonomySys taxonomy.System,
	auditSys audit.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		taxonomy:   taxonomySys,
		audit:      auditSys,
		logger:     logger.With("system", "review"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Enqueue(ctx context.Context, cmd EnqueueCommand) (*Item, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Item, error) {
		return r.EnqueueTx(ctx, tx, cmd)
	})
}

func (r *repo) EnqueueTx(ctx context.Context, tx *sql.Tx, cmd EnqueueCommand) (*Item, error) {
	candidates, err := marshalJSON(orEmpty(cmd.Candidates))
	if err != nil {
		return nil, err
	}
	paths, err := marshalJSON(orEmpty(cmd.SuggestedPaths))
	if err != nil {
		return nil, err
	}

	item, err := repository.QueryOne(
		ctx, tx, insertItemQ,
		[]any{uuid.New(), cmd.ChunkID, candidates, paths, cmd.Confidence, clampPriority(cmd.Priority)},
		scanItem,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue review item: %w", err)
	}

	entry := audit.Entry{
		Action: "review_enqueued",
		Actor:  cmd.Actor,
		Target: itemTarget(item.ID),
		Detail: map[string]any{
			"chunk_id":   cmd.ChunkID,
			"confidence": cmd.Confidence,
			"priority":   item.Priority,
		},
	}
	if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *repo) ListPending(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Item], error) {
	page.Normalize(r.pagination)

	if filters.Status == nil {
		pending := string(StatusPending)
		filters.Status = &pending
	}

	qb := query.NewBuilder(projection, defaultSort...)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count review items: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanItem)
	if err != nil {
		return nil, fmt.Errorf("query review items: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Assign(ctx context.Context, id uuid.UUID, cmd AssignCommand) (*Item, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Item, error) {
		item, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if !canTransition(item.Status, StatusAssigned) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, item.Status, StatusAssigned)
		}

		updated, err := repository.QueryOne(
			ctx, tx, assignItemQ,
			[]any{cmd.Reviewer, id},
			scanItem,
		)
		if err != nil {
			return nil, fmt.Errorf("assign review item: %w", err)
		}

		entry := audit.Entry{
			Action: "review_assigned",
			Actor:  cmd.Reviewer,
			Target: itemTarget(id),
			Detail: map[string]any{"chunk_id": item.ChunkID},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return nil, err
		}

		return &updated, nil
	})
}

// Resolve finalizes a review item: the approved path is bound to a node at
// the current taxonomy version, the document mapping is upserted with
// hitl_required cleared, and the status change plus audit entry commit in
// the same transaction.
func (r *repo) Resolve(ctx context.Context, id uuid.UUID, cmd ResolveCommand) (*Item, error) {
	current, err := r.taxonomy.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	node, err := r.taxonomy.FindByPath(ctx, current, cmd.ApprovedPath)
	if err != nil {
		return nil, err
	}

	item, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Item, error) {
		item, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if !canTransition(item.Status, StatusResolved) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, item.Status, StatusResolved)
		}

		path, err := marshalJSON(node.Path)
		if err != nil {
			return nil, err
		}

		// A provisional mapping flagged during escalation may point at a
		// different node than the one the reviewer approved; resolution must
		// not leave it behind.
		if _, err := tx.ExecContext(
			ctx, clearProvisionalQ,
			item.ChunkID, node.ID,
		); err != nil {
			return nil, fmt.Errorf("clear provisional mappings: %w", err)
		}

		// Human resolution is authoritative.
		if _, err := tx.ExecContext(
			ctx, upsertMappingQ,
			uuid.New(), item.ChunkID, node.ID, current, path, 1.0,
		); err != nil {
			return nil, fmt.Errorf("upsert mapping: %w", err)
		}

		updated, err := repository.QueryOne(
			ctx, tx, closeItemQ,
			[]any{StatusResolved, cmd.Notes, cmd.Reviewer, time.Now().UTC(), id},
			scanItem,
		)
		if err != nil {
			return nil, fmt.Errorf("resolve review item: %w", err)
		}

		entry := audit.Entry{
			Action: "review_resolved",
			Actor:  cmd.Reviewer,
			Target: itemTarget(id),
			Detail: map[string]any{
				"chunk_id":      item.ChunkID,
				"approved_path": node.Path,
				"version":       current,
				"notes":         cmd.Notes,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return nil, err
		}

		return &updated, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("review item resolved",
		"item_id", id,
		"path", node.Path.Key(),
		"reviewer", cmd.Reviewer,
	)

	return item, nil
}

func (r *repo) Skip(ctx context.Context, id uuid.UUID, cmd SkipCommand) (*Item, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Item, error) {
		item, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if !canTransition(item.Status, StatusSkipped) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, item.Status, StatusSkipped)
		}

		updated, err := repository.QueryOne(
			ctx, tx, closeItemQ,
			[]any{StatusSkipped, cmd.Notes, cmd.Reviewer, time.Now().UTC(), id},
			scanItem,
		)
		if err != nil {
			return nil, fmt.Errorf("skip review item: %w", err)
		}

		entry := audit.Entry{
			Action: "review_skipped",
			Actor:  cmd.Reviewer,
			Target: itemTarget(id),
			Detail: map[string]any{"chunk_id": item.ChunkID},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return nil, err
		}

		return &updated, nil
	})
}

func (r *repo) getForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Item, error) {
	item, err := repository.QueryOne(ctx, tx, getItemForUpdateQ, []any{id}, scanItem)
	if err != nil {
		return Item{}, repository.MapError(err, ErrItemNotFound, ErrItemNotFound)
	}
	return item, nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal review payload: %w", err)
	}
	return data, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func clampPriority(priority int) int {
	switch {
	case priority < 0:
		return 0
	case priority > 100:
		return 100
	default:
		return priority
	}
}

func itemTarget(id uuid.UUID) string {
	return fmt.Sprintf("review:%s", id)
}
