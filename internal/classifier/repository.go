package classifier

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/arbor/internal/audit"
	"github.com/JaimeStill/arbor/internal/chunks"
	"github.com/JaimeStill/arbor/internal/llm"
	"github.com/JaimeStill/arbor/internal/review"
	"github.com/JaimeStill/arbor/internal/taxonomy"
	"github.com/JaimeStill/arbor/pkg/pagination"
	"github.com/JaimeStill/arbor/pkg/query"
	"github.com/JaimeStill/arbor/pkg/repository"
)

const (
	insertMappingQ = `
		INSERT INTO document_mappings
			(id, doc_id, node_id, version, path, confidence, hitl_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	upsertMappingQ = insertMappingQ + `
		ON CONFLICT (doc_id, node_id, version) DO UPDATE
		SET path = EXCLUDED.path,
			confidence = EXCLUDED.confidence,
			hitl_required = EXCLUDED.hitl_required`
)

type repo struct {
	db         *sql.DB
	chunks     chunks.System
	taxonomy   taxonomy.System
	review     review.System
	audit      audit.System
	proposer   llm.Proposer
	config     Config
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a classification repository implementing the System interface.
// A nil proposer runs the pipeline in rule-only mode.
func New(
	db *sql.DB,
	chunkSys chunks.System,
	taxonomySys taxonomy.System,
	reviewSys review.System,
	auditSys audit.System,
	proposer llm.Proposer,
	config Config,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		chunks:     chunkSys,
		taxonomy:   taxonomySys,
		review:     reviewSys,
		audit:      auditSys,
		proposer:   proposer,
		config:     config,
		logger:     logger.With("system", "classifier"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Classify(ctx context.Context, cmd Command) (*Result, error) {
	text, err := r.resolveText(ctx, cmd)
	if err != nil {
		return nil, err
	}

	version, err := r.taxonomy.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	rules, err := r.loadRules(ctx)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		rules:    rules,
		proposer: r.proposer,
		config:   r.config,
		logger:   r.logger,
		resolve: func(ctx context.Context, path taxonomy.Path) bool {
			_, err := r.taxonomy.FindByPath(ctx, version, path)
			return err == nil
		},
	}

	out, err := p.run(ctx, text)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ChunkID:    cmd.ChunkID,
		Candidates: out.Candidates,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
		Degraded:   out.Degraded,
	}
	if result.Candidates == nil {
		result.Candidates = []Candidate{}
	}

	node := r.bindBest(ctx, version, out)
	accept := node != nil && !out.Degraded && out.Confidence >= r.config.Threshold

	if accept {
		if err := r.acceptMapping(ctx, cmd, version, node, out); err != nil {
			return nil, err
		}
		result.Path = node.Path
		result.Version = version

		r.logger.Info("classification accepted",
			"chunk_id", cmd.ChunkID,
			"path", node.Path.Key(),
			"confidence", out.Confidence,
		)
		return result, nil
	}

	priority, err := r.escalate(ctx, cmd, version, node, out)
	if err != nil {
		return nil, err
	}

	result.HITL = true
	result.Priority = priority
	if node != nil {
		result.Path = node.Path
		result.Version = version
	}

	r.logger.Info("classification escalated",
		"chunk_id", cmd.ChunkID,
		"confidence", out.Confidence,
		"priority", priority,
		"degraded", out.Degraded,
	)
	return result, nil
}

// ClassifyBatch runs every command through the pipeline with bounded
// concurrency and gathers all outcomes before returning. Individual
// failures are reported per item, never as a batch failure.
func (r *repo) ClassifyBatch(ctx context.Context, cmds []Command) ([]BatchItem, error) {
	items := make([]BatchItem, len(cmds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.BatchWorkers)

	for i, cmd := range cmds {
		g.Go(func() error {
			item := BatchItem{ChunkID: cmd.ChunkID}

			if err := gctx.Err(); err != nil {
				item.Error = err.Error()
				items[i] = item
				return nil
			}

			result, err := r.Classify(gctx, cmd)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Result = result
			}

			items[i] = item
			return nil
		})
	}

	// Workers report failures through their item; Wait only gates the barrier.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *repo) ListMappings(
	ctx context.Context,
	page pagination.PageRequest,
	filters MappingFilters,
) (*pagination.PageResult[Mapping], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(mappingProjection, mappingDefaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count mappings: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	mappings, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanMapping)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}

	result := pagination.NewPageResult(mappings, total, page.Page, page.PageSize)
	return &result, nil
}

// resolveText returns the text to classify, loading the chunk when the
// command does not carry text inline.
func (r *repo) resolveText(ctx context.Context, cmd Command) (string, error) {
	text := strings.TrimSpace(cmd.Text)
	if text != "" {
		return text, nil
	}

	if cmd.ChunkID == uuid.Nil {
		return "", ErrEmptyText
	}

	chunk, err := r.chunks.Get(ctx, cmd.ChunkID)
	if err != nil {
		if errors.Is(err, chunks.ErrNotFound) {
			return "", ErrChunkNotFound
		}
		return "", err
	}

	text = strings.TrimSpace(chunk.Content)
	if text == "" {
		return "", ErrEmptyText
	}

	return text, nil
}

// bindBest resolves the winning candidate to a node at the given version.
// Rule candidates may reference paths that no longer exist; an unresolvable
// best candidate forces escalation instead of acceptance.
func (r *repo) bindBest(ctx context.Context, version int, out *outcome) *taxonomy.Node {
	if out.Best == nil || version == 0 {
		return nil
	}

	node, err := r.taxonomy.FindByPath(ctx, version, out.Best.Path)
	if err != nil {
		return nil
	}
	return node
}

func (r *repo) acceptMapping(
	ctx context.Context,
	cmd Command,
	version int,
	node *taxonomy.Node,
	out *outcome,
) error {
	path, err := json.Marshal(node.Path)
	if err != nil {
		return fmt.Errorf("marshal mapping path: %w", err)
	}

	insertQ := insertMappingQ
	if r.config.ConflictPolicy == PolicyLastWriterWins {
		insertQ = upsertMappingQ
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var zero struct{}

		if _, err := tx.ExecContext(
			ctx, insertQ,
			uuid.New(), cmd.ChunkID, node.ID, version, path, out.Confidence, false,
		); err != nil {
			if repository.IsUniqueViolation(err) {
				return zero, ErrMappingConflict
			}
			return zero, fmt.Errorf("insert mapping: %w", err)
		}

		entry := audit.Entry{
			Action: "classification_accepted",
			Actor:  cmd.Actor,
			Target: chunkTarget(cmd.ChunkID),
			Detail: map[string]any{
				"path":       node.Path,
				"version":    version,
				"confidence": out.Confidence,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return zero, err
		}

		return zero, nil
	})
	return err
}

// escalate queues the classification for human review, writing a
// provisional hitl_required mapping when the best candidate still resolves.
func (r *repo) escalate(
	ctx context.Context,
	cmd Command,
	version int,
	node *taxonomy.Node,
	out *outcome,
) (int, error) {
	priority := priorityFor(out.Confidence)

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var zero struct{}

		if node != nil {
			path, err := json.Marshal(node.Path)
			if err != nil {
				return zero, fmt.Errorf("marshal mapping path: %w", err)
			}
			// Provisional mappings always take the last write; reviewers
			// settle the final state.
			if _, err := tx.ExecContext(
				ctx, upsertMappingQ,
				uuid.New(), cmd.ChunkID, node.ID, version, path, out.Confidence, true,
			); err != nil {
				return zero, fmt.Errorf("insert provisional mapping: %w", err)
			}
		}

		enqueue := review.EnqueueCommand{
			ChunkID:        cmd.ChunkID,
			Candidates:     reviewCandidates(out.Candidates),
			SuggestedPaths: suggestedPaths(out.Candidates),
			Confidence:     out.Confidence,
			Priority:       priority,
			Actor:          cmd.Actor,
		}
		if _, err := r.review.EnqueueTx(ctx, tx, enqueue); err != nil {
			return zero, err
		}

		entry := audit.Entry{
			Action: "classification_escalated",
			Actor:  cmd.Actor,
			Target: chunkTarget(cmd.ChunkID),
			Detail: map[string]any{
				"confidence": out.Confidence,
				"priority":   priority,
				"degraded":   out.Degraded,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return zero, err
		}

		return zero, nil
	})
	if err != nil {
		return 0, err
	}

	return priority, nil
}

func reviewCandidates(candidates []Candidate) []review.Candidate {
	result := make([]review.Candidate, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, review.Candidate{Path: c.Path, Score: c.Score})
	}
	return result
}

func suggestedPaths(candidates []Candidate) []taxonomy.Path {
	paths := make([]taxonomy.Path, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.Path)
	}
	return paths
}

func chunkTarget(id uuid.UUID) string {
	return fmt.Sprintf("chunk:%s", id)
}
