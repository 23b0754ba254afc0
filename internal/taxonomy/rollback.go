package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/audit"
	"github.com/JaimeStill/arbor/pkg/repository"
)

const (
	countNodesQ = `
		SELECT COUNT(*)
		FROM taxonomy_nodes
		WHERE version = $1`

	loadStaleMappingsQ = `
		SELECT id, doc_id, path
		FROM document_mappings
		WHERE version > $1
		ORDER BY id`

	rewriteMappingQ = `
		UPDATE document_mappings
		SET version = $1, node_id = $2, path = $3
		WHERE id = $4`

	deleteMappingQ = `
		DELETE FROM document_mappings
		WHERE id = $1`

	loadRollbackMigrationsQ = `
		SELECT id, from_version, to_version, from_path, to_path, rationale, created_at
		FROM taxonomy_migrations
		WHERE to_version > $1
		ORDER BY to_version DESC, id DESC`

	deleteEdgesAboveQ = `
		DELETE FROM taxonomy_edges
		WHERE version > $1`

	deleteNodesAboveQ = `
		DELETE FROM taxonomy_nodes
		WHERE version > $1`

	deleteMigrationsAboveQ = `
		DELETE FROM taxonomy_migrations
		WHERE to_version > $1`

	deleteVersionsAboveQ = `
		DELETE FROM taxonomy_versions
		WHERE version > $1`
)

// staleMapping is a document mapping referencing a version above the
// rollback target.
type staleMapping struct {
	ID    uuid.UUID
	DocID uuid.UUID
	Path  Path
}

type mappingActionKind int

const (
	actionRewrite mappingActionKind = iota
	actionDeleteOrphan
	actionDeleteDuplicate
)

// mappingAction is the planned fate of one stale mapping. node is set for
// rewrites and duplicates; duplicates are deleted because another mapping
// for the same document already claimed that node at the target version.
type mappingAction struct {
	kind    mappingActionKind
	mapping staleMapping
	node    Node
}

// Rollback reverts the taxonomy to cmd.TargetVersion inside a single
// transaction: document mappings are rewritten to the target's equivalent
// paths (or deleted when none exists), then every node, edge, migration
// record, and version row above the target is removed. Rollback holds the
// global mutation lock, so no structural edit or classification write can
// interleave with it.
func (r *repo) Rollback(ctx context.Context, cmd RollbackCommand) (*RollbackResult, error) {
	release := r.locks.acquireAll()
	defer release()

	started := time.Now()

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*RollbackResult, error) {
		if _, err := r.getVersion(ctx, tx, cmd.TargetVersion); err != nil {
			return nil, fmt.Errorf("%w: version %d: %v", ErrRollbackTarget, cmd.TargetVersion, err)
		}

		var current int
		if err := tx.QueryRowContext(ctx, currentVersionQ).Scan(&current); err != nil {
			return nil, fmt.Errorf("current version: %w", err)
		}
		if cmd.TargetVersion >= current {
			return nil, fmt.Errorf(
				"%w: target %d is not below current %d",
				ErrRollbackTarget, cmd.TargetVersion, current,
			)
		}

		var nodeCount int
		if err := tx.QueryRowContext(ctx, countNodesQ, cmd.TargetVersion).Scan(&nodeCount); err != nil {
			return nil, fmt.Errorf("count target nodes: %w", err)
		}
		if nodeCount == 0 {
			return nil, fmt.Errorf(
				"%w: version %d has no nodes",
				ErrRollbackTarget, cmd.TargetVersion,
			)
		}

		result := &RollbackResult{TargetVersion: cmd.TargetVersion}

		if err := r.rewriteMappings(ctx, tx, cmd, result); err != nil {
			return nil, err
		}

		deleted, err := repository.ExecCount(ctx, tx, deleteEdgesAboveQ, cmd.TargetVersion)
		if err != nil {
			return nil, fmt.Errorf("delete edges: %w", err)
		}
		result.EdgesDeleted = int(deleted)

		deleted, err = repository.ExecCount(ctx, tx, deleteNodesAboveQ, cmd.TargetVersion)
		if err != nil {
			return nil, fmt.Errorf("delete nodes: %w", err)
		}
		result.NodesDeleted = int(deleted)

		if _, err := repository.ExecCount(ctx, tx, deleteMigrationsAboveQ, cmd.TargetVersion); err != nil {
			return nil, fmt.Errorf("delete migrations: %w", err)
		}
		if _, err := repository.ExecCount(ctx, tx, deleteVersionsAboveQ, cmd.TargetVersion); err != nil {
			return nil, fmt.Errorf("delete versions: %w", err)
		}

		entry := audit.Entry{
			Action: "rollback_completed",
			Actor:  cmd.Actor,
			Target: versionTarget(cmd.TargetVersion),
			Detail: map[string]any{
				"from_version":       current,
				"mappings_rewritten": result.MappingsRewritten,
				"mappings_deleted":   result.MappingsDeleted,
				"edges_deleted":      result.EdgesDeleted,
				"nodes_deleted":      result.NodesDeleted,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return nil, err
		}

		return result, nil
	})
	if err != nil {
		// The transaction is gone; record the failure out of band so the
		// aborted attempt is still visible in the audit trail.
		failure := audit.Entry{
			Action: "rollback_failed",
			Actor:  cmd.Actor,
			Target: versionTarget(cmd.TargetVersion),
			Detail: map[string]any{"error": err.Error()},
		}
		if _, auditErr := r.audit.Append(ctx, failure); auditErr != nil {
			r.logger.Error("failed to audit rollback failure", "error", auditErr)
		}

		if errors.Is(err, ErrRollbackTarget) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRollbackFailed, err)
	}

	result.Success = true
	result.Duration = time.Since(started)
	result.DurationMs = result.Duration.Milliseconds()

	r.logger.Info("taxonomy rollback completed",
		"target_version", cmd.TargetVersion,
		"duration_ms", result.DurationMs,
		"mappings_rewritten", result.MappingsRewritten,
		"mappings_deleted", result.MappingsDeleted,
	)

	return result, nil
}

// rewriteMappings walks every document mapping above the target version and
// either rewrites it to the target's equivalent path or deletes it when the
// node no longer exists at the target.
func (r *repo) rewriteMappings(
	ctx context.Context,
	tx *sql.Tx,
	cmd RollbackCommand,
	result *RollbackResult,
) error {
	stale, err := repository.QueryMany(
		ctx, tx, loadStaleMappingsQ,
		[]any{cmd.TargetVersion},
		scanStaleMapping,
	)
	if err != nil {
		return fmt.Errorf("load stale mappings: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	migrations, err := repository.QueryMany(
		ctx, tx, loadRollbackMigrationsQ,
		[]any{cmd.TargetVersion},
		scanMigration,
	)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	// Newest-first reverse index: a path at any later version traces back to
	// its target-version ancestor by repeatedly undoing the latest move.
	reverse := make(map[string]Path, len(migrations))
	for _, m := range migrations {
		key := m.ToPath.Key()
		if _, seen := reverse[key]; !seen {
			reverse[key] = m.FromPath
		}
	}

	actions, err := planMappingActions(stale, reverse, func(path Path) (Node, error) {
		return r.findByPath(ctx, tx, cmd.TargetVersion, path)
	})
	if err != nil {
		return err
	}

	for _, action := range actions {
		switch action.kind {
		case actionRewrite:
			raw, err := marshalPath(action.node.Path)
			if err != nil {
				return err
			}
			if err := repository.ExecExpectOne(
				ctx, tx, rewriteMappingQ,
				cmd.TargetVersion, action.node.ID, raw, action.mapping.ID,
			); err != nil {
				return fmt.Errorf("rewrite mapping %s: %w", action.mapping.ID, err)
			}
			result.MappingsRewritten++

		case actionDeleteOrphan, actionDeleteDuplicate:
			if err := repository.ExecExpectOne(ctx, tx, deleteMappingQ, action.mapping.ID); err != nil {
				return fmt.Errorf("delete mapping %s: %w", action.mapping.ID, err)
			}
			result.MappingsDeleted++
		}

		if err := r.audit.AppendTx(ctx, tx, auditFor(action, cmd)); err != nil {
			return err
		}
	}

	return nil
}

// planMappingActions decides the fate of every stale mapping: backtrack its
// path through the reverse migration index, resolve it at the target
// version, and rewrite, delete, or drop it as a duplicate. A document may
// hold stale mappings in several later versions that converge on the same
// target node; only the first is rewritten, the rest must be deleted or the
// rewrite would collide with the mapping uniqueness constraint.
func planMappingActions(
	stale []staleMapping,
	reverse map[string]Path,
	resolve func(Path) (Node, error),
) ([]mappingAction, error) {
	claimed := make(map[string]bool)
	actions := make([]mappingAction, 0, len(stale))

	for _, mapping := range stale {
		path := backtrackPath(reverse, mapping.Path)

		node, err := resolve(path)
		switch {
		case err == nil:
			key := mapping.DocID.String() + "/" + node.ID.String()
			kind := actionRewrite
			if claimed[key] {
				kind = actionDeleteDuplicate
			}
			claimed[key] = true
			actions = append(actions, mappingAction{kind: kind, mapping: mapping, node: node})
		case errors.Is(err, ErrNodeNotFound):
			actions = append(actions, mappingAction{kind: actionDeleteOrphan, mapping: mapping})
		default:
			return nil, err
		}
	}

	return actions, nil
}

// auditFor builds the audit entry describing one executed mapping action.
func auditFor(action mappingAction, cmd RollbackCommand) audit.Entry {
	entry := audit.Entry{
		Actor:  cmd.Actor,
		Target: fmt.Sprintf("mapping:%s", action.mapping.ID),
	}

	switch action.kind {
	case actionRewrite:
		entry.Action = "mapping_rewritten"
		entry.Detail = map[string]any{
			"from_path": action.mapping.Path,
			"to_path":   action.node.Path,
			"version":   cmd.TargetVersion,
		}
	case actionDeleteOrphan:
		entry.Action = "mapping_deleted"
		entry.Detail = map[string]any{
			"path":   action.mapping.Path,
			"reason": "no equivalent path at target version",
		}
	case actionDeleteDuplicate:
		entry.Action = "mapping_deleted"
		entry.Detail = map[string]any{
			"path":    action.mapping.Path,
			"to_path": action.node.Path,
			"reason":  "document already mapped to node at target version",
		}
	}

	return entry
}

// backtrackPath undoes recorded path moves until the path stabilizes at its
// oldest known form. Bounded by the reverse index size to guard against a
// malformed record cycle.
func backtrackPath(reverse map[string]Path, path Path) Path {
	for range len(reverse) + 1 {
		prior, ok := reverse[path.Key()]
		if !ok {
			return path
		}
		path = prior
	}
	return path
}

func scanStaleMapping(s repository.Scanner) (staleMapping, error) {
	var m staleMapping
	var raw []byte

	if err := s.Scan(&m.ID, &m.DocID, &raw); err != nil {
		return m, err
	}
	if err := unmarshalPath(raw, &m.Path); err != nil {
		return m, err
	}

	return m, nil
}
