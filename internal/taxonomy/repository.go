package taxonomy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/audit"
	"github.com/JaimeStill/arbor/pkg/repository"
)

const (
	insertVersionQ = `
		INSERT INTO taxonomy_versions (version, based_on)
		SELECT COALESCE(MAX(version), 0) + 1, $1 FROM taxonomy_versions
		RETURNING version, based_on, created_at`

	getVersionQ = `
		SELECT version, based_on, created_at
		FROM taxonomy_versions
		WHERE version = $1`

	listVersionsQ = `
		SELECT version, based_on, created_at
		FROM taxonomy_versions
		ORDER BY version`

	insertNodeQ = `
		INSERT INTO taxonomy_nodes (id, version, label, path, path_key, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + nodeColumns

	copyNodeQ = `
		INSERT INTO taxonomy_nodes (id, version, label, path, path_key, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getNodeQ = `
		SELECT ` + nodeColumns + `
		FROM taxonomy_nodes
		WHERE id = $1`

	findByPathQ = `
		SELECT ` + nodeColumns + `
		FROM taxonomy_nodes
		WHERE version = $1 AND path_key = $2`

	loadNodesQ = `
		SELECT ` + nodeColumns + `
		FROM taxonomy_nodes
		WHERE version = $1
		ORDER BY path_key`

	updatePathQ = `
		UPDATE taxonomy_nodes
		SET path = $1, path_key = $2
		WHERE id = $3`

	updateLabelQ = `
		UPDATE taxonomy_nodes
		SET label = $1, path = $2, path_key = $3
		WHERE id = $4`

	insertEdgeQ = `
		INSERT INTO taxonomy_edges (parent_id, child_id, version)
		VALUES ($1, $2, $3)`

	deleteParentEdgeQ = `
		DELETE FROM taxonomy_edges
		WHERE version = $1 AND child_id = $2`

	loadEdgesQ = `
		SELECT parent_id, child_id, version
		FROM taxonomy_edges
		WHERE version = $1`

	insertMigrationQ = `
		INSERT INTO taxonomy_migrations (from_version, to_version, from_path, to_path, rationale)
		VALUES ($1, $2, $3, $4, $5)`

	loadMigrationsQ = `
		SELECT id, from_version, to_version, from_path, to_path, rationale, created_at
		FROM taxonomy_migrations
		WHERE to_version > $1 AND to_version <= $2
		ORDER BY to_version, id`

	currentVersionQ = `
		SELECT COALESCE(MAX(version), 0)
		FROM taxonomy_versions`
)

type repo struct {
	db     *sql.DB
	audit  audit.System
	logger *slog.Logger
	locks  *versionLocks
}

// New creates a taxonomy repository implementing the System interface.
func New(db *sql.DB, auditor audit.System, logger *slog.Logger) System {
	return &repo{
		db:     db,
		audit:  auditor,
		logger: logger.With("system", "taxonomy"),
		locks:  newVersionLocks(),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) CreateVersion(ctx context.Context, cmd CreateVersionCommand) (*Version, error) {
	if cmd.FromVersion < 0 {
		return nil, ErrVersionNotFound
	}

	var basedOn *int
	if cmd.FromVersion > 0 {
		basedOn = &cmd.FromVersion

		release := r.locks.acquire(cmd.FromVersion)
		defer release()
	}

	version, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Version, error) {
		if cmd.FromVersion > 0 {
			if _, err := r.getVersion(ctx, tx, cmd.FromVersion); err != nil {
				return Version{}, err
			}
		}

		version, err := repository.QueryOne(ctx, tx, insertVersionQ, []any{basedOn}, scanVersion)
		if err != nil {
			return Version{}, fmt.Errorf("insert version: %w", err)
		}

		if cmd.FromVersion > 0 {
			if err := r.copySnapshot(ctx, tx, cmd.FromVersion, version.Version); err != nil {
				return Version{}, err
			}
		}

		entry := audit.Entry{
			Action: "version_created",
			Actor:  cmd.Actor,
			Target: versionTarget(version.Version),
			Detail: map[string]any{"based_on": cmd.FromVersion},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return Version{}, err
		}

		return version, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("taxonomy version created",
		"version", version.Version,
		"based_on", cmd.FromVersion,
	)

	return &version, nil
}

// copySnapshot duplicates the base version's nodes and edges into the new
// version under fresh node ids.
func (r *repo) copySnapshot(ctx context.Context, tx *sql.Tx, base, target int) error {
	nodes, err := r.loadNodes(ctx, tx, base)
	if err != nil {
		return err
	}
	edges, err := r.loadEdges(ctx, tx, base)
	if err != nil {
		return err
	}

	idMap := make(map[uuid.UUID]uuid.UUID, len(nodes))
	for _, n := range nodes {
		idMap[n.ID] = uuid.New()
	}

	for _, n := range nodes {
		path, err := marshalPath(n.Path)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(
			ctx, copyNodeQ,
			idMap[n.ID], target, n.Label, path, n.Path.Key(), n.Confidence,
		); err != nil {
			return fmt.Errorf("copy node %s: %w", n.Path.Key(), err)
		}
	}

	for _, e := range edges {
		if _, err := tx.ExecContext(
			ctx, insertEdgeQ,
			idMap[e.ParentID], idMap[e.ChildID], target,
		); err != nil {
			return fmt.Errorf("copy edge: %w", err)
		}
	}

	return nil
}

func (r *repo) ListVersions(ctx context.Context) ([]Version, error) {
	return repository.QueryMany(ctx, r.db, listVersionsQ, nil, scanVersion)
}

func (r *repo) AddNode(ctx context.Context, version int, cmd AddNodeCommand) (*Node, error) {
	if strings.TrimSpace(cmd.Label) == "" {
		return nil, ErrInvalidLabel
	}

	release := r.locks.acquire(version)
	defer release()

	node, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Node, error) {
		if _, err := r.getVersion(ctx, tx, version); err != nil {
			return Node{}, err
		}

		path := Path{cmd.Label}
		var parent *Node
		if len(cmd.ParentPath) > 0 {
			found, err := r.findByPath(ctx, tx, version, cmd.ParentPath)
			if err != nil {
				return Node{}, err
			}
			parent = &found
			path = parent.Path.Child(cmd.Label)
		}

		raw, err := marshalPath(path)
		if err != nil {
			return Node{}, err
		}

		node, err := repository.QueryOne(
			ctx, tx, insertNodeQ,
			[]any{uuid.New(), version, cmd.Label, raw, path.Key(), clamp(cmd.Confidence)},
			scanNode,
		)
		if err != nil {
			return Node{}, repository.MapError(err, ErrNodeNotFound, ErrPathConflict)
		}

		if parent != nil {
			if _, err := tx.ExecContext(ctx, insertEdgeQ, parent.ID, node.ID, version); err != nil {
				return Node{}, fmt.Errorf("insert edge: %w", err)
			}
		}

		entry := audit.Entry{
			Action: "node_added",
			Actor:  cmd.Actor,
			Target: nodeTarget(node.ID),
			Detail: map[string]any{
				"version": version,
				"path":    path,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return Node{}, err
		}

		return node, nil
	})
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (r *repo) AddEdge(ctx context.Context, version int, cmd AddEdgeCommand) error {
	release := r.locks.acquire(version)
	defer release()

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var zero struct{}

		if _, err := r.getVersion(ctx, tx, version); err != nil {
			return zero, err
		}

		parent, err := r.getNode(ctx, tx, version, cmd.ParentID)
		if err != nil {
			return zero, err
		}
		child, err := r.getNode(ctx, tx, version, cmd.ChildID)
		if err != nil {
			return zero, err
		}

		edges, err := r.loadEdges(ctx, tx, version)
		if err != nil {
			return zero, err
		}

		if _, has := parentOf(edges, child.ID); has {
			return zero, ErrEdgeConflict
		}
		if parent.ID == child.ID || reachable(edges, child.ID, parent.ID) {
			return zero, ErrCycleDetected
		}

		if _, err := tx.ExecContext(ctx, insertEdgeQ, parent.ID, child.ID, version); err != nil {
			return zero, fmt.Errorf("insert edge: %w", err)
		}

		// Attaching a former root reroots its subtree under the parent's
		// path.
		newPath := parent.Path.Child(child.Label)
		if !newPath.Equal(child.Path) {
			nodes, err := r.loadNodes(ctx, tx, version)
			if err != nil {
				return zero, err
			}
			rewrites := rewriteSubtree(nodes, edges, child.ID, newPath)
			if err := r.applyRewrites(ctx, tx, rewrites); err != nil {
				return zero, err
			}
		}

		entry := audit.Entry{
			Action: "edge_added",
			Actor:  cmd.Actor,
			Target: nodeTarget(child.ID),
			Detail: map[string]any{
				"version":   version,
				"parent_id": parent.ID,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return zero, err
		}

		return zero, nil
	})
	return err
}

func (r *repo) MoveNode(
	ctx context.Context,
	version int,
	nodeID uuid.UUID,
	cmd MoveNodeCommand,
) (*Node, error) {
	release := r.locks.acquire(version)
	defer release()

	node, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Node, error) {
		v, err := r.getVersion(ctx, tx, version)
		if err != nil {
			return Node{}, err
		}

		node, err := r.getNode(ctx, tx, version, nodeID)
		if err != nil {
			return Node{}, err
		}
		parent, err := r.getNode(ctx, tx, version, cmd.NewParentID)
		if err != nil {
			return Node{}, err
		}

		edges, err := r.loadEdges(ctx, tx, version)
		if err != nil {
			return Node{}, err
		}

		if parent.ID == node.ID || reachable(edges, node.ID, parent.ID) {
			return Node{}, ErrCycleDetected
		}

		newPath := parent.Path.Child(node.Label)
		if newPath.Equal(node.Path) {
			return node, nil
		}

		nodes, err := r.loadNodes(ctx, tx, version)
		if err != nil {
			return Node{}, err
		}

		rewrites := rewriteSubtree(nodes, edges, node.ID, newPath)
		if err := r.applyRewrites(ctx, tx, rewrites); err != nil {
			return Node{}, err
		}
		if err := r.recordMigrations(ctx, tx, v, nodes, rewrites, cmd.Rationale); err != nil {
			return Node{}, err
		}

		if _, err := tx.ExecContext(ctx, deleteParentEdgeQ, version, node.ID); err != nil {
			return Node{}, fmt.Errorf("detach node: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertEdgeQ, parent.ID, node.ID, version); err != nil {
			return Node{}, fmt.Errorf("attach node: %w", err)
		}

		entry := audit.Entry{
			Action: "node_moved",
			Actor:  cmd.Actor,
			Target: nodeTarget(node.ID),
			Detail: map[string]any{
				"version":   version,
				"from_path": node.Path,
				"to_path":   newPath,
				"rationale": cmd.Rationale,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return Node{}, err
		}

		node.Path = newPath
		return node, nil
	})
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (r *repo) RenameNode(
	ctx context.Context,
	version int,
	nodeID uuid.UUID,
	cmd RenameNodeCommand,
) (*Node, error) {
	if strings.TrimSpace(cmd.Label) == "" {
		return nil, ErrInvalidLabel
	}

	release := r.locks.acquire(version)
	defer release()

	node, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Node, error) {
		v, err := r.getVersion(ctx, tx, version)
		if err != nil {
			return Node{}, err
		}

		node, err := r.getNode(ctx, tx, version, nodeID)
		if err != nil {
			return Node{}, err
		}
		if node.Label == cmd.Label {
			return node, nil
		}

		newPath := node.Path[:len(node.Path)-1].Child(cmd.Label)

		nodes, err := r.loadNodes(ctx, tx, version)
		if err != nil {
			return Node{}, err
		}
		edges, err := r.loadEdges(ctx, tx, version)
		if err != nil {
			return Node{}, err
		}

		rewrites := rewriteSubtree(nodes, edges, node.ID, newPath)

		raw, err := marshalPath(newPath)
		if err != nil {
			return Node{}, err
		}
		if _, err := tx.ExecContext(
			ctx, updateLabelQ,
			cmd.Label, raw, newPath.Key(), node.ID,
		); err != nil {
			return Node{}, repository.MapError(
				fmt.Errorf("relabel node: %w", err),
				ErrNodeNotFound, ErrPathConflict,
			)
		}
		delete(rewrites, node.ID)

		if err := r.applyRewrites(ctx, tx, rewrites); err != nil {
			return Node{}, err
		}

		rewrites[node.ID] = newPath
		if err := r.recordMigrations(ctx, tx, v, nodes, rewrites, cmd.Rationale); err != nil {
			return Node{}, err
		}

		entry := audit.Entry{
			Action: "node_renamed",
			Actor:  cmd.Actor,
			Target: nodeTarget(node.ID),
			Detail: map[string]any{
				"version":   version,
				"from_path": node.Path,
				"to_path":   newPath,
				"rationale": cmd.Rationale,
			},
		}
		if err := r.audit.AppendTx(ctx, tx, entry); err != nil {
			return Node{}, err
		}

		node.Label = cmd.Label
		node.Path = newPath
		return node, nil
	})
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (r *repo) GetTree(ctx context.Context, version int) (*Tree, error) {
	if _, err := r.getVersion(ctx, r.db, version); err != nil {
		return nil, err
	}

	nodes, err := r.loadNodes(ctx, r.db, version)
	if err != nil {
		return nil, err
	}
	edges, err := r.loadEdges(ctx, r.db, version)
	if err != nil {
		return nil, err
	}

	return &Tree{Version: version, Nodes: nodes, Edges: edges}, nil
}

func (r *repo) ValidateAcyclic(ctx context.Context, version int) (bool, error) {
	if _, err := r.getVersion(ctx, r.db, version); err != nil {
		return false, err
	}

	edges, err := r.loadEdges(ctx, r.db, version)
	if err != nil {
		return false, err
	}

	return isAcyclic(edges), nil
}

func (r *repo) Diff(ctx context.Context, from, to int) (*Diff, error) {
	if _, err := r.getVersion(ctx, r.db, from); err != nil {
		return nil, err
	}
	if _, err := r.getVersion(ctx, r.db, to); err != nil {
		return nil, err
	}

	fromNodes, err := r.loadNodes(ctx, r.db, from)
	if err != nil {
		return nil, err
	}
	toNodes, err := r.loadNodes(ctx, r.db, to)
	if err != nil {
		return nil, err
	}

	low, high := from, to
	if low > high {
		low, high = high, low
	}

	migrations, err := repository.QueryMany(
		ctx, r.db, loadMigrationsQ,
		[]any{low, high},
		scanMigration,
	)
	if err != nil {
		return nil, err
	}

	return computeDiff(from, to, fromNodes, toNodes, orientMigrations(from, to, migrations)), nil
}

func (r *repo) FindByPath(ctx context.Context, version int, path Path) (*Node, error) {
	node, err := repository.QueryOne(
		ctx, r.db, findByPathQ,
		[]any{version, path.Key()},
		scanNode,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNodeNotFound, ErrPathConflict)
	}
	return &node, nil
}

func (r *repo) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	if err := r.db.QueryRowContext(ctx, currentVersionQ).Scan(&version); err != nil {
		return 0, fmt.Errorf("current version: %w", err)
	}
	return version, nil
}

func (r *repo) getVersion(ctx context.Context, q repository.Querier, version int) (Version, error) {
	v, err := repository.QueryOne(ctx, q, getVersionQ, []any{version}, scanVersion)
	if err != nil {
		return Version{}, repository.MapError(err, ErrVersionNotFound, ErrVersionNotFound)
	}
	return v, nil
}

// getNode loads a node by id and verifies it belongs to version.
func (r *repo) getNode(
	ctx context.Context,
	q repository.Querier,
	version int,
	id uuid.UUID,
) (Node, error) {
	node, err := repository.QueryOne(ctx, q, getNodeQ, []any{id}, scanNode)
	if err != nil {
		return Node{}, repository.MapError(err, ErrNodeNotFound, ErrNodeNotFound)
	}
	if node.Version != version {
		return Node{}, ErrVersionMismatch
	}
	return node, nil
}

func (r *repo) findByPath(
	ctx context.Context,
	q repository.Querier,
	version int,
	path Path,
) (Node, error) {
	node, err := repository.QueryOne(ctx, q, findByPathQ, []any{version, path.Key()}, scanNode)
	if err != nil {
		return Node{}, repository.MapError(err, ErrNodeNotFound, ErrPathConflict)
	}
	return node, nil
}

func (r *repo) loadNodes(ctx context.Context, q repository.Querier, version int) ([]Node, error) {
	return repository.QueryMany(ctx, q, loadNodesQ, []any{version}, scanNode)
}

func (r *repo) loadEdges(ctx context.Context, q repository.Querier, version int) ([]Edge, error) {
	return repository.QueryMany(ctx, q, loadEdgesQ, []any{version}, scanEdge)
}

// applyRewrites persists a subtree path rewrite produced by rewriteSubtree.
func (r *repo) applyRewrites(ctx context.Context, tx *sql.Tx, rewrites map[uuid.UUID]Path) error {
	for id, path := range rewrites {
		raw, err := marshalPath(path)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, updatePathQ, raw, path.Key(), id); err != nil {
			return repository.MapError(
				fmt.Errorf("rewrite path %s: %w", path.Key(), err),
				ErrNodeNotFound, ErrPathConflict,
			)
		}
	}
	return nil
}

// recordMigrations writes one migration record per rewritten node so diffs
// and rollback can follow the path change.
func (r *repo) recordMigrations(
	ctx context.Context,
	tx *sql.Tx,
	v Version,
	nodes []Node,
	rewrites map[uuid.UUID]Path,
	rationale string,
) error {
	base := v.Version
	if v.BasedOn != nil {
		base = *v.BasedOn
	}

	byID := make(map[uuid.UUID]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	for id, newPath := range rewrites {
		old, ok := byID[id]
		if !ok {
			continue
		}

		fromRaw, err := marshalPath(old.Path)
		if err != nil {
			return err
		}
		toRaw, err := marshalPath(newPath)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(
			ctx, insertMigrationQ,
			base, v.Version, fromRaw, toRaw, rationale,
		); err != nil {
			return fmt.Errorf("record migration for %s: %w", old.Path.Key(), err)
		}
	}

	return nil
}

func clamp(confidence float64) float64 {
	switch {
	case confidence < 0:
		return 0
	case confidence > 1:
		return 1
	default:
		return confidence
	}
}

func versionTarget(version int) string {
	return fmt.Sprintf("version:%d", version)
}

func nodeTarget(id uuid.UUID) string {
	return fmt.Sprintf("node:%s", id)
}
