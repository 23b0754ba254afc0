package taxonomy

import (
	"sort"

	"github.com/google/uuid"
)

// childIndex builds a parent→children adjacency map from an edge set.
func childIndex(edges []Edge) map[uuid.UUID][]uuid.UUID {
	index := make(map[uuid.UUID][]uuid.UUID, len(edges))
	for _, e := range edges {
		index[e.ParentID] = append(index[e.ParentID], e.ChildID)
	}
	return index
}

// parentOf returns the parent of child in the edge set, if any. Tree
// semantics guarantee at most one parent per node per version.
func parentOf(edges []Edge, child uuid.UUID) (uuid.UUID, bool) {
	for _, e := range edges {
		if e.ChildID == child {
			return e.ParentID, true
		}
	}
	return uuid.Nil, false
}

// reachable reports whether target can be reached from start by following
// parent→child edges. Used as the cycle check before edge insertion: adding
// parent→child creates a cycle exactly when parent is reachable from child.
func reachable(edges []Edge, start, target uuid.UUID) bool {
	if start == target {
		return true
	}

	index := childIndex(edges)
	seen := map[uuid.UUID]bool{start: true}
	queue := []uuid.UUID{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range index[current] {
			if next == target {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	return false
}

// descendants returns every node reachable from root via parent→child
// edges, excluding root itself.
func descendants(edges []Edge, root uuid.UUID) []uuid.UUID {
	index := childIndex(edges)
	var result []uuid.UUID
	seen := map[uuid.UUID]bool{root: true}
	queue := []uuid.UUID{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range index[current] {
			if seen[next] {
				continue
			}
			seen[next] = true
			result = append(result, next)
			queue = append(queue, next)
		}
	}

	return result
}

// isAcyclic runs a full Kahn scan over the edge set. Consistency check
// only; insertion-time reachability guards the hot path.
func isAcyclic(edges []Edge) bool {
	inDegree := make(map[uuid.UUID]int)
	index := childIndex(edges)

	for _, e := range edges {
		if _, ok := inDegree[e.ParentID]; !ok {
			inDegree[e.ParentID] = 0
		}
		inDegree[e.ChildID]++
	}

	queue := make([]uuid.UUID, 0, len(inDegree))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		for _, next := range index[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	return visited == len(inDegree)
}

// rewriteSubtree recomputes the path of every node in the subtree rooted at
// node when the root's path changes from oldPath to newPath. Returns the set
// of path rewrites keyed by node id, including the root itself.
func rewriteSubtree(nodes []Node, edges []Edge, root uuid.UUID, newPath Path) map[uuid.UUID]Path {
	byID := make(map[uuid.UUID]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	oldPath := byID[root].Path
	rewrites := map[uuid.UUID]Path{root: newPath}

	for _, id := range descendants(edges, root) {
		n, ok := byID[id]
		if !ok || !n.Path.HasPrefix(oldPath) {
			continue
		}
		suffix := n.Path[len(oldPath):]
		rewritten := make(Path, 0, len(newPath)+len(suffix))
		rewritten = append(rewritten, newPath...)
		rewritten = append(rewritten, suffix...)
		rewrites[id] = rewritten
	}

	return rewrites
}

// sortPaths orders paths by their key form for deterministic output.
func sortPaths(paths []Path) {
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Key() < paths[j].Key()
	})
}
