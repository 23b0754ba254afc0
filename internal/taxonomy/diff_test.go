package taxonomy

import (
	"testing"
)

func nodesFromPaths(version int, paths ...Path) []Node {
	nodes := make([]Node, 0, len(paths))
	for _, p := range paths {
		nodes = append(nodes, Node{
			Version:    version,
			Label:      p[len(p)-1],
			Path:       p,
			Confidence: 1.0,
		})
	}
	return nodes
}

func pathSet(paths []Path) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p.Key()] = true
	}
	return set
}

func TestDiffAddedRemoved(t *testing.T) {
	from := nodesFromPaths(1,
		Path{"AI"},
		Path{"AI", "ML"},
		Path{"AI", "Robotics"},
	)
	to := nodesFromPaths(2,
		Path{"AI"},
		Path{"AI", "ML"},
		Path{"AI", "ML", "DL"},
	)

	diff := computeDiff(1, 2, from, to, nil)

	if !pathSet(diff.Added)["AI/ML/DL"] || len(diff.Added) != 1 {
		t.Errorf("added = %v, want [AI/ML/DL]", diff.Added)
	}
	if !pathSet(diff.Removed)["AI/Robotics"] || len(diff.Removed) != 1 {
		t.Errorf("removed = %v, want [AI/Robotics]", diff.Removed)
	}
	if len(diff.Moved) != 0 || len(diff.Modified) != 0 {
		t.Errorf("expected no moved or modified entries, got %v / %v", diff.Moved, diff.Modified)
	}
}

// A reparent shows as moved, not remove+add, because the migration record
// ties the two paths together.
func TestDiffMovedViaMigration(t *testing.T) {
	from := nodesFromPaths(1,
		Path{"AI"},
		Path{"AI", "ML"},
		Path{"AI", "ML", "DL"},
		Path{"AI", "NeuralNets"},
	)
	to := nodesFromPaths(2,
		Path{"AI"},
		Path{"AI", "ML"},
		Path{"AI", "NeuralNets"},
		Path{"AI", "NeuralNets", "DL"},
	)

	migrations := []MigrationRecord{
		{
			ID:          1,
			FromVersion: 1,
			ToVersion:   2,
			FromPath:    Path{"AI", "ML", "DL"},
			ToPath:      Path{"AI", "NeuralNets", "DL"},
		},
	}

	diff := computeDiff(1, 2, from, to, orientMigrations(1, 2, migrations))

	if len(diff.Moved) != 1 {
		t.Fatalf("moved = %v, want one entry", diff.Moved)
	}
	moved := diff.Moved[0]
	if !moved.FromPath.Equal(Path{"AI", "ML", "DL"}) || !moved.ToPath.Equal(Path{"AI", "NeuralNets", "DL"}) {
		t.Errorf("moved = %+v, want AI/ML/DL -> AI/NeuralNets/DL", moved)
	}
	if len(diff.Added) != 0 || len(diff.Removed) != 0 {
		t.Errorf("move should not appear as add/remove: added=%v removed=%v", diff.Added, diff.Removed)
	}
}

// Diff(A,B) and Diff(B,A) must be inverses: added and removed swap, moved
// entries reverse direction.
func TestDiffSymmetry(t *testing.T) {
	v1 := nodesFromPaths(1,
		Path{"AI"},
		Path{"AI", "ML"},
		Path{"AI", "ML", "DL"},
		Path{"AI", "Robotics"},
	)
	v2 := nodesFromPaths(2,
		Path{"AI"},
		Path{"AI", "ML"},
		Path{"AI", "NeuralNets"},
		Path{"AI", "NeuralNets", "DL"},
	)

	migrations := []MigrationRecord{
		{
			ID:          1,
			FromVersion: 1,
			ToVersion:   2,
			FromPath:    Path{"AI", "ML", "DL"},
			ToPath:      Path{"AI", "NeuralNets", "DL"},
		},
	}

	forward := computeDiff(1, 2, v1, v2, orientMigrations(1, 2, cloneRecords(migrations)))
	backward := computeDiff(2, 1, v2, v1, orientMigrations(2, 1, cloneRecords(migrations)))

	if len(forward.Added) != len(backward.Removed) {
		t.Fatalf("len(forward.Added)=%d, len(backward.Removed)=%d", len(forward.Added), len(backward.Removed))
	}
	forwardAdded := pathSet(forward.Added)
	for _, p := range backward.Removed {
		if !forwardAdded[p.Key()] {
			t.Errorf("backward.Removed contains %s missing from forward.Added", p.Key())
		}
	}

	forwardRemoved := pathSet(forward.Removed)
	for _, p := range backward.Added {
		if !forwardRemoved[p.Key()] {
			t.Errorf("backward.Added contains %s missing from forward.Removed", p.Key())
		}
	}

	if len(forward.Moved) != 1 || len(backward.Moved) != 1 {
		t.Fatalf("moved: forward=%v backward=%v, want one entry each", forward.Moved, backward.Moved)
	}
	if !forward.Moved[0].FromPath.Equal(backward.Moved[0].ToPath) ||
		!forward.Moved[0].ToPath.Equal(backward.Moved[0].FromPath) {
		t.Errorf("moved entries are not inverses: %+v vs %+v", forward.Moved[0], backward.Moved[0])
	}
}

func TestDiffModifiedConfidence(t *testing.T) {
	from := nodesFromPaths(1, Path{"AI"}, Path{"AI", "ML"})
	from[1].Confidence = 0.8

	to := nodesFromPaths(2, Path{"AI"}, Path{"AI", "ML"})
	to[1].Confidence = 0.95

	diff := computeDiff(1, 2, from, to, nil)

	if len(diff.Modified) != 1 {
		t.Fatalf("modified = %v, want one entry", diff.Modified)
	}
	mod := diff.Modified[0]
	if !mod.Path.Equal(Path{"AI", "ML"}) {
		t.Errorf("modified path = %v, want AI/ML", mod.Path)
	}
	if mod.FromConfidence != 0.8 || mod.ToConfidence != 0.95 {
		t.Errorf("confidence = %v -> %v, want 0.8 -> 0.95", mod.FromConfidence, mod.ToConfidence)
	}
}

// Chained moves across multiple versions resolve to the oldest and newest
// paths when diffing the endpoints.
func TestDiffChainedMigrations(t *testing.T) {
	v1 := nodesFromPaths(1, Path{"A"}, Path{"A", "X"})
	v3 := nodesFromPaths(3, Path{"A"}, Path{"A", "Z"})

	migrations := []MigrationRecord{
		{ID: 1, FromVersion: 1, ToVersion: 2, FromPath: Path{"A", "X"}, ToPath: Path{"A", "Y"}},
		{ID: 2, FromVersion: 2, ToVersion: 3, FromPath: Path{"A", "Y"}, ToPath: Path{"A", "Z"}},
	}

	diff := computeDiff(1, 3, v1, v3, orientMigrations(1, 3, migrations))

	if len(diff.Moved) != 1 {
		t.Fatalf("moved = %v, want one entry", diff.Moved)
	}
	if !diff.Moved[0].FromPath.Equal(Path{"A", "X"}) || !diff.Moved[0].ToPath.Equal(Path{"A", "Z"}) {
		t.Errorf("moved = %+v, want A/X -> A/Z", diff.Moved[0])
	}
}

func cloneRecords(records []MigrationRecord) []MigrationRecord {
	cloned := make([]MigrationRecord, len(records))
	copy(cloned, records)
	return cloned
}
