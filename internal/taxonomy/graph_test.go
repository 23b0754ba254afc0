package taxonomy

import (
	"testing"

	"github.com/google/uuid"
)

// buildTree constructs nodes and edges for a labeled hierarchy. Each entry
// maps a label to its parent label; "" marks a root.
func buildTree(t *testing.T, parents map[string]string) (map[string]uuid.UUID, []Node, []Edge) {
	t.Helper()

	ids := make(map[string]uuid.UUID, len(parents))
	for label := range parents {
		ids[label] = uuid.New()
	}

	pathFor := func(label string) Path {
		var path Path
		for label != "" {
			path = append(Path{label}, path...)
			label = parents[label]
		}
		return path
	}

	var nodes []Node
	var edges []Edge
	for label, parent := range parents {
		nodes = append(nodes, Node{
			ID:         ids[label],
			Version:    1,
			Label:      label,
			Path:       pathFor(label),
			Confidence: 1.0,
		})
		if parent != "" {
			edges = append(edges, Edge{
				ParentID: ids[parent],
				ChildID:  ids[label],
				Version:  1,
			})
		}
	}

	return ids, nodes, edges
}

func TestReachable(t *testing.T) {
	ids, _, edges := buildTree(t, map[string]string{
		"AI": "",
		"ML": "AI",
		"DL": "ML",
	})

	tests := []struct {
		name     string
		start    string
		target   string
		expected bool
	}{
		{"root to leaf", "AI", "DL", true},
		{"parent to child", "ML", "DL", true},
		{"leaf to root", "DL", "AI", false},
		{"self", "ML", "ML", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reachable(edges, ids[tt.start], ids[tt.target])
			if got != tt.expected {
				t.Errorf("reachable(%s, %s) = %v, want %v", tt.start, tt.target, got, tt.expected)
			}
		})
	}
}

// Adding an edge parent→child creates a cycle exactly when the parent is
// already reachable from the child.
func TestCycleCheckRejectsBackEdge(t *testing.T) {
	ids, _, edges := buildTree(t, map[string]string{
		"AI": "",
		"ML": "AI",
		"DL": "ML",
	})

	// DL → AI would close the loop: AI is an ancestor of DL.
	if !reachable(edges, ids["AI"], ids["DL"]) {
		t.Fatal("expected AI to reach DL before inserting back edge")
	}

	withCycle := append(edges, Edge{ParentID: ids["DL"], ChildID: ids["AI"], Version: 1})
	if isAcyclic(withCycle) {
		t.Error("expected cycle to be detected by full scan")
	}
	if !isAcyclic(edges) {
		t.Error("expected original tree to be acyclic")
	}
}

func TestDescendants(t *testing.T) {
	ids, _, edges := buildTree(t, map[string]string{
		"AI":  "",
		"ML":  "AI",
		"DL":  "ML",
		"CNN": "DL",
		"NLP": "AI",
	})

	got := descendants(edges, ids["ML"])
	want := map[uuid.UUID]bool{ids["DL"]: true, ids["CNN"]: true}

	if len(got) != len(want) {
		t.Fatalf("descendants(ML) returned %d nodes, want %d", len(got), len(want))
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected descendant %s", id)
		}
	}
}

func TestRewriteSubtree(t *testing.T) {
	ids, nodes, edges := buildTree(t, map[string]string{
		"AI":         "",
		"ML":         "AI",
		"DL":         "ML",
		"CNN":        "DL",
		"NeuralNets": "AI",
	})

	// Move DL under NeuralNets.
	rewrites := rewriteSubtree(nodes, edges, ids["DL"], Path{"AI", "NeuralNets", "DL"})

	tests := []struct {
		label    string
		expected Path
	}{
		{"DL", Path{"AI", "NeuralNets", "DL"}},
		{"CNN", Path{"AI", "NeuralNets", "DL", "CNN"}},
	}

	if len(rewrites) != len(tests) {
		t.Fatalf("got %d rewrites, want %d", len(rewrites), len(tests))
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := rewrites[ids[tt.label]]
			if !ok {
				t.Fatalf("missing rewrite for %s", tt.label)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}
