package classifier

import (
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/taxonomy"
)

func rule(t *testing.T, kind, pattern string, weight float64, path ...string) Rule {
	t.Helper()

	r := Rule{
		ID:      uuid.New(),
		Pattern: pattern,
		Kind:    kind,
		Path:    taxonomy.Path(path),
		Weight:  weight,
	}
	if err := r.Compile(); err != nil {
		t.Fatalf("compile rule: %v", err)
	}
	return r
}

func TestMatchRules(t *testing.T) {
	rules := []Rule{
		rule(t, KindKeyword, "neural network", 0.6, "AI", "ML", "DL"),
		rule(t, KindKeyword, "gradient", 0.3, "AI", "ML"),
		rule(t, KindRegex, `transformer(s)?\b`, 0.5, "AI", "ML", "DL"),
	}

	tests := []struct {
		name     string
		text     string
		expected map[string]float64
	}{
		{
			"keyword case-insensitive",
			"Training a NEURAL NETWORK end to end",
			map[string]float64{"AI/ML/DL": 0.6},
		},
		{
			"regex match",
			"transformers dominate sequence modeling",
			map[string]float64{"AI/ML/DL": 0.5},
		},
		{
			"scores accumulate per path",
			"a neural network of stacked transformers",
			map[string]float64{"AI/ML/DL": 1.0}, // 0.6 + 0.5 capped
		},
		{
			"multiple paths",
			"gradient descent for a neural network",
			map[string]float64{"AI/ML/DL": 0.6, "AI/ML": 0.3},
		},
		{
			"no matches",
			"quarterly revenue report",
			map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchRules(rules, tt.text)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d candidates, want %d: %+v", len(got), len(tt.expected), got)
			}
			for _, c := range got {
				want, ok := tt.expected[c.Path.Key()]
				if !ok {
					t.Errorf("unexpected candidate %s", c.Path.Key())
					continue
				}
				if c.Score != want {
					t.Errorf("%s score = %v, want %v", c.Path.Key(), c.Score, want)
				}
				if c.Source != SourceRule {
					t.Errorf("%s source = %s, want %s", c.Path.Key(), c.Source, SourceRule)
				}
			}
		})
	}
}

func TestMatchRulesOrdersByScore(t *testing.T) {
	rules := []Rule{
		rule(t, KindKeyword, "robot", 0.4, "AI", "Robotics"),
		rule(t, KindKeyword, "neural", 0.8, "AI", "ML", "DL"),
	}

	got := matchRules(rules, "a neural controller for a robot arm")
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Path.Key() != "AI/ML/DL" {
		t.Errorf("strongest candidate = %s, want AI/ML/DL", got[0].Path.Key())
	}
}

func TestRuleCompileRejectsBadPattern(t *testing.T) {
	r := Rule{ID: uuid.New(), Pattern: "([", Kind: KindRegex}
	if err := r.Compile(); err == nil {
		t.Error("expected compile error for invalid pattern")
	}
}
