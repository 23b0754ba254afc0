package classifier

import (
	"math"
	"testing"

	"github.com/JaimeStill/arbor/internal/taxonomy"
)

func cand(score float64, path ...string) Candidate {
	return Candidate{Path: taxonomy.Path(path), Score: score}
}

func TestCrossValidate(t *testing.T) {
	tests := []struct {
		name     string
		rule     []Candidate
		llm      []Candidate
		expected float64
	}{
		{
			"no rule candidates",
			nil,
			[]Candidate{cand(0.9, "AI", "ML")},
			0,
		},
		{
			"no llm candidates",
			[]Candidate{cand(0.8, "AI", "ML")},
			nil,
			0,
		},
		{
			"full agreement with top match",
			[]Candidate{cand(0.8, "AI", "ML")},
			[]Candidate{cand(0.9, "AI", "ML")},
			1.0, // jaccard 1.0 + bonus, clamped
		},
		{
			"disjoint sets",
			[]Candidate{cand(0.8, "AI", "ML")},
			[]Candidate{cand(0.9, "AI", "NLP")},
			0,
		},
		{
			"partial overlap different tops",
			[]Candidate{cand(0.8, "AI", "ML"), cand(0.4, "AI", "NLP")},
			[]Candidate{cand(0.9, "AI", "NLP"), cand(0.5, "AI", "Robotics")},
			1.0 / 3.0, // one shared of three distinct, no top bonus
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := crossValidate(tt.rule, tt.llm)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScoreConfidence(t *testing.T) {
	weights := Weights{Rule: 0.3, LLM: 0.5, Agreement: 0.2}

	tests := []struct {
		name                          string
		rule, llm, agreement          float64
		expected                      float64
	}{
		{"all full", 1, 1, 1, 1},
		{"all zero", 0, 0, 0, 0},
		{"rule only", 1, 0, 0, 0.3},
		{"mixed", 0.5, 0.6, 0.5, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreConfidence(weights, tt.rule, tt.llm, tt.agreement)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   int
	}{
		{0.55, 45},
		{1.0, 0},
		{0.0, 100},
		{0.70, 30},
		{-0.5, 100},
		{1.5, 0},
	}

	for _, tt := range tests {
		if got := priorityFor(tt.confidence); got != tt.expected {
			t.Errorf("priorityFor(%v) = %d, want %d", tt.confidence, got, tt.expected)
		}
	}
}

// Degraded runs must never reach the acceptance threshold.
func TestDegradedConfidence(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected float64
	}{
		{"high score capped", 0.95, 0.65},
		{"low score untouched", 0.40, 0.40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := degradedConfidence(tt.score, 0.70, 0.05)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
			if got >= 0.70 {
				t.Errorf("degraded confidence %v must stay below threshold", got)
			}
		})
	}
}
