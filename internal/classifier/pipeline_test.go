package classifier

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/arbor/internal/llm"
	"github.com/JaimeStill/arbor/internal/taxonomy"
)

type stubProposer struct {
	propose func(ctx context.Context, req llm.Request) (*llm.Proposal, error)
}

func (s *stubProposer) Propose(ctx context.Context, req llm.Request) (*llm.Proposal, error) {
	return s.propose(ctx, req)
}

func testConfig() Config {
	return Config{
		Threshold:      0.70,
		ConflictPolicy: PolicyReject,
		DegradedMargin: 0.05,
		BatchWorkers:   1,
		Weights:        Weights{Rule: 0.3, LLM: 0.5, Agreement: 0.2},
	}
}

func testPipeline(t *testing.T, proposer llm.Proposer, resolve resolveFunc) *pipeline {
	t.Helper()

	return &pipeline{
		rules: []Rule{
			rule(t, KindKeyword, "neural network", 0.6, "AI", "ML", "DL"),
			rule(t, KindKeyword, "gradient", 0.3, "AI", "ML"),
		},
		proposer: proposer,
		resolve:  resolve,
		config:   testConfig(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPipelineRulesOnly(t *testing.T) {
	p := testPipeline(t, nil, nil)

	result, err := p.run(context.Background(), "training a neural network")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Degraded {
		t.Error("rules-only run should not be degraded")
	}
	if result.Best == nil {
		t.Fatal("expected a best candidate")
	}
	if result.Best.Path.Key() != "AI/ML/DL" {
		t.Errorf("best path = %s, want AI/ML/DL", result.Best.Path.Key())
	}
	// 0.3*0.6 with no LLM or agreement signal
	if result.Confidence >= p.config.Threshold {
		t.Errorf("confidence = %v, want below threshold without llm signal", result.Confidence)
	}
}

func TestPipelineAgreementClearsThreshold(t *testing.T) {
	proposer := &stubProposer{
		propose: func(_ context.Context, req llm.Request) (*llm.Proposal, error) {
			if len(req.HintPaths) == 0 {
				t.Error("expected rule candidates as hint paths")
			}
			return &llm.Proposal{
				Candidates: []llm.Candidate{
					{Path: []string{"AI", "ML", "DL"}, Certainty: 0.9},
				},
				Reasoning: []string{"dense neural terminology", "matches deep learning vocabulary"},
			}, nil
		},
	}
	p := testPipeline(t, proposer, nil)

	result, err := p.run(context.Background(), "training a neural network")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Degraded {
		t.Error("successful proposal should not degrade")
	}
	// 0.3*0.6 + 0.5*0.9 + 0.2*1.0 = 0.83
	if result.Confidence < p.config.Threshold {
		t.Errorf("confidence = %v, want >= %v", result.Confidence, p.config.Threshold)
	}
	if result.Best == nil || result.Best.Path.Key() != "AI/ML/DL" {
		t.Fatalf("best = %+v, want AI/ML/DL", result.Best)
	}
	if result.Best.Score != 0.9 {
		t.Errorf("best score = %v, want strongest source (0.9)", result.Best.Score)
	}
	if len(result.Reasoning) < 3 {
		t.Errorf("reasoning = %v, want rule summary plus proposal reasoning", result.Reasoning)
	}
}

func TestPipelineDisagreementStaysBelowThreshold(t *testing.T) {
	proposer := &stubProposer{
		propose: func(context.Context, llm.Request) (*llm.Proposal, error) {
			return &llm.Proposal{
				Candidates: []llm.Candidate{
					{Path: []string{"Physics", "Optics"}, Certainty: 0.6},
				},
				Reasoning: []string{"ambiguous domain signals"},
			}, nil
		},
	}
	p := testPipeline(t, proposer, nil)

	result, err := p.run(context.Background(), "gradient descent tutorial")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Degraded {
		t.Error("disagreement is not degradation")
	}
	// 0.3*0.3 + 0.5*0.6 + 0.2*0 = 0.39
	if result.Confidence >= p.config.Threshold {
		t.Errorf("confidence = %v, want below threshold on disagreement", result.Confidence)
	}
}

func TestPipelineProposerTimeoutDegrades(t *testing.T) {
	proposer := &stubProposer{
		propose: func(context.Context, llm.Request) (*llm.Proposal, error) {
			return nil, llm.ErrTimeout
		},
	}
	p := testPipeline(t, proposer, nil)

	result, err := p.run(context.Background(), "training a neural network")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !result.Degraded {
		t.Error("proposer timeout should degrade the run")
	}
	if result.Confidence >= p.config.Threshold {
		t.Errorf("degraded confidence = %v, must stay below %v", result.Confidence, p.config.Threshold)
	}
	if result.Best == nil || result.Best.Path.Key() != "AI/ML/DL" {
		t.Fatalf("best = %+v, want rule candidate to survive degradation", result.Best)
	}
}

func TestPipelineDropsUnresolvablePaths(t *testing.T) {
	proposer := &stubProposer{
		propose: func(context.Context, llm.Request) (*llm.Proposal, error) {
			return &llm.Proposal{
				Candidates: []llm.Candidate{
					{Path: []string{"AI", "Hallucinated"}, Certainty: 0.95},
					{Path: []string{"AI", "ML", "DL"}, Certainty: 0.8},
				},
				Reasoning: []string{"two plausible placements"},
			}, nil
		},
	}
	resolve := func(_ context.Context, path taxonomy.Path) bool {
		return path.Key() == "AI/ML/DL"
	}
	p := testPipeline(t, proposer, resolve)

	result, err := p.run(context.Background(), "training a neural network")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, c := range result.Candidates {
		if c.Path.Key() == "AI/Hallucinated" {
			t.Error("unresolvable path survived validation")
		}
	}
	if result.Best == nil || result.Best.Path.Key() != "AI/ML/DL" {
		t.Fatalf("best = %+v, want AI/ML/DL", result.Best)
	}
}
