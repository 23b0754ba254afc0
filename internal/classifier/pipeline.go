package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/arbor/internal/llm"
	"github.com/JaimeStill/arbor/internal/taxonomy"
)

// State bag keys for the classification graph.
const (
	keyText      = "text"
	keyRuleCands = "rule_candidates"
	keyLLMCands  = "llm_candidates"
	keyProposal  = "proposal"
	keyDegraded  = "degraded_cause"
	keyAgreement = "agreement"
	keyOutcome   = "outcome"
)

const hintPathLimit = 3

// resolveFunc reports whether a proposed path exists in the taxonomy. A nil
// resolveFunc accepts every path.
type resolveFunc func(ctx context.Context, path taxonomy.Path) bool

// outcome is the scored product of one graph execution, before any
// persistence decision.
type outcome struct {
	Candidates []Candidate
	Best       *Candidate
	Confidence float64
	Reasoning  []string
	Degraded   bool
}

// pipeline wires the classification stages into a state graph:
// rules → propose → validate → score, with propose skipped entirely when no
// proposer is configured.
type pipeline struct {
	rules    []Rule
	proposer llm.Proposer
	resolve  resolveFunc
	config   Config
	logger   *slog.Logger
}

func (p *pipeline) run(ctx context.Context, text string) (*outcome, error) {
	graph, err := p.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initial := state.New(nil)
	initial = initial.Set(keyText, text)

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	val, ok := final.Get(keyOutcome)
	if !ok {
		return nil, fmt.Errorf("missing %s in final state", keyOutcome)
	}
	result, ok := val.(outcome)
	if !ok {
		return nil, fmt.Errorf("%s is not an outcome", keyOutcome)
	}

	return &result, nil
}

func (p *pipeline) buildGraph() (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("classification")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("rules", p.rulesNode()); err != nil {
		return nil, err
	}
	if err := graph.AddNode("propose", p.proposeNode()); err != nil {
		return nil, err
	}
	if err := graph.AddNode("validate", p.validateNode()); err != nil {
		return nil, err
	}
	if err := graph.AddNode("score", p.scoreNode()); err != nil {
		return nil, err
	}

	hasProposer := func(state.State) bool { return p.proposer != nil }

	if err := graph.AddEdge("rules", "propose", hasProposer); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("rules", "validate", state.Not(hasProposer)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("propose", "validate", nil); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("validate", "score", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("rules"); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint("score"); err != nil {
		return nil, err
	}

	return graph, nil
}

func (p *pipeline) rulesNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		text, err := stateValue[string](s, keyText)
		if err != nil {
			return s, fmt.Errorf("rules: %w", err)
		}

		candidates := matchRules(p.rules, text)

		p.logger.DebugContext(ctx, "rule matching complete",
			"rules", len(p.rules),
			"candidates", len(candidates),
		)

		return s.Set(keyRuleCands, candidates), nil
	})
}

// proposeNode calls the LLM collaborator. Proposal failures never fail the
// graph: they mark the run degraded and the remaining stages score on rule
// signal alone.
func (p *pipeline) proposeNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		text, err := stateValue[string](s, keyText)
		if err != nil {
			return s, fmt.Errorf("propose: %w", err)
		}
		ruleCands, err := stateValue[[]Candidate](s, keyRuleCands)
		if err != nil {
			return s, fmt.Errorf("propose: %w", err)
		}

		proposal, err := p.proposer.Propose(ctx, llm.Request{
			Text:      text,
			HintPaths: hintPaths(ruleCands),
		})
		if err != nil {
			cause := proposalFailure(err)
			p.logger.WarnContext(ctx, "llm proposal failed, degrading",
				"cause", cause,
				"error", err,
			)
			return s.Set(keyDegraded, cause), nil
		}

		return s.Set(keyProposal, proposal), nil
	})
}

// validateNode converts proposal candidates, drops paths the taxonomy does
// not recognize, and measures rule/LLM agreement.
func (p *pipeline) validateNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ruleCands, err := stateValue[[]Candidate](s, keyRuleCands)
		if err != nil {
			return s, fmt.Errorf("validate: %w", err)
		}

		var llmCands []Candidate
		if val, ok := s.Get(keyProposal); ok {
			proposal, ok := val.(*llm.Proposal)
			if !ok {
				return s, fmt.Errorf("validate: %s is not a proposal", keyProposal)
			}

			for _, c := range proposal.Candidates {
				path := taxonomy.Path(c.Path)
				if p.resolve != nil && !p.resolve(ctx, path) {
					p.logger.DebugContext(ctx, "dropping unresolvable candidate",
						"path", path.Key(),
					)
					continue
				}
				llmCands = append(llmCands, Candidate{
					Path:   path,
					Score:  clamp(c.Certainty),
					Source: SourceLLM,
				})
			}

			sort.Slice(llmCands, func(i, j int) bool {
				if llmCands[i].Score != llmCands[j].Score {
					return llmCands[i].Score > llmCands[j].Score
				}
				return llmCands[i].Path.Key() < llmCands[j].Path.Key()
			})
		}

		s = s.Set(keyLLMCands, llmCands)
		return s.Set(keyAgreement, crossValidate(ruleCands, llmCands)), nil
	})
}

func (p *pipeline) scoreNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ruleCands, err := stateValue[[]Candidate](s, keyRuleCands)
		if err != nil {
			return s, fmt.Errorf("score: %w", err)
		}
		llmCands, err := stateValue[[]Candidate](s, keyLLMCands)
		if err != nil {
			return s, fmt.Errorf("score: %w", err)
		}
		agreement, err := stateValue[float64](s, keyAgreement)
		if err != nil {
			return s, fmt.Errorf("score: %w", err)
		}

		var ruleStrength, llmCertainty float64
		if len(ruleCands) > 0 {
			ruleStrength = ruleCands[0].Score
		}
		if len(llmCands) > 0 {
			llmCertainty = llmCands[0].Score
		}

		result := outcome{
			Candidates: mergeCandidates(ruleCands, llmCands),
			Confidence: scoreConfidence(p.config.Weights, ruleStrength, llmCertainty, agreement),
		}
		if len(result.Candidates) > 0 {
			result.Best = &result.Candidates[0]
		}

		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("%d rule candidates, strongest %.2f", len(ruleCands), ruleStrength),
		)
		if val, ok := s.Get(keyProposal); ok {
			if proposal, ok := val.(*llm.Proposal); ok {
				result.Reasoning = append(result.Reasoning, proposal.Reasoning...)
			}
		}

		if cause, ok := s.Get(keyDegraded); ok {
			result.Degraded = true
			result.Confidence = degradedConfidence(
				result.Confidence,
				p.config.Threshold,
				p.config.DegradedMargin,
			)
			result.Reasoning = append(result.Reasoning,
				fmt.Sprintf("degraded: llm proposal unavailable (%v)", cause),
			)
		}

		return s.Set(keyOutcome, result), nil
	})
}

// mergeCandidates combines both sources ordered by score descending,
// keeping the strongest entry per path.
func mergeCandidates(ruleCands, llmCands []Candidate) []Candidate {
	best := make(map[string]Candidate, len(ruleCands)+len(llmCands))

	consider := func(c Candidate) {
		key := c.Path.Key()
		if existing, ok := best[key]; !ok || c.Score > existing.Score {
			best[key] = c
		}
	}
	for _, c := range ruleCands {
		consider(c)
	}
	for _, c := range llmCands {
		consider(c)
	}

	merged := make([]Candidate, 0, len(best))
	for _, c := range best {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Path.Key() < merged[j].Path.Key()
	})

	return merged
}

func hintPaths(ruleCands []Candidate) [][]string {
	limit := min(len(ruleCands), hintPathLimit)
	hints := make([][]string, 0, limit)
	for _, c := range ruleCands[:limit] {
		hints = append(hints, c.Path)
	}
	return hints
}

func proposalFailure(err error) string {
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return "timeout"
	case errors.Is(err, llm.ErrMalformed):
		return "malformed"
	default:
		return "provider error"
	}
}

func stateValue[T any](s state.State, key string) (T, error) {
	var zero T

	val, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("missing %s in state", key)
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%s has unexpected type %T", key, val)
	}

	return typed, nil
}
