package llm

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/arbor/pkg/formatting"
)

const proposeInstructions = `You are a taxonomy classifier. Assign the text
below to one or more canonical taxonomy paths. A canonical path is an ordered
list of labels from the taxonomy root, e.g. ["AI", "ML", "DL"].

Respond with JSON only:
{
  "candidates": [{"path": ["label", "..."], "certainty": 0.0}],
  "reasoning": ["...", "..."]
}

Rank candidates by certainty, descending. Provide at least two distinct
reasoning statements supporting your top candidate.`

func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(proposeInstructions)

	if len(req.HintPaths) > 0 {
		sb.WriteString("\n\nCandidate paths suggested by rule matching:\n")
		for _, path := range req.HintPaths {
			sb.WriteString("- ")
			sb.WriteString(strings.Join(path, " > "))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nText:\n")
	sb.WriteString(req.Text)
	return sb.String()
}

// parseProposal validates raw model output against the proposal contract.
// Unparseable content, an empty candidate list, or fewer than two reasoning
// statements all map to ErrMalformed.
func parseProposal(content string) (*Proposal, error) {
	parsed, err := formatting.Parse[Proposal](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformed)
	}
	if len(parsed.Reasoning) < 2 {
		return nil, fmt.Errorf("%w: %d reasoning statements, need 2", ErrMalformed, len(parsed.Reasoning))
	}

	for i := range parsed.Candidates {
		if len(parsed.Candidates[i].Path) == 0 {
			return nil, fmt.Errorf("%w: candidate %d has empty path", ErrMalformed, i)
		}
		parsed.Candidates[i].Certainty = clamp(parsed.Candidates[i].Certainty)
	}

	return &parsed, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
