package classifier

import "math"

// topMatchBonus is added to the overlap ratio when the strongest rule
// candidate and the strongest LLM candidate name the same path.
const topMatchBonus = 0.2

// crossValidate measures agreement between the rule and LLM candidate sets:
// the Jaccard overlap of their path sets, plus a bonus when both rank the
// same path first. Returns 0 when either side produced nothing.
func crossValidate(ruleCands, llmCands []Candidate) float64 {
	if len(ruleCands) == 0 || len(llmCands) == 0 {
		return 0
	}

	ruleSet := make(map[string]bool, len(ruleCands))
	for _, c := range ruleCands {
		ruleSet[c.Path.Key()] = true
	}

	llmSet := make(map[string]bool, len(llmCands))
	intersection := 0
	for _, c := range llmCands {
		key := c.Path.Key()
		if llmSet[key] {
			continue
		}
		llmSet[key] = true
		if ruleSet[key] {
			intersection++
		}
	}

	union := len(ruleSet) + len(llmSet) - intersection
	agreement := float64(intersection) / float64(union)

	if ruleCands[0].Path.Equal(llmCands[0].Path) {
		agreement += topMatchBonus
	}

	return clamp(agreement)
}

// scoreConfidence combines the three signals into a final confidence.
func scoreConfidence(w Weights, ruleStrength, llmCertainty, agreement float64) float64 {
	return clamp(w.Rule*ruleStrength + w.LLM*llmCertainty + w.Agreement*agreement)
}

// degradedConfidence caps a degraded run's confidence strictly below the
// acceptance threshold so it can never auto-accept.
func degradedConfidence(score, threshold, margin float64) float64 {
	return clamp(math.Min(score, threshold-margin))
}

// priorityFor converts confidence into review urgency: 0 for full
// confidence, 100 for none.
func priorityFor(confidence float64) int {
	return int(math.Round((1 - clamp(confidence)) * 100))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
