package classifier

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/taxonomy"
	"github.com/JaimeStill/arbor/pkg/repository"
)

// Rule kinds.
const (
	KindKeyword = "keyword"
	KindRegex   = "regex"
)

// Rule binds a text pattern to a taxonomy path with a match weight. Rules
// are data, managed in the classifier_rules table so operators can tune
// matching without a deploy.
type Rule struct {
	ID      uuid.UUID     `json:"id"`
	Pattern string        `json:"pattern"`
	Kind    string        `json:"kind"`
	Path    taxonomy.Path `json:"path"`
	Weight  float64       `json:"weight"`

	compiled *regexp.Regexp
}

// Compile prepares a regex rule for matching. Keyword rules are a no-op.
func (r *Rule) Compile() error {
	if r.Kind != KindRegex {
		return nil
	}

	re, err := regexp.Compile("(?i)" + r.Pattern)
	if err != nil {
		return fmt.Errorf("rule %s: compile pattern: %w", r.ID, err)
	}
	r.compiled = re
	return nil
}

// Matches reports whether the rule matches text. Matching is
// case-insensitive for both kinds.
func (r *Rule) Matches(text string) bool {
	switch r.Kind {
	case KindKeyword:
		return strings.Contains(strings.ToLower(text), strings.ToLower(r.Pattern))
	case KindRegex:
		return r.compiled != nil && r.compiled.MatchString(text)
	default:
		return false
	}
}

// matchRules runs every rule against text and returns candidates ordered by
// score descending. Multiple rules hitting the same path accumulate, capped
// at 1.0. Zero matches is a valid outcome, not an error.
func matchRules(rules []Rule, text string) []Candidate {
	scores := make(map[string]float64)
	paths := make(map[string]taxonomy.Path)

	for _, rule := range rules {
		if !rule.Matches(text) {
			continue
		}
		key := rule.Path.Key()
		scores[key] += rule.Weight
		paths[key] = rule.Path
	}

	candidates := make([]Candidate, 0, len(scores))
	for key, score := range scores {
		if score > 1 {
			score = 1
		}
		candidates = append(candidates, Candidate{
			Path:   paths[key],
			Score:  score,
			Source: SourceRule,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Path.Key() < candidates[j].Path.Key()
	})

	return candidates
}

const loadRulesQ = `
	SELECT id, pattern, kind, path, weight
	FROM classifier_rules
	ORDER BY id`

func (r *repo) loadRules(ctx context.Context) ([]Rule, error) {
	rules, err := repository.QueryMany(ctx, r.db, loadRulesQ, nil, scanRule)
	if err != nil {
		return nil, fmt.Errorf("load classifier rules: %w", err)
	}

	compiled := rules[:0]
	for _, rule := range rules {
		if err := rule.Compile(); err != nil {
			r.logger.Warn("skipping invalid classifier rule", "rule_id", rule.ID, "error", err)
			continue
		}
		compiled = append(compiled, rule)
	}

	return compiled, nil
}
