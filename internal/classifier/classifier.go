// Package classifier implements the hybrid classification pipeline: rule
// matching, LLM proposal, cross-validation, and confidence scoring, with
// threshold-gated acceptance and human review escalation. LLM failures
// never fail a classification; they degrade it and force escalation.
package classifier

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/taxonomy"
)

// Candidate sources.
const (
	SourceRule = "rule"
	SourceLLM  = "llm"
)

// Command requests classification of a chunk. Text overrides the stored
// chunk content when set; otherwise the chunk is loaded by id.
type Command struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Text    string    `json:"text"`
	Actor   string    `json:"actor"`
}

// Candidate is a scored path suggestion with its origin stage.
type Candidate struct {
	Path   taxonomy.Path `json:"path"`
	Score  float64       `json:"score"`
	Source string        `json:"source"`
}

// Result is a completed classification. It is always produced: degraded
// runs carry their cause in Reasoning and are escalated rather than failed.
type Result struct {
	ChunkID    uuid.UUID     `json:"chunk_id"`
	Path       taxonomy.Path `json:"path,omitempty"`
	Version    int           `json:"version,omitempty"`
	Candidates []Candidate   `json:"candidates"`
	Confidence float64       `json:"confidence"`
	HITL       bool          `json:"hitl"`
	Priority   int           `json:"priority,omitempty"`
	Reasoning  []string      `json:"reasoning"`
	Degraded   bool          `json:"degraded"`
}

// BatchItem pairs one batch entry's result with its error, if any. The
// batch itself always returns the full slice; per-item failures do not
// abort sibling classifications.
type BatchItem struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Result  *Result   `json:"result,omitempty"`
	Error   string    `json:"error,omitempty"`
}
