// Package review implements the human-in-the-loop queue. Classifications
// that fall below the confidence threshold land here as prioritized items;
// reviewers claim, resolve, or skip them. Resolution writes the approved
// document mapping and its audit entry atomically with the status change.
package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/taxonomy"
)

// Status is a review item's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAssigned Status = "assigned"
	StatusResolved Status = "resolved"
	StatusSkipped  Status = "skipped"
)

// canTransition reports whether an item may move from its current status to
// next. Both pending and assigned items may be resolved or skipped; only
// pending items may be assigned.
func canTransition(current, next Status) bool {
	switch next {
	case StatusAssigned:
		return current == StatusPending
	case StatusResolved, StatusSkipped:
		return current == StatusPending || current == StatusAssigned
	default:
		return false
	}
}

// Candidate is a scored path suggestion attached to a review item.
type Candidate struct {
	Path  taxonomy.Path `json:"path"`
	Score float64       `json:"score"`
}

// Item is a queued classification awaiting human review. Priority runs 0
// (confident, low urgency) to 100 (no confidence, highest urgency).
type Item struct {
	ID             uuid.UUID       `json:"id"`
	ChunkID        uuid.UUID       `json:"chunk_id"`
	Candidates     []Candidate     `json:"candidates"`
	SuggestedPaths []taxonomy.Path `json:"suggested_paths"`
	Confidence     float64         `json:"confidence"`
	Priority       int             `json:"priority"`
	Status         Status          `json:"status"`
	AssignedTo     *string         `json:"assigned_to,omitempty"`
	Resolution     *string         `json:"resolution,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}

// EnqueueCommand creates a pending review item.
type EnqueueCommand struct {
	ChunkID        uuid.UUID       `json:"chunk_id"`
	Candidates     []Candidate     `json:"candidates"`
	SuggestedPaths []taxonomy.Path `json:"suggested_paths"`
	Confidence     float64         `json:"confidence"`
	Priority       int             `json:"priority"`
	Actor          string          `json:"actor"`
}

// AssignCommand claims a pending item for a reviewer.
type AssignCommand struct {
	Reviewer string `json:"reviewer"`
}

// ResolveCommand finalizes an item with the reviewer's approved path.
type ResolveCommand struct {
	ApprovedPath taxonomy.Path `json:"approved_path"`
	Notes        string        `json:"notes"`
	Reviewer     string        `json:"reviewer"`
}

// SkipCommand closes an item without producing a mapping.
type SkipCommand struct {
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}
