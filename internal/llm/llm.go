// Package llm defines the contract for the classification proposal
// collaborator and provides provider-backed implementations. The pipeline
// depends only on the Proposer interface; provider selection happens once at
// startup via configuration.
package llm

import (
	"context"
	"errors"
)

// Typed failure kinds for proposal calls. Both are expected, recoverable
// conditions: the pipeline degrades to rule-only scoring rather than
// surfacing them to the caller.
var (
	// ErrTimeout indicates the provider did not answer within the call deadline.
	ErrTimeout = errors.New("llm proposal timed out")
	// ErrMalformed indicates the provider answered with content that does not
	// satisfy the proposal contract.
	ErrMalformed = errors.New("llm proposal malformed")
)

// Request carries the chunk text and rule-derived hint paths sent to the
// collaborator.
type Request struct {
	Text      string
	HintPaths [][]string
}

// Candidate is a proposed canonical path with the provider's certainty.
type Candidate struct {
	Path      []string `json:"path"`
	Certainty float64  `json:"certainty"`
}

// Proposal is the structured response required from the collaborator:
// a ranked candidate list plus at least two distinct pieces of supporting
// reasoning.
type Proposal struct {
	Candidates []Candidate `json:"candidates"`
	Reasoning  []string    `json:"reasoning"`
}

// Proposer is the injected LLM collaborator. Implementations must return
// ErrTimeout or ErrMalformed (possibly wrapped) for the corresponding
// failure kinds so callers can branch on them explicitly.
type Proposer interface {
	Propose(ctx context.Context, req Request) (*Proposal, error)
}
