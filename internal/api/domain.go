package api

import (
	"fmt"

	"github.com/JaimeStill/arbor/internal/audit"
	"github.com/JaimeStill/arbor/internal/chunks"
	"github.com/JaimeStill/arbor/internal/classifier"
	"github.com/JaimeStill/arbor/internal/llm"
	"github.com/JaimeStill/arbor/internal/review"
	"github.com/JaimeStill/arbor/internal/taxonomy"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Audit      audit.System
	Taxonomy   taxonomy.System
	Review     review.System
	Classifier classifier.System
}

// NewDomain creates all domain systems from the API runtime. Systems are
// wired in dependency order: audit first (every mutation writes through it),
// then taxonomy, review, and the classifier on top.
func NewDomain(runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	auditSystem := audit.New(db, runtime.Logger, runtime.Pagination)

	taxonomySystem := taxonomy.New(db, auditSystem, runtime.Logger)

	reviewSystem := review.New(
		db,
		taxonomySystem,
		auditSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	chunkSystem := chunks.New(db, runtime.Logger)

	proposer, err := llm.New(&runtime.Config.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm proposer: %w", err)
	}

	classifierSystem := classifier.New(
		db,
		chunkSystem,
		taxonomySystem,
		reviewSystem,
		auditSystem,
		proposer,
		runtime.Config.Classifier,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Audit:      auditSystem,
		Taxonomy:   taxonomySystem,
		Review:     reviewSystem,
		Classifier: classifierSystem,
	}, nil
}
