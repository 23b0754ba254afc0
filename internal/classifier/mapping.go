package classifier

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/arbor/internal/taxonomy"
	"github.com/JaimeStill/arbor/pkg/query"
	"github.com/JaimeStill/arbor/pkg/repository"
)

// Mapping is a persisted document→taxonomy assignment.
type Mapping struct {
	ID           uuid.UUID     `json:"id"`
	DocID        uuid.UUID     `json:"doc_id"`
	NodeID       uuid.UUID     `json:"node_id"`
	Version      int           `json:"version"`
	Path         taxonomy.Path `json:"path"`
	Confidence   float64       `json:"confidence"`
	HITLRequired bool          `json:"hitl_required"`
	CreatedAt    time.Time     `json:"created_at"`
}

var mappingProjection = query.
	NewProjectionMap("public", "document_mappings", "m").
	Project("id", "ID").
	Project("doc_id", "DocID").
	Project("node_id", "NodeID").
	Project("version", "Version").
	Project("path", "Path").
	Project("confidence", "Confidence").
	Project("hitl_required", "HITLRequired").
	Project("created_at", "CreatedAt")

var mappingDefaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// MappingFilters contains optional filtering criteria for mapping queries.
// Nil fields are ignored.
type MappingFilters struct {
	DocID        *uuid.UUID `json:"doc_id,omitempty"`
	Version      *int       `json:"version,omitempty"`
	HITLRequired *bool      `json:"hitl_required,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f MappingFilters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("DocID", f.DocID).
		WhereEquals("Version", f.Version).
		WhereEquals("HITLRequired", f.HITLRequired)
}

// MappingFiltersFromQuery extracts filter values from URL query parameters.
func MappingFiltersFromQuery(values url.Values) MappingFilters {
	var f MappingFilters

	if v := values.Get("doc_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.DocID = &id
		}
	}
	if v := values.Get("version"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Version = &n
		}
	}
	if v := values.Get("hitl_required"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.HITLRequired = &b
		}
	}

	return f
}

func scanRule(s repository.Scanner) (Rule, error) {
	var r Rule
	var pathRaw []byte

	err := s.Scan(
		&r.ID,
		&r.Pattern,
		&r.Kind,
		&pathRaw,
		&r.Weight,
	)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal(pathRaw, &r.Path); err != nil {
		return r, fmt.Errorf("unmarshal rule path: %w", err)
	}

	return r, nil
}

func scanMapping(s repository.Scanner) (Mapping, error) {
	var m Mapping
	var pathRaw []byte

	err := s.Scan(
		&m.ID,
		&m.DocID,
		&m.NodeID,
		&m.Version,
		&pathRaw,
		&m.Confidence,
		&m.HITLRequired,
		&m.CreatedAt,
	)
	if err != nil {
		return m, err
	}

	if err := json.Unmarshal(pathRaw, &m.Path); err != nil {
		return m, fmt.Errorf("unmarshal mapping path: %w", err)
	}

	return m, nil
}
