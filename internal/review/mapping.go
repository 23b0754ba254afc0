package review

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/arbor/pkg/query"
	"github.com/JaimeStill/arbor/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "review_queue", "r").
	Project("id", "ID").
	Project("chunk_id", "ChunkID").
	Project("candidates", "Candidates").
	Project("suggested_paths", "SuggestedPaths").
	Project("confidence", "Confidence").
	Project("priority", "Priority").
	Project("status", "Status").
	Project("assigned_to", "AssignedTo").
	Project("resolution", "Resolution").
	Project("created_at", "CreatedAt").
	Project("resolved_at", "ResolvedAt")

// Highest priority first; ties break oldest first.
var defaultSort = []query.SortField{
	{Field: "Priority", Descending: true},
	{Field: "CreatedAt"},
}

// Filters contains optional filtering criteria for review queue queries.
// Nil fields are ignored; listing defaults to pending items when no status
// filter is given.
type Filters struct {
	Status     *string `json:"status,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("AssignedTo", f.AssignedTo)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("status"); v != "" {
		f.Status = &v
	}
	if v := values.Get("assigned_to"); v != "" {
		f.AssignedTo = &v
	}

	return f
}

func scanItem(s repository.Scanner) (Item, error) {
	var item Item
	var candidatesRaw, pathsRaw []byte

	err := s.Scan(
		&item.ID,
		&item.ChunkID,
		&candidatesRaw,
		&pathsRaw,
		&item.Confidence,
		&item.Priority,
		&item.Status,
		&item.AssignedTo,
		&item.Resolution,
		&item.CreatedAt,
		&item.ResolvedAt,
	)
	if err != nil {
		return item, err
	}

	if err := json.Unmarshal(candidatesRaw, &item.Candidates); err != nil {
		return item, fmt.Errorf("unmarshal candidates: %w", err)
	}
	if err := json.Unmarshal(pathsRaw, &item.SuggestedPaths); err != nil {
		return item, fmt.Errorf("unmarshal suggested paths: %w", err)
	}

	return item, nil
}
