package audit

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/arbor/pkg/query"
	"github.com/JaimeStill/arbor/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "audit_log", "a").
	Project("id", "ID").
	Project("action", "Action").
	Project("actor", "Actor").
	Project("target", "Target").
	Project("detail", "Detail").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for audit queries.
// Nil fields are ignored.
type Filters struct {
	Action *string `json:"action,omitempty"`
	Actor  *string `json:"actor,omitempty"`
	Target *string `json:"target,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Action", f.Action).
		WhereEquals("Actor", f.Actor).
		WhereContains("Target", f.Target)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("action"); v != "" {
		f.Action = &v
	}
	if v := values.Get("actor"); v != "" {
		f.Actor = &v
	}
	if v := values.Get("target"); v != "" {
		f.Target = &v
	}

	return f
}

func scanEntry(s repository.Scanner) (LogEntry, error) {
	var e LogEntry
	var detailRaw []byte

	err := s.Scan(
		&e.ID,
		&e.Action,
		&e.Actor,
		&e.Target,
		&detailRaw,
		&e.CreatedAt,
	)
	if err != nil {
		return e, err
	}

	if len(detailRaw) > 0 {
		if err := json.Unmarshal(detailRaw, &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshal detail: %w", err)
		}
	}

	return e, nil
}
