// Package audit implements the append-only audit log. Every mutation across
// the taxonomy, classification, and review domains writes exactly one entry
// (or more, for multi-step operations such as rollback). Entries are
// write-once: the package exposes no update or delete operation and the
// backing table receives only inserts.
package audit

import "time"

// Entry is the write model for an audit record. Detail carries structured,
// action-specific context and is stored as JSON.
type Entry struct {
	Action string         `json:"action"`
	Actor  string         `json:"actor"`
	Target string         `json:"target"`
	Detail map[string]any `json:"detail,omitempty"`
}

// LogEntry is a stored audit record.
type LogEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Target    string         `json:"target"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
