package taxonomy

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/arbor/pkg/repository"
)

const nodeColumns = "id, version, label, path, path_key, confidence, created_at"

func marshalPath(p Path) ([]byte, error) {
	if p == nil {
		p = Path{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal path: %w", err)
	}
	return data, nil
}

func unmarshalPath(raw []byte, p *Path) error {
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("unmarshal path: %w", err)
	}
	return nil
}

func scanNode(s repository.Scanner) (Node, error) {
	var n Node
	var pathRaw []byte
	var pathKey string

	err := s.Scan(
		&n.ID,
		&n.Version,
		&n.Label,
		&pathRaw,
		&pathKey,
		&n.Confidence,
		&n.CreatedAt,
	)
	if err != nil {
		return n, err
	}

	if err := json.Unmarshal(pathRaw, &n.Path); err != nil {
		return n, fmt.Errorf("unmarshal node path: %w", err)
	}

	return n, nil
}

func scanEdge(s repository.Scanner) (Edge, error) {
	var e Edge
	err := s.Scan(&e.ParentID, &e.ChildID, &e.Version)
	return e, err
}

func scanVersion(s repository.Scanner) (Version, error) {
	var v Version
	err := s.Scan(&v.Version, &v.BasedOn, &v.CreatedAt)
	return v, err
}

func scanMigration(s repository.Scanner) (MigrationRecord, error) {
	var m MigrationRecord
	var fromRaw, toRaw []byte

	err := s.Scan(
		&m.ID,
		&m.FromVersion,
		&m.ToVersion,
		&fromRaw,
		&toRaw,
		&m.Rationale,
		&m.CreatedAt,
	)
	if err != nil {
		return m, err
	}

	if err := json.Unmarshal(fromRaw, &m.FromPath); err != nil {
		return m, fmt.Errorf("unmarshal from_path: %w", err)
	}
	if err := json.Unmarshal(toRaw, &m.ToPath); err != nil {
		return m, fmt.Errorf("unmarshal to_path: %w", err)
	}

	return m, nil
}
