package classifier

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type fakeScanner struct {
	values []any
}

func (f *fakeScanner) Scan(dest ...any) error {
	if len(dest) != len(f.values) {
		return fmt.Errorf("scan: %d destinations, %d values", len(dest), len(f.values))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *uuid.UUID:
			*d = f.values[i].(uuid.UUID)
		case *string:
			*d = f.values[i].(string)
		case *[]byte:
			*d = f.values[i].([]byte)
		case *float64:
			*d = f.values[i].(float64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func TestScanRule(t *testing.T) {
	id := uuid.New()
	s := &fakeScanner{values: []any{
		id,
		"neural network",
		KindKeyword,
		[]byte(`["AI","ML","DL"]`),
		0.6,
	}}

	r, err := scanRule(s)
	if err != nil {
		t.Fatalf("scanRule: %v", err)
	}

	if r.ID != id {
		t.Errorf("ID = %s, want %s", r.ID, id)
	}
	if r.Pattern != "neural network" || r.Kind != KindKeyword || r.Weight != 0.6 {
		t.Errorf("rule = %+v", r)
	}
	if r.Path.Key() != "AI/ML/DL" {
		t.Errorf("path = %s, want AI/ML/DL", r.Path.Key())
	}
}

func TestScanRuleRejectsBadPathJSON(t *testing.T) {
	s := &fakeScanner{values: []any{
		uuid.New(),
		"gradient",
		KindKeyword,
		[]byte(`{not json`),
		0.3,
	}}

	if _, err := scanRule(s); err == nil {
		t.Error("expected error for malformed path payload")
	}
}
