package taxonomy_test

import (
	"testing"

	"github.com/JaimeStill/arbor/internal/taxonomy"
)

func TestPathKey(t *testing.T) {
	tests := []struct {
		name     string
		path     taxonomy.Path
		expected string
	}{
		{"empty", taxonomy.Path{}, ""},
		{"single", taxonomy.Path{"AI"}, "AI"},
		{"nested", taxonomy.Path{"AI", "ML", "DL"}, "AI/ML/DL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.path.Key(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPathChildDoesNotAliasParent(t *testing.T) {
	parent := taxonomy.Path{"AI", "ML"}
	a := parent.Child("DL")
	b := parent.Child("Robotics")

	if !a.Equal(taxonomy.Path{"AI", "ML", "DL"}) {
		t.Errorf("a = %v", a)
	}
	if !b.Equal(taxonomy.Path{"AI", "ML", "Robotics"}) {
		t.Errorf("b = %v, siblings must not share backing storage", b)
	}
}

func TestPathHasPrefix(t *testing.T) {
	path := taxonomy.Path{"AI", "ML", "DL"}

	tests := []struct {
		name     string
		prefix   taxonomy.Path
		expected bool
	}{
		{"self", taxonomy.Path{"AI", "ML", "DL"}, true},
		{"ancestor", taxonomy.Path{"AI", "ML"}, true},
		{"root", taxonomy.Path{"AI"}, true},
		{"empty", taxonomy.Path{}, true},
		{"longer", taxonomy.Path{"AI", "ML", "DL", "CNN"}, false},
		{"sibling", taxonomy.Path{"AI", "NLP"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := path.HasPrefix(tt.prefix); got != tt.expected {
				t.Errorf("HasPrefix(%v) = %v, want %v", tt.prefix, got, tt.expected)
			}
		})
	}
}
