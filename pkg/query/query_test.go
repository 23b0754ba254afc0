package query_test

import (
	"reflect"
	"testing"

	"github.com/JaimeStill/arbor/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "taxonomy_nodes", "n").
		Project("id", "id").
		Project("label", "label").
		Project("created_at", "createdAt")
}

func ptr(s string) *string { return &s }

func TestProjectionMapFrom(t *testing.T) {
	p := testProjection()
	if got := p.From(); got != "public.taxonomy_nodes n" {
		t.Errorf("From() = %q, want %q", got, "public.taxonomy_nodes n")
	}
}

func TestProjectionMapColumns(t *testing.T) {
	p := testProjection()
	if got := p.Columns(); got != "n.id, n.label, n.created_at" {
		t.Errorf("Columns() = %q", got)
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		viewName string
		want     string
	}{
		{"mapped field", "label", "n.label"},
		{"mapped camel", "createdAt", "n.created_at"},
		{"unmapped passthrough", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty string", "", nil},
		{"single ascending", "label", []query.SortField{{Field: "label"}}},
		{"single descending", "-createdAt", []query.SortField{{Field: "createdAt", Descending: true}}},
		{
			"multiple mixed", "label,-createdAt",
			[]query.SortField{{Field: "label"}, {Field: "createdAt", Descending: true}},
		},
		{
			"with spaces", " label , -createdAt ",
			[]query.SortField{{Field: "label"}, {Field: "createdAt", Descending: true}},
		},
		{"empty parts skipped", "label,,createdAt", []query.SortField{{Field: "label"}, {Field: "createdAt"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).Build()
	want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n"
	if sql != want {
		t.Errorf("Build() = %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderWhereEquals(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("label", "ML").
		Build()

	want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n WHERE n.label = $1"
	if sql != want {
		t.Errorf("Build() = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "ML" {
		t.Errorf("args = %v, want [ML]", args)
	}
}

func TestBuilderNilValuesSkipped(t *testing.T) {
	var version *int
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("version", version).
		WhereContains("label", nil).
		Build()

	if len(args) != 0 {
		t.Errorf("args = %v, want empty for nil conditions", args)
	}
	want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n"
	if sql != want {
		t.Errorf("Build() = %q, want %q", sql, want)
	}
}

func TestBuilderParameterNumbering(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("label", "ML").
		WhereContains("id", ptr("abc")).
		Build()

	want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n" +
		" WHERE n.label = $1 AND n.id ILIKE $2"
	if sql != want {
		t.Errorf("Build() = %q, want %q", sql, want)
	}
	if len(args) != 2 || args[1] != "%abc%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuilderWhereSearch(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereSearch(ptr("neural"), "label", "id").
		Build()

	want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n" +
		" WHERE (n.label ILIKE $1 OR n.id ILIKE $2)"
	if sql != want {
		t.Errorf("Build() = %q, want %q", sql, want)
	}
	if len(args) != 2 || args[0] != "%neural%" || args[1] != "%neural%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuilderOrdering(t *testing.T) {
	t.Run("default sort", func(t *testing.T) {
		sql, _ := query.NewBuilder(testProjection(),
			query.SortField{Field: "createdAt", Descending: true},
		).Build()

		want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n ORDER BY n.created_at DESC"
		if sql != want {
			t.Errorf("Build() = %q, want %q", sql, want)
		}
	})

	t.Run("explicit sort overrides default", func(t *testing.T) {
		sql, _ := query.NewBuilder(testProjection(),
			query.SortField{Field: "createdAt", Descending: true},
		).OrderByFields([]query.SortField{{Field: "label"}}).Build()

		want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n ORDER BY n.label ASC"
		if sql != want {
			t.Errorf("Build() = %q, want %q", sql, want)
		}
	})
}

func TestBuilderBuildCount(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("label", "ML").
		BuildCount()

	want := "SELECT COUNT(*) FROM public.taxonomy_nodes n WHERE n.label = $1"
	if sql != want {
		t.Errorf("BuildCount() = %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}
}

func TestBuilderBuildPage(t *testing.T) {
	sql, _ := query.NewBuilder(testProjection(),
		query.SortField{Field: "label"},
	).BuildPage(3, 25)

	want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n" +
		" ORDER BY n.label ASC LIMIT 25 OFFSET 50"
	if sql != want {
		t.Errorf("BuildPage() = %q, want %q", sql, want)
	}
}

func TestBuilderBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildSingle("id", "abc")

	want := "SELECT n.id, n.label, n.created_at FROM public.taxonomy_nodes n WHERE n.id = $1"
	if sql != want {
		t.Errorf("BuildSingle() = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "abc" {
		t.Errorf("args = %v, want [abc]", args)
	}
}
