package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/JaimeStill/arbor/pkg/pagination"
	"github.com/JaimeStill/arbor/pkg/query"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := pagination.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.DefaultPageSize != 20 {
		t.Errorf("DefaultPageSize = %d, want 20", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 100 {
		t.Errorf("MaxPageSize = %d, want 100", cfg.MaxPageSize)
	}
}

func TestConfigFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "50")
	t.Setenv("TEST_MAX_PAGE", "200")

	cfg := pagination.Config{}
	env := &pagination.ConfigEnv{
		DefaultPageSize: "TEST_PAGE_SIZE",
		MaxPageSize:     "TEST_MAX_PAGE",
	}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.DefaultPageSize != 50 {
		t.Errorf("DefaultPageSize = %d, want 50", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 200 {
		t.Errorf("MaxPageSize = %d, want 200", cfg.MaxPageSize)
	}
}

func TestConfigFinalizeValidation(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error when default exceeds max")
	}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		request      pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values", pagination.PageRequest{}, 1, 20},
		{"negative page", pagination.PageRequest{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page size", pagination.PageRequest{Page: 2, PageSize: 500}, 2, 100},
		{"valid request untouched", pagination.PageRequest{Page: 4, PageSize: 25}, 4, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.request.Normalize(defaultConfig())
			if tt.request.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", tt.request.Page, tt.wantPage)
			}
			if tt.request.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", tt.request.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "neural")
	values.Set("sort", "-priority,createdAt")

	req := pagination.PageRequestFromQuery(values, defaultConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("page = %d size = %d, want 2/10", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "neural" {
		t.Errorf("search = %v, want neural", req.Search)
	}
	if len(req.Sort) != 2 || !req.Sort[0].Descending || req.Sort[0].Field != "priority" {
		t.Errorf("sort = %+v", req.Sort)
	}
}

func TestSortFieldsUnmarshalJSON(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var req pagination.PageRequest
		if err := json.Unmarshal([]byte(`{"sort": "-priority,createdAt"}`), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		want := pagination.SortFields{
			{Field: "priority", Descending: true},
			{Field: "createdAt"},
		}
		if len(req.Sort) != 2 || req.Sort[0] != want[0] || req.Sort[1] != want[1] {
			t.Errorf("sort = %+v, want %+v", req.Sort, want)
		}
	})

	t.Run("array form", func(t *testing.T) {
		var req pagination.PageRequest
		input := `{"sort": [{"Field": "priority", "Descending": true}]}`
		if err := json.Unmarshal([]byte(input), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(req.Sort) != 1 || req.Sort[0] != (query.SortField{Field: "priority", Descending: true}) {
			t.Errorf("sort = %+v", req.Sort)
		}
	})
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		pageSize       int
		wantTotalPages int
	}{
		{"exact division", 100, 20, 5},
		{"remainder rounds up", 101, 20, 6},
		{"empty result", 0, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{}, tt.total, 1, tt.pageSize)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
		})
	}
}

func TestNewPageResultNilData(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 20)
	if result.Data == nil {
		t.Error("Data should be an empty slice, not nil")
	}
}
