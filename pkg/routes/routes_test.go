package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/arbor/pkg/routes"
)

func okHandler(marker string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marker))
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, routes.Group{
		Prefix: "/taxonomy",
		Routes: []routes.Route{
			{Method: http.MethodGet, Pattern: "/versions", Handler: okHandler("versions")},
			{Method: http.MethodPost, Pattern: "/versions", Handler: okHandler("create")},
		},
		Children: []routes.Group{
			{
				Prefix: "/rollback",
				Routes: []routes.Route{
					{Method: http.MethodPost, Pattern: "/{version}", Handler: okHandler("rollback")},
				},
			},
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		want   string
		status int
	}{
		{"top-level get", http.MethodGet, "/taxonomy/versions", "versions", http.StatusOK},
		{"method dispatch", http.MethodPost, "/taxonomy/versions", "create", http.StatusOK},
		{"nested child prefix", http.MethodPost, "/taxonomy/rollback/3", "rollback", http.StatusOK},
		{"unregistered method", http.MethodDelete, "/taxonomy/versions", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.want != "" && rec.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.want)
			}
		})
	}
}
