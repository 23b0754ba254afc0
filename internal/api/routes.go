package api

import (
	"net/http"

	"github.com/JaimeStill/arbor/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Taxonomy.Handler().Routes(),
		domain.Classifier.Handler().Routes(),
		domain.Review.Handler().Routes(),
		domain.Audit.Handler().Routes(),
	)
}
