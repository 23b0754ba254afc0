package review

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/arbor/internal/taxonomy"
)

var (
	ErrItemNotFound  = errors.New("review item not found")
	ErrInvalidStatus = errors.New("invalid review status transition")
)

// MapHTTPStatus maps review domain errors to HTTP status codes. Taxonomy
// errors surface through Resolve when the approved path cannot be bound.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidStatus):
		return http.StatusConflict
	case errors.Is(err, taxonomy.ErrNodeNotFound), errors.Is(err, taxonomy.ErrVersionNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
