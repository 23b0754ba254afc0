package classifier

import (
	"errors"
	"net/http"
)

var (
	ErrEmptyText       = errors.New("chunk text is empty")
	ErrChunkNotFound   = errors.New("chunk not found")
	ErrMappingConflict = errors.New("document mapping already exists")
)

// MapHTTPStatus maps classifier domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, ErrChunkNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMappingConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
