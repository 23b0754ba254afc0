package taxonomy

import (
	"errors"
	"net/http"
)

// Domain errors for taxonomy operations. Structural errors fail fast with no
// retry: they indicate a caller or consistency mistake, not a transient
// condition.
var (
	ErrInvalidLabel    = errors.New("label must not be empty")
	ErrVersionNotFound = errors.New("taxonomy version not found")
	ErrNodeNotFound    = errors.New("taxonomy node not found")
	ErrCycleDetected   = errors.New("edge would create a cycle")
	ErrPathConflict    = errors.New("canonical path already exists in version")
	ErrEdgeConflict    = errors.New("node already has a parent in version")
	ErrVersionMismatch = errors.New("edge endpoints belong to different versions")
	ErrRollbackTarget  = errors.New("rollback target version invalid")
	ErrRollbackFailed  = errors.New("rollback failed")
)

// MapHTTPStatus maps taxonomy domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrVersionNotFound), errors.Is(err, ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCycleDetected),
		errors.Is(err, ErrPathConflict),
		errors.Is(err, ErrEdgeConflict),
		errors.Is(err, ErrVersionMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidLabel), errors.Is(err, ErrRollbackTarget):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
