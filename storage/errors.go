package storage

import (
	"errors"
	"net/http"

	"github.com/dlunire/dlstorage-go/rangeio"
)

var (
	// ErrNotFound indicates no container exists for the name.
	ErrNotFound = errors.New("storage: container not found")

	// ErrIOFailure indicates a file or object read/write error.
	ErrIOFailure = errors.New("storage: I/O failure")

	// ErrInvalidBaseDir indicates the document root path is invalid.
	ErrInvalidBaseDir = errors.New("storage: invalid base directory")

	// ErrInvalidName indicates a logical name that cannot be stored.
	ErrInvalidName = errors.New("storage: invalid container name")

	// ErrInvalidConfig indicates an incomplete backend configuration.
	ErrInvalidConfig = errors.New("storage: invalid configuration")

	// ErrAccessDenied indicates the object store refused the request.
	ErrAccessDenied = errors.New("storage: access denied")
)

// StatusCode maps an error from this module onto the HTTP status
// conventionally reported with it: 404 for missing containers, 416 for
// unsatisfiable ranges and 500 for everything else.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, rangeio.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rangeio.ErrOutOfRange), errors.Is(err, rangeio.ErrInvalidRange):
		return http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
