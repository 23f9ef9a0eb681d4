package rangeio

import "errors"

var (
	// ErrInvalidRange indicates from < 1 or from > to.
	ErrInvalidRange = errors.New("rangeio: invalid byte range")

	// ErrOutOfRange indicates the requested range extends past the end of the source.
	ErrOutOfRange = errors.New("rangeio: range not satisfiable")

	// ErrNotFound indicates the file does not exist.
	ErrNotFound = errors.New("rangeio: file not found")

	// ErrIOFailure indicates a stat, open or read error.
	ErrIOFailure = errors.New("rangeio: I/O failure")
)
