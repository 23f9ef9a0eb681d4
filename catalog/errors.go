package catalog

import "errors"

var (
	// ErrNotFound indicates no entry exists for the name.
	ErrNotFound = errors.New("catalog: entry not found")

	// ErrNilEntry indicates a nil entry was passed to Put.
	ErrNilEntry = errors.New("catalog: entry is nil")

	// ErrEmptyName indicates an entry or lookup without a name.
	ErrEmptyName = errors.New("catalog: name is empty")
)
