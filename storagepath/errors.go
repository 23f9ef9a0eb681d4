package storagepath

import "errors"

var (
	// ErrInvalidName indicates an empty name or one that escapes the root.
	ErrInvalidName = errors.New("storagepath: invalid file name")

	// ErrInvalidRoot indicates the document root is empty.
	ErrInvalidRoot = errors.New("storagepath: invalid document root")

	// ErrPathCollision indicates a file sits where a directory must be created.
	ErrPathCollision = errors.New("storagepath: a file blocks the directory path")

	// ErrIOFailure indicates a filesystem error while resolving or creating directories.
	ErrIOFailure = errors.New("storagepath: I/O failure")
)
