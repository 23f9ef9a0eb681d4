package storage

import (
	"context"
	"fmt"

	"github.com/dlunire/dlstorage-go/rangeio"
	"github.com/dlunire/dlstorage-go/storagepath"
)

// Ref identifies a container within a Backend.
type Ref struct {
	// Name is the logical name, without the .dlstorage extension.
	Name string

	// Bare places the container directly under the document root instead of
	// its storage directory.
	Bare bool
}

// clean returns the normalized slash-separated name.
func (r Ref) clean() (string, error) {
	name, err := storagepath.Clean(r.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	return name, nil
}

// key returns the name used for catalog entries. Bare refs are rooted with
// a leading slash.
func (r Ref) key() (string, error) {
	name, err := r.clean()
	if err != nil {
		return "", err
	}
	if r.Bare {
		return "/" + name, nil
	}
	return name, nil
}

// Backend persists whole containers and serves range reads over them.
type Backend interface {
	// Write stores data as the container for ref, replacing any previous one.
	Write(ctx context.Context, ref Ref, data []byte) error

	// Open returns a range-readable view of the container for ref.
	// Returns ErrNotFound if it does not exist.
	Open(ctx context.Context, ref Ref) (rangeio.Source, error)

	// Remove deletes the container for ref.
	Remove(ctx context.Context, ref Ref) error

	// List returns the logical names of all containers in the storage directory.
	List(ctx context.Context) ([]string, error)
}
