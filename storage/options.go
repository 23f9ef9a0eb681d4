package storage

import (
	"log/slog"

	"github.com/dlunire/dlstorage-go/catalog"
)

// Option configures a Storage.
type Option func(*Storage)

// WithCatalog records every save in c and verifies reads against it.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Storage) {
		s.catalog = c
	}
}

// WithVersion sets the version string written into new containers.
func WithVersion(v string) Option {
	return func(s *Storage) {
		s.version = v
	}
}

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// DataOption configures a single save, read, stat or delete call.
type DataOption func(*dataOptions)

type dataOptions struct {
	key  []byte
	bare bool
}

// WithKey sets the entropy key. A nil key means no key; an empty non-nil
// key is a distinct, present key.
func WithKey(key []byte) DataOption {
	return func(o *dataOptions) {
		o.key = key
	}
}

// WithoutStorageDir resolves the name against the document root itself
// rather than its storage directory.
func WithoutStorageDir() DataOption {
	return func(o *dataOptions) {
		o.bare = true
	}
}

func applyDataOptions(name string, opts []DataOption) (Ref, []byte) {
	var o dataOptions
	for _, opt := range opts {
		opt(&o)
	}
	return Ref{Name: name, Bare: o.bare}, o.key
}
