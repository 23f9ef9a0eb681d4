// Package storage saves and reads .dlstorage containers through a Backend:
// the local filesystem or an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dlunire/dlstorage-go/catalog"
	"github.com/dlunire/dlstorage-go/codec"
	"github.com/dlunire/dlstorage-go/container"
	"github.com/dlunire/dlstorage-go/rangeio"
)

// Storage encodes payloads into containers and decodes them back.
// Each call is a complete, independent transform; nothing is cached.
type Storage struct {
	backend Backend
	catalog *catalog.Catalog
	version string
	logger  *slog.Logger
}

// New creates a Storage over backend.
func New(backend Backend, opts ...Option) (*Storage, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", ErrInvalidConfig)
	}
	s := &Storage{
		backend: backend,
		version: container.DefaultVersion,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := container.ValidateVersion(s.version); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return s, nil
}

// SaveData encodes data and writes it as the container for name, replacing
// any previous container.
func (s *Storage) SaveData(ctx context.Context, name string, data []byte, opts ...DataOption) error {
	ref, key := applyDataOptions(name, opts)
	catalogKey, err := ref.key()
	if err != nil {
		return err
	}

	encoded, err := codec.Encode(data, key)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", name, err)
	}
	blob, hdr, err := container.Marshal(s.version, encoded)
	if err != nil {
		return fmt.Errorf("storage: build container %s: %w", name, err)
	}
	if err := s.backend.Write(ctx, ref, blob); err != nil {
		return err
	}

	if s.catalog != nil {
		err := s.catalog.Put(&catalog.Entry{
			Name:          catalogKey,
			Version:       hdr.Version,
			Size:          int64(len(data)),
			PayloadLength: hdr.PayloadLength,
			PayloadDigest: catalog.PayloadDigest(encoded),
			Digest:        catalog.Digest(data, key),
			SavedAt:       time.Now().UTC(),
		})
		if err != nil {
			// The container is already replaced; drop the old entry so it
			// is not mistaken for a record of the new one.
			if derr := s.catalog.Delete(catalogKey); derr != nil && !errors.Is(derr, catalog.ErrNotFound) {
				s.logger.WarnContext(ctx, "stale catalog entry not removed", "name", catalogKey, "error", derr)
			}
			return fmt.Errorf("storage: record %s: %w", name, err)
		}
	}

	s.logger.DebugContext(ctx, "container saved",
		"name", catalogKey,
		"bytes", len(data),
		"payload_bytes", hdr.PayloadLength,
		"version", hdr.Version,
	)
	return nil
}

// ReadStorageData reads and decodes the container for name.
//
// Without a catalog a wrong key either fails with codec.ErrIntegrity or
// yields different bytes. With a catalog the recorded digest turns the
// second case into codec.ErrIntegrity as well, provided the entry was
// recorded for the container on hand. Entries left behind by a rewrite that
// bypassed the catalog are ignored.
func (s *Storage) ReadStorageData(ctx context.Context, name string, opts ...DataOption) ([]byte, error) {
	ref, key := applyDataOptions(name, opts)
	catalogKey, err := ref.key()
	if err != nil {
		return nil, err
	}

	src, err := s.backend.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	raw, hdr, err := s.decode(ctx, catalogKey, src, key)
	if err != nil {
		s.logger.WarnContext(ctx, "container read failed", "name", catalogKey, "error", err)
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}

	s.logger.DebugContext(ctx, "container read", "name", catalogKey, "bytes", len(raw), "version", hdr.Version)
	return raw, nil
}

// decode parses src, decodes its payload with key and checks the result
// against the catalog.
func (s *Storage) decode(ctx context.Context, catalogKey string, src rangeio.Source, key []byte) ([]byte, *container.Header, error) {
	hdr, err := container.ReadHeader(src)
	if err != nil {
		return nil, nil, err
	}
	encoded, err := container.ReadPayload(src, hdr)
	if err != nil {
		return nil, nil, err
	}
	raw, err := codec.Content(encoded, key)
	if err != nil {
		return nil, nil, err
	}
	if err := s.verify(ctx, catalogKey, hdr, encoded, raw, key); err != nil {
		return nil, nil, err
	}
	return raw, hdr, nil
}

// verify checks raw against the catalog entry for catalogKey when one was
// recorded for this exact container.
func (s *Storage) verify(ctx context.Context, catalogKey string, hdr *container.Header, encoded string, raw, key []byte) error {
	if s.catalog == nil {
		return nil
	}

	entry, err := s.catalog.Get(catalogKey)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("lookup: %w", err)
	case !entry.Describes(hdr.PayloadLength, encoded):
		s.logger.DebugContext(ctx, "stale catalog entry ignored", "name", catalogKey)
		return nil
	case !entry.Verify(raw, key):
		return codec.ErrIntegrity
	}
	return nil
}

// Stat parses and returns the header of the container for name.
func (s *Storage) Stat(ctx context.Context, name string, opts ...DataOption) (*container.Header, error) {
	ref, _ := applyDataOptions(name, opts)

	src, err := s.backend.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	hdr, err := container.ReadHeader(src)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	return hdr, nil
}

// Delete removes the container for name and its catalog entry.
func (s *Storage) Delete(ctx context.Context, name string, opts ...DataOption) error {
	ref, _ := applyDataOptions(name, opts)
	catalogKey, err := ref.key()
	if err != nil {
		return err
	}

	removeErr := s.backend.Remove(ctx, ref)
	if removeErr != nil && !errors.Is(removeErr, ErrNotFound) {
		return removeErr
	}
	// A missing container still drops its entry.
	if s.catalog != nil {
		if err := s.catalog.Delete(catalogKey); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("storage: unrecord %s: %w", name, err)
		}
	}
	if removeErr != nil {
		return removeErr
	}

	s.logger.DebugContext(ctx, "container deleted", "name", catalogKey)
	return nil
}

// List returns the names of all containers in the storage directory.
func (s *Storage) List(ctx context.Context) ([]string, error) {
	return s.backend.List(ctx)
}
