package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dlunire/dlstorage-go/container"
	"github.com/dlunire/dlstorage-go/rangeio"
	"github.com/dlunire/dlstorage-go/storagepath"
)

// lockFileName is the per-directory lock taken while a container is replaced.
const lockFileName = ".dlstorage.lock"

// FileBackend implements Backend on the local filesystem.
// Containers live at {root}/storage/{name}.dlstorage, or {root}/{name}.dlstorage
// for bare refs.
//
// Writes go to a temporary file that is renamed over the target while an
// exclusive flock is held on the directory's lock file, so readers never
// observe a partial container and concurrent writers serialize.
type FileBackend struct {
	resolver *storagepath.Resolver
	mu       sync.RWMutex
}

// Compile-time interface check.
var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates a file backend rooted at root.
func NewFileBackend(root string) (*FileBackend, error) {
	return NewFileBackendWithResolver(storagepath.NewResolver(root))
}

// NewFileBackendWithResolver creates a file backend using r for path resolution.
func NewFileBackendWithResolver(r *storagepath.Resolver) (*FileBackend, error) {
	if r == nil || r.Root == "" {
		return nil, ErrInvalidBaseDir
	}
	return &FileBackend{resolver: r}, nil
}

// Path returns the filesystem path of the container for ref.
func (fb *FileBackend) Path(ref Ref) (string, error) {
	return fb.path(ref, false)
}

func (fb *FileBackend) path(ref Ref, createDir bool) (string, error) {
	name, err := ref.clean()
	if err != nil {
		return "", err
	}
	p, err := fb.resolver.Resolve(name+container.Extension, createDir, !ref.Bare)
	if err != nil {
		if errors.Is(err, storagepath.ErrInvalidName) {
			return "", fmt.Errorf("%w: %w", ErrInvalidName, err)
		}
		return "", fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return p, nil
}

// Write replaces the container for ref with data.
func (fb *FileBackend) Write(_ context.Context, ref Ref, data []byte) error {
	path, err := fb.path(ref, true)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)

	fb.mu.Lock()
	defer fb.mu.Unlock()

	fl, err := acquireLock(filepath.Join(dir, lockFileName))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	defer releaseLock(fl)

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: verify %s: %w", ErrIOFailure, path, err)
	}
	return nil
}

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+container.Extension)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

// Open opens the container for ref for range reads.
func (fb *FileBackend) Open(_ context.Context, ref Ref) (rangeio.Source, error) {
	path, err := fb.path(ref, false)
	if err != nil {
		return nil, err
	}

	fb.mu.RLock()
	defer fb.mu.RUnlock()

	f, err := rangeio.OpenFile(path)
	if err != nil {
		if errors.Is(err, rangeio.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Name)
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return f, nil
}

// Remove deletes the container for ref.
func (fb *FileBackend) Remove(_ context.Context, ref Ref) error {
	path, err := fb.path(ref, false)
	if err != nil {
		return err
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, ref.Name)
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// List returns the names of all containers below the storage directory.
func (fb *FileBackend) List(_ context.Context) ([]string, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	base := fb.resolver.Base(true)
	var names []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == base && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), container.Extension) || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), container.Extension))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	sort.Strings(names)
	return names, nil
}
