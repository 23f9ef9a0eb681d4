// Package storagepath maps logical storage names onto absolute paths below a
// document root.
package storagepath

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// DefaultStorageDir is the directory below the document root that holds
// managed files.
const DefaultStorageDir = "storage"

// DocumentRoot returns the parent of the working directory with symlinks
// resolved.
func DocumentRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: getwd: %w", ErrIOFailure, err)
	}
	root, err := filepath.EvalSymlinks(filepath.Dir(cwd))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return root, nil
}

// Clean normalizes a logical name: both slash styles become "/", leading and
// trailing separators are dropped. Empty names and names that climb out of
// the root are rejected.
func Clean(name string) (string, error) {
	n := strings.ReplaceAll(name, `\`, "/")
	n = strings.Trim(n, "/")
	if n == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	n = path.Clean(n)
	if n == "." || n == ".." || strings.HasPrefix(n, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return n, nil
}

// Resolver resolves names relative to Root, or to Root/StorageDir.
type Resolver struct {
	Root       string // document root
	StorageDir string // managed subdirectory, normally DefaultStorageDir
}

// NewResolver creates a Resolver rooted at root using DefaultStorageDir.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root, StorageDir: DefaultStorageDir}
}

// Base returns the directory names are resolved against.
func (r *Resolver) Base(storageRoot bool) string {
	if storageRoot && r.StorageDir != "" {
		return filepath.Join(r.Root, r.StorageDir)
	}
	return r.Root
}

// Resolve returns the absolute path for name. With createDir set, the parent
// directory is created (0755) when missing.
func (r *Resolver) Resolve(name string, createDir, storageRoot bool) (string, error) {
	if r.Root == "" {
		return "", ErrInvalidRoot
	}
	clean, err := Clean(name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(r.Base(storageRoot), filepath.FromSlash(clean))
	if !filepath.IsAbs(full) {
		if full, err = filepath.Abs(full); err != nil {
			return "", fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
	}

	if createDir {
		if err := ensureDir(filepath.Dir(full)); err != nil {
			return "", err
		}
	}
	return full, nil
}

// ensureDir creates dir unless it already exists as a directory.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil, errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %s", ErrPathCollision, dir)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			return fmt.Errorf("%w: %s", ErrPathCollision, dir)
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}
