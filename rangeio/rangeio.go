// Package rangeio reads inclusive, 1-based byte ranges from files and other
// random-access sources without loading them whole.
package rangeio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Source is a sized random-access byte source.
type Source interface {
	io.ReaderAt
	io.Closer

	// Size returns the total length of the source in bytes.
	Size() (int64, error)
}

// File is a Source backed by a local file.
type File struct {
	f *os.File
}

// Compile-time interface check.
var _ Source = (*File)(nil)

// OpenFile opens path for range reads.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &File{f: f}, nil
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.f.ReadAt(p, off) }

// Size returns the current file size.
func (f *File) Size() (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }

// ReadRange returns bytes from..to of src, both 1-based and inclusive.
func ReadRange(src Source, from, to int64) ([]byte, error) {
	if from < 1 || from > to {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidRange, from, to)
	}

	size, err := src.Size()
	if err != nil {
		return nil, fmt.Errorf("%w: size: %w", ErrIOFailure, err)
	}
	if to > size {
		return nil, fmt.Errorf("%w: %d-%d of %d bytes", ErrOutOfRange, from, to, size)
	}

	buf := make([]byte, to-from+1)
	n, err := src.ReadAt(buf, from-1)
	if n != len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: read %d of %d bytes at %d: %w", ErrIOFailure, n, len(buf), from, err)
	}
	return buf, nil
}

// ReadFileRange opens path, reads bytes from..to and closes it.
func ReadFileRange(path string, from, to int64) ([]byte, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadRange(f, from, to)
}

// Bytes is an in-memory Source.
type Bytes struct {
	r *bytes.Reader
}

// NewBytes returns a Source reading from data.
func NewBytes(data []byte) *Bytes { return &Bytes{r: bytes.NewReader(data)} }

// ReadAt implements io.ReaderAt.
func (b *Bytes) ReadAt(p []byte, off int64) (int, error) { return b.r.ReadAt(p, off) }

// Size returns the length of the underlying data.
func (b *Bytes) Size() (int64, error) { return b.r.Size(), nil }

// Close is a no-op.
func (b *Bytes) Close() error { return nil }
