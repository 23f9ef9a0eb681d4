package rangeio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTemp writes data to a file in a temporary directory.
func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// shortSource reports a size larger than what it can actually deliver.
type shortSource struct {
	data []byte
	size int64
}

func (s *shortSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s.data)) {
		return 0, nil
	}
	return copy(p, s.data[off:]), nil
}

func (s *shortSource) Size() (int64, error) { return s.size, nil }
func (s *shortSource) Close() error         { return nil }

type brokenSizeSource struct{ shortSource }

func (s *brokenSizeSource) Size() (int64, error) { return 0, errors.New("stat failed") }

// --- ReadFileRange tests ---

func TestReadFileRange(t *testing.T) {
	path := writeTemp(t, []byte("0123456789"))

	tests := []struct {
		name     string
		from, to int64
		want     string
	}{
		{"first byte", 1, 1, "0"},
		{"prefix", 1, 4, "0123"},
		{"middle", 5, 7, "456"},
		{"last byte", 10, 10, "9"},
		{"whole file", 1, 10, "0123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFileRange(path, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.want), got)
		})
	}
}

func TestReadFileRange_InvalidRange(t *testing.T) {
	path := writeTemp(t, []byte("0123456789"))

	tests := []struct {
		name     string
		from, to int64
	}{
		{"from after to", 5, 3},
		{"zero from", 0, 3},
		{"negative from", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFileRange(path, tt.from, tt.to)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestReadFileRange_PastEnd(t *testing.T) {
	data := []byte("0123456789")
	path := writeTemp(t, data)

	_, err := ReadFileRange(path, 1, int64(len(data))+1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ReadFileRange(path, 20, 30)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestReadFileRange_NotFound(t *testing.T) {
	_, err := ReadFileRange(filepath.Join(t.TempDir(), "missing"), 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- ReadRange tests ---

func TestReadRange_ShortRead(t *testing.T) {
	src := &shortSource{data: []byte("abc"), size: 10}
	_, err := ReadRange(src, 2, 6)
	assert.ErrorIs(t, err, ErrIOFailure)
}

func TestReadRange_SizeFailure(t *testing.T) {
	_, err := ReadRange(&brokenSizeSource{}, 1, 1)
	assert.ErrorIs(t, err, ErrIOFailure)
}

func TestFile_Size(t *testing.T) {
	path := writeTemp(t, make([]byte, 42))
	f, err := OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(42), size)
}

func TestBytes(t *testing.T) {
	src := NewBytes([]byte("DLStorage"))
	got, err := ReadRange(src, 3, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("Storage"), got)

	_, err = ReadRange(src, 1, 10)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
