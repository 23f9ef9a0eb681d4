package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testEntry(name string) *Entry {
	return &Entry{
		Name:          name,
		Version:       "v0.1.0",
		Size:          5,
		PayloadLength: 18,
		PayloadDigest: PayloadDigest("payload"),
		Digest:        Digest([]byte("hello"), []byte("key")),
		SavedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// --- Put / Get tests ---

func TestCatalog_PutAndGet(t *testing.T) {
	c := tempCatalog(t)
	e := testEntry("docs/a")
	require.NoError(t, c.Put(e))

	got, err := c.Get("docs/a")
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Version, got.Version)
	assert.Equal(t, e.Size, got.Size)
	assert.Equal(t, e.PayloadLength, got.PayloadLength)
	assert.Equal(t, e.PayloadDigest, got.PayloadDigest)
	assert.Equal(t, e.Digest, got.Digest)
	assert.True(t, e.SavedAt.Equal(got.SavedAt))
}

func TestCatalog_PutReplaces(t *testing.T) {
	c := tempCatalog(t)
	require.NoError(t, c.Put(testEntry("a")))

	e := testEntry("a")
	e.Size = 99
	require.NoError(t, c.Put(e))

	got, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Size)
}

func TestCatalog_InvalidArguments(t *testing.T) {
	c := tempCatalog(t)

	assert.ErrorIs(t, c.Put(nil), ErrNilEntry)
	assert.ErrorIs(t, c.Put(&Entry{}), ErrEmptyName)

	_, err := c.Get("")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.ErrorIs(t, c.Delete(""), ErrEmptyName)
}

func TestCatalog_NotFound(t *testing.T) {
	c := tempCatalog(t)

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Delete("missing"), ErrNotFound)
}

// --- Delete / List tests ---

func TestCatalog_Delete(t *testing.T) {
	c := tempCatalog(t)
	require.NoError(t, c.Put(testEntry("a")))
	require.NoError(t, c.Delete("a"))

	_, err := c.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_ListSorted(t *testing.T) {
	c := tempCatalog(t)
	for _, name := range []string{"b", "a", "c/d"} {
		require.NoError(t, c.Put(testEntry(name)))
	}

	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.Equal(t, "c/d", entries[2].Name)
}

func TestCatalog_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(testEntry("kept")))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	got, err := c.Get("kept")
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Name)
}

// --- Digest tests ---

func TestDigest(t *testing.T) {
	data := []byte("hello")

	assert.Len(t, Digest(data, nil), 32)
	assert.Equal(t, Digest(data, nil), Digest(data, nil))
	assert.NotEqual(t, Digest(data, nil), Digest(data, []byte{}))
	assert.NotEqual(t, Digest(data, []byte("a")), Digest(data, []byte("b")))
}

func TestEntry_Verify(t *testing.T) {
	e := testEntry("a")
	assert.True(t, e.Verify([]byte("hello"), []byte("key")))
	assert.False(t, e.Verify([]byte("hello"), []byte("other")))
	assert.False(t, e.Verify([]byte("hellO"), []byte("key")))

	assert.True(t, (&Entry{}).Verify([]byte("anything"), nil))
}

func TestEntry_Describes(t *testing.T) {
	e := &Entry{PayloadLength: 4, PayloadDigest: PayloadDigest("01816d5")}

	tests := []struct {
		name    string
		entry   *Entry
		length  uint32
		encoded string
		want    bool
	}{
		{"same container", e, 4, "01816d5", true},
		{"different payload", e, 4, "01816d8", false},
		{"different length", e, 7, "01816d5", false},
		{"no payload digest", &Entry{PayloadLength: 4}, 4, "01816d5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Describes(tt.length, tt.encoded))
		})
	}
}
