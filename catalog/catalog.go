// Package catalog keeps a bbolt index of saved containers: their version,
// sizes, save time, a digest of the stored payload and a keyed digest of the
// plaintext.
package catalog

import (
	"bytes"
	"crypto/subtle"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
)

var bucketContainers = []byte("containers")

// Entry records one saved container.
type Entry struct {
	Name          string    // logical name, as passed to the storage layer
	Version       string    // container format version
	Size          int64     // plaintext length in bytes
	PayloadLength uint32    // payload section length in bytes
	PayloadDigest []byte    // see PayloadDigest
	Digest        []byte    // see Digest
	SavedAt       time.Time // time of the last save
}

// Digest returns BLAKE2b-256 of data keyed with BLAKE2b-256(key). A nil key
// yields the unkeyed hash.
func Digest(data, key []byte) []byte {
	var mac []byte
	if key != nil {
		k := blake2b.Sum256(key)
		mac = k[:]
	}
	h, err := blake2b.New256(mac)
	if err != nil {
		// 32-byte keys are always accepted.
		panic(err)
	}
	h.Write(data)
	return h.Sum(nil)
}

// PayloadDigest returns the unkeyed BLAKE2b-256 of an encoded payload. It
// ties an entry to the exact container it was recorded for.
func PayloadDigest(encoded string) []byte {
	h := blake2b.Sum256([]byte(encoded))
	return h[:]
}

// Describes reports whether the entry was recorded for a container with this
// payload length and encoded payload. Entries that do not describe the
// container on hand are stale: it was rewritten without updating the catalog.
func (e *Entry) Describes(payloadLength uint32, encoded string) bool {
	if len(e.PayloadDigest) == 0 || e.PayloadLength != payloadLength {
		return false
	}
	return subtle.ConstantTimeCompare(e.PayloadDigest, PayloadDigest(encoded)) == 1
}

// Verify reports whether data and key reproduce the recorded digest.
// Entries without a digest always verify.
func (e *Entry) Verify(data, key []byte) bool {
	if len(e.Digest) == 0 {
		return true
	}
	return subtle.ConstantTimeCompare(e.Digest, Digest(data, key)) == 1
}

// Catalog wraps a bbolt database of entries keyed by name.
type Catalog struct {
	db *bbolt.DB
}

// Open opens or creates the catalog at path, creating its directory.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("catalog: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("catalog: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketContainers)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: create bucket: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error { return c.db.Close() }

// Put stores e, replacing any entry with the same name.
func (c *Catalog) Put(e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	if e.Name == "" {
		return ErrEmptyName
	}

	data, err := encodeGob(e)
	if err != nil {
		return fmt.Errorf("catalog: encode entry: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketContainers).Put([]byte(e.Name), data); err != nil {
			return fmt.Errorf("catalog: put entry: %w", err)
		}
		return nil
	})
}

// Get returns the entry for name.
func (c *Catalog) Get(name string) (*Entry, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var e Entry
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketContainers).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err := decodeGob(data, &e); err != nil {
			return fmt.Errorf("catalog: decode entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes the entry for name.
func (c *Catalog) Delete(name string) error {
	if name == "" {
		return ErrEmptyName
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketContainers)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err := b.Delete([]byte(name)); err != nil {
			return fmt.Errorf("catalog: delete entry: %w", err)
		}
		return nil
	})
}

// List returns all entries ordered by name.
func (c *Catalog) List() ([]*Entry, error) {
	var entries []*Entry
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketContainers).ForEach(func(_, v []byte) error {
			var e Entry
			if err := decodeGob(v, &e); err != nil {
				return fmt.Errorf("catalog: decode entry: %w", err)
			}
			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
