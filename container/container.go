// Package container reads and writes the .dlstorage file format.
//
// Layout (offsets 1-based, inclusive):
//
//	1-9     signature  "DLStorage"
//	10-13   uint32 BE  version length (H)
//	14-     version    ASCII, H bytes
//	+4      uint32 BE  payload length (P)
//	+P      payload    codec output, hex-decoded
//
// The codec output is hexadecimal text; it is stored as the bytes it
// spells. Odd-length output gets one leading '0' before conversion.
package container

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/dlunire/dlstorage-go/codec"
	"github.com/dlunire/dlstorage-go/rangeio"
)

const (
	// Signature opens every container.
	Signature = "DLStorage"

	// DefaultVersion is written when no version is configured.
	DefaultVersion = "v0.1.0"

	// Extension is appended to logical names on disk.
	Extension = ".dlstorage"

	// SignatureSize is the length of Signature in bytes.
	SignatureSize = len(Signature)

	// LengthSize is the width of both length fields.
	LengthSize = 4
)

// Header describes a parsed container.
type Header struct {
	Version       string
	HeaderLength  uint32 // length of Version in bytes
	PayloadLength uint32 // length of the payload section in bytes
}

// PayloadOffset returns the 1-based offset of the first payload byte.
func (h *Header) PayloadOffset() int64 {
	return int64(SignatureSize+LengthSize+LengthSize) + int64(h.HeaderLength) + 1
}

// Size returns the total container size in bytes.
func (h *Header) Size() int64 {
	return h.PayloadOffset() - 1 + int64(h.PayloadLength)
}

// ValidateVersion checks that v is non-empty printable ASCII.
func ValidateVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 || v[i] > 0x7e {
			return fmt.Errorf("%w: %q", ErrInvalidVersion, v)
		}
	}
	return nil
}

// PadPayload prepends a single '0' to odd-length hex so it converts to bytes.
func PadPayload(encoded string) string {
	if len(encoded)%2 != 0 {
		return "0" + encoded
	}
	return encoded
}

// CollapsePadding reduces a leading run of '0' characters to one '0'.
//
// This undoes PadPayload only because codec tokens always open with the
// marker "01", so unpadded codec output starts with exactly one zero.
func CollapsePadding(h string) string {
	zeros := 0
	for zeros < len(h) && h[zeros] == '0' {
		zeros++
	}
	if zeros <= 1 {
		return h
	}
	return h[zeros-1:]
}

// Marshal builds a container holding encoded, the output of codec.Encode.
func Marshal(version, encoded string) ([]byte, *Header, error) {
	if err := ValidateVersion(version); err != nil {
		return nil, nil, err
	}
	payload, err := hex.DecodeString(PadPayload(encoded))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	hdr := &Header{
		Version:       version,
		HeaderLength:  uint32(len(version)),
		PayloadLength: uint32(len(payload)),
	}

	buf := make([]byte, 0, hdr.Size())
	buf = append(buf, Signature...)
	buf = binary.BigEndian.AppendUint32(buf, hdr.HeaderLength)
	buf = append(buf, version...)
	buf = binary.BigEndian.AppendUint32(buf, hdr.PayloadLength)
	buf = append(buf, payload...)
	return buf, hdr, nil
}

// ReadHeader parses the signature, version and payload length of src.
func ReadHeader(src rangeio.Source) (*Header, error) {
	sig, err := readField(src, 1, int64(SignatureSize))
	if err != nil {
		if errors.Is(err, ErrTruncated) {
			return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
		}
		return nil, err
	}
	if !bytes.Equal(sig, []byte(Signature)) {
		return nil, ErrBadSignature
	}

	from := int64(SignatureSize) + 1
	headerLen, err := readUint32(src, from)
	if err != nil {
		return nil, err
	}
	from += LengthSize

	hdr := &Header{HeaderLength: headerLen}
	if headerLen > 0 {
		v, err := readField(src, from, int64(headerLen))
		if err != nil {
			return nil, err
		}
		hdr.Version = string(v)
		from += int64(headerLen)
	}

	if hdr.PayloadLength, err = readUint32(src, from); err != nil {
		return nil, err
	}
	return hdr, nil
}

// ReadPayload returns the payload of src as codec input: hex with the
// odd-length padding removed.
func ReadPayload(src rangeio.Source, hdr *Header) (string, error) {
	if hdr.PayloadLength == 0 {
		return "", nil
	}
	payload, err := readField(src, hdr.PayloadOffset(), int64(hdr.PayloadLength))
	if err != nil {
		return "", err
	}
	return CollapsePadding(hex.EncodeToString(payload)), nil
}

// Unmarshal parses src and decodes its payload with key.
func Unmarshal(src rangeio.Source, key []byte) ([]byte, *Header, error) {
	hdr, err := ReadHeader(src)
	if err != nil {
		return nil, nil, err
	}
	encoded, err := ReadPayload(src, hdr)
	if err != nil {
		return nil, hdr, err
	}
	raw, err := codec.Content(encoded, key)
	if err != nil {
		return nil, hdr, err
	}
	return raw, hdr, nil
}

// readField reads n bytes starting at the 1-based offset from.
func readField(src rangeio.Source, from, n int64) ([]byte, error) {
	b, err := rangeio.ReadRange(src, from, from+n-1)
	if err != nil {
		if errors.Is(err, rangeio.ErrOutOfRange) {
			return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		return nil, err
	}
	return b, nil
}

// readUint32 reads a big-endian length field at the 1-based offset from.
func readUint32(src rangeio.Source, from int64) (uint32, error) {
	b, err := readField(src, from, LengthSize)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
