// Package codec implements the reversible dlstorage byte transform.
//
// Every input byte becomes a 10-digit hexadecimal token holding
// byte + Seed + positional entropy. Inside a token the literal "01" is
// escaped to "ffff", and then any leading run of zeros is replaced by the
// two-character marker "01". Tokens are concatenated without separators.
// Decoding splits on the marker, undoes the escape, pads back to 10 digits
// and subtracts the entropy again.
//
// The transform is an obfuscation scheme, not a cipher.
package codec

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Seed is added to every byte before it is rendered as a token.
	Seed = 530000

	// TokenWidth is the number of hex digits in an uncompacted token.
	TokenWidth = 10

	// marker replaces a token's leading zero run.
	marker = "01"

	// escape stands in for a literal "01" inside a token.
	escape = "ffff"
)

// Encode transforms raw into an encoded hex string using key.
// A nil key means no entropy key.
func Encode(raw, key []byte) (string, error) {
	return EncodeEntropy(raw, EntropyFromKey(key), 0)
}

// EncodeEntropy encodes raw with precomputed entropy. offset is the global
// index of raw[0], so a payload encoded in chunks with running offsets
// concatenates to the same string as a single Encode call.
func EncodeEntropy(raw []byte, e Entropy, offset uint64) (string, error) {
	buf := make([]byte, 0, len(raw)*9)
	for i, b := range raw {
		pe, err := e.at(offset + uint64(i))
		if err != nil {
			return "", fmt.Errorf("codec: encode byte %d: %w", i, err)
		}
		buf = appendToken(buf, int64(b)+pe+Seed)
	}
	return string(buf), nil
}

// appendToken renders v as a zero-padded token, escapes "01" and compacts
// the leading zeros. The escape must run before compaction.
func appendToken(dst []byte, v int64) []byte {
	var digits [16]byte
	h := strconv.AppendInt(digits[:0], v, 16)

	var padded [24]byte
	tok := padded[:0]
	for n := len(h); n < TokenWidth; n++ {
		tok = append(tok, '0')
	}
	tok = append(tok, h...)

	var escaped [48]byte
	esc := escaped[:0]
	for i := 0; i < len(tok); i++ {
		if tok[i] == '0' && i+1 < len(tok) && tok[i+1] == '1' {
			esc = append(esc, escape...)
			i++
			continue
		}
		esc = append(esc, tok[i])
	}

	zeros := 0
	for zeros < len(esc) && esc[zeros] == '0' {
		zeros++
	}
	if zeros > 0 {
		dst = append(dst, marker...)
	}
	return append(dst, esc[zeros:]...)
}

// Decode reverses Encode and returns the hex representation of the
// original bytes. An odd-length result reports ErrIntegrity.
func Decode(encoded string, key []byte) (string, error) {
	return DecodeEntropy(encoded, EntropyFromKey(key))
}

// DecodeEntropy is Decode with precomputed entropy.
func DecodeEntropy(encoded string, e Entropy) (string, error) {
	expanded := expand(encoded)

	var out strings.Builder
	out.Grow(len(expanded)/TokenWidth*2 + 2)

	var index uint64
	for off := 0; off < len(expanded); off += TokenWidth {
		block := expanded[off:min(off+TokenWidth, len(expanded))]
		n, err := strconv.ParseUint(block, 16, 64)
		if err != nil {
			return "", fmt.Errorf("%w: token %d: %w", ErrIntegrity, index, err)
		}
		pe, err := e.at(index)
		if err != nil {
			return "", fmt.Errorf("codec: decode token %d: %w", index, err)
		}
		writeByteHex(&out, int64(n)-(Seed+pe))
		index++
	}

	if out.Len()%2 != 0 {
		return "", ErrIntegrity
	}
	return out.String(), nil
}

// Content decodes encoded and returns the original bytes.
func Content(encoded string, key []byte) ([]byte, error) {
	return ContentEntropy(encoded, EntropyFromKey(key))
}

// ContentEntropy is Content with precomputed entropy.
func ContentEntropy(encoded string, e Entropy) ([]byte, error) {
	h, err := DecodeEntropy(encoded, e)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	return raw, nil
}

// expand splits encoded on the marker, restores escaped "01" sequences and
// left-pads every piece back to TokenWidth digits.
func expand(encoded string) string {
	var b strings.Builder
	b.Grow(len(encoded) * 2)

	rest := encoded
	for rest != "" {
		var piece string
		if i := strings.Index(rest, marker); i >= 0 {
			piece, rest = rest[:i], rest[i+len(marker):]
		} else {
			piece, rest = rest, ""
		}
		if piece == "" {
			continue
		}
		if strings.Contains(piece, escape) {
			piece = strings.ReplaceAll(piece, escape, marker)
		}
		for n := len(piece); n < TokenWidth; n++ {
			b.WriteByte('0')
		}
		b.WriteString(piece)
	}
	return b.String()
}

// writeByteHex renders v with at least two hex digits. Negative values,
// which only a wrong key produces, render as 64-bit two's complement.
func writeByteHex(b *strings.Builder, v int64) {
	var digits [20]byte
	var h []byte
	if v < 0 {
		h = strconv.AppendUint(digits[:0], uint64(v), 16)
	} else {
		h = strconv.AppendInt(digits[:0], v, 16)
	}
	if len(h) < 2 {
		b.WriteByte('0')
	}
	b.Write(h)
}
