// Package bytemath implements the integer helpers behind the dlstorage codec:
// entropy values of byte sequences, the coefficient derived from them, and the
// per-position circular value.
package bytemath

import "fmt"

// MaxIndex is the largest byte index accepted by CircularValue.
const MaxIndex uint64 = 0xFFFFFFFFFFFFFF

// coefficientModulus bounds the derived coefficient to 48 bits.
const coefficientModulus = 0xFFFFFFFFFFFF

// ByteSum returns the sum of all byte values in b.
func ByteSum(b []byte) int64 {
	var sum int64
	for _, c := range b {
		sum += int64(c)
	}
	return sum
}

// EntropyValue returns the byte sum of b plus its length.
func EntropyValue(b []byte) int64 {
	return ByteSum(b) + int64(len(b))
}

// Coefficient derives the circular-value coefficient from a byte sum.
// The result is never below 1.
func Coefficient(sum int64) int64 {
	c := (sum*37 + 113) % coefficientModulus
	if c < 0 {
		c = -c
	}
	return max(1, c)
}

// CircularValue returns |(coefficient*index + 17) mod 100 + 17|, which always
// falls in [17, 116]. The product is reduced modulo 100 before multiplying so
// large coefficients and indexes cannot overflow.
func CircularValue(index uint64, coefficient int64) (int64, error) {
	if index > MaxIndex {
		return 0, fmt.Errorf("%w: %d", ErrIndexOverflow, index)
	}
	if coefficient < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCoefficient, coefficient)
	}
	r := ((coefficient%100)*int64(index%100) + 17) % 100
	return r + 17, nil
}

// PositionalEntropy returns the entropy applied to the byte at index:
// base plus the circular value, counted twice.
func PositionalEntropy(index uint64, base, coefficient int64) (int64, error) {
	cv, err := CircularValue(index, coefficient)
	if err != nil {
		return 0, err
	}
	return base + cv + cv, nil
}
