package codec

import "github.com/dlunire/dlstorage-go/bytemath"

// Entropy holds the key-derived parameters of the positional transform.
type Entropy struct {
	Base        int64 // EntropyValue of the key
	Coefficient int64 // circular-value coefficient, >= 1
}

// NoEntropy is used when no entropy key is supplied.
var NoEntropy = Entropy{Base: 0, Coefficient: 1}

// EntropyFromKey derives the transform parameters for key.
// A nil key selects NoEntropy; an empty non-nil key is a present key.
func EntropyFromKey(key []byte) Entropy {
	if key == nil {
		return NoEntropy
	}
	return Entropy{
		Base:        bytemath.EntropyValue(key),
		Coefficient: bytemath.Coefficient(bytemath.ByteSum(key)),
	}
}

// at returns the entropy applied to the byte at index.
func (e Entropy) at(index uint64) (int64, error) {
	return bytemath.PositionalEntropy(index, e.Base, e.Coefficient)
}
