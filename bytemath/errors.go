package bytemath

import "errors"

var (
	// ErrIndexOverflow indicates a byte index above MaxIndex.
	ErrIndexOverflow = errors.New("bytemath: index exceeds maximum")

	// ErrInvalidCoefficient indicates a coefficient below 1.
	ErrInvalidCoefficient = errors.New("bytemath: coefficient must be at least 1")
)
