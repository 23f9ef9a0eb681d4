package codec

import "errors"

var (
	// ErrIntegrity indicates a decode produced malformed output: the entropy
	// key is wrong or the data is corrupted. The two cases are
	// indistinguishable.
	ErrIntegrity = errors.New("codec: entropy key invalid or data corrupted")
)
