package container

import "errors"

var (
	// ErrBadSignature indicates the file does not start with the DLStorage signature.
	ErrBadSignature = errors.New("container: not a DLStorage file")

	// ErrTruncated indicates the file ends before a declared field.
	ErrTruncated = errors.New("container: file is truncated")

	// ErrInvalidVersion indicates an empty or non-printable-ASCII version string.
	ErrInvalidVersion = errors.New("container: invalid version string")

	// ErrInvalidPayload indicates the encoded payload is not hexadecimal.
	ErrInvalidPayload = errors.New("container: payload is not hexadecimal")

	// ErrPayloadTooLarge indicates the payload does not fit the 4-byte length field.
	ErrPayloadTooLarge = errors.New("container: payload exceeds 4 GiB")
)
