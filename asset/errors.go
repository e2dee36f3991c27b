package asset

import "errors"

var (
	ErrUnknownCompression = errors.New("bundle: unknown compression")
	ErrUnsupportedBundle  = errors.New("bundle: unsupported bundle version")
	ErrMissingEntry       = errors.New("bundle: missing entry")
	ErrCorruptBundle      = errors.New("bundle: corrupt bundle")
	ErrInvalidWavefront   = errors.New("wavefront: invalid obj file")
)
