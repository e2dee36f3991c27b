package bvh

import "errors"

var (
	ErrCorruptIndex       = errors.New("bvh: corrupt index")
	ErrUnsupportedVersion = errors.New("bvh: unsupported index version")
	ErrCorruptCursor      = errors.New("bvh: corrupt traversal cursor")
)
