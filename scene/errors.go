package scene

import "errors"

var (
	ErrInvalidMeshID     = errors.New("scene: invalid mesh id")
	ErrSingularTransform = errors.New("scene: mesh transform is not invertible")
	ErrIndexMismatch     = errors.New("scene: index does not match mesh geometry")
	ErrMissingIndex      = errors.New("scene: mesh index has not been built")
)
