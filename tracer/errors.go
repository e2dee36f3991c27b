package tracer

import "errors"

var (
	ErrCorruptQuery = errors.New("tracer: corrupt query")
	ErrNoOwner      = errors.New("tracer: no worker owns mesh")
	ErrNotOwner     = errors.New("tracer: query forwarded to a worker that does not own its mesh")
	ErrNoWorkers    = errors.New("tracer: pool has no workers")
)
