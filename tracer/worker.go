package tracer

import (
	"fmt"
	"time"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/log"
	"github.com/achilleasa/sunray/scene"
)

// Per-worker counters collected while tracing a batch.
type WorkerStats struct {
	// Queries assigned to the worker when the batch was seeded.
	Started uint32

	// Queries resumed by the worker after other workers forwarded them.
	Resumed uint32

	// Queries the worker suspended and forwarded.
	Forwarded uint32

	// Queries the worker completed.
	Completed uint32

	// Scene index node tests performed by the worker.
	NodeTests uint64

	// Time spent processing queries.
	BusyTime time.Duration
}

// A Worker traces queries against the meshes it owns. The scene index is
// shared by every worker; the meshes are not.
type Worker struct {
	id     uint32
	lib    *scene.Library
	owns   func(meshID uint32) bool
	logger log.Logger
	stats  WorkerStats
}

// Create a worker. If owns is nil the worker owns every mesh stored in lib.
func NewWorker(id uint32, lib *scene.Library, owns func(meshID uint32) bool) *Worker {
	return &Worker{
		id:     id,
		lib:    lib,
		owns:   owns,
		logger: log.New(fmt.Sprintf("worker %d", id)),
	}
}

// Get the worker id. It is recorded in the hit records the worker produces.
func (w *Worker) ID() uint32 {
	return w.id
}

// Check whether the worker can intersect the given mesh.
func (w *Worker) Owns(meshID uint32) bool {
	if w.owns != nil {
		return w.owns(meshID)
	}
	_, err := w.lib.LookupMesh(meshID)
	return err == nil
}

// Get the stats collected since the last ResetStats call.
func (w *Worker) Stats() WorkerStats {
	return w.stats
}

func (w *Worker) ResetStats() {
	w.stats = WorkerStats{}
}

// Advance q until it is exhausted or reaches a mesh the worker does not own.
// In the latter case Suspended is returned and q.Forward names the mesh whose
// owner must resume the query.
func (w *Worker) Process(q *Query) (bvh.Status, error) {
	idx := w.lib.Index()
	if idx == nil {
		return bvh.Exhausted, scene.ErrMissingIndex
	}
	if err := idx.CheckCursor(q.Cursor); err != nil {
		return bvh.Exhausted, err
	}
	if q.Forward != 0 {
		if !w.Owns(q.Forward) {
			return bvh.Exhausted, fmt.Errorf("%w: mesh %d", ErrNotOwner, q.Forward)
		}
		q.Forward = 0
		w.stats.Resumed++
	}

	var lookupErr error
	isect := bvh.IntersectorFunc(func(meshID uint32, ray *bvh.Ray, hit *bvh.HitRecord) (bool, bvh.Action) {
		if !w.Owns(meshID) {
			q.Forward = meshID
			return false, bvh.Defer
		}
		mesh, err := w.lib.LookupMesh(meshID)
		if err != nil {
			lookupErr = err
			return false, bvh.Defer
		}
		if !mesh.Intersect(meshID, ray, hit) {
			return false, bvh.Continue
		}
		hit.Worker = w.id
		return true, bvh.Continue
	})

	start := time.Now()
	nodeTests := q.Cursor.NodeTests
	cur, status := idx.Traverse(&q.Ray, &q.Hit, q.Cursor, isect)
	q.Cursor = cur
	w.stats.BusyTime += time.Since(start)
	w.stats.NodeTests += uint64(cur.NodeTests - nodeTests)

	if lookupErr != nil {
		return bvh.Exhausted, lookupErr
	}
	if status == bvh.Suspended {
		q.Hops++
		w.stats.Forwarded++
		return status, nil
	}
	w.stats.Completed++
	return status, nil
}
