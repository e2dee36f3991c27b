package tracer

import (
	"bytes"
	"context"
	"testing"

	"github.com/achilleasa/sunray/asset"
	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/scene"
	"github.com/achilleasa/sunray/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func compileGrid(t *testing.T) *scene.Library {
	t.Helper()
	meshes, err := scene.GenerateGrid(scene.GridOptions{
		Columns:      4,
		Rows:         2,
		Layers:       4,
		Spacing:      3,
		BoxSize:      1.5,
		Tessellation: 2,
	})
	require.NoError(t, err)
	lib, err := scene.Compile(context.Background(), meshes, bvh.DefaultOptions())
	require.NoError(t, err)
	return lib
}

func testRays() []bvh.Ray {
	cam := scene.NewCamera(55, 32, 24)
	cam.Position = types.XYZ(4, 6, 22)
	cam.LookAt = types.XYZ(0, 0, 0)
	return cam.Rays()
}

func meshLoads(lib *scene.Library) []MeshLoad {
	var loads []MeshLoad
	lib.ForEachMesh(func(id uint32, mesh *scene.Mesh) error {
		loads = append(loads, MeshLoad{ID: id, Triangles: len(mesh.Triangles)})
		return nil
	})
	return loads
}

func sharedLibraryWorkers(lib *scene.Library, count int) []*Worker {
	sets := PartitionMeshes(meshLoads(lib), count)
	workers := make([]*Worker, count)
	for i, set := range sets {
		workers[i] = NewWorker(uint32(i+1), lib, set.Contains)
	}
	return workers
}

func requireSameHits(t *testing.T, lib *scene.Library, rays []bvh.Ray, res *Result, workers []*Worker) {
	t.Helper()
	require.Len(t, res.Hits, len(rays))

	found := 0
	for i, ray := range rays {
		exp := bvh.NewHitRecord()
		_, err := lib.Intersect(&ray, &exp)
		require.NoError(t, err)

		got := res.Hits[i]
		if exp.Found() {
			found++
			owner := -1
			for wi, w := range workers {
				if w.ID() == got.Worker {
					owner = wi
				}
			}
			require.NotEqual(t, -1, owner, "ray %d: unknown worker %d", i, got.Worker)
			require.True(t, workers[owner].Owns(got.Mesh), "ray %d: worker %d does not own mesh %d", i, got.Worker, got.Mesh)
		}
		got.Worker = exp.Worker
		require.Equal(t, exp, got, "ray %d", i)
	}
	require.NotZero(t, found, "expected some rays to hit the grid")
}

func TestPoolMatchesSingleNode(t *testing.T) {
	lib := compileGrid(t)
	rays := testRays()

	for _, count := range []int{1, 2, 3, 5} {
		workers := sharedLibraryWorkers(lib, count)
		pool, err := NewPool(workers)
		require.NoError(t, err)

		res, err := pool.Trace(context.Background(), rays)
		require.NoError(t, err, "%d workers", count)
		requireSameHits(t, lib, rays, res, workers)

		var started, completed uint32
		for _, s := range pool.Stats() {
			started += s.Started
			completed += s.Completed
		}
		require.Equal(t, uint32(len(rays)), started)
		require.Equal(t, uint32(len(rays)), completed)

		if count == 1 {
			require.Zero(t, res.Forwards)
		} else {
			require.NotZero(t, res.Forwards, "%d workers", count)
		}
	}
}

func TestPoolRepeatedTraceUsesScheduler(t *testing.T) {
	lib := compileGrid(t)
	rays := testRays()
	workers := sharedLibraryWorkers(lib, 3)
	pool, err := NewPool(workers)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := pool.Trace(context.Background(), rays)
		require.NoError(t, err)
		requireSameHits(t, lib, rays, res, workers)
	}
}

func TestPoolWithPartialLibraries(t *testing.T) {
	lib := compileGrid(t)
	var buf bytes.Buffer
	require.NoError(t, asset.WriteBundle(&buf, lib, asset.LZ4))
	bundle, err := asset.ReadBundle(buf.Bytes())
	require.NoError(t, err)

	sets := PartitionMeshes(meshLoads(lib), 3)
	workers := make([]*Worker, len(sets))
	for i, set := range sets {
		partial, err := bundle.Load(context.Background(), set.Contains)
		require.NoError(t, err)
		require.Equal(t, len(set), partial.MeshCount())

		// A nil ownership func means the worker owns whatever it loaded.
		workers[i] = NewWorker(uint32(i+1), partial, nil)
	}

	pool, err := NewPool(workers)
	require.NoError(t, err)
	rays := testRays()
	res, err := pool.Trace(context.Background(), rays)
	require.NoError(t, err)
	requireSameHits(t, lib, rays, res, workers)
}

func TestPoolNoOwner(t *testing.T) {
	lib := compileGrid(t)
	nobody := func(uint32) bool { return false }
	pool, err := NewPool([]*Worker{
		NewWorker(1, lib, nobody),
		NewWorker(2, lib, nobody),
	})
	require.NoError(t, err)

	_, err = pool.Trace(context.Background(), testRays())
	require.ErrorIs(t, err, ErrNoOwner)
}

func TestPoolCancelled(t *testing.T) {
	lib := compileGrid(t)
	pool, err := NewPool(sharedLibraryWorkers(lib, 2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.Trace(ctx, testRays())
	require.ErrorIs(t, err, context.Canceled)
}

func TestPoolEmptyBatch(t *testing.T) {
	lib := compileGrid(t)
	pool, err := NewPool(sharedLibraryWorkers(lib, 2))
	require.NoError(t, err)

	res, err := pool.Trace(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, res.Hits)

	_, err = NewPool(nil)
	require.ErrorIs(t, err, ErrNoWorkers)
}

func TestPoolMetrics(t *testing.T) {
	lib := compileGrid(t)
	pool, err := NewPool(sharedLibraryWorkers(lib, 2))
	require.NoError(t, err)
	rays := testRays()

	before := testutil.ToFloat64(queriesCompleted)
	_, err = pool.Trace(context.Background(), rays)
	require.NoError(t, err)
	require.Equal(t, float64(len(rays)), testutil.ToFloat64(queriesCompleted)-before)
}
