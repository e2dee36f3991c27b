package scene

import (
	"context"
	"runtime"
	"time"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/log"
	"golang.org/x/sync/errgroup"
)

// Compile a list of meshes into a library. An object space index is built
// for each mesh in parallel; the scene-level index over the world space mesh
// bounds is built last. Meshes are assigned consecutive ids starting at 1 in
// list order.
func Compile(ctx context.Context, meshes []*Mesh, opts bvh.Options) (*Library, error) {
	logger := log.New("scene compiler")
	start := time.Now()
	logger.Noticef("compiling scene (%d meshes)", len(meshes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, mesh := range meshes {
		mesh := mesh
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx := mesh.BuildIndex(opts)
			logger.Debugf("built index for mesh %q (%d triangles, %d nodes)", mesh.Name, len(mesh.Triangles), idx.NodeCount())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Infof("built %d mesh indices in %d ms", len(meshes), time.Since(start).Nanoseconds()/1e6)

	lib := NewLibrary(opts)
	for _, mesh := range meshes {
		if err := lib.StoreMesh(lib.NextMeshID(), mesh); err != nil {
			return nil, err
		}
	}

	sceneStart := time.Now()
	idx, err := lib.BuildIndex()
	if err != nil {
		return nil, err
	}
	logger.Infof("built scene index (%d nodes) in %d ms", idx.NodeCount(), time.Since(sceneStart).Nanoseconds()/1e6)

	logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return lib, nil
}
