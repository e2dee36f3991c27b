package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"time"

	"github.com/achilleasa/sunray/asset"
	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/scene"
	"github.com/achilleasa/sunray/tracer"
	"github.com/achilleasa/sunray/types"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
)

// Trace primary rays through a compiled bundle using a pool of workers that
// each load only the meshes they own.
func TraceBundle(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing compiled bundle file argument")
	}
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	b, err := asset.OpenBundle(context.Background(), ctx.Args().First())
	if err != nil {
		return err
	}

	pool, err := setupPool(b, cfg.Workers)
	if err != nil {
		return err
	}

	var full *scene.Library
	if ctx.Bool("verify") {
		if full, err = b.Load(context.Background(), nil); err != nil {
			return err
		}
	}

	camera, err := setupCamera(ctx, b)
	if err != nil {
		return err
	}
	rays := camera.Rays()

	var res *tracer.Result
	for frame := 0; frame < ctx.Int("frames"); frame++ {
		logger.Noticef("tracing frame %d (%d rays)", frame, len(rays))
		if res, err = pool.Trace(context.Background(), rays); err != nil {
			return err
		}

		// Display stats
		displayTraceStats(pool, res)
	}
	if res == nil {
		return nil
	}

	if full != nil {
		if err = verifyHits(full, rays, res.Hits); err != nil {
			return err
		}
	}

	if imgFile := ctx.String("out"); imgFile != "" {
		return writeNormalImage(imgFile, camera, res.Hits)
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Noticef("serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics server: %v", err)
	}
}

// Partition the bundle meshes by triangle count and load one partial library
// per worker.
func setupPool(b *asset.Bundle, workerCount int) (*tracer.Pool, error) {
	loads := make([]tracer.MeshLoad, len(b.Manifest.Meshes))
	for i, rec := range b.Manifest.Meshes {
		loads[i] = tracer.MeshLoad{ID: rec.ID, Triangles: rec.Triangles}
	}

	start := time.Now()
	sets := tracer.PartitionMeshes(loads, workerCount)
	workers := make([]*tracer.Worker, len(sets))
	for i, set := range sets {
		lib, err := b.Load(context.Background(), set.Contains)
		if err != nil {
			return nil, err
		}
		workers[i] = tracer.NewWorker(uint32(i+1), lib, set.Contains)
		logger.Infof("worker %d owns %d meshes", i+1, len(set))
	}
	logger.Noticef("setup %d workers in %d ms", len(workers), time.Since(start).Nanoseconds()/1000000)

	return tracer.NewPool(workers)
}

// Aim the camera at the center of the scene from a distance that frames its
// extents and then orbit it by the requested angles.
func setupCamera(ctx *cli.Context, b *asset.Bundle) (*scene.Camera, error) {
	width, height := ctx.Int("width"), ctx.Int("height")
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	sceneIndex, err := b.SceneIndex()
	if err != nil {
		return nil, err
	}
	extents := sceneIndex.Extents()
	if !extents.IsValid() {
		return nil, errors.New("bundle scene is empty")
	}

	camera := scene.NewCamera(float32(ctx.Float64("fov")), width, height)
	camera.RayEpsilon = b.Manifest.Options.RayEpsilon
	camera.LookAt = extents.Center()
	size := extents.Extent()
	camera.Position = camera.LookAt.Add(types.XYZ(0, 0, size.MaxComponent()*1.5))
	camera.Orbit(float32(ctx.Float64("yaw")), float32(ctx.Float64("pitch")))
	return camera, nil
}

func displayTraceStats(pool *tracer.Pool, res *tracer.Result) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Started", "Resumed", "Forwarded", "Completed", "Node tests", "Busy time"})
	for i, stat := range pool.Stats() {
		table.Append([]string{
			fmt.Sprintf("%d", pool.Workers()[i].ID()),
			fmt.Sprintf("%d", stat.Started),
			fmt.Sprintf("%d", stat.Resumed),
			fmt.Sprintf("%d", stat.Forwarded),
			fmt.Sprintf("%d", stat.Completed),
			fmt.Sprintf("%d", stat.NodeTests),
			stat.BusyTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "", fmt.Sprintf("%d", res.Forwards), fmt.Sprintf("%d", len(res.Hits)), fmt.Sprintf("%d", res.NodeTests), res.Elapsed.String()})

	table.Render()
	logger.Noticef("trace statistics\n%s", buf.String())
}

// Compare the pool hits against single-node traversals of the full scene.
func verifyHits(full *scene.Library, rays []bvh.Ray, hits []bvh.HitRecord) error {
	mismatches := 0
	for i := range rays {
		exp := bvh.NewHitRecord()
		if _, err := full.Intersect(&rays[i], &exp); err != nil {
			return err
		}
		got := hits[i]
		if got.Mesh != exp.Mesh || got.Primitive != exp.Primitive || got.T != exp.T {
			mismatches++
			logger.Debugf("ray %d: expected mesh %d primitive %d at %f; got mesh %d primitive %d at %f", i, exp.Mesh, exp.Primitive, exp.T, got.Mesh, got.Primitive, got.T)
		}
	}
	if mismatches != 0 {
		return fmt.Errorf("verification failed: %d of %d rays do not match single-node traversal", mismatches, len(rays))
	}
	logger.Noticef("verified %d rays against single-node traversal", len(rays))
	return nil
}

// Write an image mapping the world space normal of each hit to a color.
func writeNormalImage(imgFile string, camera *scene.Camera, hits []bvh.HitRecord) error {
	img := image.NewRGBA(image.Rect(0, 0, camera.Width, camera.Height))
	for i, hit := range hits {
		c := color.RGBA{A: 255}
		if hit.Found() {
			n := hit.Geom.Normal
			c.R, c.G, c.B = normalChannel(n[0]), normalChannel(n[1]), normalChannel(n[2])
		}
		img.SetRGBA(i%camera.Width, i/camera.Width, c)
	}

	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	if err = png.Encode(f, img); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1000000)
	return nil
}

func normalChannel(v float32) uint8 {
	v = (v*0.5 + 0.5) * 255
	if v <= 0 {
		return 0
	} else if v >= 255 {
		return 255
	}
	return uint8(v)
}
