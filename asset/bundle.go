package asset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/log"
	"github.com/achilleasa/sunray/scene"
	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"
)

// A Bundle is an opened zip bundle. Meshes are decoded on demand by Load.
type Bundle struct {
	Manifest Manifest

	logger log.Logger
	size   int
	files  map[string]*zip.File
}

// Open a bundle from a local path or http(s) URL.
func OpenBundle(ctx context.Context, location string) (*Bundle, error) {
	res, err := OpenResource(ctx, location)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	// zip requires an io.ReaderAt so the whole bundle is buffered.
	data, err := io.ReadAll(res)
	if err != nil {
		return nil, err
	}
	return ReadBundle(data)
}

// Read a bundle from memory.
func ReadBundle(data []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}
	registerDecompressors(zr)

	b := &Bundle{
		logger: log.New("bundle reader"),
		size:   len(data),
		files:  make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		b.files[f.Name] = f
	}

	manifestData, err := b.readEntry(manifestFile)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(manifestData, &b.Manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrCorruptBundle, err)
	}
	if b.Manifest.Version != bundleVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBundle, b.Manifest.Version)
	}
	return b, nil
}

func (b *Bundle) readEntry(name string) ([]byte, error) {
	f, found := b.files[name]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntry, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptBundle, name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptBundle, name, err)
	}
	return data, nil
}

func (b *Bundle) readIndex(name string) (*bvh.Index, error) {
	data, err := b.readEntry(name)
	if err != nil {
		return nil, err
	}
	idx, err := bvh.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("bundle: %s: %w", name, err)
	}
	return idx, nil
}

func (b *Bundle) readMesh(rec MeshRecord) (*scene.Mesh, error) {
	data, err := b.readEntry(meshDataFile(rec.ID))
	if err != nil {
		return nil, err
	}
	var md meshData
	if err = gob.NewDecoder(bytes.NewReader(data)).Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: mesh %d: %v", ErrCorruptBundle, rec.ID, err)
	}

	mesh, err := scene.NewMesh(md.Name, md.Triangles, md.Transform)
	if err != nil {
		return nil, err
	}
	idx, err := b.readIndex(meshIndexFile(rec.ID))
	if err != nil {
		return nil, err
	}
	if err = mesh.SetIndex(idx); err != nil {
		return nil, err
	}
	return mesh, nil
}

// Decode the scene-level index without loading any mesh.
func (b *Bundle) SceneIndex() (*bvh.Index, error) {
	return b.readIndex(sceneIndexFile)
}

// Load the bundle into a library. If owned is not nil only the meshes for
// which it returns true are decoded; the ids of the remaining meshes are
// reserved so that the scene index still covers the whole scene.
func (b *Bundle) Load(ctx context.Context, owned func(id uint32) bool) (*scene.Library, error) {
	start := time.Now()

	records := make([]MeshRecord, 0, len(b.Manifest.Meshes))
	var maxID uint32
	for _, rec := range b.Manifest.Meshes {
		if rec.ID == 0 {
			return nil, fmt.Errorf("%w: manifest lists mesh id 0", ErrCorruptBundle)
		}
		if rec.ID > maxID {
			maxID = rec.ID
		}
		if owned == nil || owned(rec.ID) {
			records = append(records, rec)
		}
	}

	meshes := make([]*scene.Mesh, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mesh, err := b.readMesh(rec)
			if err != nil {
				return err
			}
			meshes[i] = mesh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lib := scene.NewLibrary(b.Manifest.Options)
	lib.Reserve(maxID)
	for i, rec := range records {
		if err := lib.StoreMesh(rec.ID, meshes[i]); err != nil {
			return nil, err
		}
	}

	sceneIndex, err := b.SceneIndex()
	if err != nil {
		return nil, err
	}
	if err = lib.SetIndex(sceneIndex); err != nil {
		return nil, err
	}

	b.logger.Noticef("loaded %d of %d meshes in %d ms", len(records), len(b.Manifest.Meshes), time.Since(start).Nanoseconds()/1e6)
	return lib, nil
}
