package asset

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/scene"
	"github.com/achilleasa/sunray/types"
	"github.com/stretchr/testify/require"
)

func compileGrid(t *testing.T) *scene.Library {
	t.Helper()
	meshes, err := scene.GenerateGrid(scene.GridOptions{
		Columns:      3,
		Rows:         2,
		Layers:       3,
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
	cam := scene.NewCamera(50, 24, 16)
	cam.Position = types.XYZ(3, 5, 18)
	cam.LookAt = types.XYZ(0, 0, 0)
	return cam.Rays()
}

func requireSameHits(t *testing.T, exp, got *scene.Library) {
	t.Helper()
	for i, ray := range testRays() {
		expHit := bvh.NewHitRecord()
		_, err := exp.Intersect(&ray, &expHit)
		require.NoError(t, err)

		hit := bvh.NewHitRecord()
		_, err = got.Intersect(&ray, &hit)
		require.NoError(t, err)
		require.Equal(t, expHit, hit, "ray %d", i)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	lib := compileGrid(t)

	for _, compression := range []Compression{Store, Deflate, Zstd, LZ4} {
		var buf bytes.Buffer
		require.NoError(t, WriteBundle(&buf, lib, compression), compression.String())

		b, err := ReadBundle(buf.Bytes())
		require.NoError(t, err, compression.String())
		require.Equal(t, compression.String(), b.Manifest.Compression)
		require.Len(t, b.Manifest.Meshes, lib.MeshCount())
		require.Equal(t, lib.Options(), b.Manifest.Options)
		require.Equal(t, buf.Len(), b.Size())
		for name, f := range b.files {
			require.Equal(t, compression.zipMethod(), f.Method, "%s: %s", compression, name)
		}

		stats := b.Stats()
		require.Contains(t, stats, "Total")
		require.Contains(t, stats, compression.String())

		loaded, err := b.Load(context.Background(), nil)
		require.NoError(t, err, compression.String())
		require.Equal(t, lib.MeshCount(), loaded.MeshCount())
		require.Equal(t, lib.Index().NodeCount(), loaded.Index().NodeCount())

		require.NoError(t, lib.ForEachMesh(func(id uint32, mesh *scene.Mesh) error {
			got, err := loaded.LookupMesh(id)
			require.NoError(t, err)
			require.Equal(t, mesh.Name, got.Name)
			require.Equal(t, mesh.Triangles, got.Triangles)
			require.Equal(t, mesh.Transform(), got.Transform())
			return nil
		}))

		requireSameHits(t, lib, loaded)
	}
}

func TestBundlePartialLoad(t *testing.T) {
	lib := compileGrid(t)
	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, lib, Zstd))

	b, err := ReadBundle(buf.Bytes())
	require.NoError(t, err)

	odd := func(id uint32) bool { return id%2 == 1 }
	partial, err := b.Load(context.Background(), odd)
	require.NoError(t, err)

	require.Equal(t, (lib.MeshCount()+1)/2, partial.MeshCount())
	require.Equal(t, lib.NextMeshID(), partial.NextMeshID())
	require.NotNil(t, partial.Index())

	for id := uint32(1); id < lib.NextMeshID(); id++ {
		_, err := partial.LookupMesh(id)
		if odd(id) {
			require.NoError(t, err, "mesh %d", id)
		} else {
			require.ErrorIs(t, err, scene.ErrInvalidMeshID, "mesh %d", id)
		}
	}
}

func TestOpenBundle(t *testing.T) {
	lib := compileGrid(t)
	bundlePath := filepath.Join(t.TempDir(), "grid.zip")
	require.NoError(t, SaveBundle(bundlePath, lib, LZ4))

	b, err := OpenBundle(context.Background(), bundlePath)
	require.NoError(t, err)
	loaded, err := b.Load(context.Background(), nil)
	require.NoError(t, err)
	requireSameHits(t, lib, loaded)

	server := httptest.NewServer(http.FileServer(http.Dir(filepath.Dir(bundlePath))))
	defer server.Close()

	b, err = OpenBundle(context.Background(), server.URL+"/grid.zip")
	require.NoError(t, err)
	require.Len(t, b.Manifest.Meshes, lib.MeshCount())
}

func writeZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadCorruptBundle(t *testing.T) {
	_, err := ReadBundle([]byte("not a zip file"))
	require.ErrorIs(t, err, ErrCorruptBundle)

	_, err = ReadBundle(writeZip(t, map[string]string{"readme.txt": "hi"}))
	require.ErrorIs(t, err, ErrMissingEntry)

	_, err = ReadBundle(writeZip(t, map[string]string{manifestFile: "{"}))
	require.ErrorIs(t, err, ErrCorruptBundle)

	_, err = ReadBundle(writeZip(t, map[string]string{manifestFile: `{"version": 7}`}))
	require.ErrorIs(t, err, ErrUnsupportedBundle)

	b, err := ReadBundle(writeZip(t, map[string]string{
		manifestFile:   `{"version": 1, "meshes": []}`,
		sceneIndexFile: "XXXX garbage",
	}))
	require.NoError(t, err)
	_, err = b.Load(context.Background(), nil)
	require.ErrorIs(t, err, bvh.ErrCorruptIndex)

	b, err = ReadBundle(writeZip(t, map[string]string{
		manifestFile: `{"version": 1, "meshes": [{"id": 1, "name": "lost"}]}`,
	}))
	require.NoError(t, err)
	_, err = b.Load(context.Background(), nil)
	require.ErrorIs(t, err, ErrMissingEntry)
}

func TestWriteBundleRequiresIndex(t *testing.T) {
	lib := scene.NewLibrary(bvh.DefaultOptions())
	mesh, err := scene.NewMesh("box", scene.BoxTriangles(1), types.Ident4())
	require.NoError(t, err)
	require.NoError(t, lib.StoreMesh(lib.NextMeshID(), mesh))

	err = WriteBundle(&bytes.Buffer{}, lib, Store)
	require.ErrorIs(t, err, scene.ErrMissingIndex)
}

func TestParseCompression(t *testing.T) {
	type spec struct {
		name string
		exp  Compression
	}
	specs := []spec{
		{"store", Store},
		{"NONE", Store},
		{"deflate", Deflate},
		{"zstd", Zstd},
		{"", Zstd},
		{" lz4 ", LZ4},
	}
	for _, s := range specs {
		got, err := ParseCompression(s.name)
		require.NoError(t, err, s.name)
		require.Equal(t, s.exp, got, s.name)
		if strings.TrimSpace(s.name) != "" && !strings.EqualFold(s.name, "none") {
			require.Equal(t, strings.ToLower(strings.TrimSpace(s.name)), got.String())
		}
	}

	_, err := ParseCompression("brotli")
	require.ErrorIs(t, err, ErrUnknownCompression)
}
