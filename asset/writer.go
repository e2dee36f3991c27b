package asset

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/log"
	"github.com/achilleasa/sunray/scene"
	"github.com/achilleasa/sunray/types"
	"github.com/segmentio/encoding/json"
)

const (
	bundleVersion = 1

	manifestFile   = "manifest.json"
	sceneIndexFile = "scene.bvh"
)

func meshIndexFile(id uint32) string { return fmt.Sprintf("mesh-%d.bvh", id) }
func meshDataFile(id uint32) string  { return fmt.Sprintf("mesh-%d.bin", id) }

// The bundle manifest lists the meshes stored in the bundle.
type Manifest struct {
	Version     int          `json:"version"`
	Compression string       `json:"compression"`
	Options     bvh.Options  `json:"options"`
	Meshes      []MeshRecord `json:"meshes"`
}

// A MeshRecord describes a bundled mesh.
type MeshRecord struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Triangles int    `json:"triangles"`
	Nodes     int    `json:"nodes"`
}

// The gob encoded payload of a mesh data entry.
type meshData struct {
	Name      string
	Transform types.Mat4
	Triangles []scene.Triangle
}

// Write a compiled library as a zip bundle to w. The scene index and every
// mesh index must have been built.
func WriteBundle(w io.Writer, lib *scene.Library, compression Compression) error {
	logger := log.New("bundle writer")
	start := time.Now()

	sceneIndex := lib.Index()
	if sceneIndex == nil {
		return fmt.Errorf("bundle: %w", scene.ErrMissingIndex)
	}

	manifest := Manifest{
		Version:     bundleVersion,
		Compression: compression.String(),
		Options:     lib.Options(),
	}
	err := lib.ForEachMesh(func(id uint32, mesh *scene.Mesh) error {
		if mesh.Index() == nil {
			return fmt.Errorf("bundle: mesh %d: %w", id, scene.ErrMissingIndex)
		}
		manifest.Meshes = append(manifest.Meshes, MeshRecord{
			ID:        id,
			Name:      mesh.Name,
			Triangles: len(mesh.Triangles),
			Nodes:     mesh.Index().NodeCount(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	registerCompressors(zw)
	method := compression.zipMethod()

	writeEntry := func(name string, data []byte) error {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return err
		}
		_, err = fw.Write(data)
		return err
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err = writeEntry(manifestFile, manifestData); err != nil {
		return err
	}

	indexData, err := sceneIndex.MarshalBinary()
	if err != nil {
		return err
	}
	if err = writeEntry(sceneIndexFile, indexData); err != nil {
		return err
	}

	var buf bytes.Buffer
	err = lib.ForEachMesh(func(id uint32, mesh *scene.Mesh) error {
		indexData, err := mesh.Index().MarshalBinary()
		if err != nil {
			return err
		}
		if err = writeEntry(meshIndexFile(id), indexData); err != nil {
			return err
		}

		buf.Reset()
		err = gob.NewEncoder(&buf).Encode(&meshData{
			Name:      mesh.Name,
			Transform: mesh.Transform(),
			Triangles: mesh.Triangles,
		})
		if err != nil {
			return fmt.Errorf("bundle: failed to encode mesh %d: %w", id, err)
		}
		return writeEntry(meshDataFile(id), buf.Bytes())
	})
	if err != nil {
		return err
	}

	if err = zw.Close(); err != nil {
		return err
	}

	logger.Noticef("wrote bundle with %d meshes (%s compression) in %d ms", len(manifest.Meshes), compression, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Write a compiled library as a zip bundle to a file.
func SaveBundle(filename string, lib *scene.Library, compression Compression) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	err = WriteBundle(f, lib, compression)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}
