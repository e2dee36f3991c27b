package cmd

import (
	"context"
	"errors"

	"github.com/achilleasa/sunray/asset"
	"github.com/achilleasa/sunray/scene"
	"github.com/urfave/cli"
)

// Compile wavefront obj files, or a generated grid scene if none are given,
// and write the result to a bundle.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing output bundle file argument")
	}

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	compression, err := asset.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}

	meshes, err := loadMeshes(ctx.StringSlice("obj"), cfg.Grid)
	if err != nil {
		return err
	}

	logger.Noticef("compiling %d meshes", len(meshes))
	lib, err := scene.Compile(context.Background(), meshes, cfg.Build)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene index statistics:\n%s", lib.Index().Stats(lib.Options()))

	return asset.SaveBundle(ctx.Args().First(), lib, compression)
}

func loadMeshes(objFiles []string, grid scene.GridOptions) ([]*scene.Mesh, error) {
	if len(objFiles) == 0 {
		return scene.GenerateGrid(grid)
	}

	var meshes []*scene.Mesh
	for _, objFile := range objFiles {
		parsed, err := asset.ReadWavefront(context.Background(), objFile)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, parsed...)
	}
	if len(meshes) == 0 {
		return nil, errors.New("obj files do not define any meshes")
	}
	return meshes, nil
}
