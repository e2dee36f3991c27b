package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/sunray/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	configFlag := cli.StringFlag{
		Name:  "config, c",
		Usage: "load settings from a JSON config file; flags override its values",
	}
	buildFlags := []cli.Flag{
		configFlag,
		cli.IntFlag{
			Name:  "max-leaf",
			Value: 1,
			Usage: "maximum number of primitives per index leaf",
		},
		cli.IntFlag{
			Name:  "buckets",
			Value: 12,
			Usage: "number of SAH buckets evaluated per split",
		},
		cli.Float64Flag{
			Name:  "ray-epsilon",
			Usage: "ignore intersections closer than this distance",
		},
		cli.IntFlag{
			Name:  "columns",
			Value: 8,
			Usage: "number of grid boxes along the X axis",
		},
		cli.IntFlag{
			Name:  "rows",
			Value: 4,
			Usage: "number of grid boxes along the Y axis",
		},
		cli.IntFlag{
			Name:  "layers",
			Value: 8,
			Usage: "number of grid boxes along the Z axis",
		},
		cli.IntFlag{
			Name:  "tessellation",
			Value: 4,
			Usage: "number of quads along each box face edge",
		},
		cli.StringSliceFlag{
			Name:  "obj",
			Value: &cli.StringSlice{},
			Usage: "compile meshes from this wavefront obj file or URL instead of generating a grid",
		},
		cli.StringFlag{
			Name:  "compression",
			Value: "zstd",
			Usage: "bundle entry compression (store, deflate, zstd or lz4)",
		},
	}

	app := cli.NewApp()
	app.Name = "sunray"
	app.Usage = "build, store and query stackless bounding volume hierarchies"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "generate a grid scene and compile it into a bundle",
			Description: `
Parse meshes from wavefront obj files, or generate a grid of tessellated boxes
when none are given. Then build a BVH for every mesh and a scene-level BVH
over the world space mesh bounds.

The compiled scene is written to a zip bundle which can be supplied as an
argument to the info and trace commands.`,
			ArgsUsage: "bundle.zip",
			Flags:     buildFlags,
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print compiled bundle information",
			ArgsUsage: "bundle.zip",
			Action:    cmd.ShowBundleInfo,
		},
		{
			Name:  "trace",
			Usage: "trace primary rays through a bundle with a pool of workers",
			Description: `
Split the bundle meshes among a pool of workers and trace one primary ray per
pixel. Queries that reach a mesh owned by another worker are suspended and
forwarded to that worker.`,
			ArgsUsage: "bundle.zip",
			Flags: []cli.Flag{
				configFlag,
				cli.IntFlag{
					Name:  "workers, w",
					Value: 4,
					Usage: "number of workers",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 256,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 256,
					Usage: "frame height",
				},
				cli.Float64Flag{
					Name:  "fov",
					Value: 45,
					Usage: "vertical camera field of view in degrees",
				},
				cli.Float64Flag{
					Name:  "yaw",
					Value: 30,
					Usage: "orbit the camera around the scene center by this many degrees",
				},
				cli.Float64Flag{
					Name:  "pitch",
					Value: -20,
					Usage: "tilt the camera around the scene center by this many degrees",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "number of times to trace the frame",
				},
				cli.BoolFlag{
					Name:  "verify",
					Usage: "compare the traced hits against single-node traversal",
				},
				cli.StringFlag{
					Name:  "metrics-addr",
					Usage: "serve prometheus metrics on this address",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "write an image of the hit normals to this png file",
				},
			},
			Action: cmd.TraceBundle,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
