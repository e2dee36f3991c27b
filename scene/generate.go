package scene

import (
	"fmt"
	"math"

	"github.com/achilleasa/sunray/types"
)

// Generate the triangles of a unit cube centered at the origin. Each face is
// split into a tessellation x tessellation grid of quads, two triangles each,
// wound so that face normals point outwards.
func BoxTriangles(tessellation int) []Triangle {
	if tessellation < 1 {
		tessellation = 1
	}
	step := 1 / float32(tessellation)

	tris := make([]Triangle, 0, 12*tessellation*tessellation)
	for axis := 0; axis < 3; axis++ {
		uAxis, vAxis := (axis+1)%3, (axis+2)%3
		for _, sign := range []float32{1, -1} {
			at := func(i, j int) types.Vec3 {
				var p types.Vec3
				p[axis] = 0.5 * sign
				p[uAxis] = float32(i)*step - 0.5
				p[vAxis] = float32(j)*step - 0.5
				return p
			}

			for i := 0; i < tessellation; i++ {
				for j := 0; j < tessellation; j++ {
					p00, p10, p11, p01 := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
					if sign > 0 {
						tris = append(tris, NewTriangle(p00, p10, p11), NewTriangle(p00, p11, p01))
					} else {
						tris = append(tris, NewTriangle(p00, p11, p10), NewTriangle(p00, p01, p11))
					}
				}
			}
		}
	}
	return tris
}

// Create a box mesh of the given size centered at center and rotated by
// angle radians around the Y axis.
func NewBox(name string, center, size types.Vec3, angle float32, tessellation int) (*Mesh, error) {
	rot := types.QuatFromAxisAngle(types.XYZ(0, 1, 0), angle)
	transform := types.Translate3D(center[0], center[1], center[2]).
		Mul4(rot.Mat4()).
		Mul4(types.Scale3D(size[0], size[1], size[2]))
	return NewMesh(name, BoxTriangles(tessellation), transform)
}

// Options for the procedural grid scene.
type GridOptions struct {
	// Number of boxes along X, Y and Z.
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
	Layers  int `json:"layers"`

	// Distance between neighboring box centers.
	Spacing float32 `json:"spacing"`

	// Box edge length. Must be smaller than Spacing for boxes not to overlap.
	BoxSize float32 `json:"box_size"`

	// Per face tessellation of each box.
	Tessellation int `json:"tessellation"`
}

// Get the default grid options.
func DefaultGridOptions() GridOptions {
	return GridOptions{
		Columns:      8,
		Rows:         4,
		Layers:       8,
		Spacing:      3,
		BoxSize:      1.5,
		Tessellation: 4,
	}
}

// Generate a grid of boxes centered around the origin. Each box gets a
// different rotation around the Y axis so that mesh world bounds differ from
// their object space bounds.
func GenerateGrid(opts GridOptions) ([]*Mesh, error) {
	if opts.Columns < 1 || opts.Rows < 1 || opts.Layers < 1 {
		return nil, fmt.Errorf("scene: invalid grid dimensions %dx%dx%d", opts.Columns, opts.Rows, opts.Layers)
	}
	if !(opts.BoxSize > 0) || !(opts.Spacing > 0) {
		return nil, fmt.Errorf("scene: invalid grid box size %f or spacing %f", opts.BoxSize, opts.Spacing)
	}

	origin := types.XYZ(
		-0.5*opts.Spacing*float32(opts.Columns-1),
		-0.5*opts.Spacing*float32(opts.Rows-1),
		-0.5*opts.Spacing*float32(opts.Layers-1),
	)
	size := types.XYZ(opts.BoxSize, opts.BoxSize, opts.BoxSize)

	meshes := make([]*Mesh, 0, opts.Columns*opts.Rows*opts.Layers)
	for z := 0; z < opts.Layers; z++ {
		for y := 0; y < opts.Rows; y++ {
			for x := 0; x < opts.Columns; x++ {
				center := origin.Add(types.XYZ(float32(x), float32(y), float32(z)).Mul(opts.Spacing))
				angle := float32(len(meshes)%8) * math.Pi / 16
				box, err := NewBox(fmt.Sprintf("box-%d-%d-%d", x, y, z), center, size, angle, opts.Tessellation)
				if err != nil {
					return nil, err
				}
				meshes = append(meshes, box)
			}
		}
	}
	return meshes, nil
}
