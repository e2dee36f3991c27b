package scene

import (
	"fmt"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/types"
)

// A Mesh is a list of triangles in object space together with the transform
// that places them in the world. Primitive ids of the mesh index are
// positions in the Triangles slice.
type Mesh struct {
	Name      string
	Triangles []Triangle

	transform types.Mat4
	inverse   types.Mat4
	normalMat types.Mat4

	index *bvh.Index
}

// Create a mesh. The transform must be invertible.
func NewMesh(name string, triangles []Triangle, transform types.Mat4) (*Mesh, error) {
	m := &Mesh{
		Name:      name,
		Triangles: triangles,
	}
	if err := m.SetTransform(transform); err != nil {
		return nil, err
	}
	return m, nil
}

// Get the object to world transform.
func (m *Mesh) Transform() types.Mat4 {
	return m.transform
}

// Set the object to world transform and update the cached inverses.
func (m *Mesh) SetTransform(transform types.Mat4) error {
	inv := transform.Inv()
	if inv == (types.Mat4{}) {
		return fmt.Errorf("%w: mesh %q", ErrSingularTransform, m.Name)
	}
	m.transform = transform
	m.inverse = inv
	m.normalMat = inv.Transpose()
	return nil
}

// Build the object space index for the mesh triangles.
func (m *Mesh) BuildIndex(opts bvh.Options) *bvh.Index {
	prims := make([]bvh.Primitive, len(m.Triangles))
	for i := range m.Triangles {
		prims[i] = bvh.NewPrimitive(uint32(i), m.Triangles[i].Bounds())
	}
	m.index = bvh.Build(prims, opts)
	return m.index
}

// Attach a prebuilt index, for instance one loaded from a bundle. The index
// must only reference triangles of this mesh.
func (m *Mesh) SetIndex(idx *bvh.Index) error {
	if idx.PrimitiveCount() != len(m.Triangles) {
		return fmt.Errorf("%w: mesh %q has %d triangles; index references %d", ErrIndexMismatch, m.Name, len(m.Triangles), idx.PrimitiveCount())
	}
	for i := 0; i < idx.NodeCount(); i++ {
		for _, prim := range idx.LeafPrimitives(idx.Node(i)) {
			if int(prim) >= len(m.Triangles) {
				return fmt.Errorf("%w: mesh %q: unknown triangle %d", ErrIndexMismatch, m.Name, prim)
			}
		}
	}
	m.index = idx
	return nil
}

// Get the mesh index or nil if no index has been built yet.
func (m *Mesh) Index() *bvh.Index {
	return m.index
}

// Get the object space bounds of the mesh.
func (m *Mesh) Bounds() bvh.BBox {
	if m.index != nil {
		return m.index.Extents()
	}
	bounds := bvh.EmptyBBox()
	for i := range m.Triangles {
		bounds = bounds.Union(m.Triangles[i].Bounds())
	}
	return bounds
}

// Get the world space AABB enclosing the transformed mesh bounds.
func (m *Mesh) WorldBounds() bvh.BBox {
	local := m.Bounds()
	if !local.IsValid() {
		return local
	}

	world := bvh.EmptyBBox()
	for corner := 0; corner < 8; corner++ {
		p := local.Min
		if corner&1 != 0 {
			p[0] = local.Max[0]
		}
		if corner&2 != 0 {
			p[1] = local.Max[1]
		}
		if corner&4 != 0 {
			p[2] = local.Max[2]
		}
		world = world.UnionPoint(m.transform.MulPoint(p))
	}
	return world
}

// Intersect a world space ray with the mesh using the mesh index. If a hit
// closer than hit.T is found, hit is updated with the world space surface
// geometry, meshID and the triangle position and true is returned.
func (m *Mesh) Intersect(meshID uint32, ray *bvh.Ray, hit *bvh.HitRecord) bool {
	local := ray.Transform(m.inverse)
	isect := &triangleIntersector{triangles: m.Triangles}
	localHit := *hit
	m.index.Intersect(&local, &localHit, isect)
	if !isect.found {
		return false
	}
	m.commitHit(meshID, &localHit, hit)
	return true
}

// Intersect a world space ray against every mesh triangle without using the
// index.
func (m *Mesh) IntersectNaive(meshID uint32, ray *bvh.Ray, hit *bvh.HitRecord) bool {
	local := ray.Transform(m.inverse)
	isect := &triangleIntersector{triangles: m.Triangles}
	localHit := *hit
	for i := range m.Triangles {
		isect.Intersect(uint32(i), &local, &localHit)
	}
	if !isect.found {
		return false
	}
	m.commitHit(meshID, &localHit, hit)
	return true
}

// Ray t values are preserved by the transform so only the surface geometry
// needs to be moved back into world space.
func (m *Mesh) commitHit(meshID uint32, localHit, hit *bvh.HitRecord) {
	*hit = *localHit
	hit.Mesh = meshID
	hit.Geom.Point = m.transform.MulPoint(localHit.Geom.Point)
	hit.Geom.Normal = m.normalMat.MulDir(localHit.Geom.Normal).Normalize()
}

type triangleIntersector struct {
	triangles []Triangle
	found     bool
}

func (ti *triangleIntersector) Intersect(prim uint32, ray *bvh.Ray, hit *bvh.HitRecord) (bool, bvh.Action) {
	tri := &ti.triangles[prim]
	ok, t, u, v := tri.Intersect(ray, hit.T)
	if !ok {
		return false, bvh.Continue
	}

	hit.T = t
	hit.Primitive = prim
	hit.Geom = tri.Geometry(ray.At(t), u, v)
	ti.found = true
	return true, bvh.Continue
}
