package scene

import (
	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/types"
)

// A triangle primitive. Normals and UVs are optional; a mesh without vertex
// normals reports the geometric face normal.
type Triangle struct {
	Vertices [3]types.Vec3
	Normals  [3]types.Vec3
	UVs      [3]types.Vec2
}

// Create a triangle with the given vertices.
func NewTriangle(v0, v1, v2 types.Vec3) Triangle {
	return Triangle{Vertices: [3]types.Vec3{v0, v1, v2}}
}

// Get the triangle AABB.
func (tri *Triangle) Bounds() bvh.BBox {
	return bvh.BBoxFromPoints(tri.Vertices[0], tri.Vertices[1], tri.Vertices[2])
}

// Get the geometric (unnormalized) normal following the vertex winding.
func (tri *Triangle) FaceNormal() types.Vec3 {
	e1 := tri.Vertices[1].Sub(tri.Vertices[0])
	e2 := tri.Vertices[2].Sub(tri.Vertices[0])
	return e1.Cross(e2)
}

// Intersect the triangle using the Möller-Trumbore algorithm. On a hit it
// returns the ray distance and the barycentric coordinates of the hit point
// relative to vertices 1 and 2. Hits at t <= ray.MinT or t >= maxT are
// rejected.
func (tri *Triangle) Intersect(ray *bvh.Ray, maxT float32) (hit bool, t, u, v float32) {
	e1 := tri.Vertices[1].Sub(tri.Vertices[0])
	e2 := tri.Vertices[2].Sub(tri.Vertices[0])

	p := ray.Dir.Cross(e2)
	det := e1.Dot(p)
	if det == 0 {
		return false, 0, 0, 0
	}
	invDet := 1 / det

	s := ray.Origin.Sub(tri.Vertices[0])
	u = s.Dot(p) * invDet
	if !(u >= 0 && u <= 1) {
		return false, 0, 0, 0
	}

	q := s.Cross(e1)
	v = ray.Dir.Dot(q) * invDet
	if !(v >= 0 && u+v <= 1) {
		return false, 0, 0, 0
	}

	t = e2.Dot(q) * invDet
	if !(t > ray.MinT && t < maxT) {
		return false, 0, 0, 0
	}
	return true, t, u, v
}

// Interpolate the surface properties at barycentric coordinates (u, v).
func (tri *Triangle) Geometry(point types.Vec3, u, v float32) bvh.LocalGeometry {
	w := 1 - u - v

	var normal types.Vec3
	if tri.Normals == ([3]types.Vec3{}) {
		normal = tri.FaceNormal().Normalize()
	} else {
		normal = tri.Normals[0].Mul(w).
			Add(tri.Normals[1].Mul(u)).
			Add(tri.Normals[2].Mul(v)).
			Normalize()
	}

	uv := types.XY(
		tri.UVs[0][0]*w+tri.UVs[1][0]*u+tri.UVs[2][0]*v,
		tri.UVs[0][1]*w+tri.UVs[1][1]*u+tri.UVs[2][1]*v,
	)

	return bvh.LocalGeometry{Point: point, Normal: normal, UV: uv}
}
