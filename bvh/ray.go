package bvh

import (
	"math"

	"github.com/achilleasa/sunray/types"
)

// A Ray with a precomputed inverse direction. Direction does not need to be
// normalized; t values are always measured in units of Dir.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
	InvDir types.Vec3

	// Intersections at t <= MinT are ignored.
	MinT float32
}

// Create a ray.
func NewRay(origin, dir types.Vec3) Ray {
	return Ray{
		Origin: origin,
		Dir:    dir,
		InvDir: dir.Recip(),
	}
}

// Get the point at distance t along the ray.
func (r *Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Transform the ray by m. The direction is not re-normalized so t values of
// the transformed ray match t values of the original ray.
func (r *Ray) Transform(m types.Mat4) Ray {
	out := NewRay(m.MulPoint(r.Origin), m.MulDir(r.Dir))
	out.MinT = r.MinT
	return out
}

// Surface properties at an intersection point.
type LocalGeometry struct {
	Point  types.Vec3
	Normal types.Vec3
	UV     types.Vec2
}

// A HitRecord tracks the nearest intersection found so far by a query.
type HitRecord struct {
	// The worker that recorded the hit.
	Worker uint32

	// The mesh that owns the hit primitive; 0 means no mesh.
	Mesh uint32

	// The primitive id passed to the intersector.
	Primitive uint32

	// Distance along the ray; +Inf while nothing was hit.
	T float32

	Geom LocalGeometry
}

// Create an empty hit record.
func NewHitRecord() HitRecord {
	return HitRecord{T: float32(math.Inf(1))}
}

// Returns true if the record holds an intersection.
func (h *HitRecord) Found() bool {
	return !math.IsInf(float64(h.T), 1)
}
