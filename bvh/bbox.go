package bvh

import (
	"math"

	"github.com/achilleasa/sunray/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

// An axis-aligned bounding box. The empty box has Min > Max on every axis
// and is distinguishable from a valid box with zero volume.
type BBox struct {
	Min types.Vec3
	Max types.Vec3
}

// Create an empty (invalid) bounding box. A union with any valid box or
// point yields that box or point.
func EmptyBBox() BBox {
	return BBox{
		Min: types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Create a box that contains all supplied points.
func BBoxFromPoints(points ...types.Vec3) BBox {
	b := EmptyBBox()
	for _, p := range points {
		b = b.UnionPoint(p)
	}
	return b
}

// Returns true if Min <= Max on every axis. NaN corners are never valid.
func (b BBox) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Get the smallest box containing both b and b2.
func (b BBox) Union(b2 BBox) BBox {
	return BBox{
		Min: types.MinVec3(b.Min, b2.Min),
		Max: types.MaxVec3(b.Max, b2.Max),
	}
}

// Get the smallest box containing b and p.
func (b BBox) UnionPoint(p types.Vec3) BBox {
	return BBox{
		Min: types.MinVec3(b.Min, p),
		Max: types.MaxVec3(b.Max, p),
	}
}

// Get the box center.
func (b BBox) Center() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the box side lengths. The extent of an invalid box is the zero vector.
func (b BBox) Extent() types.Vec3 {
	if !b.IsValid() {
		return types.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Get the axis with the largest extent. Ties resolve to the lowest axis.
func (b BBox) MaxAxis() Axis {
	side := b.Extent()
	axis := XAxis
	if side[1] > side[axis] {
		axis = YAxis
	}
	if side[2] > side[axis] {
		axis = ZAxis
	}
	return axis
}

// Get the box surface area. Invalid boxes have zero area.
func (b BBox) SurfaceArea() float32 {
	side := b.Extent()
	return 2 * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}

// Get the position of p relative to the box corners along each axis; 0 at
// Min and 1 at Max. Axes with zero extent map to 0.
func (b BBox) Offset(p types.Vec3) types.Vec3 {
	o := p.Sub(b.Min)
	for axis := 0; axis < 3; axis++ {
		if b.Max[axis] > b.Min[axis] {
			o[axis] /= b.Max[axis] - b.Min[axis]
		} else {
			o[axis] = 0
		}
	}
	return o
}

// Test a ray against the box using the slab method. The ray is described by
// its origin and its component-wise inverse direction. The test succeeds if
// the interval of t values inside the box overlaps (minT, maxT); in that case
// it also returns the nearest t at which the ray can be inside the box (minT
// if the origin lies inside).
//
// Axes where the inverse direction is infinite (ray parallel to the slab)
// reduce to a containment test of the origin; as a result no 0 * Inf product
// is ever evaluated. All comparisons are arranged so that a NaN anywhere
// yields a miss.
func (b BBox) Intersect(origin, invDir types.Vec3, minT, maxT float32) (bool, float32) {
	if !b.IsValid() {
		return false, 0
	}

	t0, t1 := minT, maxT
	for axis := 0; axis < 3; axis++ {
		inv := invDir[axis]
		if math.IsInf(float64(inv), 0) {
			if !(origin[axis] >= b.Min[axis] && origin[axis] <= b.Max[axis]) {
				return false, 0
			}
			continue
		}

		tNear := (b.Min[axis] - origin[axis]) * inv
		tFar := (b.Max[axis] - origin[axis]) * inv
		if math.IsNaN(float64(tNear)) || math.IsNaN(float64(tFar)) {
			return false, 0
		}
		if tNear > tFar {
			tNear, tFar = tFar, tNear
		}

		if tNear > t0 {
			t0 = tNear
		}
		if tFar < t1 {
			t1 = tFar
		}
		if !(t0 <= t1) {
			return false, 0
		}
	}

	// Reject boxes that end exactly at minT or begin exactly at maxT.
	if !(t1 > minT && t0 < maxT) {
		return false, 0
	}
	return true, t0
}
