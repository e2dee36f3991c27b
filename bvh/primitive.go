package bvh

import "github.com/achilleasa/sunray/types"

// A Primitive summarizes one item to be partitioned by the builder. The ID is
// passed back to the Intersector when a ray reaches the leaf that stores it.
type Primitive struct {
	ID     uint32
	Center types.Vec3
	Bounds BBox
}

// Create a primitive descriptor whose center is the center of its bounds.
func NewPrimitive(id uint32, bounds BBox) Primitive {
	return Primitive{
		ID:     id,
		Center: bounds.Center(),
		Bounds: bounds,
	}
}
