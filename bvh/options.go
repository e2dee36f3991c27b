package bvh

const (
	// The default number of SAH buckets evaluated for each split.
	DefaultBuckets = 12

	// The default maximum number of primitives that a leaf may hold.
	DefaultMaxLeafPrimitives = 1

	// The default cost of traversing an internal node relative to a single
	// primitive intersection test.
	DefaultTraversalCost float32 = 0.125
)

// Options control index construction and queries.
type Options struct {
	// The number of equal-width buckets used when scoring split candidates.
	Buckets int `json:"buckets"`

	// Ranges with at most this many primitives may become a leaf.
	MaxLeafPrimitives int `json:"max_leaf_primitives"`

	// The SAH cost of visiting an internal node.
	TraversalCost float32 `json:"traversal_cost"`

	// Intersections closer than this distance are ignored. Rays spawned on
	// a surface use it to avoid re-hitting the surface they start on.
	RayEpsilon float32 `json:"ray_epsilon"`
}

// Get the default index options.
func DefaultOptions() Options {
	return Options{
		Buckets:           DefaultBuckets,
		MaxLeafPrimitives: DefaultMaxLeafPrimitives,
		TraversalCost:     DefaultTraversalCost,
	}
}

// Replace out of range values with their defaults.
func (o Options) normalize() Options {
	if o.Buckets < 2 {
		o.Buckets = DefaultBuckets
	}
	if o.MaxLeafPrimitives < 1 {
		o.MaxLeafPrimitives = DefaultMaxLeafPrimitives
	}
	if o.TraversalCost < 0 {
		o.TraversalCost = DefaultTraversalCost
	}
	if o.RayEpsilon < 0 {
		o.RayEpsilon = 0
	}
	return o
}
