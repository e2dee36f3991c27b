package bvh

import (
	"time"

	"github.com/achilleasa/sunray/log"
	"github.com/achilleasa/sunray/types"
)

// A node of the transient build tree. Nodes live in a single arena slice and
// reference their children by arena index so the whole tree is released at
// once when the arena is dropped.
type buildNode struct {
	bounds BBox
	axis   Axis

	// Primitive range [start, start+count) for leafs.
	start, count int

	// Arena indices of child nodes; -1 for leafs.
	left, right int32
}

func (n *buildNode) isLeaf() bool {
	return n.left < 0
}

// The bounds and primitive count accumulated by a SAH bucket.
type bucket struct {
	count  int
	bounds BBox
}

type buildStats struct {
	nodes    int
	leafs    int
	maxDepth int
}

type builder struct {
	logger log.Logger
	opts   Options

	// The primitive list is reordered in place so that each leaf covers a
	// contiguous range of it.
	prims []Primitive

	arena   []buildNode
	buckets []bucket

	// Scratch space for stable partitions.
	scratch []Primitive

	stats buildStats
}

// Construct a linear BVH index from a set of primitive descriptors.
//
// The builder recursively partitions the primitive list using the surface area
// heuristic (SAH) evaluated over opts.Buckets equal-width buckets along the
// axis with the largest centroid spread. The input slice is not modified.
// Build never fails: degenerate inputs produce valid, if degenerate, indices.
// An empty input yields an index that never reports an intersection.
func Build(prims []Primitive, opts Options) *Index {
	b := &builder{
		logger: log.New("bvh builder"),
		opts:   opts.normalize(),
		prims:  append([]Primitive(nil), prims...),
	}

	start := time.Now()
	if len(b.prims) == 0 {
		return emptyIndex()
	}

	b.arena = make([]buildNode, 0, 2*len(b.prims))
	b.buckets = make([]bucket, b.opts.Buckets)
	b.scratch = make([]Primitive, len(b.prims))

	root := b.partition(0, len(b.prims), 0)
	idx := b.flatten(root)

	b.logger.Debugf(
		"BVH build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, primitives: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.maxDepth, b.stats.nodes, b.stats.leafs, len(b.prims),
	)
	return idx
}

// Get an index without primitives. Its root is a leaf with invalid bounds and
// no primitives so that every query misses it.
func emptyIndex() *Index {
	return &Index{
		nodes: []Node{{Bounds: EmptyBBox(), Parent: NoParent}},
		prims: []uint32{},
	}
}

// Partition the primitive range [start, end) and return the arena index of
// the node covering it.
func (b *builder) partition(start, end, depth int) int32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	bounds := EmptyBBox()
	centroidBounds := EmptyBBox()
	for _, prim := range b.prims[start:end] {
		bounds = bounds.Union(prim.Bounds)
		centroidBounds = centroidBounds.UnionPoint(prim.Center)
	}

	count := end - start
	axis := centroidBounds.MaxAxis()
	min, max := centroidBounds.Min[axis], centroidBounds.Max[axis]

	// Coincident centroids cannot be separated along any axis.
	if count <= 1 || !(max > min) {
		return b.createLeaf(bounds, start, end)
	}

	split, cost := b.findSplit(start, end, axis, min, max, bounds.SurfaceArea())

	// Small ranges become leafs unless splitting them is cheaper.
	if count <= b.opts.MaxLeafPrimitives && float32(count) <= cost {
		return b.createLeaf(bounds, start, end)
	}

	mid := b.partitionByBucket(start, end, axis, min, max, split)

	// findSplit only returns a boundary that leaves a side empty when no
	// boundary separates the centroids, which requires non-finite centroid
	// coordinates. Try the centroid midpoint before giving up on the split.
	if mid == start || mid == end {
		mid = b.partitionByValue(start, end, axis, 0.5*(min+max))
	}
	if mid == start || mid == end {
		return b.createLeaf(bounds, start, end)
	}

	nodeIndex := b.appendNode(buildNode{bounds: bounds, axis: axis, left: -1, right: -1})
	b.stats.nodes++

	left := b.partition(start, mid, depth+1)
	right := b.partition(mid, end, depth+1)
	b.arena[nodeIndex].left = left
	b.arena[nodeIndex].right = right

	return nodeIndex
}

// Get the SAH bucket for a centroid coordinate.
func (b *builder) bucketFor(c, min, max float32) int {
	n := len(b.buckets)
	i := int(float32(n) * ((c - min) / (max - min)))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Find the bucket boundary with the lowest SAH cost. Primitives in buckets
// <= split go to the left side. The cost of a boundary is
//
//	traversal cost + (nLeft * area(left) + nRight * area(right)) / area(parent)
//
// Boundaries that leave one side empty are never selected. Ties resolve to
// the lowest boundary.
func (b *builder) findSplit(start, end int, axis Axis, min, max, parentArea float32) (split int, cost float32) {
	for i := range b.buckets {
		b.buckets[i] = bucket{bounds: EmptyBBox()}
	}
	for _, prim := range b.prims[start:end] {
		bk := &b.buckets[b.bucketFor(prim.Center[axis], min, max)]
		bk.count++
		bk.bounds = bk.bounds.Union(prim.Bounds)
	}

	// Sweep from the right to collect the suffix counts and areas.
	n := len(b.buckets)
	rightCount := make([]int, n)
	rightArea := make([]float32, n)
	acc := bucket{bounds: EmptyBBox()}
	for i := n - 1; i > 0; i-- {
		acc.count += b.buckets[i].count
		acc.bounds = acc.bounds.Union(b.buckets[i].bounds)
		rightCount[i] = acc.count
		rightArea[i] = acc.bounds.SurfaceArea()
	}

	if parentArea <= 0 {
		parentArea = 1
	}

	split = -1
	cost = float32(0)
	acc = bucket{bounds: EmptyBBox()}
	for i := 0; i < n-1; i++ {
		acc.count += b.buckets[i].count
		acc.bounds = acc.bounds.Union(b.buckets[i].bounds)
		if acc.count == 0 || rightCount[i+1] == 0 {
			continue
		}

		c := b.opts.TraversalCost +
			(float32(acc.count)*acc.bounds.SurfaceArea()+float32(rightCount[i+1])*rightArea[i+1])/parentArea
		if split < 0 || c < cost {
			split, cost = i, c
		}
	}

	if split < 0 {
		return n / 2, float32(end - start)
	}
	return split, cost
}

// Stable partition of [start, end) so that primitives whose centroid falls in
// a bucket <= split come first. Returns the index of the first primitive of
// the right side.
func (b *builder) partitionByBucket(start, end int, axis Axis, min, max float32, split int) int {
	return b.stablePartition(start, end, func(c types.Vec3) bool {
		return b.bucketFor(c[axis], min, max) <= split
	})
}

// Stable partition of [start, end) around a coordinate value.
func (b *builder) partitionByValue(start, end int, axis Axis, value float32) int {
	return b.stablePartition(start, end, func(c types.Vec3) bool {
		return c[axis] < value
	})
}

func (b *builder) stablePartition(start, end int, isLeft func(types.Vec3) bool) int {
	mid := start
	right := b.scratch[:0]
	for i := start; i < end; i++ {
		if isLeft(b.prims[i].Center) {
			b.prims[mid] = b.prims[i]
			mid++
		} else {
			right = append(right, b.prims[i])
		}
	}
	copy(b.prims[mid:end], right)
	return mid
}

func (b *builder) createLeaf(bounds BBox, start, end int) int32 {
	b.stats.leafs++
	b.stats.nodes++
	return b.appendNode(buildNode{
		bounds: bounds,
		start:  start,
		count:  end - start,
		left:   -1,
		right:  -1,
	})
}

func (b *builder) appendNode(n buildNode) int32 {
	b.arena = append(b.arena, n)
	return int32(len(b.arena) - 1)
}
