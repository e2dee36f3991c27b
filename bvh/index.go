package bvh

import (
	"fmt"
	"math"

	"github.com/achilleasa/sunray/types"
)

// The parent index of the root node.
const NoParent = math.MaxUint32

// Node is a single record of a linear index. Nodes are stored in pre-order: the
// left child of an internal node at index i is always at i+1 and its right
// child at Offset. For leaf nodes Offset is the index of the first primitive id
// of the leaf and Count the number of ids.
type Node struct {
	Bounds BBox

	// Parent node index; NoParent for the root.
	Parent uint32

	// Right child index (internal nodes) or first primitive (leafs).
	Offset uint32

	// Primitive count; 0 for internal nodes.
	Count uint32

	// The split axis. Only meaningful for internal nodes.
	Axis Axis
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Count > 0
}

// An immutable flattened BVH. An Index is safe for concurrent use by any
// number of queries.
type Index struct {
	nodes []Node
	prims []uint32
}

// Get the bounds of the area covered by the index. The extents of an empty
// index are invalid.
func (idx *Index) Extents() BBox {
	return idx.nodes[0].Bounds
}

// Get the number of index nodes.
func (idx *Index) NodeCount() int {
	return len(idx.nodes)
}

// Get the number of indexed primitives.
func (idx *Index) PrimitiveCount() int {
	return len(idx.prims)
}

// Get a copy of the node at position i.
func (idx *Index) Node(i int) Node {
	return idx.nodes[i]
}

// Get the primitive ids stored in a leaf node.
func (idx *Index) LeafPrimitives(n Node) []uint32 {
	if !n.IsLeaf() {
		return nil
	}
	return idx.prims[n.Offset : n.Offset+n.Count]
}

// Returns true if the index contains no primitives.
func (idx *Index) Empty() bool {
	return len(idx.prims) == 0
}

// Get the size of the serialized index in bytes.
func (idx *Index) SizeInBytes() int {
	return headerSize + 4 + len(idx.nodes)*nodeRecordSize + 4 + len(idx.prims)*4
}

// Get the index of the sibling of node i. The root has no sibling.
func (idx *Index) sibling(i uint32) uint32 {
	parent := idx.nodes[i].Parent
	right := idx.nodes[parent].Offset
	if right == i {
		return parent + 1
	}
	return right
}

// Get the child of internal node i that should be visited first. Rays that
// travel towards negative values along the split axis reach the right-hand
// (higher) child before the left one.
func (idx *Index) nearChild(i uint32, dir types.Vec3) uint32 {
	n := &idx.nodes[i]
	if dir[n.Axis] < 0 {
		return n.Offset
	}
	return i + 1
}

// Validate index structure. Validate checks every invariant that traversal
// relies on and reports the first violation as an error wrapping
// ErrCorruptIndex.
func (idx *Index) Validate() error {
	numNodes := len(idx.nodes)
	if numNodes == 0 {
		return fmt.Errorf("%w: no nodes", ErrCorruptIndex)
	}
	if uint64(numNodes) >= NoParent {
		return fmt.Errorf("%w: too many nodes (%d)", ErrCorruptIndex, numNodes)
	}

	root := &idx.nodes[0]
	if root.Parent != NoParent {
		return fmt.Errorf("%w: root node has parent %d", ErrCorruptIndex, root.Parent)
	}

	// An empty index is a single leaf with invalid bounds and no primitives.
	if len(idx.prims) == 0 {
		if numNodes != 1 || root.Count != 0 || root.Bounds.IsValid() {
			return fmt.Errorf("%w: index without primitives must consist of a single empty root", ErrCorruptIndex)
		}
		return nil
	}

	// end[i] is one past the last node of the subtree rooted at i. Children
	// always follow their parent, so a reverse scan sees them first.
	end := make([]uint32, numNodes)
	for i := numNodes - 1; i >= 0; i-- {
		n := &idx.nodes[i]
		if i > 0 && n.Parent >= uint32(i) {
			return fmt.Errorf("%w: node %d: parent %d does not precede it", ErrCorruptIndex, i, n.Parent)
		}
		if n.Axis > ZAxis {
			return fmt.Errorf("%w: node %d: invalid split axis %d", ErrCorruptIndex, i, n.Axis)
		}

		if n.IsLeaf() {
			if uint64(n.Offset)+uint64(n.Count) > uint64(len(idx.prims)) {
				return fmt.Errorf("%w: node %d: primitive range [%d, %d) out of bounds", ErrCorruptIndex, i, n.Offset, uint64(n.Offset)+uint64(n.Count))
			}
			end[i] = uint32(i) + 1
			continue
		}

		left := uint32(i) + 1
		right := n.Offset
		if right <= left || right >= uint32(numNodes) {
			return fmt.Errorf("%w: node %d: right child %d out of range", ErrCorruptIndex, i, right)
		}
		if idx.nodes[left].Parent != uint32(i) || idx.nodes[right].Parent != uint32(i) {
			return fmt.Errorf("%w: node %d: children do not point back to it", ErrCorruptIndex, i)
		}
		if end[left] != right {
			return fmt.Errorf("%w: node %d: left subtree does not end at right child %d", ErrCorruptIndex, i, right)
		}
		end[i] = end[right]
	}

	if end[0] != uint32(numNodes) {
		return fmt.Errorf("%w: %d nodes are unreachable from the root", ErrCorruptIndex, numNodes-int(end[0]))
	}
	return nil
}
