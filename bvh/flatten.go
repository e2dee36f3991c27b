package bvh

// Convert the build tree rooted at arena node root into a linear index. Nodes
// are emitted in depth-first pre-order so the left child of every internal
// node immediately follows it; the right child index is patched into the
// parent record once its subtree has been emitted.
func (b *builder) flatten(root int32) *Index {
	idx := &Index{
		nodes: make([]Node, 0, len(b.arena)),
		prims: make([]uint32, 0, len(b.prims)),
	}
	b.flattenNode(idx, root, NoParent)
	return idx
}

func (b *builder) flattenNode(idx *Index, nodeIndex int32, parent uint32) uint32 {
	bn := &b.arena[nodeIndex]
	offset := uint32(len(idx.nodes))
	idx.nodes = append(idx.nodes, Node{
		Bounds: bn.bounds,
		Parent: parent,
		Axis:   bn.axis,
	})

	if bn.isLeaf() {
		n := &idx.nodes[offset]
		n.Offset = uint32(len(idx.prims))
		n.Count = uint32(bn.count)
		for _, prim := range b.prims[bn.start : bn.start+bn.count] {
			idx.prims = append(idx.prims, prim.ID)
		}
		return offset
	}

	b.flattenNode(idx, bn.left, offset)
	idx.nodes[offset].Offset = b.flattenNode(idx, bn.right, offset)
	return offset
}
