package bvh

import (
	"fmt"
	"math"
)

// The direction of travel of a traversal cursor.
type Leg uint8

const (
	// The cursor is about to enter Node from its parent; the node bounds
	// have not been tested yet.
	Descending Leg = iota

	// The cursor is inside leaf Node and Prim is the next primitive to be
	// presented to the intersector. The leaf bounds test has been committed.
	Scanning

	// The subtree rooted at Node has been fully processed.
	Ascending
)

func (l Leg) String() string {
	switch l {
	case Descending:
		return "descending"
	case Scanning:
		return "scanning"
	case Ascending:
		return "ascending"
	}
	return fmt.Sprintf("leg(%d)", uint8(l))
}

// The outcome of a Traverse call.
type Status uint8

const (
	// The query is complete and the hit record holds the nearest hit.
	Exhausted Status = iota

	// The query was suspended by the intersector and can be resumed by
	// passing the returned cursor back to Traverse.
	Suspended
)

func (s Status) String() string {
	if s == Suspended {
		return "suspended"
	}
	return "exhausted"
}

// The action requested by an intersector after being presented a primitive.
type Action uint8

const (
	// Keep traversing.
	Continue Action = iota

	// The primitive was processed; suspend before presenting the next one.
	Suspend

	// The primitive was not processed; suspend so that the same primitive
	// is presented again when the traversal resumes.
	Defer
)

// An Intersector tests a ray against a primitive referenced by a leaf. When it
// finds a hit closer than hit.T it updates hit in place and returns true.
type Intersector interface {
	Intersect(prim uint32, ray *Ray, hit *HitRecord) (found bool, action Action)
}

// IntersectorFunc adapts a plain function to the Intersector interface.
type IntersectorFunc func(prim uint32, ray *Ray, hit *HitRecord) (bool, Action)

// Intersect calls f.
func (f IntersectorFunc) Intersect(prim uint32, ray *Ray, hit *HitRecord) (bool, Action) {
	return f(prim, ray, hit)
}

// A Cursor captures the exact position of a query inside an index. Cursors are
// plain values: a suspended cursor can be copied, encoded and resumed by any
// holder of an identical index.
type Cursor struct {
	// The current node.
	Node uint32

	// The cursor direction.
	Leg Leg

	// The next primitive of the current leaf while Scanning.
	Prim uint32

	// The nearest hit distance at the time the cursor was returned.
	Nearest float32

	// Set once the query has been exhausted.
	Done bool

	// The number of node bounds tests performed by the query so far.
	NodeTests uint32
}

// Create a cursor for a new query that starts at the root.
func NewCursor() Cursor {
	return Cursor{
		Node:    0,
		Leg:     Descending,
		Nearest: float32(math.Inf(1)),
	}
}

// Check that a cursor, for instance one received from another worker, can be
// used with this index.
func (idx *Index) CheckCursor(cur Cursor) error {
	if int(cur.Node) >= len(idx.nodes) {
		return fmt.Errorf("%w: node %d out of range", ErrCorruptCursor, cur.Node)
	}
	switch cur.Leg {
	case Descending, Ascending:
	case Scanning:
		if n := &idx.nodes[cur.Node]; !n.IsLeaf() || cur.Prim > n.Count {
			return fmt.Errorf("%w: cannot scan primitive %d of node %d", ErrCorruptCursor, cur.Prim, cur.Node)
		}
	default:
		return fmt.Errorf("%w: unknown leg %d", ErrCorruptCursor, cur.Leg)
	}
	return nil
}

// Advance a query through the index performing nearest-hit search for ray.
//
// Traverse walks the tree without a stack: the cursor alone records where the
// query is and every move is derived from the Parent and Offset fields of the
// node records. Subtrees whose bounds cannot contain a hit closer than hit.T
// are skipped. Leaf primitives are handed to isect one at a time; if isect asks
// for suspension Traverse returns Suspended together with a cursor from which
// a later call (possibly on another machine) continues without repeating any
// bounds test or intersection already performed.
//
// The final contents of hit do not depend on whether, or how often, the
// traversal was suspended.
func (idx *Index) Traverse(ray *Ray, hit *HitRecord, cur Cursor, isect Intersector) (Cursor, Status) {
	if cur.Done {
		return cur, Exhausted
	}

	for {
		switch cur.Leg {
		case Descending:
			n := &idx.nodes[cur.Node]
			cur.NodeTests++
			if ok, _ := n.Bounds.Intersect(ray.Origin, ray.InvDir, ray.MinT, hit.T); !ok {
				cur.Leg = Ascending
				continue
			}
			if n.IsLeaf() {
				cur.Leg = Scanning
				cur.Prim = 0
				continue
			}
			cur.Node = idx.nearChild(cur.Node, ray.Dir)
		case Scanning:
			n := &idx.nodes[cur.Node]
			for cur.Prim < n.Count {
				_, action := isect.Intersect(idx.prims[n.Offset+cur.Prim], ray, hit)
				if action != Defer {
					cur.Prim++
				}
				if action != Continue {
					cur.Nearest = hit.T
					return cur, Suspended
				}
			}
			cur.Prim = 0
			cur.Leg = Ascending
		default:
			if cur.Node == 0 {
				cur.Done = true
				cur.Nearest = hit.T
				return cur, Exhausted
			}

			// Leaving the near child moves on to its far sibling; leaving
			// the far child completes the parent.
			parent := idx.nodes[cur.Node].Parent
			if cur.Node == idx.nearChild(parent, ray.Dir) {
				cur.Node = idx.sibling(cur.Node)
				cur.Leg = Descending
			} else {
				cur.Node = parent
			}
		}
	}
}

// Run a complete nearest-hit query for ray and return the final cursor.
// Suspension requests are honored by resuming immediately, so an intersector
// that keeps deferring the same primitive never lets Intersect return.
func (idx *Index) Intersect(ray *Ray, hit *HitRecord, isect Intersector) Cursor {
	cur := NewCursor()
	for {
		var status Status
		if cur, status = idx.Traverse(ray, hit, cur, isect); status == Exhausted {
			return cur
		}
	}
}
