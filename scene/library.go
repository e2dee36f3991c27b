package scene

import (
	"fmt"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/types"
)

// A Library owns the meshes of a scene and the scene-level index built over
// their world space bounds. Mesh ids are 1-based; id 0 is reserved and never
// refers to a mesh.
//
// A Library must be fully populated before it is queried. Once its index has
// been built it may be queried concurrently.
type Library struct {
	opts   bvh.Options
	meshes []*Mesh
	index  *bvh.Index
}

// Create an empty library. Rays created by the library ignore intersections
// closer than opts.RayEpsilon.
func NewLibrary(opts bvh.Options) *Library {
	return &Library{
		opts:   opts,
		meshes: make([]*Mesh, 1),
	}
}

// Get the options used for building indices and spawning rays.
func (l *Library) Options() bvh.Options {
	return l.opts
}

// Get the id that the next appended mesh should use.
func (l *Library) NextMeshID() uint32 {
	return uint32(len(l.meshes))
}

// Store a mesh under id, replacing any existing mesh with the same id. Storing
// a mesh invalidates the scene index.
func (l *Library) StoreMesh(id uint32, mesh *Mesh) error {
	if id == 0 {
		return fmt.Errorf("%w: id 0 is reserved", ErrInvalidMeshID)
	}
	l.Reserve(id)
	l.meshes[id] = mesh
	l.index = nil
	return nil
}

// Make room for mesh ids up to and including maxID. Libraries that hold only
// part of a scene reserve the ids of the meshes they do not store so that a
// scene index covering all of them can be attached.
func (l *Library) Reserve(maxID uint32) {
	if int(maxID) >= len(l.meshes) {
		grown := make([]*Mesh, maxID+1)
		copy(grown, l.meshes)
		l.meshes = grown
	}
}

// Lookup a mesh by id.
func (l *Library) LookupMesh(id uint32) (*Mesh, error) {
	if id == 0 || int(id) >= len(l.meshes) || l.meshes[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMeshID, id)
	}
	return l.meshes[id], nil
}

// Get the number of stored meshes.
func (l *Library) MeshCount() int {
	count := 0
	for _, m := range l.meshes[1:] {
		if m != nil {
			count++
		}
	}
	return count
}

// Invoke fn for each stored mesh in id order, stopping at the first error.
func (l *Library) ForEachMesh(fn func(id uint32, mesh *Mesh) error) error {
	for id := 1; id < len(l.meshes); id++ {
		if l.meshes[id] == nil {
			continue
		}
		if err := fn(uint32(id), l.meshes[id]); err != nil {
			return err
		}
	}
	return nil
}

// Build the scene-level index. Every stored mesh must have an index of its
// own. Meshes without geometry are left out of the index.
func (l *Library) BuildIndex() (*bvh.Index, error) {
	prims := make([]bvh.Primitive, 0, len(l.meshes))
	err := l.ForEachMesh(func(id uint32, mesh *Mesh) error {
		if mesh.Index() == nil {
			return fmt.Errorf("%w: mesh %d (%q)", ErrMissingIndex, id, mesh.Name)
		}
		if bounds := mesh.WorldBounds(); bounds.IsValid() {
			prims = append(prims, bvh.NewPrimitive(id, bounds))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.index = bvh.Build(prims, l.opts)
	return l.index, nil
}

// Attach a prebuilt scene-level index. Every id referenced by the index must
// be stored or reserved.
func (l *Library) SetIndex(idx *bvh.Index) error {
	for i := 0; i < idx.NodeCount(); i++ {
		for _, id := range idx.LeafPrimitives(idx.Node(i)) {
			if id == 0 || int(id) >= len(l.meshes) {
				return fmt.Errorf("%w: %d referenced by scene index node %d", ErrInvalidMeshID, id, i)
			}
		}
	}
	l.index = idx
	return nil
}

// Get the scene-level index or nil if it has not been built.
func (l *Library) Index() *bvh.Index {
	return l.index
}

// Create a ray that honors the configured ray epsilon.
func (l *Library) NewRay(origin, dir types.Vec3) bvh.Ray {
	ray := bvh.NewRay(origin, dir)
	ray.MinT = l.opts.RayEpsilon
	return ray
}

// Find the nearest intersection of a world space ray with the scene. The scene
// index is traversed and every mesh whose bounds are reached dispatches a full
// traversal of its own index. The returned cursor reports the number of scene
// level node tests.
func (l *Library) Intersect(ray *bvh.Ray, hit *bvh.HitRecord) (bvh.Cursor, error) {
	if l.index == nil {
		return bvh.Cursor{}, ErrMissingIndex
	}
	return l.index.Intersect(ray, hit, l.MeshIntersector()), nil
}

// Get an intersector for the scene-level index. Its primitives are mesh ids;
// reserved ids without a stored mesh are skipped.
func (l *Library) MeshIntersector() bvh.Intersector {
	return bvh.IntersectorFunc(func(id uint32, ray *bvh.Ray, hit *bvh.HitRecord) (bool, bvh.Action) {
		mesh := l.meshes[id]
		if mesh == nil {
			return false, bvh.Continue
		}
		return mesh.Intersect(id, ray, hit), bvh.Continue
	})
}

// Find the nearest intersection by testing every triangle of every mesh. It
// is the reference that index queries are verified against.
func (l *Library) NaiveIntersect(ray *bvh.Ray, hit *bvh.HitRecord) bool {
	found := false
	l.ForEachMesh(func(id uint32, mesh *Mesh) error {
		if mesh.IntersectNaive(id, ray, hit) {
			found = true
		}
		return nil
	})
	return found
}
