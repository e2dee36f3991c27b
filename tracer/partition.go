package tracer

import "sort"

// The load a mesh puts on the worker that owns it.
type MeshLoad struct {
	ID        uint32
	Triangles int
}

// A MeshSet lists the meshes owned by a worker.
type MeshSet map[uint32]struct{}

func (s MeshSet) Contains(meshID uint32) bool {
	_, found := s[meshID]
	return found
}

// Get the sorted ids in the set.
func (s MeshSet) IDs() []uint32 {
	ids := make([]uint32, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Split meshes among workers so that every worker owns roughly the same number
// of triangles. Meshes are assigned largest first to the least loaded worker;
// ties go to the lowest worker index so the result is deterministic.
func PartitionMeshes(meshes []MeshLoad, workers int) []MeshSet {
	if workers < 1 {
		return nil
	}

	sorted := make([]MeshLoad, len(meshes))
	copy(sorted, meshes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Triangles != sorted[j].Triangles {
			return sorted[i].Triangles > sorted[j].Triangles
		}
		return sorted[i].ID < sorted[j].ID
	})

	sets := make([]MeshSet, workers)
	loads := make([]int, workers)
	for i := range sets {
		sets[i] = make(MeshSet)
	}
	for _, m := range sorted {
		target := 0
		for i := 1; i < workers; i++ {
			if loads[i] < loads[target] {
				target = i
			}
		}
		sets[target][m.ID] = struct{}{}
		loads[target] += m.Triangles
	}
	return sets
}
