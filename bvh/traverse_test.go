package bvh

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/achilleasa/sunray/types"
	"github.com/stretchr/testify/require"
)

type boxIntersector struct {
	boxes map[uint32]BBox

	// Primitives presented to Intersect, in order.
	visited []uint32
}

func newBoxIntersector(prims []Primitive) *boxIntersector {
	boxes := make(map[uint32]BBox, len(prims))
	for _, p := range prims {
		boxes[p.ID] = p.Bounds
	}
	return &boxIntersector{boxes: boxes}
}

func (bi *boxIntersector) test(prim uint32, ray *Ray, hit *HitRecord) bool {
	ok, t := bi.boxes[prim].Intersect(ray.Origin, ray.InvDir, ray.MinT, hit.T)
	if !ok || t >= hit.T {
		return false
	}
	hit.T = t
	hit.Primitive = prim
	return true
}

func (bi *boxIntersector) Intersect(prim uint32, ray *Ray, hit *HitRecord) (bool, Action) {
	bi.visited = append(bi.visited, prim)
	return bi.test(prim, ray, hit), Continue
}

func unitCube(id uint32, center types.Vec3) Primitive {
	half := types.XYZ(0.5, 0.5, 0.5)
	return boxPrim(id, center.Sub(half), center.Add(half))
}

func TestTraverseNearestCube(t *testing.T) {
	prims := []Primitive{
		unitCube(1, types.XYZ(0, 0, 0)),
		unitCube(2, types.XYZ(10, 0, 0)),
		unitCube(3, types.XYZ(20, 0, 0)),
	}
	idx := Build(prims, DefaultOptions())

	ray := NewRay(types.XYZ(-5, 0, 0), types.XYZ(1, 0, 0))
	hit := NewHitRecord()
	cur, status := idx.Traverse(&ray, &hit, NewCursor(), newBoxIntersector(prims))

	require.Equal(t, Exhausted, status)
	require.True(t, cur.Done)
	require.True(t, hit.Found())
	require.EqualValues(t, 1, hit.Primitive)
	require.InDelta(t, 4.5, hit.T, 1e-6)
	require.Equal(t, hit.T, cur.Nearest)
}

func TestTraverseDisjointBoxes(t *testing.T) {
	var prims []Primitive
	for i := 0; i < 27; i++ {
		center := types.XYZ(float32(i%3)*4, float32((i/3)%3)*4, float32(i/9)*4)
		prims = append(prims, unitCube(uint32(i+1), center))
	}
	idx := Build(prims, DefaultOptions())

	// Each ray runs parallel to Z through a single column of boxes from
	// above so only the top box of the column is hit.
	for _, p := range prims {
		c := p.Center
		if c[2] != 8 {
			continue
		}
		ray := NewRay(types.XYZ(c[0], c[1], 20), types.XYZ(0, 0, -1))
		hit := NewHitRecord()
		idx.Intersect(&ray, &hit, newBoxIntersector(prims))

		require.EqualValues(t, p.ID, hit.Primitive)
		require.InDelta(t, 11.5, hit.T, 1e-5)
	}
}

func TestTraverseEmptyIndex(t *testing.T) {
	idx := Build(nil, DefaultOptions())
	isect := newBoxIntersector(nil)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		ray := NewRay(
			types.XYZ(rng.Float32()*10-5, rng.Float32()*10-5, rng.Float32()*10-5),
			types.XYZ(rng.Float32()-0.5, rng.Float32()-0.5, rng.Float32()-0.5),
		)
		hit := NewHitRecord()
		cur, status := idx.Traverse(&ray, &hit, NewCursor(), isect)
		require.Equal(t, Exhausted, status)
		require.True(t, cur.Done)
		require.False(t, hit.Found())
	}
	require.Empty(t, isect.visited)
}

func TestTraverseSingleLeaf(t *testing.T) {
	prims := []Primitive{boxPrim(7, types.XYZ(-10, -10, -10), types.XYZ(10, 10, 10))}
	idx := Build(prims, DefaultOptions())
	require.Equal(t, 1, idx.NodeCount())
	require.Equal(t, 1, idx.Stats(DefaultOptions()).Leafs)

	ray := NewRay(types.XYZ(-20, 0, 0), types.XYZ(1, 0, 0))
	hit := NewHitRecord()
	cur := idx.Intersect(&ray, &hit, newBoxIntersector(prims))

	require.EqualValues(t, 1, cur.NodeTests)
	require.EqualValues(t, 7, hit.Primitive)
	require.InDelta(t, 10, hit.T, 1e-6)
}

func TestTraverseNearChildOrdering(t *testing.T) {
	prims := []Primitive{
		unitCube(1, types.XYZ(0, 0, 0)),
		unitCube(2, types.XYZ(10, 0, 0)),
	}
	idx := Build(prims, DefaultOptions())
	require.Equal(t, XAxis, idx.Node(0).Axis)

	type spec struct {
		descr    string
		origin   types.Vec3
		dir      types.Vec3
		expOrder []uint32
	}
	specs := []spec{
		{"towards +x", types.XYZ(-5, 0, 0), types.XYZ(1, 0, 0), []uint32{1, 2}},
		{"towards -x", types.XYZ(15, 0, 0), types.XYZ(-1, 0, 0), []uint32{2, 1}},
	}

	for _, s := range specs {
		var order []uint32
		// Never record a hit so that no subtree gets pruned.
		isect := IntersectorFunc(func(prim uint32, _ *Ray, _ *HitRecord) (bool, Action) {
			order = append(order, prim)
			return false, Continue
		})
		ray := NewRay(s.origin, s.dir)
		hit := NewHitRecord()
		idx.Intersect(&ray, &hit, isect)
		require.Equal(t, s.expOrder, order, s.descr)
	}
}

func randomRay(rng *rand.Rand, spread float32) Ray {
	origin := types.XYZ(rng.Float32()*spread*2-spread/2, rng.Float32()*spread*2-spread/2, rng.Float32()*spread*2-spread/2)
	target := types.XYZ(rng.Float32()*spread, rng.Float32()*spread, rng.Float32()*spread)
	return NewRay(origin, target.Sub(origin))
}

func TestTraverseMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	prims := randomPrims(rng, 300, 30)
	isect := newBoxIntersector(prims)

	for _, maxLeaf := range []int{1, 4} {
		opts := DefaultOptions()
		opts.MaxLeafPrimitives = maxLeaf
		idx := Build(prims, opts)

		for i := 0; i < 500; i++ {
			ray := randomRay(rng, 30)

			expHit := NewHitRecord()
			for _, p := range prims {
				isect.test(p.ID, &ray, &expHit)
			}

			hit := NewHitRecord()
			idx.Intersect(&ray, &hit, isect)
			require.Equal(t, expHit.Found(), hit.Found(), "ray %d", i)
			require.Equal(t, expHit.T, hit.T, "ray %d", i)
		}
	}
}

// An intersector that randomly asks for suspension and records every
// primitive it actually tests.
type suspendingIntersector struct {
	*boxIntersector
	rng    *rand.Rand
	tested map[uint32]int
}

func (si *suspendingIntersector) Intersect(prim uint32, ray *Ray, hit *HitRecord) (bool, Action) {
	switch si.rng.Intn(4) {
	case 0:
		return false, Defer
	case 1:
		si.tested[prim]++
		return si.test(prim, ray, hit), Suspend
	}
	si.tested[prim]++
	return si.test(prim, ray, hit), Continue
}

func TestSuspendResumeYieldsIdenticalResult(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	prims := randomPrims(rng, 200, 20)
	idx := Build(prims, DefaultOptions())
	plain := newBoxIntersector(prims)

	for i := 0; i < 200; i++ {
		ray := randomRay(rng, 20)

		expHit := NewHitRecord()
		expCur := idx.Intersect(&ray, &expHit, plain)

		si := &suspendingIntersector{
			boxIntersector: plain,
			rng:            rng,
			tested:         make(map[uint32]int),
		}
		hit := NewHitRecord()
		cur := NewCursor()
		suspensions := 0
		for {
			var status Status
			cur, status = idx.Traverse(&ray, &hit, cur, si)
			if status == Exhausted {
				break
			}
			suspensions++
			require.Equal(t, hit.T, cur.Nearest)

			// Move the cursor through its wire form like a forwarded query.
			data, err := cur.MarshalBinary()
			require.NoError(t, err)
			var resumed Cursor
			require.NoError(t, resumed.UnmarshalBinary(data))
			require.Equal(t, cur, resumed)
			require.NoError(t, idx.CheckCursor(resumed))
			cur = resumed
		}

		require.Equal(t, expHit, hit, "ray %d after %d suspensions", i, suspensions)
		require.Equal(t, expCur.NodeTests, cur.NodeTests, "ray %d", i)
		for prim, count := range si.tested {
			require.Equal(t, 1, count, "ray %d: primitive %d tested more than once", i, prim)
		}
	}
}

func TestResumeExhaustedCursor(t *testing.T) {
	prims := []Primitive{unitCube(1, types.XYZ(0, 0, 0))}
	idx := Build(prims, DefaultOptions())
	isect := newBoxIntersector(prims)

	ray := NewRay(types.XYZ(-5, 0, 0), types.XYZ(1, 0, 0))
	hit := NewHitRecord()
	cur := idx.Intersect(&ray, &hit, isect)
	visited := len(isect.visited)

	next, status := idx.Traverse(&ray, &hit, cur, isect)
	require.Equal(t, Exhausted, status)
	require.Equal(t, cur, next)
	require.Len(t, isect.visited, visited)
}

func TestConcurrentQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	prims := randomPrims(rng, 400, 40)
	idx := Build(prims, DefaultOptions())

	rays := make([]Ray, 256)
	expected := make([]HitRecord, len(rays))
	for i := range rays {
		rays[i] = randomRay(rng, 40)
		expected[i] = NewHitRecord()
		idx.Intersect(&rays[i], &expected[i], newBoxIntersector(prims))
	}

	got := make([]HitRecord, len(rays))
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			isect := newBoxIntersector(prims)
			for i := w; i < len(rays); i += 8 {
				hit := NewHitRecord()
				idx.Intersect(&rays[i], &hit, isect)
				got[i] = hit
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, expected, got)
}
