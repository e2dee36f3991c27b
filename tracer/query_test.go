package tracer

import (
	"testing"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/types"
	"github.com/stretchr/testify/require"
)

func TestQueryRoundTrip(t *testing.T) {
	ray := bvh.NewRay(types.XYZ(1, 2, 3), types.XYZ(0, -1, 0.5))
	ray.MinT = 0.001
	q := NewQuery(42, ray)
	q.Hit = bvh.HitRecord{
		Worker:    3,
		Mesh:      7,
		Primitive: 11,
		T:         4.25,
		Geom: bvh.LocalGeometry{
			Point:  types.XYZ(1, -2.25, 5.125),
			Normal: types.XYZ(0, 1, 0),
			UV:     types.XY(0.25, 0.5),
		},
	}
	q.Cursor = bvh.Cursor{Node: 9, Leg: bvh.Scanning, Prim: 1, Nearest: 4.25, NodeTests: 17}
	q.Forward = 5
	q.Hops = 2

	data, err := q.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, QuerySize)

	var got Query
	require.NoError(t, got.UnmarshalBinary(data))
	require.Equal(t, q, got)
}

func TestNewQueryIDsAreUnique(t *testing.T) {
	ray := bvh.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1))
	a := NewQuery(0, ray)
	b := NewQuery(0, ray)
	require.NotEqual(t, a.ID, b.ID)
	require.False(t, a.Hit.Found())
	require.Equal(t, bvh.NewCursor(), a.Cursor)
}

func TestQueryUnmarshalCorrupt(t *testing.T) {
	q := NewQuery(0, bvh.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1)))
	data, err := q.MarshalBinary()
	require.NoError(t, err)

	var got Query
	require.ErrorIs(t, got.UnmarshalBinary(data[:QuerySize-1]), ErrCorruptQuery)
	require.ErrorIs(t, got.UnmarshalBinary(append(data, 0)), ErrCorruptQuery)

	// Corrupt the cursor leg.
	bad := append([]byte(nil), data...)
	legOffset := QuerySize - 8 - bvh.CursorSize + 4
	bad[legOffset] = 0xff
	require.ErrorIs(t, got.UnmarshalBinary(bad), ErrCorruptQuery)
}
