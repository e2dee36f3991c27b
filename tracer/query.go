package tracer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/types"
	"github.com/google/uuid"
)

// A Query is a single in-flight nearest-hit ray query. Queries move between
// workers in their encoded form; everything needed to resume the query is
// part of the value.
type Query struct {
	ID uuid.UUID

	// The position of the ray in the traced batch.
	Slot uint32

	Ray    bvh.Ray
	Hit    bvh.HitRecord
	Cursor bvh.Cursor

	// The mesh whose owner must resume the query; 0 if any worker may.
	Forward uint32

	// The number of times the query was forwarded to another worker.
	Hops uint32
}

// Encoded query layout (little-endian):
//
//	id       [16]byte
//	slot     uint32
//	origin   [3]float32
//	dir      [3]float32
//	min t    float32
//	worker   uint32
//	mesh     uint32
//	prim     uint32
//	t        float32
//	point    [3]float32
//	normal   [3]float32
//	uv       [2]float32
//	cursor   [bvh.CursorSize]byte
//	forward  uint32
//	hops     uint32
const QuerySize = 16 + 4 + 28 + 48 + bvh.CursorSize + 8

var byteOrder = binary.LittleEndian

// Create a query for a ray that has not been traversed yet.
func NewQuery(slot uint32, ray bvh.Ray) Query {
	return Query{
		ID:     uuid.New(),
		Slot:   slot,
		Ray:    ray,
		Hit:    bvh.NewHitRecord(),
		Cursor: bvh.NewCursor(),
	}
}

type encoder struct {
	buf []byte
	off int
}

func (e *encoder) u32(v uint32) {
	byteOrder.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *encoder) f32(v ...float32) {
	for _, f := range v {
		e.u32(math.Float32bits(f))
	}
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) u32() uint32 {
	v := byteOrder.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) f32() float32 {
	return math.Float32frombits(d.u32())
}

func (d *decoder) vec3() types.Vec3 {
	return types.XYZ(d.f32(), d.f32(), d.f32())
}

// Serialize the query.
func (q *Query) MarshalBinary() ([]byte, error) {
	e := encoder{buf: make([]byte, QuerySize)}
	copy(e.buf, q.ID[:])
	e.off = len(q.ID)
	e.u32(q.Slot)

	e.f32(q.Ray.Origin[:]...)
	e.f32(q.Ray.Dir[:]...)
	e.f32(q.Ray.MinT)

	e.u32(q.Hit.Worker)
	e.u32(q.Hit.Mesh)
	e.u32(q.Hit.Primitive)
	e.f32(q.Hit.T)
	e.f32(q.Hit.Geom.Point[:]...)
	e.f32(q.Hit.Geom.Normal[:]...)
	e.f32(q.Hit.Geom.UV[:]...)

	cur, err := q.Cursor.MarshalBinary()
	if err != nil {
		return nil, err
	}
	e.off += copy(e.buf[e.off:], cur)

	e.u32(q.Forward)
	e.u32(q.Hops)
	return e.buf, nil
}

// Deserialize a query encoded by MarshalBinary.
func (q *Query) UnmarshalBinary(data []byte) error {
	if len(data) != QuerySize {
		return fmt.Errorf("%w: expected %d bytes; got %d", ErrCorruptQuery, QuerySize, len(data))
	}

	d := decoder{buf: data}
	copy(q.ID[:], data)
	d.off = len(q.ID)
	q.Slot = d.u32()

	origin := d.vec3()
	dir := d.vec3()
	q.Ray = bvh.NewRay(origin, dir)
	q.Ray.MinT = d.f32()

	q.Hit.Worker = d.u32()
	q.Hit.Mesh = d.u32()
	q.Hit.Primitive = d.u32()
	q.Hit.T = d.f32()
	q.Hit.Geom.Point = d.vec3()
	q.Hit.Geom.Normal = d.vec3()
	q.Hit.Geom.UV = types.XY(d.f32(), d.f32())

	if err := q.Cursor.UnmarshalBinary(data[d.off : d.off+bvh.CursorSize]); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptQuery, err)
	}
	d.off += bvh.CursorSize

	q.Forward = d.u32()
	q.Hops = d.u32()
	return nil
}
