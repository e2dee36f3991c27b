package bvh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Serialized index layout (all values little-endian):
//
//	magic       [4]byte  "SRBV"
//	version     uint16
//	record size uint16
//	node count  uint32
//	nodes       node count * record size bytes
//	prim count  uint32
//	prims       prim count * uint32
//
// Node record layout (40 bytes):
//
//	min    [3]float32
//	max    [3]float32
//	parent uint32
//	offset uint32
//	count  uint32
//	axis   uint8
//	pad    [3]byte
const (
	indexVersion   = 1
	headerSize     = 8
	nodeRecordSize = 40
)

var indexMagic = [4]byte{'S', 'R', 'B', 'V'}

var byteOrder = binary.LittleEndian

// Serialize the index.
func (idx *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(idx.SizeInBytes())
	if _, err := idx.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write the serialized index to w.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)

	var written int64
	var header [headerSize + 4]byte
	copy(header[0:4], indexMagic[:])
	byteOrder.PutUint16(header[4:], indexVersion)
	byteOrder.PutUint16(header[6:], nodeRecordSize)
	byteOrder.PutUint32(header[8:], uint32(len(idx.nodes)))
	n, err := bw.Write(header[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	var rec [nodeRecordSize]byte
	for i := range idx.nodes {
		encodeNode(rec[:], &idx.nodes[i])
		n, err = bw.Write(rec[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	var word [4]byte
	byteOrder.PutUint32(word[:], uint32(len(idx.prims)))
	n, err = bw.Write(word[:])
	written += int64(n)
	if err != nil {
		return written, err
	}
	for _, id := range idx.prims {
		byteOrder.PutUint32(word[:], id)
		n, err = bw.Write(word[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, bw.Flush()
}

// Decode a serialized index and validate its structure.
func Decode(data []byte) (*Index, error) {
	return ReadIndex(bytes.NewReader(data))
}

// Read a serialized index from r and validate its structure. Indices that fail
// validation are rejected with an error wrapping ErrCorruptIndex.
func ReadIndex(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	var header [headerSize + 4]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrCorruptIndex, err)
	}
	if !bytes.Equal(header[0:4], indexMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, header[0:4])
	}
	if v := byteOrder.Uint16(header[4:]); v != indexVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	if size := byteOrder.Uint16(header[6:]); size != nodeRecordSize {
		return nil, fmt.Errorf("%w: unexpected node record size %d", ErrCorruptIndex, size)
	}

	numNodes := byteOrder.Uint32(header[8:])
	nodes := make([]Node, 0, minCap(numNodes))
	var rec [nodeRecordSize]byte
	for i := uint32(0); i < numNodes; i++ {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrCorruptIndex, i, err)
		}
		nodes = append(nodes, decodeNode(rec[:]))
	}

	var word [4]byte
	if _, err := io.ReadFull(br, word[:]); err != nil {
		return nil, fmt.Errorf("%w: primitive count: %v", ErrCorruptIndex, err)
	}
	numPrims := byteOrder.Uint32(word[:])
	prims := make([]uint32, 0, minCap(numPrims))
	for i := uint32(0); i < numPrims; i++ {
		if _, err := io.ReadFull(br, word[:]); err != nil {
			return nil, fmt.Errorf("%w: primitive %d: %v", ErrCorruptIndex, i, err)
		}
		prims = append(prims, byteOrder.Uint32(word[:]))
	}

	idx := &Index{nodes: nodes, prims: prims}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Cap up-front allocations so a corrupt count cannot exhaust memory before
// the payload runs out.
func minCap(n uint32) int {
	if n > 1<<16 {
		return 1 << 16
	}
	return int(n)
}

func encodeNode(dst []byte, n *Node) {
	for axis := 0; axis < 3; axis++ {
		byteOrder.PutUint32(dst[axis*4:], math.Float32bits(n.Bounds.Min[axis]))
		byteOrder.PutUint32(dst[12+axis*4:], math.Float32bits(n.Bounds.Max[axis]))
	}
	byteOrder.PutUint32(dst[24:], n.Parent)
	byteOrder.PutUint32(dst[28:], n.Offset)
	byteOrder.PutUint32(dst[32:], n.Count)
	dst[36] = byte(n.Axis)
	dst[37], dst[38], dst[39] = 0, 0, 0
}

func decodeNode(src []byte) Node {
	var n Node
	for axis := 0; axis < 3; axis++ {
		n.Bounds.Min[axis] = math.Float32frombits(byteOrder.Uint32(src[axis*4:]))
		n.Bounds.Max[axis] = math.Float32frombits(byteOrder.Uint32(src[12+axis*4:]))
	}
	n.Parent = byteOrder.Uint32(src[24:])
	n.Offset = byteOrder.Uint32(src[28:])
	n.Count = byteOrder.Uint32(src[32:])
	n.Axis = Axis(src[36])
	return n
}

// The encoded size of a traversal cursor.
const CursorSize = 18

// Serialize the cursor into its fixed CursorSize byte layout.
func (c Cursor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CursorSize)
	byteOrder.PutUint32(buf[0:], c.Node)
	buf[4] = byte(c.Leg)
	byteOrder.PutUint32(buf[5:], c.Prim)
	byteOrder.PutUint32(buf[9:], math.Float32bits(c.Nearest))
	if c.Done {
		buf[13] = 1
	}
	byteOrder.PutUint32(buf[14:], c.NodeTests)
	return buf, nil
}

// Deserialize a cursor encoded by MarshalBinary.
func (c *Cursor) UnmarshalBinary(data []byte) error {
	if len(data) != CursorSize {
		return fmt.Errorf("%w: expected %d bytes; got %d", ErrCorruptCursor, CursorSize, len(data))
	}
	if data[4] > byte(Ascending) || data[13] > 1 {
		return fmt.Errorf("%w: invalid leg or flags", ErrCorruptCursor)
	}
	c.Node = byteOrder.Uint32(data[0:])
	c.Leg = Leg(data[4])
	c.Prim = byteOrder.Uint32(data[5:])
	c.Nearest = math.Float32frombits(byteOrder.Uint32(data[9:]))
	c.Done = data[13] == 1
	c.NodeTests = byteOrder.Uint32(data[14:])
	return nil
}
