package bvh

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// Structural statistics for an index.
type Stats struct {
	Nodes       int
	Leafs       int
	Primitives  int
	MaxDepth    int
	MaxLeafSize int

	// Expected cost of a random ray query according to the SAH, using a
	// unit primitive intersection cost.
	SAHCost float32

	SizeInBytes int
}

// Collect index statistics.
func (idx *Index) Stats(opts Options) Stats {
	opts = opts.normalize()
	st := Stats{
		Nodes:       len(idx.nodes),
		Primitives:  len(idx.prims),
		SizeInBytes: idx.SizeInBytes(),
	}

	rootArea := idx.nodes[0].Bounds.SurfaceArea()
	depth := make([]int, len(idx.nodes))
	for i := range idx.nodes {
		n := &idx.nodes[i]
		if i > 0 {
			depth[i] = depth[n.Parent] + 1
		}
		if depth[i] > st.MaxDepth {
			st.MaxDepth = depth[i]
		}

		if rootArea <= 0 {
			continue
		}
		weight := n.Bounds.SurfaceArea() / rootArea
		if n.IsLeaf() {
			st.SAHCost += weight * float32(n.Count)
		} else {
			st.SAHCost += weight * opts.TraversalCost
		}
	}

	for i := range idx.nodes {
		if n := &idx.nodes[i]; n.IsLeaf() {
			st.Leafs++
			if int(n.Count) > st.MaxLeafSize {
				st.MaxLeafSize = int(n.Count)
			}
		}
	}
	return st
}

// Render statistics as a table.
func (st Stats) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Nodes", fmt.Sprint(st.Nodes)})
	table.Append([]string{"Leafs", fmt.Sprint(st.Leafs)})
	table.Append([]string{"Primitives", fmt.Sprint(st.Primitives)})
	table.Append([]string{"Max depth", fmt.Sprint(st.MaxDepth)})
	table.Append([]string{"Max leaf size", fmt.Sprint(st.MaxLeafSize)})
	table.Append([]string{"SAH cost", fmt.Sprintf("%.3f", st.SAHCost)})
	table.SetFooter([]string{"Size", FormatSize(st.SizeInBytes)})
	table.Render()
	return buf.String()
}

// Format a byte count using the appropriate byte/kb/mb unit.
func FormatSize(totalBytes int) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float32(totalBytes)/1e3)
	}
	return fmt.Sprintf("%5.1f mb", float32(totalBytes)/1e6)
}
