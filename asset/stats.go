package asset

import (
	"bytes"
	"fmt"
	"path"

	"github.com/achilleasa/sunray/bvh"
	"github.com/olekukonko/tablewriter"
)

// Get the total number of bytes stored in the bundle.
func (b *Bundle) Size() int {
	return b.size
}

// Render a table with the stored and uncompressed size of each kind of bundle
// entry.
func (b *Bundle) Stats() string {
	type group struct {
		label        string
		entries      int
		method       uint16
		stored, size uint64
	}
	groups := []*group{{label: "Manifest"}, {label: "Indices"}, {label: "Mesh data"}}
	for name, f := range b.files {
		g := groups[0]
		switch path.Ext(name) {
		case ".bvh":
			g = groups[1]
		case ".bin":
			g = groups[2]
		}
		g.entries++
		g.method = f.Method
		g.stored += f.CompressedSize64
		g.size += f.UncompressedSize64
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Entries", "Count", "Method", "Stored", "Uncompressed"})
	for _, g := range groups {
		if g.entries == 0 {
			continue
		}
		table.Append([]string{
			g.label,
			fmt.Sprint(g.entries),
			methodName(g.method),
			bvh.FormatSize(int(g.stored)),
			bvh.FormatSize(int(g.size)),
		})
	}
	table.Append([]string{" ", " ", " ", " ", " "})
	table.Append([]string{"Meshes", fmt.Sprint(len(b.Manifest.Meshes)), " ", " ", " "})
	table.SetFooter([]string{"Total", fmt.Sprint(len(b.files)), " ", bvh.FormatSize(b.size), " "})
	table.Render()
	return buf.String()
}
