package io

import (
	"bufio"
	"fmt"
	"io"

	"github.com/matzehuels/poa/pkg/po"
)

// AllBundles selects every sequence in [WriteClustal] and [WritePIR].
const AllBundles = -1

const (
	clustalHeader = "CLUSTAL W (1.74) multiple sequence alignment"
	clustalIndent = 36
	clustalWidth  = 50
	pirWidth      = 60
)

// layout returns the sequence ids and the gapped rows to print. With a
// bundle id only that bundle's sequences are returned, and only columns
// where at least one of them has a residue.
func layout(g *po.Graph, gap byte, bundle int) ([]int, [][]byte) {
	all := g.Rows(gap)
	var ids []int
	for k := range g.Sources {
		if bundle == AllBundles || g.Sources[k].Bundle == bundle {
			ids = append(ids, k)
		}
	}
	if bundle == AllBundles {
		return ids, all
	}

	ncol := 0
	if len(all) > 0 {
		ncol = len(all[0])
	}
	include := make([]bool, ncol)
	for _, k := range ids {
		for c, ch := range all[k] {
			if ch != gap {
				include[c] = true
			}
		}
	}
	rows := make([][]byte, len(all))
	for _, k := range ids {
		row := make([]byte, 0, ncol)
		for c, ch := range all[k] {
			if include[c] {
				row = append(row, ch)
			}
		}
		rows[k] = row
	}
	return ids, rows
}

// WriteClustal writes the alignment in CLUSTAL format: 50 columns per
// block, names padded to 36 characters, '-' for gaps.
func WriteClustal(g *po.Graph, w io.Writer, bundle int) error {
	ids, rows := layout(g, '-', bundle)
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n\n\n", clustalHeader)

	ncol := 0
	if len(ids) > 0 {
		ncol = len(rows[ids[0]])
	}
	for start := 0; start < ncol; start += clustalWidth {
		end := min(start+clustalWidth, ncol)
		for _, k := range ids {
			bw.WriteString(clustalName(g.Sources[k].Name))
			bw.Write(rows[k][start:end])
			bw.WriteByte('\n')
		}
		bw.WriteString("\n\n")
	}
	return bw.Flush()
}

// clustalName pads name to the name field, truncating it when it would
// touch the residues.
func clustalName(name string) string {
	if len(name) > clustalIndent-1 {
		return name[:clustalIndent-1] + " "
	}
	return fmt.Sprintf("%-*s", clustalIndent, name)
}

// WritePIR writes the alignment in FASTA-PIR format: a ">name title"
// header per sequence, 60 columns per line, '.' for gaps.
func WritePIR(g *po.Graph, w io.Writer, bundle int) error {
	ids, rows := layout(g, '.', bundle)
	bw := bufio.NewWriter(w)
	for _, k := range ids {
		fmt.Fprintf(bw, ">%s %s", g.Sources[k].Name, g.Sources[k].Title)
		for c, ch := range rows[k] {
			if c%pirWidth == 0 {
				bw.WriteByte('\n')
			}
			bw.WriteByte(ch)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ExportClustal writes a CLUSTAL file at path.
func ExportClustal(g *po.Graph, path string, bundle int) error {
	return export(path, func(w io.Writer) error { return WriteClustal(g, w, bundle) })
}

// ExportPIR writes a FASTA-PIR file at path.
func ExportPIR(g *po.Graph, path string, bundle int) error {
	return export(path, func(w io.Writer) error { return WritePIR(g, w, bundle) })
}
