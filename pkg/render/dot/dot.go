package dot

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/matzehuels/poa/pkg/po"
)

const graphName = "G"

// Options configures PO graph rendering.
type Options struct {
	// Columns places the nodes of each alignment column on one rank.
	Columns bool

	// Rings draws dashed edges between consecutive ring members.
	Rings bool

	// Bundles fills nodes with a color per bundle.
	Bundles bool

	// Detailed adds the node index and the number of sequences to labels.
	Detailed bool
}

var palette = []string{
	"#8dd3c7", "#ffffb3", "#bebada", "#fb8072",
	"#80b1d3", "#fdb462", "#b3de69", "#fccde5",
}

// ToDOT converts g to Graphviz DOT source.
func ToDOT(g *po.Graph, opts Options) (string, error) {
	out := gographviz.NewGraph()
	if err := out.SetName(graphName); err != nil {
		return "", err
	}
	if err := out.SetDir(true); err != nil {
		return "", err
	}
	for _, kv := range [][2]string{
		{"rankdir", "LR"},
		{"bgcolor", quote("transparent")},
		{"nodesep", "0.2"},
		{"ranksep", "0.3"},
	} {
		if err := out.AddAttr(graphName, kv[0], kv[1]); err != nil {
			return "", fmt.Errorf("graph attr %s: %w", kv[0], err)
		}
	}

	cols, ncol := g.Columns()
	parents := make([]string, len(g.Letters))
	for i := range parents {
		parents[i] = graphName
	}
	if opts.Columns {
		for c := 0; c < ncol; c++ {
			name := "col" + strconv.Itoa(c)
			if err := out.AddSubGraph(graphName, name, map[string]string{"rank": "same"}); err != nil {
				return "", fmt.Errorf("column %d: %w", c, err)
			}
		}
		for i, c := range cols {
			parents[i] = "col" + strconv.Itoa(c)
		}
	}

	for i := range g.Letters {
		if err := out.AddNode(parents[i], nodeID(i), nodeAttrs(g, i, opts)); err != nil {
			return "", fmt.Errorf("node %d: %w", i, err)
		}
	}

	for i := range g.Letters {
		for _, j := range g.Letters[i].Right {
			n := support(g, i, j)
			attrs := map[string]string{
				"penwidth": strconv.FormatFloat(1+0.5*float64(n), 'f', 1, 64),
			}
			if n > 0 {
				attrs["label"] = quote(strconv.Itoa(n))
			}
			if err := out.AddEdge(nodeID(i), nodeID(j), true, attrs); err != nil {
				return "", fmt.Errorf("edge %d -> %d: %w", i, j, err)
			}
		}
	}

	if opts.Rings {
		for i := range g.Letters {
			next := g.NextOnRing(i)
			// Each ring is drawn as a chain; the edge closing it is skipped.
			if next == i || next == g.RingID(i) {
				continue
			}
			attrs := map[string]string{
				"style":      "dashed",
				"dir":        "none",
				"constraint": "false",
				"color":      "grey",
			}
			if err := out.AddEdge(nodeID(i), nodeID(next), true, attrs); err != nil {
				return "", fmt.Errorf("ring %d - %d: %w", i, next, err)
			}
		}
	}
	return out.String(), nil
}

func nodeID(i int) string { return "n" + strconv.Itoa(i) }

func quote(s string) string { return strconv.Quote(s) }

func nodeAttrs(g *po.Graph, i int, opts Options) map[string]string {
	l := &g.Letters[i]
	label := string(l.Residue)
	if opts.Detailed {
		label = fmt.Sprintf("%c\n#%d\n%d seqs", l.Residue, i, len(l.Sources))
	}
	attrs := map[string]string{
		"label": quote(label),
		"shape": "box",
		"style": quote("rounded,filled"),
	}
	fill := "white"
	if opts.Bundles && len(l.Sources) > 0 {
		if b := g.Sources[l.Sources[0].Seq].Bundle; b != po.NoBundle {
			fill = palette[b%len(palette)]
		}
	}
	attrs["fillcolor"] = quote(fill)
	return attrs
}

// support counts the sequences that step directly from node i to node j.
func support(g *po.Graph, i, j int) int {
	n := 0
	for _, a := range g.Letters[i].Sources {
		for _, b := range g.Letters[j].Sources {
			if a.Seq == b.Seq && b.Pos == a.Pos+1 {
				n++
			}
		}
	}
	return n
}
