// Package dot renders PO graphs as Graphviz diagrams.
//
// # Overview
//
// Nodes are drawn left to right in index order, one box per residue.
// Solid arrows are adjacency edges, with a pen width that grows with the
// number of sequences traversing the edge. Dashed lines join the members
// of an alignment ring, so aligned residues sit next to each other.
//
// # Usage
//
// Build the DOT source, then render it in process:
//
//	src, err := dot.ToDOT(g, dot.Options{Columns: true})
//	svg, err := dot.RenderSVG(ctx, src)
//
// # Options
//
// The [Options] struct controls the diagram:
//
//   - Columns: rank the nodes of each alignment column together
//   - Rings: draw dashed ring edges
//   - Bundles: fill nodes by the bundle of their first sequence
//   - Detailed: add node index and sequence count to labels
//
// # Dependencies
//
// DOT is built with [github.com/awalterschulze/gographviz] and rendered
// with [github.com/goccy/go-graphviz], which runs Graphviz in process.
package dot
