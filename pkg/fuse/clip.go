package fuse

import "github.com/matzehuels/poa/pkg/po"

// Clipped is a sequence graph trimmed to its aligned span.
type Clipped struct {
	Graph *po.Graph

	// XToY and YToX are the alignment translated to the clipped graph.
	XToY []int
	YToX []int

	Offset      int // index of the first kept node in the original graph
	Identities  int // aligned identical pairs inside the span
	MatchLength int // length of the span
}

// Clip trims y to the nodes between its first and last aligned node. The
// returned graph is a copy; y is unchanged, so the caller can fall back to
// it at any time. Source positions keep their original values. When
// nothing is aligned, Graph is nil and Identities is zero.
func Clip(x, y *po.Graph, xToY, yToX []int) *Clipped {
	start, end := -1, -1
	for i, ix := range yToX {
		if ix >= 0 {
			if start < 0 {
				start = i
			}
			end = i
		}
	}
	if start < 0 {
		return &Clipped{}
	}

	c := &Clipped{Offset: start, MatchLength: end - start + 1}
	for i := start; i <= end; i++ {
		if ix := yToX[i]; ix >= 0 && x.Letters[ix].Residue == y.Letters[i].Residue {
			c.Identities++
		}
	}

	g := y.Clone()
	keep := make([]bool, g.Len())
	for i := start; i <= end; i++ {
		keep[i] = true
	}
	g.Compact(keep)
	c.Graph = g

	c.YToX = append([]int(nil), yToX[start:end+1]...)
	c.XToY = make([]int, len(xToY))
	for i, iy := range xToY {
		if iy >= 0 {
			iy -= start
		}
		c.XToY[i] = iy
	}
	return c
}
