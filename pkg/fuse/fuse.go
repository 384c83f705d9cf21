package fuse

import (
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
)

// Policy selects which aligned pairs are merged into one node.
type Policy int

const (
	// PolicyIdentity merges every aligned pair of identical residues.
	PolicyIdentity Policy = iota

	// PolicySegments merges identical pairs only inside segments that are
	// long and identical enough (see FissionBreak, MinimumFusion and
	// FusionFraction).
	PolicySegments
)

// Segment rule parameters for PolicySegments.
const (
	FissionBreak   = 5   // non-identical run that ends a segment
	MinimumFusion  = 10  // identities a segment needs
	FusionFraction = 0.8 // share of the segment span that must be identical
)

func (p Policy) String() string {
	if p == PolicySegments {
		return "segments"
	}
	return "identity"
}

// ParsePolicy parses "identity" or "segments".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "identity":
		return PolicyIdentity, nil
	case "segments":
		return PolicySegments, nil
	}
	return PolicyIdentity, errors.New(errors.ErrCodeInvalidInput, "invalid fusion policy: %q (must be one of: identity, segments)", s)
}

// Options configures a fusion.
type Options struct {
	Policy Policy
}

// Fuse merges y into x along the alignment and returns x. Afterwards y is
// empty and must not be used.
func Fuse(x, y *po.Graph, xToY, yToX []int, opts Options) *po.Graph {
	out := Copy(x, y, xToY, yToX, opts)
	*x = *out
	y.Letters = nil
	y.Sources = nil
	return x
}

// Copy returns the fusion of x and y as a new graph, leaving both inputs
// untouched. The result takes its name and title from x.
func Copy(x, y *po.Graph, xToY, yToX []int, opts Options) *po.Graph {
	lenX, lenY := x.Len(), y.Len()
	if len(xToY) != lenX || len(yToX) != lenY {
		errors.Fatal("fuse: mapping sizes %d/%d do not match graphs of %d/%d nodes", len(xToY), len(yToX), lenX, lenY)
	}
	for i, j := range xToY {
		if j >= lenY || (j >= 0 && yToX[j] != i) {
			errors.Fatal("fuse: x node %d maps to %d, which does not map back", i, j)
		}
	}

	merge := mergeMask(x, y, yToX, opts.Policy)
	newX, newY, n := reindex(x, y, xToY, merge)

	g := po.New(x.Name, x.Title)
	for i := 0; i < n; i++ {
		g.AddLetter(0)
	}
	seqX := appendSources(g, x)
	seqY := appendSources(g, y)
	copyLetters(g, x, newX, seqX)
	copyLetters(g, y, newY, seqY)

	copyRings(g, x, newX)
	copyRings(g, y, newY)
	for i, j := range xToY {
		if j >= 0 {
			g.Crosslink(newX[i], newY[j])
		}
	}
	return g
}

func appendSources(g, from *po.Graph) []int {
	ids := make([]int, len(from.Sources))
	for k, s := range from.Sources {
		s.SeqToPO, s.POToSeq = nil, nil
		ids[k] = g.AddSource(s)
	}
	return ids
}

func copyLetters(g, from *po.Graph, newIdx, seqIDs []int) {
	for i := range from.Letters {
		old := &from.Letters[i]
		l := &g.Letters[newIdx[i]]
		l.Residue = old.Residue
		po.MergeSources(l, old.Sources, seqIDs)
		for _, p := range old.Left {
			l.AddLeft(newIdx[p])
		}
		for _, r := range old.Right {
			l.AddRight(newIdx[r])
		}
	}
}

func copyRings(g, from *po.Graph, newIdx []int) {
	for i := range from.Letters {
		if next := from.NextOnRing(i); next != i {
			g.Crosslink(newIdx[i], newIdx[next])
		}
	}
}

// reindex assigns every node of x and y an index in the fused graph. Y nodes
// are emitted in order just ahead of the X ring they align to, so both sides
// keep their topological order, and the rest of each Y ring follows
// immediately so rings stay contiguous. A Y node is given its X partner's
// index when merge allows it.
func reindex(x, y *po.Graph, xToY []int, merge []bool) (newX, newY []int, n int) {
	lenX, lenY := x.Len(), y.Len()
	newX = make([]int, lenX)
	newY = make([]int, lenY)
	iy, endOfRing := 0, -1

	for ix := 0; ix < lenX; ix++ {
		ring := x.RingID(ix)
		for ir := ix; ir < lenX && x.RingID(ir) == ring; ir++ {
			if xToY[ir] >= 0 {
				for iy < xToY[ir] {
					newY[iy] = n
					iy++
					n++
				}
				break
			}
		}

		if xToY[ix] >= 0 && iy < lenY {
			endOfRing = max(endOfRing, y.RingMax(iy))
			if merge[iy] && xToY[ix] == iy {
				newY[iy] = n
			} else {
				newY[iy] = n
				n++
			}
			iy++
		}
		newX[ix] = n
		n++

		for iy <= endOfRing && iy < lenY {
			newY[iy] = n
			iy++
			n++
		}
	}
	for iy < lenY {
		newY[iy] = n
		iy++
		n++
	}
	return newX, newY, n
}
