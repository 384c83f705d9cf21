package fuse

import "github.com/matzehuels/poa/pkg/po"

// identities marks the Y nodes aligned to an X node of the same residue.
func identities(x, y *po.Graph, yToX []int) []bool {
	same := make([]bool, y.Len())
	for iy, ix := range yToX {
		same[iy] = ix >= 0 && x.Letters[ix].Residue == y.Letters[iy].Residue
	}
	return same
}

func mergeMask(x, y *po.Graph, yToX []int, p Policy) []bool {
	same := identities(x, y, yToX)
	if p == PolicySegments {
		return segments(same)
	}
	return same
}

// segments keeps the identities of qualifying segments only. A segment
// runs from an identity to the last identity before FissionBreak
// consecutive non-identical positions; it qualifies with at least
// MinimumFusion identities covering FusionFraction of its span.
func segments(same []bool) []bool {
	out := make([]bool, len(same))
	start, last, count, run := -1, -1, 0, 0

	flush := func() {
		if start >= 0 && count >= MinimumFusion && float64(count) >= FusionFraction*float64(last-start+1) {
			for i := start; i <= last; i++ {
				out[i] = same[i]
			}
		}
		start, count = -1, 0
	}

	for i, ok := range same {
		if ok {
			if start < 0 {
				start = i
			}
			last = i
			count++
			run = 0
			continue
		}
		run++
		if run >= FissionBreak {
			flush()
		}
	}
	flush()
	return out
}
