package fuse

import (
	"github.com/matzehuels/poa/pkg/align"
	"github.com/matzehuels/poa/pkg/po"
)

// RingIdentities retargets every aligned Y node whose X partner has a
// different residue to an unaligned member of the partner's ring with the
// same residue, if one exists. The walk follows the ring once. It updates
// both mappings and returns the number of retargeted pairs.
func RingIdentities(x, y *po.Graph, xToY, yToX []int) int {
	n := 0
	for iy, ix := range yToX {
		if ix < 0 {
			continue
		}
		r := y.Letters[iy].Residue
		if x.Letters[ix].Residue == r {
			continue
		}
		for j := x.NextOnRing(ix); j != ix; j = x.NextOnRing(j) {
			if x.Letters[j].Residue == r && xToY[j] == align.Unaligned {
				xToY[ix] = align.Unaligned
				yToX[iy] = j
				xToY[j] = iy
				n++
				break
			}
		}
	}
	return n
}
