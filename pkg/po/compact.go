package po

import "github.com/matzehuels/poa/pkg/errors"

// Compact removes every node i with keep[i] == false and renumbers the
// survivors in their original order. Links to removed nodes are dropped;
// rings are rebuilt from the surviving members. It returns the old-to-new
// index map, with -1 for removed nodes.
//
// Source lookup tables are invalidated; call BuildIndex again if needed.
func (g *Graph) Compact(keep []bool) []int {
	n := len(g.Letters)
	if len(keep) != n {
		errors.Fatal("compact: keep mask has %d entries for %d nodes", len(keep), n)
	}

	oldToNew := make([]int, n)
	m := 0
	for i := range oldToNew {
		if keep[i] {
			oldToNew[i] = m
			m++
		} else {
			oldToNew[i] = -1
		}
	}

	remap := func(node, ref int) (int, bool) {
		if ref < 0 || ref >= n {
			errors.Fatal("compact: node %d links to %d, outside graph of %d nodes", node, ref, n)
		}
		j := oldToNew[ref]
		return j, j >= 0
	}

	letters := make([]Letter, 0, m)
	for i := range g.Letters {
		if !keep[i] {
			continue
		}
		old := g.Letters[i]
		l := Letter{Residue: old.Residue, Sources: old.Sources}
		for _, p := range old.Left {
			if j, ok := remap(i, p); ok {
				l.Left = append(l.Left, j)
			}
		}
		for _, r := range old.Right {
			if j, ok := remap(i, r); ok {
				l.Right = append(l.Right, j)
			}
		}
		letters = append(letters, l)
	}

	// Consecutive survivors of one old ring form one new ring.
	r := newRings(m)
	firstOnRing := make(map[int]int)
	for i := range g.Letters {
		if !keep[i] {
			continue
		}
		id := g.rings.find(i)
		if first, ok := firstOnRing[id]; ok {
			r.union(first, oldToNew[i])
		} else {
			firstOnRing[id] = oldToNew[i]
		}
	}

	g.Letters = letters
	g.rings = r
	for k := range g.Sources {
		g.Sources[k].SeqToPO = nil
		g.Sources[k].POToSeq = nil
	}
	return oldToNew
}

// RemoveSources deletes every source sequence for which drop returns true,
// renumbers the remaining sequence ids, and removes the nodes left without
// provenance. With relink set, adjacency is rebuilt from the remaining
// sequences only; otherwise existing links between surviving nodes are kept.
// It returns the number of sources removed.
func (g *Graph) RemoveSources(drop func(seq int, info *SourceInfo) bool, relink bool) int {
	newSeq := make([]int, len(g.Sources))
	kept := make([]SourceInfo, 0, len(g.Sources))
	for i := range g.Sources {
		if drop(i, &g.Sources[i]) {
			newSeq[i] = -1
			continue
		}
		newSeq[i] = len(kept)
		kept = append(kept, g.Sources[i])
	}
	removed := len(g.Sources) - len(kept)
	if removed == 0 {
		return 0
	}
	g.Sources = kept

	keep := make([]bool, len(g.Letters))
	for i := range g.Letters {
		l := &g.Letters[i]
		srcs := l.Sources[:0]
		for _, s := range l.Sources {
			if newSeq[s.Seq] >= 0 {
				srcs = append(srcs, Source{Seq: newSeq[s.Seq], Pos: s.Pos})
			}
		}
		l.Sources = srcs
		keep[i] = len(srcs) > 0
	}

	if relink {
		for i := range g.Letters {
			g.Letters[i].Left = nil
			g.Letters[i].Right = nil
		}
		g.BuildIndex()
		for k := range g.Sources {
			s := &g.Sources[k]
			for pos := 0; pos+1 < s.Length; pos++ {
				a, b := s.SeqToPO[pos], s.SeqToPO[pos+1]
				if a >= 0 && b >= 0 {
					g.Link(a, b)
				}
			}
		}
	}

	g.Compact(keep)
	return removed
}
