package po

import (
	"slices"

	"github.com/matzehuels/poa/pkg/errors"
)

// SourceInfo describes one source sequence threaded through a graph.
type SourceInfo struct {
	Name   string
	Title  string
	Length int
	Start  int

	// Weight is the sequence's vote in heaviest-bundle path finding.
	// Bundling zeroes it once the sequence joins a bundle.
	Weight int

	// Bundle is the bundle id, or NoBundle.
	Bundle int

	// Lookup tables filled by BuildIndex. SeqToPO maps a sequence position to
	// its node (-1 when the position is absent from the graph); POToSeq maps
	// a node to the position of this sequence it holds (-1 when none).
	SeqToPO []int
	POToSeq []int
}

func (s SourceInfo) clone() SourceInfo {
	s.SeqToPO = slices.Clone(s.SeqToPO)
	s.POToSeq = slices.Clone(s.POToSeq)
	return s
}

// BuildIndex rebuilds the SeqToPO and POToSeq tables of every source.
func (g *Graph) BuildIndex() {
	for k := range g.Sources {
		s := &g.Sources[k]
		s.SeqToPO = filled(s.Length, -1)
		s.POToSeq = filled(len(g.Letters), -1)
	}
	for i := range g.Letters {
		for _, src := range g.Letters[i].Sources {
			s := &g.Sources[src.Seq]
			if src.Pos < 0 || src.Pos >= s.Length {
				errors.Fatal("node %d: position %d outside sequence %q of length %d", i, src.Pos, s.Name, s.Length)
			}
			s.SeqToPO[src.Pos] = i
			s.POToSeq[i] = src.Pos
		}
	}
}

// Sequence reconstructs the residues of source seq from the graph, in
// sequence order. Positions missing from the graph (clipped flanks) are
// skipped.
func (g *Graph) Sequence(seq int) []byte {
	s := g.Sources[seq]
	nodes := filled(s.Length, -1)
	for i := range g.Letters {
		for _, src := range g.Letters[i].Sources {
			if src.Seq == seq {
				nodes[src.Pos] = i
			}
		}
	}
	out := make([]byte, 0, s.Length)
	for _, n := range nodes {
		if n >= 0 {
			out = append(out, g.Letters[n].Residue)
		}
	}
	return out
}

// FindSource returns the id of the first source named name, or -1.
func (g *Graph) FindSource(name string) int {
	for i := range g.Sources {
		if g.Sources[i].Name == name {
			return i
		}
	}
	return -1
}

// AddPath threads a new zero-weight source sequence along path, a list of
// node indices in sequence order, and returns its id. Heaviest-bundle
// consensus sequences are recorded this way.
func (g *Graph) AddPath(path []int, name, title string) int {
	seq := g.AddSource(SourceInfo{
		Name:   name,
		Title:  title,
		Length: len(path),
		Weight: 0,
		Bundle: NoBundle,
	})
	for pos, node := range path {
		g.Letters[node].Sources = append(g.Letters[node].Sources, Source{Seq: seq, Pos: pos})
	}
	return seq
}

// ReindexSources moves source i to position perm[i], rewriting the
// provenance of every node. perm must be a permutation of the source ids.
func (g *Graph) ReindexSources(perm []int) {
	n := len(g.Sources)
	if len(perm) != n {
		errors.Fatal("source permutation has %d entries for %d sources", len(perm), n)
	}
	seen := make([]bool, n)
	for i, p := range perm {
		if p < 0 || p >= n || seen[p] {
			errors.Fatal("source permutation is not a permutation: perm[%d] = %d", i, p)
		}
		seen[p] = true
	}

	moved := make([]SourceInfo, n)
	for i, p := range perm {
		moved[p] = g.Sources[i]
	}
	g.Sources = moved
	for i := range g.Letters {
		for k := range g.Letters[i].Sources {
			g.Letters[i].Sources[k].Seq = perm[g.Letters[i].Sources[k].Seq]
		}
	}
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
