package po

import (
	"errors"
	"slices"
)

// NoBundle marks a source sequence that has not been assigned to a bundle.
const NoBundle = -1

var (
	// ErrNotTopological is returned by [Graph.Validate] when a left link
	// points forward in index order.
	ErrNotTopological = errors.New("left link does not point to an earlier node")

	// ErrAsymmetricLink is returned by [Graph.Validate] when a left link has
	// no matching right link or vice versa.
	ErrAsymmetricLink = errors.New("left and right links disagree")

	// ErrLinkOutOfRange is returned by [Graph.Validate] when a link refers to
	// a node index outside the graph.
	ErrLinkOutOfRange = errors.New("link refers to a node outside the graph")

	// ErrSourceOutOfRange is returned by [Graph.Validate] when a node carries
	// provenance for an unknown sequence or an impossible position.
	ErrSourceOutOfRange = errors.New("provenance refers to an unknown sequence position")

	// ErrBrokenRing is returned by [Graph.Validate] when the ring successor
	// list and the ring ids disagree.
	ErrBrokenRing = errors.New("alignment ring is inconsistent")
)

// Source is one provenance entry: position Pos of source sequence Seq.
type Source struct {
	Seq int
	Pos int
}

// Letter is one node of a PO graph.
type Letter struct {
	Residue byte
	Left    []int
	Right   []int
	Sources []Source
}

// AddLeft inserts a predecessor link unless it is already present.
// It reports whether the link was added.
func (l *Letter) AddLeft(i int) bool {
	if slices.Contains(l.Left, i) {
		return false
	}
	l.Left = append(l.Left, i)
	return true
}

// AddRight inserts a successor link unless it is already present.
// It reports whether the link was added.
func (l *Letter) AddRight(i int) bool {
	if slices.Contains(l.Right, i) {
		return false
	}
	l.Right = append(l.Right, i)
	return true
}

// HasSource reports whether the node carries provenance for sequence seq.
func (l *Letter) HasSource(seq int) bool {
	for _, s := range l.Sources {
		if s.Seq == seq {
			return true
		}
	}
	return false
}

// MergeSources appends src to dst with every sequence id translated through
// remap. A nil remap keeps ids unchanged.
func MergeSources(dst *Letter, src []Source, remap []int) {
	for _, s := range src {
		if remap != nil {
			s.Seq = remap[s.Seq]
		}
		dst.Sources = append(dst.Sources, s)
	}
}

// Graph is a partial-order alignment graph.
//
// The zero value is an empty graph ready to use. RingID and RingMembers
// compress union-find paths as a side effect, so a Graph must not be read
// from several goroutines while fusion or ring queries are running.
type Graph struct {
	Name    string
	Title   string
	Letters []Letter
	Sources []SourceInfo

	rings rings
}

// New creates an empty graph.
func New(name, title string) *Graph {
	return &Graph{Name: name, Title: title}
}

// FromSequence builds a linear graph from one sequence: one node per
// residue, each on its own ring, linked left to right, with a single source
// entry of weight 1.
func FromSequence(name, title string, residues []byte) *Graph {
	g := New(name, title)
	seq := g.AddSource(SourceInfo{
		Name:   name,
		Title:  title,
		Length: len(residues),
		Weight: 1,
		Bundle: NoBundle,
	})
	g.Letters = make([]Letter, 0, len(residues))
	for i, r := range residues {
		n := g.AddLetter(r)
		g.Letters[n].Sources = []Source{{Seq: seq, Pos: i}}
		if i > 0 {
			g.Link(n-1, n)
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Letters) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for i := range g.Letters {
		n += len(g.Letters[i].Right)
	}
	return n
}

// AddLetter appends a node on a ring of its own and returns its index.
func (g *Graph) AddLetter(residue byte) int {
	g.Letters = append(g.Letters, Letter{Residue: residue})
	g.rings.grow()
	return len(g.Letters) - 1
}

// Link records the adjacency from -> to on both endpoints.
func (g *Graph) Link(from, to int) {
	g.Letters[from].AddRight(to)
	g.Letters[to].AddLeft(from)
}

// AddSource appends a source entry and returns its sequence id.
func (g *Graph) AddSource(info SourceInfo) int {
	g.Sources = append(g.Sources, info)
	return len(g.Sources) - 1
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Name:    g.Name,
		Title:   g.Title,
		Letters: make([]Letter, len(g.Letters)),
		Sources: make([]SourceInfo, len(g.Sources)),
		rings:   g.rings.clone(),
	}
	for i, l := range g.Letters {
		c.Letters[i] = Letter{
			Residue: l.Residue,
			Left:    slices.Clone(l.Left),
			Right:   slices.Clone(l.Right),
			Sources: slices.Clone(l.Sources),
		}
	}
	for i, s := range g.Sources {
		c.Sources[i] = s.clone()
	}
	return c
}

// Residues returns the residue of every node in index order.
func (g *Graph) Residues() []byte {
	out := make([]byte, len(g.Letters))
	for i := range g.Letters {
		out[i] = g.Letters[i].Residue
	}
	return out
}

// Validate checks the structural invariants of the graph: topological
// order, symmetric links, provenance ranges and ring consistency.
func (g *Graph) Validate() error {
	n := len(g.Letters)
	for i := range g.Letters {
		l := &g.Letters[i]
		for _, p := range l.Left {
			if p < 0 || p >= n {
				return ErrLinkOutOfRange
			}
			if p >= i {
				return ErrNotTopological
			}
			if !slices.Contains(g.Letters[p].Right, i) {
				return ErrAsymmetricLink
			}
		}
		for _, r := range l.Right {
			if r < 0 || r >= n {
				return ErrLinkOutOfRange
			}
			if !slices.Contains(g.Letters[r].Left, i) {
				return ErrAsymmetricLink
			}
		}
		for _, s := range l.Sources {
			if s.Seq < 0 || s.Seq >= len(g.Sources) || s.Pos < 0 || s.Pos >= g.Sources[s.Seq].Length {
				return ErrSourceOutOfRange
			}
		}
	}
	if len(g.rings.parent) != n {
		return ErrBrokenRing
	}
	for i := 0; i < n; i++ {
		id := g.RingID(i)
		if id > i {
			return ErrBrokenRing
		}
		if g.RingID(g.rings.next[i]) != id {
			return ErrBrokenRing
		}
	}
	return nil
}
