package buildup

import (
	"github.com/matzehuels/poa/pkg/align"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/fuse"
	"github.com/matzehuels/poa/pkg/po"
)

// Row is one sequence of a row-column alignment. Aligned holds residues
// and gap characters ('.' or '-'), one byte per column.
type Row struct {
	Name    string
	Title   string
	Aligned []byte
}

// CaseMode selects how FromRows changes the case of residues.
type CaseMode int

const (
	CaseKeep CaseMode = iota
	CaseLower
	CaseUpper
)

// ParseCaseMode parses "", "keep", "lower" or "upper".
func ParseCaseMode(s string) (CaseMode, error) {
	switch s {
	case "", "keep":
		return CaseKeep, nil
	case "lower":
		return CaseLower, nil
	case "upper":
		return CaseUpper, nil
	}
	return CaseKeep, errors.New(errors.ErrCodeInvalidInput, "invalid case mode: %q (must be one of: keep, lower, upper)", s)
}

// Apply changes the case of one ASCII residue.
func (c CaseMode) Apply(ch byte) byte {
	switch c {
	case CaseLower:
		if ch >= 'A' && ch <= 'Z' {
			return ch + 'a' - 'A'
		}
	case CaseUpper:
		if ch >= 'a' && ch <= 'z' {
			return ch - 'a' + 'A'
		}
	}
	return ch
}

// FromRows builds a PO graph from aligned rows. Residues sharing a column
// end up on one ring; identical residues in a column share one node.
//
// A temporary consensus row holding the first residue of every column
// anchors the columns: each row is mapped onto it, mismatches are moved to
// an identical ring member where one exists, and the row is fused in. The
// consensus is removed at the end and the links are rebuilt from the real
// rows. The graph takes its name and title from the first row.
func FromRows(rows []Row, mode CaseMode) (*po.Graph, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "alignment has no rows")
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r.Aligned))
	}

	consensus := make([]byte, 0, width)
	resAt := make([]int, width) // consensus position of each column, or -1
	for col := 0; col < width; col++ {
		resAt[col] = -1
		for _, r := range rows {
			if col < len(r.Aligned) && errors.IsResidue(r.Aligned[col]) {
				resAt[col] = len(consensus)
				consensus = append(consensus, mode.Apply(r.Aligned[col]))
				break
			}
		}
	}

	g := po.FromSequence("consens_row", "", consensus)
	for _, r := range rows {
		residues := make([]byte, 0, len(r.Aligned))
		cols := make([]int, 0, len(r.Aligned))
		for col, ch := range r.Aligned {
			if errors.IsResidue(ch) {
				residues = append(residues, mode.Apply(ch))
				cols = append(cols, col)
			}
		}
		y := po.FromSequence(r.Name, r.Title, residues)

		g.BuildIndex()
		anchor := g.Sources[0].SeqToPO
		xToY := filledInts(g.Len(), align.Unaligned)
		yToX := filledInts(y.Len(), align.Unaligned)
		for j, col := range cols {
			node := anchor[resAt[col]]
			if xToY[node] != align.Unaligned {
				errors.Fatal("row %q: column %d anchored twice", r.Name, col+1)
			}
			yToX[j] = node
			xToY[node] = j
		}

		fuse.RingIdentities(g, y, xToY, yToX)
		fuse.Fuse(g, y, xToY, yToX, fuse.Options{})
	}

	g.RemoveSources(func(seq int, _ *po.SourceInfo) bool { return seq == 0 }, true)
	g.Name = g.Sources[0].Name
	g.Title = g.Sources[0].Title
	return g, nil
}

func filledInts(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
