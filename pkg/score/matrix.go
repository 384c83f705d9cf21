package score

import (
	"fmt"
	"io"
	"slices"

	"github.com/matzehuels/poa/pkg/errors"
)

// Default gap parameters.
const (
	DefaultGapOpen    = 12
	DefaultGapExtend  = 2
	DefaultGapLong    = 0
	DefaultTruncation = 16
	DefaultDecay      = 0
	maxSymbols        = 128
)

// Gap holds the three gap parameters of one axis.
type Gap struct {
	Open   int // cost of the first gap position
	Extend int // cost of each following position up to the truncation length
	Long   int // cost of each position past truncation plus decay
}

// Matrix is a substitution matrix with its gap schedule. Call [Matrix.Build]
// after changing any exported field; the parsers and constructors in this
// package return built matrices.
type Matrix struct {
	Symbols []byte
	Scores  [][]int

	GapX       Gap
	GapY       Gap
	Truncation int
	Decay      int

	index [256]int
	table []int
	gapX  []int
	gapY  []int
	built bool
}

// New returns a built matrix with the default gap parameters.
func New(symbols []byte, scores [][]int) (*Matrix, error) {
	m := &Matrix{
		Symbols:    slices.Clone(symbols),
		Scores:     scores,
		GapX:       Gap{DefaultGapOpen, DefaultGapExtend, DefaultGapLong},
		GapY:       Gap{DefaultGapOpen, DefaultGapExtend, DefaultGapLong},
		Truncation: DefaultTruncation,
		Decay:      DefaultDecay,
	}
	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}

// Simple returns a matrix over symbols that scores match on the diagonal and
// mismatch elsewhere, with gap applied to both axes.
func Simple(symbols string, match, mismatch int, gap Gap) (*Matrix, error) {
	n := len(symbols)
	scores := make([][]int, n)
	for i := range scores {
		scores[i] = make([]int, n)
		for j := range scores[i] {
			if i == j {
				scores[i][j] = match
			} else {
				scores[i][j] = mismatch
			}
		}
	}
	m, err := New([]byte(symbols), scores)
	if err != nil {
		return nil, err
	}
	m.GapX, m.GapY = gap, gap
	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate rejects matrices the aligner cannot index safely.
func (m *Matrix) Validate() error {
	n := len(m.Symbols)
	if n == 0 {
		return errors.New(errors.ErrCodeInvalidMatrix, "matrix has no symbols")
	}
	if n > maxSymbols {
		return errors.New(errors.ErrCodeInvalidMatrix, "matrix has %d symbols, limit is %d", n, maxSymbols)
	}
	seen := make(map[byte]bool, n)
	for _, c := range m.Symbols {
		if seen[c] {
			return errors.New(errors.ErrCodeInvalidMatrix, "symbol %q listed twice", c)
		}
		seen[c] = true
	}
	if len(m.Scores) != n {
		return errors.New(errors.ErrCodeInvalidMatrix, "matrix has %d rows for %d symbols", len(m.Scores), n)
	}
	for i, row := range m.Scores {
		if len(row) != n {
			return errors.New(errors.ErrCodeInvalidMatrix, "row %q has %d scores for %d symbols", m.Symbols[i], len(row), n)
		}
	}
	if m.Truncation < 1 {
		return errors.New(errors.ErrCodeInvalidMatrix, "gap truncation length must be at least 1, got %d", m.Truncation)
	}
	if m.Decay < 0 {
		return errors.New(errors.ErrCodeInvalidMatrix, "gap decay length must not be negative, got %d", m.Decay)
	}
	return nil
}

// Build validates the matrix and derives the residue lookup table and the
// gap schedules.
func (m *Matrix) Build() error {
	if err := m.Validate(); err != nil {
		return err
	}
	last := len(m.Symbols) - 1
	for i := range m.index {
		m.index[i] = last
	}
	for i, c := range m.Symbols {
		m.index[c] = i
	}

	m.table = make([]int, 256*256)
	for a := 0; a < 256; a++ {
		row := m.Scores[m.index[a]]
		for b := 0; b < 256; b++ {
			m.table[a<<8|b] = row[m.index[b]]
		}
	}

	m.gapX = schedule(m.GapX, m.Truncation, m.Decay)
	m.gapY = schedule(m.GapY, m.Truncation, m.Decay)
	m.built = true
	return nil
}

func schedule(g Gap, trunc, decay int) []int {
	maxGap := trunc + decay
	pen := make([]int, maxGap+2)
	pen[0] = g.Open
	for i := 1; i < trunc; i++ {
		pen[i] = g.Extend
	}
	step := float64(g.Extend-g.Long) / float64(decay+1)
	for i := 0; i < decay; i++ {
		pen[trunc+i] = int(float64(g.Extend) - float64(i+1)*step)
	}
	pen[maxGap] = g.Long
	pen[maxGap+1] = 0
	return pen
}

// Built reports whether Build has succeeded since the last construction.
func (m *Matrix) Built() bool { return m != nil && m.built }

// Score returns the substitution score of residues a and b. Residues outside
// the alphabet score as the last symbol.
func (m *Matrix) Score(a, b byte) int {
	return m.table[int(a)<<8|int(b)]
}

// Index returns the alphabet position of residue c, or the last position when
// c is not in the alphabet.
func (m *Matrix) Index(c byte) int { return m.index[c] }

// Has reports whether c is in the alphabet.
func (m *Matrix) Has(c byte) bool { return slices.Contains(m.Symbols, c) }

// MaxGap returns the index of the long-gap state in the gap schedules.
func (m *Matrix) MaxGap() int { return m.Truncation + m.Decay }

// GapPenaltiesX returns a copy of the X-axis gap schedule.
func (m *Matrix) GapPenaltiesX() []int { return slices.Clone(m.gapX) }

// GapPenaltiesY returns a copy of the Y-axis gap schedule.
func (m *Matrix) GapPenaltiesY() []int { return slices.Clone(m.gapY) }

// Limit replaces every residue of seq missing from the alphabet with the
// first symbol and returns the number of replacements.
func (m *Matrix) Limit(seq []byte) int {
	n := 0
	for i, c := range seq {
		if !m.Has(c) {
			seq[i] = m.Symbols[0]
			n++
		}
	}
	return n
}

// Print writes the scores of the symbols in subset as a square table. An
// empty subset prints the whole alphabet.
func (m *Matrix) Print(w io.Writer, subset []byte) error {
	if len(subset) == 0 {
		subset = m.Symbols
	}
	idx := make([]int, len(subset))
	for k, c := range subset {
		i := slices.Index(m.Symbols, c)
		if i < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "symbol %q is not in the matrix", c)
		}
		idx[k] = i
	}
	if _, err := fmt.Fprint(w, " "); err != nil {
		return err
	}
	for _, c := range subset {
		fmt.Fprintf(w, "  %c", c)
	}
	fmt.Fprintln(w)
	for k, c := range subset {
		fmt.Fprintf(w, "%c", c)
		for _, i := range idx {
			fmt.Fprintf(w, "%3d", m.Scores[idx[k]][i])
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
