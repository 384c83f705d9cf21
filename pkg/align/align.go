package align

import (
	"strings"
	"unsafe"

	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

// Unaligned marks a position with no counterpart in the other graph.
const Unaligned = -1

// DefaultMaxAlloc is the allocation ceiling used when Options.MaxAlloc is 0.
const DefaultMaxAlloc int64 = 300_000_000

// letterBytes approximates the per-node bookkeeping cost counted by Estimate.
const letterBytes = 64

// estimateRows is the number of score rows Estimate charges for: the start
// row plus the two rows a linear chain of Y nodes keeps live.
const estimateRows = 3

// minScore is the score of an unreachable cell.
const minScore = -999999

// Mode selects global or local alignment.
type Mode int

const (
	// Local alignment may start and end anywhere.
	Local Mode = iota
	// Global alignment spans both graphs from a start to a final node.
	Global
)

func (m Mode) String() string {
	if m == Global {
		return "global"
	}
	return "local"
}

// ParseMode parses "global" or "local", ignoring case.
func ParseMode(s string) (Mode, error) {
	if err := errors.ValidateMode(s); err != nil {
		return Local, err
	}
	if strings.EqualFold(s, "global") {
		return Global, nil
	}
	return Local, nil
}

// Options configures an alignment.
type Options struct {
	Mode Mode

	// MaxAlloc is the byte ceiling checked against Estimate before the DP
	// starts. Zero selects DefaultMaxAlloc; a negative value disables the
	// check.
	MaxAlloc int64
}

func (o Options) ceiling() int64 {
	if o.MaxAlloc == 0 {
		return DefaultMaxAlloc
	}
	return o.MaxAlloc
}

// Result is the outcome of one alignment.
type Result struct {
	// Score is the best alignment score, or minScore when no admissible end
	// cell exists.
	Score int

	// XToY maps each X node to its aligned Y node, YToX the reverse. Both
	// use Unaligned for positions outside the alignment.
	XToY []int
	YToX []int

	Stats Stats
}

// Stats describes the work done by one alignment.
type Stats struct {
	NodesX   int
	NodesY   int
	EdgesX   int
	EdgesY   int
	PeakRows int // most score rows live at once, excluding the start row
}

// Aligned returns the number of aligned pairs.
func (r *Result) Aligned() int {
	n := 0
	for _, y := range r.XToY {
		if y != Unaligned {
			n++
		}
	}
	return n
}

// Estimate returns the byte estimate for aligning graphs of lenX and lenY
// nodes: the dense move table, a few score rows of lenX+1 cells and the
// per-node bookkeeping.
func Estimate(lenX, lenY int) int64 {
	x, y := int64(lenX), int64(lenY)
	moves := x * y * int64(unsafe.Sizeof(move{}))
	rows := estimateRows * (x + 1) * int64(unsafe.Sizeof(cell{}))
	return moves + rows + letterBytes*x
}

// CheckBudget returns an ErrCodeBudget error when aligning graphs of lenX and
// lenY nodes would exceed the ceiling in opts.
func CheckBudget(lenX, lenY int, opts Options) error {
	ceiling := opts.ceiling()
	if ceiling < 0 {
		return nil
	}
	if est := Estimate(lenX, lenY); est > ceiling {
		return errors.New(errors.ErrCodeBudget,
			"aligning %d x %d nodes needs about %d bytes, ceiling is %d", lenX, lenY, est, ceiling)
	}
	return nil
}

// AlignSequence aligns graph x against one linear sequence.
func AlignSequence(x *po.Graph, name string, residues []byte, m *score.Matrix, opts Options) (*Result, error) {
	return Align(x, po.FromSequence(name, "", residues), m, opts)
}

// Align computes the best alignment of y against x. Neither graph is
// modified.
func Align(x, y *po.Graph, m *score.Matrix, opts Options) (*Result, error) {
	if !m.Built() {
		if m == nil {
			return nil, errors.New(errors.ErrCodeInvalidMatrix, "no scoring matrix")
		}
		if err := m.Build(); err != nil {
			return nil, err
		}
	}
	if x.Len() == 0 || y.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "cannot align empty graph (%d x %d nodes)", x.Len(), y.Len())
	}
	if err := CheckBudget(x.Len(), y.Len(), opts); err != nil {
		return nil, err
	}

	d := newDP(x, y, m, opts.Mode)
	d.fill()
	return d.traceback(), nil
}
