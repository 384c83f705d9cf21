package align

import (
	"slices"
	"testing"
	"unsafe"

	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

func testMatrix(t *testing.T) *score.Matrix {
	t.Helper()
	m, err := score.Simple("ACGT", 5, -4, score.Gap{Open: 10, Extend: 1, Long: 1})
	if err != nil {
		t.Fatalf("Simple() error: %v", err)
	}
	return m
}

// branching builds the graph of ACGT and AGT sharing A, G and T.
func branching() *po.Graph {
	g := po.New("branch", "")
	s1 := g.AddSource(po.SourceInfo{Name: "s1", Length: 4, Weight: 1, Bundle: po.NoBundle})
	s2 := g.AddSource(po.SourceInfo{Name: "s2", Length: 3, Weight: 1, Bundle: po.NoBundle})
	for _, r := range []byte("ACGT") {
		g.AddLetter(r)
	}
	g.Letters[0].Sources = []po.Source{{Seq: s1, Pos: 0}, {Seq: s2, Pos: 0}}
	g.Letters[1].Sources = []po.Source{{Seq: s1, Pos: 1}}
	g.Letters[2].Sources = []po.Source{{Seq: s1, Pos: 2}, {Seq: s2, Pos: 1}}
	g.Letters[3].Sources = []po.Source{{Seq: s1, Pos: 3}, {Seq: s2, Pos: 2}}
	g.Link(0, 1)
	g.Link(1, 2)
	g.Link(0, 2)
	g.Link(2, 3)
	return g
}

func TestAlignGlobalExample(t *testing.T) {
	m := testMatrix(t)
	x := po.FromSequence("x", "", []byte("ACGT"))
	r, err := AlignSequence(x, "y", []byte("ACGG"), m, Options{Mode: Global})
	if err != nil {
		t.Fatalf("AlignSequence() error: %v", err)
	}
	if r.Score != 11 {
		t.Errorf("Score = %d, want 11", r.Score)
	}
	want := []int{0, 1, 2, 3}
	if !slices.Equal(r.XToY, want) {
		t.Errorf("XToY = %v, want %v", r.XToY, want)
	}
	if !slices.Equal(r.YToX, want) {
		t.Errorf("YToX = %v, want %v", r.YToX, want)
	}
	if r.Aligned() != 4 {
		t.Errorf("Aligned() = %d, want 4", r.Aligned())
	}
}

func TestAlignLocal(t *testing.T) {
	m := testMatrix(t)
	x := po.FromSequence("x", "", []byte("TTACGTTT"))
	r, err := AlignSequence(x, "y", []byte("ACG"), m, Options{Mode: Local})
	if err != nil {
		t.Fatalf("AlignSequence() error: %v", err)
	}
	if r.Score != 15 {
		t.Errorf("Score = %d, want 15", r.Score)
	}
	wantX := []int{-1, -1, 0, 1, 2, -1, -1, -1}
	if !slices.Equal(r.XToY, wantX) {
		t.Errorf("XToY = %v, want %v", r.XToY, wantX)
	}
	if !slices.Equal(r.YToX, []int{2, 3, 4}) {
		t.Errorf("YToX = %v, want [2 3 4]", r.YToX)
	}
}

func TestAlignBranching(t *testing.T) {
	m := testMatrix(t)
	r, err := AlignSequence(branching(), "y", []byte("AGT"), m, Options{Mode: Global})
	if err != nil {
		t.Fatalf("AlignSequence() error: %v", err)
	}
	if r.Score != 15 {
		t.Errorf("Score = %d, want 15", r.Score)
	}
	if want := []int{0, -1, 1, 2}; !slices.Equal(r.XToY, want) {
		t.Errorf("XToY = %v, want %v", r.XToY, want)
	}
}

func TestAlignGraphToGraph(t *testing.T) {
	m := testMatrix(t)
	r, err := Align(branching(), branching(), m, Options{Mode: Global})
	if err != nil {
		t.Fatalf("Align() error: %v", err)
	}
	if want := []int{0, 1, 2, 3}; !slices.Equal(r.XToY, want) {
		t.Errorf("XToY = %v, want %v", r.XToY, want)
	}
	if r.Score != 20 {
		t.Errorf("Score = %d, want 20", r.Score)
	}
}

func TestMappingConsistency(t *testing.T) {
	m := testMatrix(t)
	tests := []struct {
		x, y string
	}{
		{"ACGT", "ACGG"},
		{"AAAACCCC", "ACAC"},
		{"GATTACA", "TACAGATT"},
		{"A", "TTTTT"},
		{"CCCCGGGG", "GGGGCCCC"},
	}
	for _, tt := range tests {
		for _, mode := range []Mode{Global, Local} {
			x := po.FromSequence("x", "", []byte(tt.x))
			r, err := AlignSequence(x, "y", []byte(tt.y), m, Options{Mode: mode})
			if err != nil {
				t.Fatalf("AlignSequence(%s, %s, %v) error: %v", tt.x, tt.y, mode, err)
			}
			for i, j := range r.XToY {
				if j != Unaligned && r.YToX[j] != i {
					t.Errorf("%s/%s %v: XToY[%d] = %d but YToX[%d] = %d", tt.x, tt.y, mode, i, j, j, r.YToX[j])
				}
			}
			for j, i := range r.YToX {
				if i != Unaligned && r.XToY[i] != j {
					t.Errorf("%s/%s %v: YToX[%d] = %d but XToY[%d] = %d", tt.x, tt.y, mode, j, i, i, r.XToY[i])
				}
			}
		}
	}
}

func TestGlobalNotAboveLocal(t *testing.T) {
	m := testMatrix(t)
	pairs := [][2]string{
		{"ACGT", "ACGG"},
		{"TTTTACGTTTT", "ACGT"},
		{"GGGG", "CCCC"},
		{"ACGTACGT", "TGCA"},
	}
	for _, p := range pairs {
		x := po.FromSequence("x", "", []byte(p[0]))
		g, err := AlignSequence(x, "y", []byte(p[1]), m, Options{Mode: Global})
		if err != nil {
			t.Fatal(err)
		}
		l, err := AlignSequence(x, "y", []byte(p[1]), m, Options{Mode: Local})
		if err != nil {
			t.Fatal(err)
		}
		if g.Score > l.Score {
			t.Errorf("%s vs %s: global %d > local %d", p[0], p[1], g.Score, l.Score)
		}
	}
}

func TestAlignDoesNotModifyInputs(t *testing.T) {
	m := testMatrix(t)
	x := branching()
	before := x.Clone()
	if _, err := AlignSequence(x, "y", []byte("ACT"), m, Options{}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(x.Residues(), before.Residues()) || x.EdgeCount() != before.EdgeCount() {
		t.Error("Align() modified its input graph")
	}
}

func TestRowPoolPeak(t *testing.T) {
	m := testMatrix(t)
	x := po.FromSequence("x", "", []byte("ACGTACGT"))
	r, err := AlignSequence(x, "y", []byte("ACGTTGCA"), m, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Stats.PeakRows != 2 {
		t.Errorf("PeakRows = %d, want 2 for a linear sequence", r.Stats.PeakRows)
	}
	if r.Stats.NodesX != 8 || r.Stats.EdgesX != 7 {
		t.Errorf("Stats = %+v", r.Stats)
	}
}

func TestBudget(t *testing.T) {
	m := testMatrix(t)
	x := po.FromSequence("x", "", []byte("ACGT"))

	_, err := AlignSequence(x, "y", []byte("ACGT"), m, Options{MaxAlloc: 10})
	if !errors.Is(err, errors.ErrCodeBudget) {
		t.Errorf("AlignSequence() error = %v, want %v", err, errors.ErrCodeBudget)
	}
	if _, err := AlignSequence(x, "y", []byte("ACGT"), m, Options{MaxAlloc: -1}); err != nil {
		t.Errorf("AlignSequence() with disabled ceiling error: %v", err)
	}
}

func TestEstimate(t *testing.T) {
	moveSize, cellSize := int64(unsafe.Sizeof(move{})), int64(unsafe.Sizeof(cell{}))
	tests := []struct {
		lenX, lenY int
		want       int64
	}{
		{4, 5, 20*moveSize + estimateRows*5*cellSize + 4*letterBytes},
		{1, 1, moveSize + estimateRows*2*cellSize + letterBytes},
		{1000, 2000, 2_000_000*moveSize + estimateRows*1001*cellSize + 1000*letterBytes},
	}
	for _, tt := range tests {
		if got := Estimate(tt.lenX, tt.lenY); got != tt.want {
			t.Errorf("Estimate(%d, %d) = %d, want %d", tt.lenX, tt.lenY, got, tt.want)
		}
	}
	// The move table is charged at its real element size, not one byte.
	if got, floor := Estimate(1000, 2000), int64(2_000_000)*moveSize; got < floor {
		t.Errorf("Estimate(1000, 2000) = %d, want at least %d", got, floor)
	}
}

func TestAlignErrors(t *testing.T) {
	m := testMatrix(t)
	x := po.FromSequence("x", "", []byte("ACGT"))

	if _, err := AlignSequence(x, "y", nil, m, Options{}); !errors.Is(err, errors.ErrCodeEmptyInput) {
		t.Errorf("empty y: error = %v, want %v", err, errors.ErrCodeEmptyInput)
	}
	bad := &score.Matrix{Symbols: []byte("AC"), Scores: [][]int{{1}}, Truncation: 1}
	if _, err := AlignSequence(x, "y", []byte("A"), bad, Options{}); !errors.Is(err, errors.ErrCodeInvalidMatrix) {
		t.Errorf("bad matrix: error = %v, want %v", err, errors.ErrCodeInvalidMatrix)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"global", Global, false},
		{"LOCAL", Local, false},
		{"semi", Local, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
