package buildup

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/poa/pkg/align"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	m, err := score.Simple("ACGT", 5, -4, score.Gap{Open: 10, Extend: 1, Long: 1})
	if err != nil {
		t.Fatalf("Simple() error: %v", err)
	}
	return NewBuilder(m, log.New(io.Discard))
}

func sequences(names []string, residues ...string) []*po.Graph {
	out := make([]*po.Graph, len(residues))
	for i, r := range residues {
		out[i] = po.FromSequence(names[i], "", []byte(r))
	}
	return out
}

func sourceNames(g *po.Graph) []string {
	names := make([]string, len(g.Sources))
	for i := range g.Sources {
		names[i] = g.Sources[i].Name
	}
	return names
}

const tenmer = "ACGTACGTAC"

func identical(n int) []*po.Graph {
	names := []string{"s0", "s1", "s2", "s3", "s4", "s5"}[:n]
	seqs := make([]string, n)
	for i := range seqs {
		seqs[i] = tenmer
	}
	return sequences(names, seqs...)
}

func TestBuildTrivialInputs(t *testing.T) {
	b := testBuilder(t)
	ctx := context.Background()

	if g, err := b.Iterative(ctx, nil); g != nil || err != nil {
		t.Errorf("Iterative(nil) = %v, %v, want nil, nil", g, err)
	}
	if g, err := b.Progressive(ctx, nil, nil); g != nil || err != nil {
		t.Errorf("Progressive(nil) = %v, %v, want nil, nil", g, err)
	}
	one := identical(1)
	if g, err := b.Progressive(ctx, one, nil); err != nil || g != one[0] {
		t.Errorf("Progressive(one) should return the input unchanged")
	}
	if g, _, err := b.Clipped(ctx, one); err != nil || g != one[0] {
		t.Errorf("Clipped(one) should return the input unchanged")
	}
}

func TestIterativeIdentical(t *testing.T) {
	b := testBuilder(t)
	b.Mode = align.Global
	g, err := b.Iterative(context.Background(), identical(4))
	if err != nil {
		t.Fatalf("Iterative() error: %v", err)
	}
	if g.Len() != len(tenmer) {
		t.Errorf("Len() = %d, want %d", g.Len(), len(tenmer))
	}
	if len(g.Sources) != 4 {
		t.Errorf("sources = %d, want 4", len(g.Sources))
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	for s := range g.Sources {
		if got := string(g.Sequence(s)); got != tenmer {
			t.Errorf("Sequence(%d) = %q, want %q", s, got, tenmer)
		}
	}
}

func TestIterativeSkipsOverBudget(t *testing.T) {
	b := testBuilder(t)
	b.MaxAlloc = 50
	in := identical(3)
	g, err := b.Iterative(context.Background(), in)
	if err != nil {
		t.Fatalf("Iterative() error: %v", err)
	}
	if len(g.Sources) != 1 {
		t.Errorf("sources = %d, want 1 (every step over budget)", len(g.Sources))
	}
	if in[1].Len() != len(tenmer) {
		t.Error("skipped input should not be consumed")
	}
}

func TestIterativeCancelled(t *testing.T) {
	b := testBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Iterative(ctx, identical(3)); err != context.Canceled {
		t.Errorf("Iterative() error = %v, want context.Canceled", err)
	}
}

func TestProgressiveWithoutScores(t *testing.T) {
	b := testBuilder(t)
	g, err := b.Progressive(context.Background(), identical(4), nil)
	if err != nil {
		t.Fatalf("Progressive() error: %v", err)
	}
	if g.Len() != len(tenmer) {
		t.Errorf("Len() = %d, want %d", g.Len(), len(tenmer))
	}
	want := []string{"s0", "s1", "s2", "s3"}
	if got := sourceNames(g); !slices.Equal(got, want) {
		t.Errorf("sources = %v, want %v", got, want)
	}
}

func TestProgressiveOrder(t *testing.T) {
	scores := []PairScore{{I: 0, J: 3, Score: 10}}

	b := testBuilder(t)
	g, err := b.Progressive(context.Background(), identical(4), scores)
	if err != nil {
		t.Fatalf("Progressive() error: %v", err)
	}
	want := []string{"s0", "s3", "s1", "s2"}
	if got := sourceNames(g); !slices.Equal(got, want) {
		t.Errorf("merge order sources = %v, want %v", got, want)
	}

	b.PreserveOrder = true
	g, err = b.Progressive(context.Background(), identical(4), scores)
	if err != nil {
		t.Fatalf("Progressive() error: %v", err)
	}
	want = []string{"s0", "s1", "s2", "s3"}
	if got := sourceNames(g); !slices.Equal(got, want) {
		t.Errorf("preserved sources = %v, want %v", got, want)
	}
	for s := range g.Sources {
		if got := string(g.Sequence(s)); got != tenmer {
			t.Errorf("Sequence(%d) = %q after reindex, want %q", s, got, tenmer)
		}
	}
}

func TestProgressiveBudgetIsFatal(t *testing.T) {
	b := testBuilder(t)
	b.MaxAlloc = 50
	_, err := b.Progressive(context.Background(), identical(3), nil)
	if !errors.Is(err, errors.ErrCodeBudget) {
		t.Errorf("Progressive() error = %v, want %s", err, errors.ErrCodeBudget)
	}
}

func TestProgressiveRejectsBadPair(t *testing.T) {
	b := testBuilder(t)
	_, err := b.Progressive(context.Background(), identical(2), []PairScore{{I: 5, J: 0}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Progressive() error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestSchedule(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		scores []PairScore
		want   []PairScore
	}{
		{
			name: "fallback only",
			n:    3,
			want: []PairScore{{1, 0, -1}, {2, 1, -1}},
		},
		{
			name:   "swapped and padded",
			n:      3,
			scores: []PairScore{{0, 2, 5}, {1, 0, -3}},
			want:   []PairScore{{2, 0, 5}, {1, 0, -3}, {2, 1, -4}},
		},
		{
			name:   "ties by index",
			n:      3,
			scores: []PairScore{{2, 1, 1}, {2, 0, 1}, {1, 0, 1}},
			want:   []PairScore{{1, 0, 1}, {2, 0, 1}, {2, 1, 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schedule(tt.n, tt.scores); !slices.Equal(got, tt.want) {
				t.Errorf("schedule() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClipped(t *testing.T) {
	b := testBuilder(t)
	in := sequences([]string{"x", "y1", "y2"}, "ACGACGACGA", "GGGGACGACGACGAGGGG", "TTTT")
	g, reports, err := b.Clipped(context.Background(), in)
	if err != nil {
		t.Fatalf("Clipped() error: %v", err)
	}
	if g.Len() != 10 {
		t.Errorf("Len() = %d, want 10", g.Len())
	}
	if len(g.Sources) != 2 {
		t.Errorf("sources = %d, want 2 (no-identity input skipped)", len(g.Sources))
	}
	if in[1].Len() != 18 {
		t.Errorf("input Len() = %d after clipping, want 18", in[1].Len())
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	if r := reports[0]; r.Identities != 10 || r.MatchLength != 10 {
		t.Errorf("report[0] = %d/%d, want 10/10", r.Identities, r.MatchLength)
	}
	if got, want := reports[0].String(), "x\tmaximum identity\t100.0%\t10/10"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if reports[1].Identities != 0 {
		t.Errorf("report[1].Identities = %d, want 0", reports[1].Identities)
	}
}

func TestIdentityReportEmpty(t *testing.T) {
	var r IdentityReport
	if r.Identity() != 0 {
		t.Errorf("Identity() = %v, want 0", r.Identity())
	}
}

func TestReadScores(t *testing.T) {
	graphs := sequences([]string{"a", "b", "c"}, "AC", "AG", "AT")
	graphs[2].AddSource(po.SourceInfo{Name: "inner", Bundle: po.NoBundle})

	got, err := ReadScores(strings.NewReader("a b 1.5\n inner   a 3\n"), graphs)
	if err != nil {
		t.Fatalf("ReadScores() error: %v", err)
	}
	want := []PairScore{{0, 1, 1.5}, {2, 0, 3}}
	if !slices.Equal(got, want) {
		t.Errorf("ReadScores() = %v, want %v", got, want)
	}

	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"unknown name", "a zz 1", errors.ErrCodeInvalidInput},
		{"bad score", "a b high", errors.ErrCodeInvalidFormat},
		{"incomplete", "a b 1 c", errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadScores(strings.NewReader(tt.input), graphs)
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadScores(%q) error = %v, want %s", tt.input, err, tt.code)
			}
		})
	}
}

func TestReadScoresEmpty(t *testing.T) {
	graphs := sequences([]string{"a", "b"}, "AC", "AG")
	for _, in := range []string{"", "  \n\t\n"} {
		got, err := ReadScores(strings.NewReader(in), graphs)
		if err != nil {
			t.Fatalf("ReadScores(%q) error: %v", in, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("ReadScores(%q) = %#v, want empty non-nil slice", in, got)
		}
	}
}

// memCache is an in-memory cache.Cache counting hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func TestPairScores(t *testing.T) {
	b := testBuilder(t)
	b.Concurrency = 2
	mc := &memCache{data: map[string][]byte{}}
	b.Cache = mc

	graphs := sequences([]string{"a", "b", "c", "d"}, "ACGTACGT", "ACGTACGA", "TTTTGGGG", "CCGTAC")
	got, err := b.PairScores(context.Background(), graphs)
	if err != nil {
		t.Fatalf("PairScores() error: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("PairScores() returned %d pairs, want 6", len(got))
	}
	k := 0
	for i := 1; i < len(graphs); i++ {
		for j := 0; j < i; j++ {
			res, err := align.Align(graphs[i], graphs[j], b.Matrix, align.Options{Mode: align.Local})
			if err != nil {
				t.Fatal(err)
			}
			want := PairScore{I: i, J: j, Score: float64(res.Score)}
			if got[k] != want {
				t.Errorf("pair %d = %v, want %v", k, got[k], want)
			}
			k++
		}
	}
	if mc.hits != 0 {
		t.Errorf("first run hits = %d, want 0", mc.hits)
	}

	again, err := b.PairScores(context.Background(), graphs)
	if err != nil {
		t.Fatalf("PairScores() error: %v", err)
	}
	if !slices.Equal(again, got) {
		t.Errorf("cached PairScores() = %v, want %v", again, got)
	}
	if mc.hits != 6 {
		t.Errorf("second run hits = %d, want 6", mc.hits)
	}
}

func TestFingerprint(t *testing.T) {
	a := po.FromSequence("a", "", []byte("ACGT"))
	b := po.FromSequence("a", "", []byte("ACGT"))
	c := po.FromSequence("a", "", []byte("ACGA"))
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equal graphs should have equal fingerprints")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("different residues should change the fingerprint")
	}
}

func TestMissingMatrix(t *testing.T) {
	b := &Builder{}
	_, err := b.Iterative(context.Background(), identical(2))
	if !errors.Is(err, errors.ErrCodeInvalidMatrix) {
		t.Errorf("Iterative() error = %v, want %s", err, errors.ErrCodeInvalidMatrix)
	}
}
