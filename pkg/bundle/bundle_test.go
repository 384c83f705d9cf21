package bundle

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
)

var quiet = log.New(io.Discard)

const (
	groupA = "ACGTACGTACGT"
	groupB = "ACGTGGGGACGT"
)

// identicalGraph threads n copies of seq through one linear graph.
func identicalGraph(n int, seq string) *po.Graph {
	g := po.New("same", "")
	for i := range seq {
		g.AddLetter(seq[i])
		if i > 0 {
			g.Link(i-1, i)
		}
	}
	for k := 0; k < n; k++ {
		s := g.AddSource(po.SourceInfo{Name: string(rune('a' + k)), Length: len(seq), Weight: 1, Bundle: po.NoBundle})
		for i := range seq {
			g.Letters[i].Sources = append(g.Letters[i].Sources, po.Source{Seq: s, Pos: i})
		}
	}
	return g
}

// twoGroups aligns three copies of groupA and two of groupB column by column.
func twoGroups(t *testing.T) *po.Graph {
	t.Helper()
	rows := []buildup.Row{
		{Name: "a1", Aligned: []byte(groupA)},
		{Name: "a2", Aligned: []byte(groupA)},
		{Name: "a3", Aligned: []byte(groupA)},
		{Name: "b1", Aligned: []byte(groupB)},
		{Name: "b2", Aligned: []byte(groupB)},
	}
	g, err := buildup.FromRows(rows, buildup.CaseKeep)
	if err != nil {
		t.Fatalf("FromRows() error: %v", err)
	}
	return g
}

func TestHeaviestIdentical(t *testing.T) {
	g := identicalGraph(3, groupA)
	path := Heaviest(g)
	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	if !slices.Equal(path, want) {
		t.Errorf("Heaviest() = %v, want %v", path, want)
	}
}

func TestHeaviestIgnoresZeroWeight(t *testing.T) {
	g := identicalGraph(2, groupA)
	for i := range g.Sources {
		g.Sources[i].Weight = 0
	}
	if path := Heaviest(g); len(path) != 1 {
		t.Errorf("Heaviest() with zero weights = %v, want a single node", path)
	}
	if path := Heaviest(po.New("empty", "")); path != nil {
		t.Errorf("Heaviest(empty) = %v, want nil", path)
	}
}

func TestGenerateIdentical(t *testing.T) {
	const n = 5
	g := identicalGraph(n, groupA)
	res, err := Generate(context.Background(), g, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Premature {
		t.Error("Premature = true, want false")
	}
	if len(res.Bundles) != 1 {
		t.Fatalf("bundles = %d, want 1", len(res.Bundles))
	}
	b := res.Bundles[0]
	if !slices.Equal(b.Members, []int{0, 1, 2, 3, 4}) {
		t.Errorf("Members = %v, want all %d sources", b.Members, n)
	}
	for s := 0; s < n; s++ {
		if g.Sources[s].Bundle != 0 || g.Sources[s].Weight != 0 {
			t.Errorf("source %d: bundle %d weight %d, want 0 0", s, g.Sources[s].Bundle, g.Sources[s].Weight)
		}
	}

	cons := g.Sources[b.Consensus]
	if cons.Name != "CONSENS0" {
		t.Errorf("consensus name = %q, want CONSENS0", cons.Name)
	}
	if want := "consensus produced by heaviest_bundle, containing 5 seqs"; cons.Title != want {
		t.Errorf("consensus title = %q, want %q", cons.Title, want)
	}
	if cons.Bundle != 0 || cons.Weight != 0 {
		t.Errorf("consensus bundle %d weight %d, want 0 0", cons.Bundle, cons.Weight)
	}
	if got := string(g.Sequence(b.Consensus)); got != groupA {
		t.Errorf("consensus sequence = %q, want %q", got, groupA)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestGenerateTwoGroups(t *testing.T) {
	g := twoGroups(t)
	if g.Len() != 15 {
		t.Fatalf("Len() = %d, want 15", g.Len())
	}
	res, err := Generate(context.Background(), g, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Premature || len(res.Bundles) != 2 {
		t.Fatalf("bundles = %d premature = %v, want 2 false", len(res.Bundles), res.Premature)
	}
	if got := res.Bundles[0].Members; !slices.Equal(got, []int{0, 1, 2}) {
		t.Errorf("bundle 0 members = %v, want [0 1 2]", got)
	}
	if got := res.Bundles[1].Members; !slices.Equal(got, []int{3, 4}) {
		t.Errorf("bundle 1 members = %v, want [3 4]", got)
	}
	if got := string(g.Sequence(res.Bundles[0].Consensus)); got != groupA {
		t.Errorf("consensus 0 = %q, want %q", got, groupA)
	}
	if got := string(g.Sequence(res.Bundles[1].Consensus)); got != groupB {
		t.Errorf("consensus 1 = %q, want %q", got, groupB)
	}
	if got := Members(g, 1); !slices.Equal(got, []int{3, 4, res.Bundles[1].Consensus}) {
		t.Errorf("Members(1) = %v", got)
	}
}

func TestGeneratePremature(t *testing.T) {
	g := identicalGraph(3, "ACGT")
	res, err := Generate(context.Background(), g, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !res.Premature {
		t.Error("Premature = false for paths shorter than the minimum")
	}
	if len(res.Bundles) != 0 {
		t.Errorf("bundles = %d, want 0", len(res.Bundles))
	}
	if len(g.Sources) != 3 {
		t.Errorf("sources = %d, want no consensus added", len(g.Sources))
	}

	res, err = Generate(context.Background(), g, Options{Logger: quiet, MinPathLength: 4})
	if err != nil {
		t.Fatal(err)
	}
	if res.Premature || len(res.Bundles) != 1 {
		t.Errorf("MinPathLength 4: bundles = %d premature = %v, want 1 false", len(res.Bundles), res.Premature)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"fraction too large", Options{MinFraction: 1.5}},
		{"negative fraction", Options{MinFraction: -0.1}},
		{"negative path", Options{MinPathLength: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("ValidateAndSetDefaults() = %v, want %s", err, errors.ErrCodeInvalidInput)
			}
		})
	}

	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.MinFraction != DefaultMinFraction || o.MinPathLength != DefaultMinPathLength {
		t.Errorf("defaults = %v/%d", o.MinFraction, o.MinPathLength)
	}
}

func TestApplyTitleWeights(t *testing.T) {
	g := identicalGraph(3, groupA)
	g.Sources[0].Title = "first /hb_weight=5 more"
	g.Sources[1].Title = "/hb_weight=abc"
	if n := ApplyTitleWeights(g, quiet); n != 1 {
		t.Errorf("ApplyTitleWeights() = %d, want 1", n)
	}
	want := []int{5, 1, 1}
	for i, w := range want {
		if g.Sources[i].Weight != w {
			t.Errorf("source %d weight = %d, want %d", i, g.Sources[i].Weight, w)
		}
	}
}

func TestRemove(t *testing.T) {
	g := twoGroups(t)
	if _, err := Generate(context.Background(), g, Options{Logger: quiet}); err != nil {
		t.Fatal(err)
	}
	keep := g.Clone()

	if n := Remove(g, 0, false); n != 4 {
		t.Errorf("Remove(0) removed %d sources, want 4", n)
	}
	if g.Len() != 12 {
		t.Errorf("Len() after Remove(0) = %d, want 12", g.Len())
	}
	for i := range g.Sources {
		if g.Sources[i].Bundle != 1 {
			t.Errorf("source %q left in bundle %d", g.Sources[i].Name, g.Sources[i].Bundle)
		}
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if n := Remove(keep, 0, true); n != 3 {
		t.Errorf("Remove(0, keepOnly) removed %d sources, want 3", n)
	}
	if keep.Len() != 12 {
		t.Errorf("Len() after keepOnly = %d, want 12", keep.Len())
	}
	if got := string(keep.Sequence(0)); !strings.EqualFold(got, groupA) {
		t.Errorf("Sequence(0) = %q, want %q", got, groupA)
	}
}
