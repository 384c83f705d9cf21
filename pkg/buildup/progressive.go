package buildup

import (
	"context"
	"slices"
	"time"

	"github.com/matzehuels/poa/pkg/align"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/observability"
	"github.com/matzehuels/poa/pkg/po"
)

// PairScore is the similarity of input graphs I and J.
type PairScore struct {
	I, J  int
	Score float64
}

// schedule normalizes scores for n inputs into merge order: every pair is
// stored with I > J, every input i > 0 without a score against i-1 gets
// one below the minimum, and pairs are sorted by descending score, then by
// ascending I and J. Missing scores therefore fall back to iterative order.
func schedule(n int, scores []PairScore) []PairScore {
	out := make([]PairScore, 0, len(scores)+n)
	adjacent := make([]bool, n)
	minScore := 0.0
	for _, s := range scores {
		if s.I < s.J {
			s.I, s.J = s.J, s.I
		}
		if s.J == s.I-1 {
			adjacent[s.I] = true
		}
		minScore = min(minScore, s.Score)
		out = append(out, s)
	}
	for i := 1; i < n; i++ {
		if !adjacent[i] {
			out = append(out, PairScore{I: i, J: i - 1, Score: minScore - 1})
		}
	}
	slices.SortStableFunc(out, func(a, b PairScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.I != b.I:
			return a.I - b.I
		}
		return a.J - b.J
	})
	return out
}

// Progressive merges the inputs agglomeratively. Each input starts as its
// own cluster; pairs are taken in schedule order and the clusters of the
// two inputs, if different, are aligned and fused. The surviving cluster is
// always the one with the smaller id, so the result is graphs[0].
//
// Exceeding the allocation budget aborts the run with an ErrCodeBudget
// error. With PreserveOrder the sources of the result are put back in
// input order.
func (b *Builder) Progressive(ctx context.Context, graphs []*po.Graph, scores []PairScore) (*po.Graph, error) {
	n := len(graphs)
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return graphs[0], nil
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	for _, s := range scores {
		if s.I < 0 || s.I >= n || s.J < 0 || s.J >= n {
			return nil, errors.New(errors.ErrCodeInvalidInput, "pair score (%d, %d) refers to unknown input", s.I, s.J)
		}
	}

	graphs = slices.Clone(graphs)

	hooks := observability.Build()
	started := time.Now()
	hooks.OnBuildStart(ctx, StrategyProgressive, n)
	fail := func(err error) (*po.Graph, error) {
		hooks.OnBuildComplete(ctx, StrategyProgressive, graphs[0].Len(), time.Since(started), err)
		return nil, err
	}

	cluster := make([]int, n) // cluster holding input i
	offset := make([]int, n)  // first source of input i within its cluster
	size := make([]int, n)    // sources in cluster i
	initial := make([]int, n) // sources of input i before any merge
	for i, g := range graphs {
		cluster[i] = i
		size[i] = len(g.Sources)
		initial[i] = size[i]
	}

	step := 0
	for _, s := range schedule(n, scores) {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		ci, cj := cluster[s.I], cluster[s.J]
		if ci == cj {
			continue
		}
		if ci > cj {
			ci, cj = cj, ci
		}
		x, y := graphs[ci], graphs[cj]
		if err := align.CheckBudget(x.Len(), y.Len(), b.alignOptions(b.Mode)); err != nil {
			return fail(err)
		}

		b.log().Info("fusing clusters",
			"from", cj, "from_name", y.Name, "from_seqs", len(y.Sources),
			"to", ci, "to_name", x.Name, "to_seqs", len(x.Sources),
			"score", s.Score)
		t := time.Now()
		if _, err := b.merge(ctx, x, y); err != nil {
			return fail(err)
		}
		graphs[cj] = nil

		for i := range cluster {
			if cluster[i] == cj {
				cluster[i] = ci
				offset[i] += size[ci]
			}
		}
		size[ci] += size[cj]
		size[cj] = 0
		step++
		hooks.OnStepComplete(ctx, StrategyProgressive, step, x.Len(), time.Since(t))
	}

	result := graphs[0]
	if b.PreserveOrder {
		perm := make([]int, len(result.Sources))
		next := 0
		for i := range graphs {
			for k := 0; k < initial[i]; k++ {
				perm[offset[i]+k] = next
				next++
			}
		}
		result.ReindexSources(perm)
	}

	hooks.OnBuildComplete(ctx, StrategyProgressive, result.Len(), time.Since(started), nil)
	return result, nil
}
