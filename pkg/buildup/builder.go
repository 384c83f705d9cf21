package buildup

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/poa/pkg/align"
	"github.com/matzehuels/poa/pkg/cache"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/fuse"
	"github.com/matzehuels/poa/pkg/observability"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

// Strategy names, as reported to logs and hooks.
const (
	StrategyIterative   = "iterative"
	StrategyClipped     = "clipped"
	StrategyProgressive = "progressive"
)

// DefaultConcurrency is the number of pair alignments PairScores runs at
// once when Builder.Concurrency is zero.
const DefaultConcurrency = 4

// Builder runs build-ups. The zero value is not usable: Matrix is required.
// All other fields have working defaults.
type Builder struct {
	Matrix *score.Matrix
	Mode   align.Mode
	Policy fuse.Policy

	// FuseAll retargets mismatched aligned pairs to identical residues on
	// the same ring before fusion.
	FuseAll bool

	// MaxAlloc is passed to align.Options.
	MaxAlloc int64

	// PreserveOrder restores input order of the source sequences after a
	// progressive build.
	PreserveOrder bool

	// Concurrency bounds the parallel alignments of PairScores.
	Concurrency int

	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewBuilder creates a builder for matrix m with default settings.
func NewBuilder(m *score.Matrix, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		Matrix:      m,
		Concurrency: DefaultConcurrency,
		Cache:       cache.NewNullCache(),
		Keyer:       cache.NewDefaultKeyer(),
		Logger:      logger,
	}
}

func (b *Builder) log() *log.Logger {
	if b.Logger == nil {
		return log.Default()
	}
	return b.Logger
}

func (b *Builder) alignOptions(mode align.Mode) align.Options {
	return align.Options{Mode: mode, MaxAlloc: b.MaxAlloc}
}

// align runs one alignment and reports it.
func (b *Builder) align(ctx context.Context, x, y *po.Graph, mode align.Mode) (*align.Result, error) {
	start := time.Now()
	res, err := align.Align(x, y, b.Matrix, b.alignOptions(mode))
	if err != nil {
		return nil, err
	}
	s := res.Stats
	b.log().Debug(fmt.Sprintf("aligned (%d nodes, %d edges) to (%d nodes, %d edges)",
		s.NodesX, s.EdgesX, s.NodesY, s.EdgesY), "score", res.Score, "rows", s.PeakRows)
	observability.Build().OnAlign(ctx, mode.String(), s.NodesX, s.NodesY, res.Score, time.Since(start))
	return res, nil
}

// merge aligns y to x, fuses y into x and returns x. y is consumed.
func (b *Builder) merge(ctx context.Context, x, y *po.Graph) (*po.Graph, error) {
	res, err := b.align(ctx, x, y, b.Mode)
	if err != nil {
		return nil, err
	}
	if b.FuseAll {
		fuse.RingIdentities(x, y, res.XToY, res.YToX)
	}
	return fuse.Fuse(x, y, res.XToY, res.YToX, fuse.Options{Policy: b.Policy}), nil
}

// skippable reports whether a failed step may be skipped instead of
// aborting the run.
func skippable(err error) bool {
	return errors.Is(err, errors.ErrCodeBudget) || errors.Is(err, errors.ErrCodeEmptyInput)
}

func (b *Builder) validate() error {
	if b.Matrix == nil {
		return errors.New(errors.ErrCodeInvalidMatrix, "builder has no scoring matrix")
	}
	if !b.Matrix.Built() {
		return b.Matrix.Build()
	}
	return nil
}

// Iterative aligns graphs[1:] one by one against graphs[0] and fuses each
// into it. Steps that exceed the allocation budget, or that involve an
// empty graph, are logged and skipped. It returns nil for no input and
// graphs[0] unchanged for a single input.
func (b *Builder) Iterative(ctx context.Context, graphs []*po.Graph) (*po.Graph, error) {
	if len(graphs) == 0 {
		return nil, nil
	}
	if len(graphs) == 1 {
		return graphs[0], nil
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	hooks := observability.Build()
	started := time.Now()
	hooks.OnBuildStart(ctx, StrategyIterative, len(graphs))

	acc := graphs[0]
	for i, y := range graphs[1:] {
		if err := ctx.Err(); err != nil {
			hooks.OnBuildComplete(ctx, StrategyIterative, acc.Len(), time.Since(started), err)
			return nil, err
		}
		step := time.Now()
		name := y.Name
		if _, err := b.merge(ctx, acc, y); err != nil {
			if !skippable(err) {
				hooks.OnBuildComplete(ctx, StrategyIterative, acc.Len(), time.Since(started), err)
				return nil, err
			}
			b.log().Warn("skipping sequence", "name", name, "err", errors.UserMessage(err))
			hooks.OnStepSkipped(ctx, StrategyIterative, name, err)
			continue
		}
		b.log().Debug("fused", "name", name, "step", i+1, "nodes", acc.Len())
		hooks.OnStepComplete(ctx, StrategyIterative, i+1, acc.Len(), time.Since(step))
	}

	hooks.OnBuildComplete(ctx, StrategyIterative, acc.Len(), time.Since(started), nil)
	return acc, nil
}
