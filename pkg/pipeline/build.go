package pipeline

import (
	"context"

	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/bundle"
	"github.com/matzehuels/poa/pkg/cache"
	"github.com/matzehuels/poa/pkg/po"
)

// NewBuilder returns a build-up builder configured from opts, sharing the
// given cache for pairwise scores.
func NewBuilder(opts Options, c cache.Cache, keyer cache.Keyer) (*buildup.Builder, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	b := buildup.NewBuilder(opts.matrix, opts.Logger)
	b.Mode = opts.mode
	b.Policy = opts.policy
	b.FuseAll = opts.FuseAll
	b.MaxAlloc = opts.MaxAlloc
	b.PreserveOrder = opts.PreserveOrder
	if opts.Concurrency > 0 {
		b.Concurrency = opts.Concurrency
	}
	if c != nil {
		b.Cache = c
	}
	if keyer != nil {
		b.Keyer = keyer
	}
	return b, nil
}

// Build aligns graphs with the configured strategy. scores is only used
// by the progressive strategy. A nil scores means no score file was given
// and pairwise scores are computed; an empty one comes from an empty file
// and leaves the merge order to the safety pass, which joins the inputs in
// order.
func Build(ctx context.Context, b *buildup.Builder, strategy string, graphs []*po.Graph, scores []buildup.PairScore) (*po.Graph, []buildup.IdentityReport, error) {
	switch strategy {
	case buildup.StrategyClipped:
		return b.Clipped(ctx, graphs)
	case buildup.StrategyProgressive:
		if scores == nil {
			var err error
			if scores, err = b.PairScores(ctx, graphs); err != nil {
				return nil, nil, err
			}
		}
		g, err := b.Progressive(ctx, graphs, scores)
		return g, nil, err
	default:
		g, err := b.Iterative(ctx, graphs)
		return g, nil, err
	}
}

// Bundle applies title weights and extracts consensus bundles as opts
// ask. It returns nil when bundling is off.
func Bundle(ctx context.Context, g *po.Graph, opts Options) (*bundle.Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if opts.TitleWeights {
		bundle.ApplyTitleWeights(g, opts.Logger)
	}
	if !opts.Bundles {
		return nil, nil
	}
	return bundle.Generate(ctx, g, opts.bundleOptions())
}
