package buildup

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/fuse"
	"github.com/matzehuels/poa/pkg/observability"
	"github.com/matzehuels/poa/pkg/po"
)

// IdentityReport describes how well one sequence matched the growing
// alignment when it was added by Clipped.
type IdentityReport struct {
	Graph       string // name of the accumulating graph
	Name        string // name of the added sequence
	Identities  int
	MatchLength int
}

// Identity returns the identical fraction of the aligned span, or 0 when
// nothing was aligned.
func (r IdentityReport) Identity() float64 {
	if r.MatchLength == 0 {
		return 0
	}
	return float64(r.Identities) / float64(r.MatchLength)
}

// String formats the report as a tab-separated line.
func (r IdentityReport) String() string {
	return fmt.Sprintf("%s\tmaximum identity\t%3.1f%%\t%d/%d",
		r.Graph, 100*r.Identity(), r.Identities, r.MatchLength)
}

// Clipped aligns graphs[1:] against graphs[0] like Iterative, but fuses
// only the span of each input between its first and last aligned node.
// Inputs with no identical aligned residue are skipped. The inputs other
// than graphs[0] are left unmodified.
//
// It returns one report per added input, in input order; skipped inputs
// report zero identities.
func (b *Builder) Clipped(ctx context.Context, graphs []*po.Graph) (*po.Graph, []IdentityReport, error) {
	if len(graphs) == 0 {
		return nil, nil, nil
	}
	if len(graphs) == 1 {
		return graphs[0], nil, nil
	}
	if err := b.validate(); err != nil {
		return nil, nil, err
	}

	hooks := observability.Build()
	started := time.Now()
	hooks.OnBuildStart(ctx, StrategyClipped, len(graphs))

	acc := graphs[0]
	reports := make([]IdentityReport, 0, len(graphs)-1)
	for i, y := range graphs[1:] {
		if err := ctx.Err(); err != nil {
			hooks.OnBuildComplete(ctx, StrategyClipped, acc.Len(), time.Since(started), err)
			return nil, nil, err
		}
		step := time.Now()
		report := IdentityReport{Graph: acc.Name, Name: y.Name}

		res, err := b.align(ctx, acc, y, b.Mode)
		if err != nil {
			if !skippable(err) {
				hooks.OnBuildComplete(ctx, StrategyClipped, acc.Len(), time.Since(started), err)
				return nil, nil, err
			}
			b.log().Warn("skipping sequence", "name", y.Name, "err", errors.UserMessage(err))
			hooks.OnStepSkipped(ctx, StrategyClipped, y.Name, err)
			reports = append(reports, report)
			continue
		}

		c := fuse.Clip(acc, y, res.XToY, res.YToX)
		report.Identities, report.MatchLength = c.Identities, c.MatchLength
		reports = append(reports, report)
		if c.Identities == 0 {
			b.log().Debug("no identities, skipping", "name", y.Name)
			hooks.OnStepSkipped(ctx, StrategyClipped, y.Name, nil)
			continue
		}

		if b.FuseAll {
			fuse.RingIdentities(acc, c.Graph, c.XToY, c.YToX)
		}
		fuse.Fuse(acc, c.Graph, c.XToY, c.YToX, fuse.Options{Policy: b.Policy})
		b.log().Debug("fused clipped span", "name", y.Name, "offset", c.Offset,
			"identity", fmt.Sprintf("%d/%d", c.Identities, c.MatchLength), "nodes", acc.Len())
		hooks.OnStepComplete(ctx, StrategyClipped, i+1, acc.Len(), time.Since(step))
	}

	hooks.OnBuildComplete(ctx, StrategyClipped, acc.Len(), time.Since(started), nil)
	return acc, reports, nil
}
