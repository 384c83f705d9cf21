// Package bundle extracts consensus sequences from a finished PO graph.
//
// The heaviest bundle is the path through the graph that the most
// (weighted) source sequences follow edge by edge. [Generate] finds it,
// assigns every source that lies mostly on it to a new bundle, records the
// path as a consensus source, and repeats with the bundled sources excluded
// until every source has a bundle or no further source fits.
package bundle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/observability"
	"github.com/matzehuels/poa/pkg/po"
)

// Defaults for Options.
const (
	DefaultMinFraction   = 0.9
	DefaultMinPathLength = 10
)

// ConsensusPrefix starts the name of every consensus source.
const ConsensusPrefix = "CONSENS"

// weightTag marks a bundling weight in a source title.
const weightTag = "/hb_weight="

// Options configures Generate.
type Options struct {
	// MinFraction is the share of a source's residues that must lie on the
	// heaviest path for the source to join the bundle.
	MinFraction float64

	// MinPathLength is the shortest path accepted as a consensus.
	MinPathLength int

	Logger *log.Logger
}

// ValidateAndSetDefaults fills zero fields with defaults and validates the
// rest.
func (o *Options) ValidateAndSetDefaults() error {
	if o.MinFraction == 0 {
		o.MinFraction = DefaultMinFraction
	}
	if o.MinPathLength == 0 {
		o.MinPathLength = DefaultMinPathLength
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if err := errors.ValidateFraction("minimum bundle fraction", o.MinFraction); err != nil {
		return err
	}
	if o.MinPathLength < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "minimum path length must be positive, got %d", o.MinPathLength)
	}
	return nil
}

// Bundle is one consensus path and the sources assigned to it.
type Bundle struct {
	ID        int
	Path      []int // node indices in path order
	Consensus int   // source id of the consensus sequence
	Members   []int // source ids of the assigned sequences
}

// Result is the outcome of Generate.
type Result struct {
	Bundles []Bundle

	// Premature is set when bundling stopped with sources left unbundled,
	// because no path was long enough or no source fitted the last path.
	Premature bool
}

// Heaviest returns the heaviest path of g. The score of moving from a node
// to a successor is the total weight of the sources that visit both at
// adjacent positions; ties go to the successor with the higher downstream
// score. Sources of zero weight are ignored.
func Heaviest(g *po.Graph) []int {
	n := g.Len()
	if n == 0 {
		return nil
	}
	next := make([]int, n)
	score := make([]int, n)
	// posAt[s] is the position source s must hold in a successor to count.
	posAt := make([]int, len(g.Sources))

	best, bestScore := -1, -999999
	for i := n - 1; i >= 0; i-- {
		for s := range posAt {
			posAt[s] = -1
		}
		for _, src := range g.Letters[i].Sources {
			if g.Sources[src.Seq].Weight > 0 {
				posAt[src.Seq] = src.Pos + 1
			}
		}

		right, rightScore, rightOverlap := -1, 0, 0
		for _, r := range g.Letters[i].Right {
			overlap := 0
			for _, src := range g.Letters[r].Sources {
				if posAt[src.Seq] == src.Pos {
					overlap += g.Sources[src.Seq].Weight
				}
			}
			if overlap > rightOverlap || (overlap == rightOverlap && score[r] > rightScore) {
				right, rightScore, rightOverlap = r, score[r], overlap
			}
		}

		next[i] = right
		score[i] = rightScore + rightOverlap
		if score[i] > bestScore {
			best, bestScore = i, score[i]
		}
	}

	var path []int
	for i := best; i >= 0; i = next[i] {
		path = append(path, i)
	}
	return path
}

// Assign puts every unbundled source with at least minFraction of its
// residues on path into bundle id and zeroes its weight. It returns the
// assigned source ids.
func Assign(g *po.Graph, path []int, id int, minFraction float64) []int {
	count := make([]int, len(g.Sources))
	for _, node := range path {
		for _, src := range g.Letters[node].Sources {
			count[src.Seq]++
		}
	}
	var members []int
	for s := range g.Sources {
		info := &g.Sources[s]
		if info.Bundle == po.NoBundle && float64(info.Length)*minFraction <= float64(count[s]) {
			info.Bundle = id
			info.Weight = 0
			members = append(members, s)
		}
	}
	return members
}

// Generate bundles the sources of g. Each bundle's path is added to g as a
// zero-weight consensus source named CONSENS<id>.
func Generate(ctx context.Context, g *po.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{}

	unbundled := 0
	for i := range g.Sources {
		if g.Sources[i].Bundle == po.NoBundle {
			unbundled++
		}
	}

	for id := 0; unbundled > 0; id++ {
		path := Heaviest(g)
		if len(path) < opts.MinPathLength {
			res.Premature = true
			break
		}
		members := Assign(g, path, id, opts.MinFraction)
		if len(members) == 0 {
			res.Premature = true
			break
		}
		title := fmt.Sprintf("consensus produced by heaviest_bundle, containing %d seqs", len(members))
		cons := g.AddPath(path, ConsensusPrefix+strconv.Itoa(id), title)
		g.Sources[cons].Bundle = id
		res.Bundles = append(res.Bundles, Bundle{ID: id, Path: path, Consensus: cons, Members: members})
		unbundled -= len(members)
		opts.Logger.Debug("bundle", "id", id, "length", len(path), "members", len(members))
	}

	if res.Premature {
		opts.Logger.Warn("bundling ended prematurely",
			"bundles", len(res.Bundles), "unbundled", unbundled)
	}
	observability.Build().OnBundles(ctx, len(res.Bundles), res.Premature, time.Since(start))
	return res, nil
}

// ApplyTitleWeights sets the weight of every source whose title contains
// "/hb_weight=<n>" to n. A zero or unreadable value is ignored with a
// warning. It returns the number of weights set.
func ApplyTitleWeights(g *po.Graph, logger *log.Logger) int {
	if logger == nil {
		logger = log.Default()
	}
	n := 0
	for i := range g.Sources {
		s := &g.Sources[i]
		k := strings.Index(s.Title, weightTag)
		if k < 0 {
			continue
		}
		w := leadingInt(s.Title[k+len(weightTag):])
		if w == 0 {
			logger.Warn("hb_weight zero or unreadable, ignored", "name", s.Name)
			continue
		}
		s.Weight = w
		logger.Debug("assigned weight", "name", s.Name, "weight", w)
		n++
	}
	return n
}

// leadingInt parses the optionally signed decimal prefix of s, or 0.
func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}

// Remove deletes the sources of bundle id from g, or with keepOnly every
// source outside it, and drops the nodes left without provenance. It
// returns the number of sources removed.
func Remove(g *po.Graph, id int, keepOnly bool) int {
	return g.RemoveSources(func(_ int, info *po.SourceInfo) bool {
		return (info.Bundle == id) != keepOnly
	}, false)
}

// Members returns the ids of the sources in bundle id, consensus included.
func Members(g *po.Graph, id int) []int {
	var out []int
	for i := range g.Sources {
		if g.Sources[i].Bundle == id {
			out = append(out, i)
		}
	}
	return out
}
