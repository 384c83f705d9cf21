package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/bundle"
	"github.com/matzehuels/poa/pkg/cache"
	poaio "github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/observability"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/store"
)

// Runner encapsulates job execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its cache, store and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Store, when set, receives a record of every finished job.
	Store    store.Store
	StoreTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		StoreTTL: store.DefaultTTL,
	}
}

// job is the cached form of the build and bundle stages.
type job struct {
	Document   *poaio.Document          `json:"document"`
	Identities []buildup.IdentityReport `json:"identities,omitempty"`
}

// Execute runs the complete load → build → bundle → render job with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	in, err := load(opts)
	if err != nil {
		return nil, err
	}
	result.InputHash = in.hash
	result.Stats.Inputs = len(in.graphs)
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("loaded inputs",
		"graphs", len(in.graphs),
		"duration", result.Stats.LoadTime)

	// Stage 2 and 3: Build and bundle, cached together
	key := r.Keyer.JobKey(in.hash, opts.JobKeyOpts())
	if !opts.Refresh {
		if j, ok := r.cached(ctx, key); ok {
			g, err := j.Document.Graph()
			if err == nil {
				result.Graph = g
				result.Bundles = j.Document.BundleResult()
				result.Identities = j.Identities
				result.CacheInfo.JobHit = true
				r.Logger.Info("using cached alignment", "nodes", g.Len())
			}
		}
	}

	if result.Graph == nil {
		if err := r.compute(ctx, in, opts, result); err != nil {
			return nil, err
		}
		if data, err := json.Marshal(job{
			Document:   poaio.NewDocument(result.Graph, result.Bundles),
			Identities: result.Identities,
		}); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.JobTTL); err == nil {
				observability.Cache().OnCacheSet(ctx, "job", len(data))
			} else {
				r.Logger.Warn("cache write failed", "err", err)
			}
		}
	}

	g := result.Graph
	_, ncol := g.Columns()
	result.Stats.Sequences = len(g.Sources)
	result.Stats.NodeCount = g.Len()
	result.Stats.EdgeCount = g.EdgeCount()
	result.Stats.Columns = ncol

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, err := Render(ctx, g, result.Bundles, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	if r.Store != nil {
		id, err := r.save(ctx, key, g, result.Bundles, opts)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		result.RecordID = id
	}

	return result, nil
}

func (r *Runner) compute(ctx context.Context, in *inputs, opts Options, result *Result) error {
	b, err := NewBuilder(opts, r.Cache, r.Keyer)
	if err != nil {
		return err
	}
	b.Logger = r.Logger

	buildStart := time.Now()
	g, reports, err := Build(ctx, b, opts.Strategy, in.graphs, in.scores)
	if err != nil {
		return err
	}
	result.Graph = g
	result.Identities = reports
	result.Stats.BuildTime = time.Since(buildStart)

	r.Logger.Info("built alignment",
		"strategy", opts.Strategy,
		"nodes", g.Len(),
		"sequences", len(g.Sources),
		"duration", result.Stats.BuildTime)

	bundleStart := time.Now()
	res, err := Bundle(ctx, g, opts)
	if err != nil {
		return err
	}
	result.Bundles = res
	result.Stats.BundleTime = time.Since(bundleStart)
	if res != nil {
		r.Logger.Info("extracted bundles",
			"bundles", len(res.Bundles),
			"premature", res.Premature,
			"duration", result.Stats.BundleTime)
	}
	return nil
}

func (r *Runner) cached(ctx context.Context, key string) (*job, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "job")
		return nil, false
	}
	var j job
	if err := json.Unmarshal(data, &j); err != nil || j.Document == nil {
		observability.Cache().OnCacheMiss(ctx, "job")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "job")
	return &j, true
}

// save records the job in the store. An unexpired record of the same job
// is reused unless opts.Refresh is set.
func (r *Runner) save(ctx context.Context, key string, g *po.Graph, res *bundle.Result, opts Options) (string, error) {
	if !opts.Refresh {
		prev, err := r.Store.FindByKey(ctx, key)
		if err != nil {
			return "", err
		}
		if prev != nil {
			return prev.ID, nil
		}
	}
	n := 0
	if res != nil {
		n = len(res.Bundles)
	}
	rec, err := store.NewRecord(key, opts.Strategy, g, n, r.StoreTTL)
	if err != nil {
		return "", err
	}
	if err := r.Store.Save(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Close releases the cache and store.
func (r *Runner) Close() error {
	if r.Store != nil {
		if err := r.Store.Close(context.Background()); err != nil {
			return err
		}
	}
	return r.Cache.Close()
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
