// Package pipeline runs a complete alignment job for the CLI and the HTTP
// API.
//
// This package implements the load → build → bundle → render sequence so
// that every entry point behaves the same way and shares one job cache.
//
// # Architecture
//
// A job has four stages:
//
//  1. Load: read FASTA inputs, an optional existing alignment and the
//     scoring matrix
//  2. Build: align and fuse the inputs with one of the build-up strategies
//  3. Bundle: optionally extract heaviest-bundle consensus sequences
//  4. Render: write the result in the requested formats
//
// Build and bundle results are cached under a key derived from the inputs
// and every setting that affects them.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Inputs:  []string{"globins.fa"},
//	    Matrix:  "blosum62",
//	    Formats: []string{"clustal"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	aln := result.Artifacts["clustal"]
//
// Options can also be loaded from a TOML job file with [LoadOptions].
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/poa/pkg/align"
	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/bundle"
	"github.com/matzehuels/poa/pkg/cache"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/fuse"
	poaio "github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMatrix is the built-in scoring matrix used when none is named.
	DefaultMatrix = score.Blosum62

	// DefaultMode is the default alignment mode.
	DefaultMode = "local"

	// DefaultStrategy is the default build-up strategy.
	DefaultStrategy = buildup.StrategyIterative

	// DefaultPolicy is the default fusion policy.
	DefaultPolicy = "identity"

	// DefaultCase keeps residues as read.
	DefaultCase = "keep"
)

// Format constants for output formats.
const (
	FormatPO      = "po"
	FormatClustal = "clustal"
	FormatPIR     = "pir"
	FormatFASTA   = "fasta"
	FormatJSON    = "json"
	FormatDOT     = "dot"
	FormatSVG     = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPO:      true,
	FormatClustal: true,
	FormatPIR:     true,
	FormatFASTA:   true,
	FormatJSON:    true,
	FormatDOT:     true,
	FormatSVG:     true,
}

// ValidStrategies is the set of supported build-up strategies.
var ValidStrategies = map[string]bool{
	buildup.StrategyIterative:   true,
	buildup.StrategyClipped:     true,
	buildup.StrategyProgressive: true,
}

// =============================================================================
// Options - Job Configuration
// =============================================================================

// Sequence is an inline input sequence.
type Sequence struct {
	Name     string `json:"name" toml:"name"`
	Title    string `json:"title,omitempty" toml:"title"`
	Residues string `json:"residues" toml:"residues"`
}

// Options contains all configuration for an alignment job.
// This struct supports JSON for API requests and TOML for job files.
// File paths are never accepted from JSON.
type Options struct {
	// Inputs
	Inputs       []string   `json:"-" toml:"inputs"`
	Sequences    []Sequence `json:"sequences,omitempty" toml:"sequences"`
	FASTA        string     `json:"fasta,omitempty" toml:"-"`
	MSA          string     `json:"-" toml:"msa"`
	MSAText      string     `json:"msa,omitempty" toml:"-"`
	MSAFormat    string     `json:"msa_format,omitempty" toml:"msa_format"`
	Subset       string     `json:"-" toml:"subset"`
	RemoveListed bool       `json:"-" toml:"remove_listed"`
	Scores       string     `json:"-" toml:"scores"`
	Case         string     `json:"case,omitempty" toml:"case"`

	// Alignment
	Matrix        string `json:"matrix,omitempty" toml:"matrix"`
	Mode          string `json:"mode,omitempty" toml:"mode"`
	Strategy      string `json:"strategy,omitempty" toml:"strategy"`
	Policy        string `json:"policy,omitempty" toml:"policy"`
	FuseAll       bool   `json:"fuse_all,omitempty" toml:"fuse_all"`
	PreserveOrder bool   `json:"preserve_order,omitempty" toml:"preserve_order"`
	MaxAlloc      int64  `json:"max_alloc,omitempty" toml:"max_alloc"`
	Concurrency   int    `json:"-" toml:"concurrency"`

	// Bundling
	Bundles       bool    `json:"bundles,omitempty" toml:"bundles"`
	TitleWeights  bool    `json:"title_weights,omitempty" toml:"title_weights"`
	MinFraction   float64 `json:"min_fraction,omitempty" toml:"min_fraction"`
	MinPathLength int     `json:"min_path_length,omitempty" toml:"min_path_length"`

	// Outputs
	Formats []string `json:"formats,omitempty" toml:"formats"`
	Bundle  *int     `json:"bundle,omitempty" toml:"bundle"` // restrict row-column outputs to one bundle
	Refresh bool     `json:"refresh,omitempty" toml:"refresh"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`

	// resolved by ValidateAndSetDefaults
	matrix    *score.Matrix
	mode      align.Mode
	policy    fuse.Policy
	caseMode  buildup.CaseMode
	msaFormat poaio.Format
	validated bool
}

// Result contains the outputs of a job.
type Result struct {
	// Graph is the final alignment, including consensus sources when
	// bundling ran.
	Graph *po.Graph

	// Bundles is the bundling result, or nil.
	Bundles *bundle.Result

	// Identities holds one report per added input of a clipped build.
	Identities []buildup.IdentityReport

	// InputHash identifies the job's inputs.
	InputHash string

	// RecordID is the stored record's id when the runner has a store.
	RecordID string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains job execution statistics.
type Stats struct {
	Inputs     int
	Sequences  int
	NodeCount  int
	EdgeCount  int
	Columns    int
	LoadTime   time.Duration
	BuildTime  time.Duration
	BundleTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks whether the build came from the cache.
type CacheInfo struct {
	JobHit bool
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid format: %q (must be one of: po, clustal, pir, fasta, json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStrategy checks that a build-up strategy is valid.
func ValidateStrategy(s string) error {
	if !ValidStrategies[s] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid strategy: %q (must be one of: iterative, clipped, progressive)", s)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// LoadOptions reads a TOML job file.
func LoadOptions(path string) (Options, error) {
	var opts Options
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "job file %s", path)
	}
	return opts, nil
}

// DecodeOptions reads TOML job options from r.
func DecodeOptions(r io.Reader) (Options, error) {
	var opts Options
	if _, err := toml.NewDecoder(r).Decode(&opts); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "job options")
	}
	return opts, nil
}

// HasInputs reports whether any input source is set.
func (o *Options) HasInputs() bool {
	return len(o.Inputs) > 0 || len(o.Sequences) > 0 || o.FASTA != "" || o.MSA != "" || o.MSAText != ""
}

// ValidateAndSetDefaults checks required fields, applies defaults and
// resolves the matrix and enumerations.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if !o.HasInputs() {
		return errors.New(errors.ErrCodeEmptyInput, "no input sequences or alignment given")
	}

	if o.Matrix == "" {
		o.Matrix = DefaultMatrix
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}
	if o.Policy == "" {
		o.Policy = DefaultPolicy
	}
	if o.Case == "" {
		o.Case = DefaultCase
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	var err error
	o.Mode = strings.ToLower(o.Mode)
	if o.mode, err = align.ParseMode(o.Mode); err != nil {
		return err
	}
	o.Strategy = strings.ToLower(o.Strategy)
	if err := ValidateStrategy(o.Strategy); err != nil {
		return err
	}
	if o.policy, err = fuse.ParsePolicy(o.Policy); err != nil {
		return err
	}
	if o.caseMode, err = buildup.ParseCaseMode(o.Case); err != nil {
		return err
	}
	if o.msaFormat, err = poaio.ParseFormat(o.MSAFormat); err != nil {
		return err
	}
	if err := o.ValidateOutput(); err != nil {
		return err
	}
	if o.Bundles || o.MinFraction != 0 || o.MinPathLength != 0 {
		bo := o.bundleOptions()
		if err := bo.ValidateAndSetDefaults(); err != nil {
			return err
		}
		o.MinFraction, o.MinPathLength = bo.MinFraction, bo.MinPathLength
	}
	if o.Scores != "" && o.Strategy != buildup.StrategyProgressive {
		return errors.New(errors.ErrCodeInvalidInput, "a score file needs the progressive strategy")
	}
	if o.matrix, err = score.Resolve(o.Matrix); err != nil {
		return err
	}

	o.validated = true
	return nil
}

// ValidateOutput checks and defaults the output settings only, for
// rendering graphs that were not built by this job.
func (o *Options) ValidateOutput() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatPO}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Bundle != nil && *o.Bundle < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "bundle must not be negative, got %d", *o.Bundle)
	}
	return nil
}

// bundleOptions returns the bundling options of the job.
func (o *Options) bundleOptions() bundle.Options {
	return bundle.Options{
		MinFraction:   o.MinFraction,
		MinPathLength: o.MinPathLength,
		Logger:        o.Logger,
	}
}

// OutputBundle returns the bundle that row-column outputs are restricted
// to, or io.AllBundles.
func (o *Options) OutputBundle() int {
	if o.Bundle == nil {
		return poaio.AllBundles
	}
	return *o.Bundle
}

// ScoringMatrix returns the resolved matrix. It is nil until
// ValidateAndSetDefaults succeeds.
func (o *Options) ScoringMatrix() *score.Matrix {
	return o.matrix
}

// JobKeyOpts returns cache key options for the build and bundle stages.
func (o *Options) JobKeyOpts() cache.JobKeyOpts {
	return cache.JobKeyOpts{
		Matrix:        buildup.MatrixFingerprint(o.matrix),
		Mode:          o.Mode,
		Strategy:      o.Strategy,
		Policy:        o.Policy,
		FuseAll:       o.FuseAll,
		PreserveOrder: o.PreserveOrder,
		Bundles:       o.Bundles,
		MinFraction:   o.MinFraction,
		MinPathLength: o.MinPathLength,
		TitleWeights:  o.TitleWeights,
	}
}

// sortedFormats returns the formats in a stable order without duplicates.
func (o *Options) sortedFormats() []string {
	f := slices.Clone(o.Formats)
	slices.Sort(f)
	return slices.Compact(f)
}

// String summarizes the job settings for logs.
func (o *Options) String() string {
	return fmt.Sprintf("%s/%s/%s", o.Strategy, o.Mode, o.Matrix)
}
