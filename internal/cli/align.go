package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/poa/pkg/buildup"
	poaio "github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/pipeline"
)

// alignFlags holds the align command's flags. Values only take effect
// when the flag was given, so a --config file supplies the rest.
type alignFlags struct {
	config        string
	output        string
	formats       string
	matrix        string
	msa           string
	msaFormat     string
	subset        string
	remove        string
	scores        string
	global        bool
	strategy      string
	policy        string
	fuseAll       bool
	preserveOrder bool
	caseMode      string
	maxAlloc      int64
	concurrency   int
	bundles       bool
	titleWeights  bool
	minFraction   float64
	minPath       int
	bundle        int
	refresh       bool
	backend       backendOpts
}

// alignCommand creates the align command.
func (c *CLI) alignCommand() *cobra.Command {
	var f alignFlags

	cmd := &cobra.Command{
		Use:   "align [fasta...]",
		Short: "Align sequences into a partial-order graph",
		Long: `Align sequences into a partial-order alignment.

Sequences are read from FASTA files (plain or .zst compressed). An existing
alignment given with --msa (PO, CLUSTAL or FASTA-PIR) is used as the
starting graph. The inputs are added with one of three strategies:

  iterative    align each sequence against the growing graph, in order
  clipped      like iterative, but fuse only each sequence's aligned span
  progressive  merge the most similar graphs first (scores computed or --scores)

With --bundles, heaviest-bundle consensus sequences are added as CONSENS<n>.
Results are cached; --refresh recomputes.`,
		Example: `  poa align globins.fa -f clustal
  poa align --msa seed.po more.fa --strategy progressive -f po,pir -o out.po
  poa align --config job.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd, args)
			if err != nil {
				return err
			}
			return c.runAlign(cmd.Context(), opts, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "TOML job file; flags override its values")
	fl.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple); default stdout")
	fl.StringVarP(&f.formats, "format", "f", "", "output format(s): clustal (default), po, pir, fasta, json, dot, svg (comma-separated)")
	fl.StringVarP(&f.matrix, "matrix", "m", pipeline.DefaultMatrix, "scoring matrix: built-in name or file path")
	fl.StringVar(&f.msa, "msa", "", "existing alignment to start from")
	fl.StringVar(&f.msaFormat, "msa-format", "", "format of --msa: po, pir, clustal (default: detect)")
	fl.StringVar(&f.subset, "subset", "", "keep only the --msa sequences listed as SOURCENAME= lines in this file")
	fl.StringVar(&f.remove, "remove", "", "drop the --msa sequences listed as SOURCENAME= lines in this file")
	fl.StringVar(&f.scores, "scores", "", "pairwise score file for the progressive strategy")
	fl.BoolVar(&f.global, "global", false, "global instead of local alignment")
	fl.StringVar(&f.strategy, "strategy", pipeline.DefaultStrategy, "build-up strategy: iterative, clipped, progressive")
	fl.StringVar(&f.policy, "policy", pipeline.DefaultPolicy, "fusion policy: identity, segments")
	fl.BoolVar(&f.fuseAll, "fuse-all", false, "fuse mismatched pairs with identical residues on the same ring")
	fl.BoolVar(&f.preserveOrder, "preserve-order", false, "keep input order of sequences after a progressive build")
	fl.StringVar(&f.caseMode, "case", pipeline.DefaultCase, "residue case: keep, lower, upper")
	fl.Int64Var(&f.maxAlloc, "max-alloc", 0, "allocation budget per alignment in bytes (0: default, <0: unlimited)")
	fl.IntVar(&f.concurrency, "concurrency", buildup.DefaultConcurrency, "parallel pair alignments when scoring")
	fl.BoolVar(&f.bundles, "bundles", false, "extract heaviest-bundle consensus sequences")
	fl.BoolVar(&f.titleWeights, "title-weights", false, "read sequence weights from /hb_weight= in titles")
	fl.Float64Var(&f.minFraction, "min-fraction", 0, "share of a sequence on the consensus path to join its bundle (default 0.9)")
	fl.IntVar(&f.minPath, "min-path-length", 0, "shortest accepted consensus (default 10)")
	fl.IntVar(&f.bundle, "bundle", poaio.AllBundles, "write only this bundle's rows (clustal, pir)")
	fl.BoolVar(&f.refresh, "refresh", false, "recompute instead of using a cached result")
	f.backend.register(cmd)

	return cmd
}

// options builds job options from the config file and the flags that were
// set.
func (f *alignFlags) options(cmd *cobra.Command, args []string) (pipeline.Options, error) {
	var opts pipeline.Options
	if f.config != "" {
		var err error
		if opts, err = pipeline.LoadOptions(f.config); err != nil {
			return opts, err
		}
	}
	if len(args) > 0 {
		opts.Inputs = args
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) || f.config == "" {
			apply()
		}
	}
	set("format", func() { opts.Formats = parseFormats(f.formats) })
	set("matrix", func() { opts.Matrix = f.matrix })
	set("msa", func() { opts.MSA = f.msa })
	set("msa-format", func() { opts.MSAFormat = f.msaFormat })
	set("scores", func() { opts.Scores = f.scores })
	set("strategy", func() { opts.Strategy = f.strategy })
	set("policy", func() { opts.Policy = f.policy })
	set("fuse-all", func() { opts.FuseAll = f.fuseAll })
	set("preserve-order", func() { opts.PreserveOrder = f.preserveOrder })
	set("case", func() { opts.Case = f.caseMode })
	set("max-alloc", func() { opts.MaxAlloc = f.maxAlloc })
	set("concurrency", func() { opts.Concurrency = f.concurrency })
	set("bundles", func() { opts.Bundles = f.bundles })
	set("title-weights", func() { opts.TitleWeights = f.titleWeights })
	set("min-fraction", func() { opts.MinFraction = f.minFraction })
	set("min-path-length", func() { opts.MinPathLength = f.minPath })
	if cmd.Flags().Changed("global") {
		opts.Mode = "local"
		if f.global {
			opts.Mode = "global"
		}
	}
	if cmd.Flags().Changed("bundle") {
		b := f.bundle
		opts.Bundle = &b
	}
	if f.refresh {
		opts.Refresh = true
	}

	if f.subset != "" && f.remove != "" {
		return opts, fmt.Errorf("--subset and --remove are mutually exclusive")
	}
	switch {
	case f.subset != "":
		opts.Subset, opts.RemoveListed = f.subset, false
	case f.remove != "":
		opts.Subset, opts.RemoveListed = f.remove, true
	}
	if opts.Subset != "" && opts.MSA == "" {
		return opts, fmt.Errorf("--subset and --remove need --msa")
	}
	return opts, nil
}

// runAlign executes the job and writes its artifacts.
func (c *CLI) runAlign(ctx context.Context, opts pipeline.Options, f alignFlags) error {
	runner, err := c.newRunner(ctx, f.backend, nil)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	p := printer{w: os.Stderr}

	var spinner *Spinner
	if f.output != "" && c.Logger.GetLevel() > log.DebugLevel {
		spinner = newSpinner(ctx, os.Stderr, "Aligning...")
		spinner.Start()
	}
	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	prog.done("alignment finished", "sequences", result.Stats.Sequences, "columns", result.Stats.Columns)

	if len(result.Identities) > 0 {
		fmt.Fprintln(os.Stderr, identityTable(result.Identities).Render())
	}
	if result.Bundles != nil && result.Bundles.Premature {
		p.warning("bundling stopped early: some sequences are in no bundle")
	}

	if err := writeArtifacts(c.Out, result.Artifacts, opts.Formats, f.output); err != nil {
		return err
	}
	if f.output != "" {
		p.success("Aligned %d inputs", result.Stats.Inputs)
		for _, format := range opts.Formats {
			p.file(outputPath(f.output, format, len(opts.Formats) > 1))
		}
		p.stats(result.Stats.Sequences, result.Stats.NodeCount, result.Stats.Columns, result.CacheInfo.JobHit)
	}
	if result.RecordID != "" {
		p.detail("stored as %s", result.RecordID)
	}
	return nil
}

// writeArtifacts writes each artifact to its output path, or all of them
// to stdout in format order when output is empty.
func writeArtifacts(stdout io.Writer, artifacts map[string][]byte, formats []string, output string) error {
	multiple := len(formats) > 1
	for _, format := range formats {
		data := artifacts[format]
		if output == "" {
			if _, err := stdout.Write(data); err != nil {
				return err
			}
			continue
		}
		if err := writeFile(outputPath(output, format, multiple), data); err != nil {
			return err
		}
	}
	return nil
}

// writeFile writes data to path, compressing when path ends in .zst.
func writeFile(path string, data []byte) (err error) {
	w, err := poaio.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = w.Write(data)
	return err
}
