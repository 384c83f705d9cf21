package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	poaio "github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/pipeline"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/render/dot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string   // output file path (or base path for multiple outputs)
	formats   []string // output formats: "dot", "svg"
	detailed  bool     // add node index and sequence count to labels
	noColumns bool     // do not rank nodes by alignment column
	noRings   bool     // omit dashed ring edges
}

// renderCommand creates the render command for drawing alignment graphs.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [alignment]",
		Short: "Render an alignment graph to DOT or SVG",
		Long: `Render an alignment graph to Graphviz DOT or SVG.

The input may be a PO, CLUSTAL, FASTA-PIR or JSON alignment. Nodes of one
alignment column share a rank and aligned nodes are joined by dashed ring
edges. Bundled sequences color their nodes by bundle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = []string{pipeline.FormatSVG}
			if formatsStr != "" {
				opts.formats = parseFormats(formatsStr)
			}
			for _, f := range opts.formats {
				if f != pipeline.FormatDOT && f != pipeline.FormatSVG {
					return fmt.Errorf("invalid render format: %s (must be dot or svg)", f)
				}
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node index and sequence count")
	cmd.Flags().BoolVar(&opts.noColumns, "no-columns", false, "do not align columns on ranks")
	cmd.Flags().BoolVar(&opts.noRings, "no-rings", false, "omit ring edges")
	return cmd
}

// runRender loads the alignment and writes every requested rendering.
func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	prog := newProgress(c.Logger)
	g, err := loadAlignment(input)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded alignment", "nodes", g.Len(), "sequences", len(g.Sources))

	src, err := dot.ToDOT(g, dot.Options{
		Columns:  !opts.noColumns,
		Rings:    !opts.noRings,
		Bundles:  hasBundles(g),
		Detailed: opts.detailed,
	})
	if err != nil {
		return err
	}

	artifacts := make(map[string][]byte, len(opts.formats))
	for _, f := range opts.formats {
		switch f {
		case pipeline.FormatDOT:
			artifacts[f] = []byte(src)
		case pipeline.FormatSVG:
			svg, err := dot.RenderSVG(ctx, src)
			if err != nil {
				return err
			}
			artifacts[f] = svg
		}
	}
	if err := writeArtifacts(c.Out, artifacts, opts.formats, opts.output); err != nil {
		return err
	}
	prog.done("rendered", "nodes", g.Len())

	if opts.output != "" {
		p := printer{w: os.Stderr}
		p.success("Rendered %s", filepath.Base(input))
		for _, f := range opts.formats {
			p.file(outputPath(opts.output, f, len(opts.formats) > 1))
		}
	}
	return nil
}

// loadAlignment reads a JSON document by extension and any other file as
// an MSA.
func loadAlignment(path string) (*po.Graph, error) {
	name := strings.TrimSuffix(path, poaio.CompressedExt)
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return poaio.ImportJSON(path)
	}
	return poaio.LoadMSA(path, poaio.MSAOptions{})
}

func hasBundles(g *po.Graph) bool {
	for i := range g.Sources {
		if g.Sources[i].Bundle != po.NoBundle {
			return true
		}
	}
	return false
}
