package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/poa/pkg/bundle"
	poaio "github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/po"
)

// bundleRow summarizes one bundle for display.
type bundleRow struct {
	ID        int
	Consensus string
	Length    int
	Members   []string
}

// bundlesCommand creates the bundles command.
func (c *CLI) bundlesCommand() *cobra.Command {
	var (
		output       string
		interactive  bool
		titleWeights bool
		minFraction  float64
		minPath      int
		remove       int
		keep         int
	)

	cmd := &cobra.Command{
		Use:   "bundles [alignment]",
		Short: "Find, list or extract heaviest-bundle consensus groups",
		Long: `Find, list or extract heaviest-bundle consensus groups.

The alignment may be a PO, CLUSTAL or FASTA-PIR file. When it carries no
bundle assignments yet, bundles are computed first. --remove drops one
bundle's sequences and --keep drops all others; the result is written as
PO to --output (default stdout).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("remove") && cmd.Flags().Changed("keep") {
				return fmt.Errorf("--remove and --keep are mutually exclusive")
			}
			g, err := poaio.LoadMSA(args[0], poaio.MSAOptions{})
			if err != nil {
				return err
			}
			if titleWeights {
				bundle.ApplyTitleWeights(g, c.Logger)
			}
			rows, err := c.ensureBundles(cmd.Context(), g, bundle.Options{
				MinFraction:   minFraction,
				MinPathLength: minPath,
				Logger:        c.Logger,
			})
			if err != nil {
				return err
			}

			switch {
			case cmd.Flags().Changed("remove"):
				n := bundle.Remove(g, remove, false)
				c.Logger.Info("removed bundle", "bundle", remove, "sequences", n)
				return c.writeGraph(g, output)
			case cmd.Flags().Changed("keep"):
				n := bundle.Remove(g, keep, true)
				c.Logger.Info("kept bundle", "bundle", keep, "removed", n)
				return c.writeGraph(g, output)
			case interactive:
				_, err := tea.NewProgram(NewBundleListModel(rows)).Run()
				return err
			}

			fmt.Fprintln(c.Out, bundleTable(rows).Render())
			if output != "" {
				return c.writeGraph(g, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the bundled alignment as PO to this file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse bundles interactively")
	cmd.Flags().BoolVar(&titleWeights, "title-weights", false, "read sequence weights from /hb_weight= in titles")
	cmd.Flags().Float64Var(&minFraction, "min-fraction", bundle.DefaultMinFraction, "share of a sequence on the consensus path to join its bundle")
	cmd.Flags().IntVar(&minPath, "min-path-length", bundle.DefaultMinPathLength, "shortest accepted consensus")
	cmd.Flags().IntVar(&remove, "remove", 0, "drop the sequences of this bundle")
	cmd.Flags().IntVar(&keep, "keep", 0, "keep only the sequences of this bundle")
	return cmd
}

// ensureBundles returns the bundles recorded in g, computing them first
// when no source is assigned yet.
func (c *CLI) ensureBundles(ctx context.Context, g *po.Graph, opts bundle.Options) ([]bundleRow, error) {
	if rows := existingBundles(g); len(rows) > 0 {
		return rows, nil
	}
	res, err := bundle.Generate(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	if res.Premature {
		printer{w: os.Stderr}.warning("bundling stopped early: some sequences are in no bundle")
	}
	rows := make([]bundleRow, 0, len(res.Bundles))
	for _, b := range res.Bundles {
		row := bundleRow{ID: b.ID, Consensus: g.Sources[b.Consensus].Name, Length: len(b.Path)}
		for _, m := range b.Members {
			row.Members = append(row.Members, g.Sources[m].Name)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// existingBundles groups the sources of g by their bundle id. The
// consensus of a bundle is its source named with the consensus prefix.
func existingBundles(g *po.Graph) []bundleRow {
	var rows []bundleRow
	byID := make(map[int]int)
	for i := range g.Sources {
		s := &g.Sources[i]
		if s.Bundle == po.NoBundle {
			continue
		}
		k, ok := byID[s.Bundle]
		if !ok {
			k = len(rows)
			byID[s.Bundle] = k
			rows = append(rows, bundleRow{ID: s.Bundle})
		}
		if strings.HasPrefix(s.Name, bundle.ConsensusPrefix) {
			rows[k].Consensus = s.Name
			rows[k].Length = s.Length
			continue
		}
		rows[k].Members = append(rows[k].Members, s.Name)
	}
	return rows
}

func bundleTable(rows []bundleRow) *table.Table {
	t := newTable("Bundle", "Consensus", "Length", "Members", "Sequences")
	for _, r := range rows {
		t.Row(strconv.Itoa(r.ID), r.Consensus, strconv.Itoa(r.Length),
			strconv.Itoa(len(r.Members)), preview(r.Members, 4))
	}
	return t
}

// preview joins the first n names and counts the rest.
func preview(names []string, n int) string {
	if len(names) <= n {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, … (+%d)", strings.Join(names[:n], ", "), len(names)-n)
}

// writeGraph writes g in PO format to path, or to stdout when path is
// empty.
func (c *CLI) writeGraph(g *po.Graph, path string) error {
	if path == "" {
		return poaio.WritePO(g, c.Out)
	}
	if err := poaio.ExportPO(g, path); err != nil {
		return err
	}
	printer{w: os.Stderr}.file(path)
	return nil
}
