package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/score"
)

// matrixCommand creates the matrix command for inspecting scoring
// matrices.
func (c *CLI) matrixCommand() *cobra.Command {
	var (
		list    bool
		raw     bool
		symbols string
	)

	cmd := &cobra.Command{
		Use:   "matrix [name|file]",
		Short: "Show a scoring matrix and its gap penalties",
		Long: `Show a scoring matrix and its gap penalties.

The argument is a built-in matrix name or a matrix file. Without an
argument the default matrix is shown. --list prints the built-in names.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, name := range score.BuiltinNames() {
					fmt.Fprintln(c.Out, name)
				}
				return nil
			}
			spec := ""
			if len(args) == 1 {
				spec = args[0]
			}
			m, err := score.Resolve(spec)
			if err != nil {
				return err
			}
			if raw {
				return m.Print(c.Out, []byte(symbols))
			}
			return printMatrix(c.Out, m, []byte(symbols))
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list built-in matrices")
	cmd.Flags().BoolVar(&raw, "raw", false, "print plain text instead of a table")
	cmd.Flags().StringVar(&symbols, "symbols", "", "show only these symbols, e.g. ACGT")
	return cmd
}

// printMatrix renders the scores of subset as a table followed by the gap
// schedule.
func printMatrix(w io.Writer, m *score.Matrix, subset []byte) error {
	t, err := matrixTable(m, subset)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, t.Render())

	p := printer{w: w}
	p.info("gap X: open %d, extend %d, long %d", m.GapX.Open, m.GapX.Extend, m.GapX.Long)
	p.info("gap Y: open %d, extend %d, long %d", m.GapY.Open, m.GapY.Extend, m.GapY.Long)
	p.detail("truncation %d, decay %d", m.Truncation, m.Decay)
	return nil
}

func matrixTable(m *score.Matrix, subset []byte) (*table.Table, error) {
	if len(subset) == 0 {
		subset = m.Symbols
	}
	idx := make([]int, len(subset))
	for k, ch := range subset {
		i := slices.Index(m.Symbols, ch)
		if i < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "symbol %q is not in the matrix", ch)
		}
		idx[k] = i
	}

	headers := make([]string, 0, len(subset)+1)
	headers = append(headers, "")
	for _, ch := range subset {
		headers = append(headers, string(ch))
	}
	t := newTable(headers...)
	for k, ch := range subset {
		row := make([]string, 0, len(subset)+1)
		row = append(row, string(ch))
		for _, i := range idx {
			row = append(row, strconv.Itoa(m.Scores[idx[k]][i]))
		}
		t.Row(row...)
	}
	return t, nil
}
