package io

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
)

// Format is an alignment file format.
type Format int

const (
	FormatAuto Format = iota
	FormatPO
	FormatPIR
	FormatClustal
)

var formatNames = map[Format]string{
	FormatAuto:    "auto",
	FormatPO:      "po",
	FormatPIR:     "pir",
	FormatClustal: "clustal",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat parses a format name; the empty string means auto.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatAuto, nil
	}
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return FormatAuto, errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: auto, po, pir, clustal)", s)
}

// Filter selects sequences by name. Without Remove only the listed
// sequences are kept; with Remove the listed sequences are dropped.
type Filter struct {
	Names  []string
	Remove bool
}

// Keep reports whether the sequence called name passes the filter. A nil
// filter keeps everything.
func (f *Filter) Keep(name string) bool {
	if f == nil {
		return true
	}
	return slices.Contains(f.Names, name) != f.Remove
}

// ReadFilter reads a filter from "SOURCENAME=<name>" lines. Other lines
// are ignored.
func ReadFilter(r io.Reader, remove bool) (*Filter, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	f := &Filter{Remove: remove}
	for _, line := range lines {
		if name, ok := strings.CutPrefix(line, "SOURCENAME="); ok {
			f.Names = append(f.Names, strings.TrimSpace(name))
		}
	}
	return f, nil
}

// LoadFilter reads a filter file. See [ReadFilter].
func LoadFilter(path string, remove bool) (*Filter, error) {
	return load(path, func(r io.Reader) (*Filter, error) {
		return ReadFilter(r, remove)
	})
}

// MSAOptions controls [ReadMSA].
type MSAOptions struct {
	Format Format
	Filter *Filter
	Case   buildup.CaseMode
}

// ReadMSA reads an alignment in PO, FASTA-PIR or CLUSTAL format and
// returns it as a PO graph. With FormatAuto the format is taken from the
// first line that is not blank and does not start with '#' or '*':
// "VERSION=" means PO, '>' means FASTA-PIR, and anything else is read as
// CLUSTAL.
func ReadMSA(r io.Reader, opts MSAOptions) (*po.Graph, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	format, start := opts.Format, 0
	if format == FormatAuto {
		format, start = detect(lines)
		if start < 0 {
			return nil, errors.New(errors.ErrCodeEmptyInput, "no data in alignment input")
		}
	}
	lines = lines[start:]

	if format == FormatPO {
		g, err := parsePO(lines)
		if err != nil {
			return nil, err
		}
		if opts.Filter != nil {
			g.RemoveSources(func(_ int, s *po.SourceInfo) bool { return !opts.Filter.Keep(s.Name) }, true)
			if len(g.Sources) == 0 {
				return nil, errors.New(errors.ErrCodeEmptyInput, "filter removed every sequence")
			}
		}
		return g, nil
	}

	var rows []buildup.Row
	switch format {
	case FormatPIR:
		rows, err = parsePIR(lines)
	case FormatClustal:
		rows, err = parseClustal(lines)
	default:
		err = errors.New(errors.ErrCodeUnsupported, "unsupported alignment format %s", format)
	}
	if err != nil {
		return nil, err
	}

	rows = slices.DeleteFunc(rows, func(r buildup.Row) bool { return !opts.Filter.Keep(r.Name) })
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no sequences left in alignment")
	}
	for _, r := range rows {
		if !slices.ContainsFunc(r.Aligned, errors.IsResidue) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "sequence %q has no residues", r.Name)
		}
	}
	return buildup.FromRows(rows, opts.Case)
}

// LoadMSA reads an alignment file. See [ReadMSA].
func LoadMSA(path string, opts MSAOptions) (*po.Graph, error) {
	return load(path, func(r io.Reader) (*po.Graph, error) {
		return ReadMSA(r, opts)
	})
}

func detect(lines []string) (Format, int) {
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, ">"):
			return FormatPIR, i
		case strings.HasPrefix(line, "VERSION="):
			return FormatPO, i
		case strings.HasPrefix(line, "CLUSTAL"):
			return FormatClustal, i
		case !isNameStart(line):
			continue
		default:
			return FormatClustal, i
		}
	}
	return FormatAuto, -1
}

// isNameStart reports whether line can start a CLUSTAL data line.
func isNameStart(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case '#', '*', ' ', '\t', '\r', '\n':
		return false
	}
	return true
}

func parseClustal(lines []string) ([]buildup.Row, error) {
	var rows []buildup.Row
	expectHeader, repeats, cur := true, false, 0
	for n, line := range lines {
		if expectHeader {
			if strings.HasPrefix(line, "CLUSTAL") {
				expectHeader = false
				continue
			}
			if !isNameStart(line) {
				continue
			}
			expectHeader = false
		}

		if !isNameStart(line) {
			cur = 0
			if len(rows) > 0 {
				repeats = true
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "clustal line %d: expected a name and residues", n+1)
		}
		name := fields[0]
		if !repeats {
			if err := errors.ValidateSequenceName(name); err != nil {
				return nil, err
			}
			rows = append(rows, buildup.Row{Name: name})
		} else if cur >= len(rows) || rows[cur].Name != name {
			want := "<none>"
			if cur < len(rows) {
				want = rows[cur].Name
			}
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"clustal line %d: sequence name %q does not match expected %q", n+1, name, want)
		}
		for _, f := range fields[1:] {
			rows[cur].Aligned = appendAligned(rows[cur].Aligned, f)
		}
		cur++
	}
	return rows, nil
}

func parsePIR(lines []string) ([]buildup.Row, error) {
	var rows []buildup.Row
	for n, line := range lines {
		switch {
		case strings.HasPrefix(line, ">"):
			body := strings.TrimLeft(line[1:], " \t")
			name, title := body, ""
			if i := strings.IndexAny(body, " \t"); i >= 0 {
				name, title = body[:i], strings.TrimSpace(body[i:])
			}
			if name == "" {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "pir line %d: no sequence name", n+1)
			}
			if err := errors.ValidateSequenceName(name); err != nil {
				return nil, err
			}
			rows = append(rows, buildup.Row{Name: name, Title: title})
		case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "*"):
		default:
			if len(rows) == 0 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "pir line %d: alignment row before any '>' header", n+1)
			}
			last := &rows[len(rows)-1]
			last.Aligned = appendAligned(last.Aligned, line)
		}
	}
	return rows, nil
}

func appendAligned(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if ch := s[i]; errors.IsResidue(ch) || errors.IsGap(ch) {
			dst = append(dst, ch)
		}
	}
	return dst
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := newScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return lines, nil
}
