package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
)

// POVersion is written on the first line of every PO file.
const POVersion = "LPO.0.1"

// WritePO writes g in the native PO format. The output can be read back
// with [ReadPO] or [ReadMSA].
func WritePO(g *po.Graph, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "VERSION=%s\n", POVersion)
	fmt.Fprintf(bw, "NAME=%s\nTITLE=%s\nLENGTH=%d\nSOURCECOUNT=%d\n", g.Name, g.Title, g.Len(), len(g.Sources))
	for _, s := range g.Sources {
		fmt.Fprintf(bw, "SOURCENAME=%s\nSOURCEINFO=%d %d %d %d %s\n",
			s.Name, s.Length, s.Start, s.Weight, s.Bundle, s.Title)
	}
	for i := range g.Letters {
		l := &g.Letters[i]
		bw.WriteByte(l.Residue)
		bw.WriteByte(':')
		for _, p := range l.Left {
			fmt.Fprintf(bw, "L%d", p)
		}
		for _, s := range l.Sources {
			fmt.Fprintf(bw, "S%d", s.Seq)
		}
		if next := g.NextOnRing(i); next != i {
			fmt.Fprintf(bw, "A%d", next)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ExportPO writes g to a PO file at path.
func ExportPO(g *po.Graph, path string) error {
	return export(path, func(w io.Writer) error { return WritePO(g, w) })
}

// ReadPO reads a graph in the native PO format. Source positions are
// assigned in node order.
func ReadPO(r io.Reader) (*po.Graph, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	return parsePO(lines)
}

// LoadPO reads a PO file. See [ReadPO].
func LoadPO(path string) (*po.Graph, error) {
	return load(path, ReadPO)
}

type poParser struct {
	lines []string
	n     int
}

func (p *poParser) errorf(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidFormat, "po line %d: %s", p.n, fmt.Sprintf(format, args...))
}

// next returns the next non-blank line.
func (p *poParser) next() (string, bool) {
	for p.n < len(p.lines) {
		line := p.lines[p.n]
		p.n++
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
	return "", false
}

func (p *poParser) field(key string) (string, error) {
	line, ok := p.next()
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidFormat, "po: unexpected end of input, want %s=", key)
	}
	v, ok := strings.CutPrefix(strings.TrimLeft(line, " \t"), key+"=")
	if !ok {
		return "", p.errorf("want %s=, got %q", key, line)
	}
	return v, nil
}

func (p *poParser) intField(key string) (int, error) {
	v, err := p.field(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, p.errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func parsePO(lines []string) (*po.Graph, error) {
	p := &poParser{lines: lines}
	if _, err := p.field("VERSION"); err != nil {
		return nil, err
	}
	name, err := p.field("NAME")
	if err != nil {
		return nil, err
	}
	title, err := p.field("TITLE")
	if err != nil {
		return nil, err
	}
	length, err := p.intField("LENGTH")
	if err != nil {
		return nil, err
	}
	nsrc, err := p.intField("SOURCECOUNT")
	if err != nil {
		return nil, err
	}

	g := po.New(strings.TrimSpace(name), strings.TrimSpace(title))
	for k := 0; k < nsrc; k++ {
		sname, err := p.field("SOURCENAME")
		if err != nil {
			return nil, err
		}
		info, err := p.field("SOURCEINFO")
		if err != nil {
			return nil, err
		}
		s, err := parseSourceInfo(info)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		s.Name = strings.TrimSpace(sname)
		g.AddSource(s)
	}

	count := make([]int, nsrc)
	var rings [][2]int
	for i := 0; i < length; i++ {
		line, ok := p.next()
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "po: %d node lines, want %d", i, length)
		}
		line = strings.TrimLeft(line, " \t")
		if len(line) < 2 || line[1] != ':' {
			return nil, p.errorf("invalid node line %q", line)
		}
		node := g.AddLetter(line[0])
		rest := line[2:]
		for rest != "" {
			tag := rest[0]
			end := 1
			for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
				end++
			}
			v, err := strconv.Atoi(rest[1:end])
			if err != nil {
				return nil, p.errorf("invalid field %q", rest[:end])
			}
			rest = rest[end:]

			switch tag {
			case 'L':
				if v >= node {
					return nil, p.errorf("node %d links to later node %d", node, v)
				}
				g.Link(v, node)
			case 'S':
				if v >= nsrc {
					return nil, p.errorf("node %d refers to unknown source %d", node, v)
				}
				if count[v] >= g.Sources[v].Length {
					return nil, p.errorf("source %q has more than %d residues", g.Sources[v].Name, g.Sources[v].Length)
				}
				g.Letters[node].Sources = append(g.Letters[node].Sources, po.Source{Seq: v, Pos: count[v]})
				count[v]++
			case 'A':
				rings = append(rings, [2]int{node, v})
			default:
				return nil, p.errorf("unknown node field %q", tag)
			}
		}
	}

	for _, rg := range rings {
		if rg[1] >= length {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "po: node %d aligned to missing node %d", rg[0], rg[1])
		}
		g.Crosslink(rg[0], rg[1])
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "po: invalid graph")
	}
	return g, nil
}

// parseSourceInfo parses "length start weight bundle title".
func parseSourceInfo(s string) (po.SourceInfo, error) {
	var info po.SourceInfo
	rest := strings.TrimLeft(s, " \t")
	vals := make([]int, 4)
	for i := range vals {
		f, tail, _ := strings.Cut(rest, " ")
		v, err := strconv.Atoi(f)
		if err != nil {
			return info, fmt.Errorf("invalid SOURCEINFO %q", s)
		}
		vals[i] = v
		rest = strings.TrimLeft(tail, " \t")
	}
	info.Length, info.Start, info.Weight, info.Bundle = vals[0], vals[1], vals[2], vals[3]
	info.Title = rest
	if info.Length < 0 {
		return info, fmt.Errorf("negative length in SOURCEINFO %q", s)
	}
	return info, nil
}
