package io

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
)

// DefaultTitle is given to FASTA records whose header carries no title.
const DefaultTitle = "untitled"

// ReadFASTA reads every record of a FASTA stream into a linear graph.
// Lines starting with '#' or '*' are comments. Characters other than
// residues are dropped and records left empty are skipped.
func ReadFASTA(r io.Reader, mode buildup.CaseMode) ([]*po.Graph, error) {
	clean, err := stripComments(r)
	if err != nil {
		return nil, err
	}

	var graphs []*po.Graph
	fr := fasta.NewReader(bytes.NewReader(clean), linear.NewSeq("", nil, alphabet.Protein))
	for {
		s, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read fasta")
		}
		l := s.(*linear.Seq)
		name := l.Name()
		if err := errors.ValidateSequenceName(name); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(l.Description())
		if title == "" {
			title = DefaultTitle
		}

		residues := make([]byte, 0, len(l.Seq))
		for _, v := range l.Seq {
			if ch := byte(v); errors.IsResidue(ch) {
				residues = append(residues, mode.Apply(ch))
			}
		}
		if len(residues) == 0 {
			continue
		}
		graphs = append(graphs, po.FromSequence(name, title, residues))
	}
	if len(graphs) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no sequences in fasta input")
	}
	return graphs, nil
}

// LoadFASTA reads a FASTA file. See [ReadFASTA].
func LoadFASTA(path string, mode buildup.CaseMode) ([]*po.Graph, error) {
	return load(path, func(r io.Reader) ([]*po.Graph, error) {
		return ReadFASTA(r, mode)
	})
}

// WriteFASTA writes the ungapped sequence of every source of g, 60
// residues per line. The title follows the name when it is not empty.
func WriteFASTA(g *po.Graph, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fw := fasta.NewWriter(bw, pirWidth)
	for k, s := range g.Sources {
		l := linear.NewSeq(s.Name, alphabet.BytesToLetters(g.Sequence(k)), alphabet.Protein)
		l.Desc = s.Title
		if _, err := fw.Write(l); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func stripComments(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	sc := newScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) > 0 && (line[0] == '#' || line[0] == '*') {
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return buf.Bytes(), nil
}

const maxLine = 16 << 20

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}
