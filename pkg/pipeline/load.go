package pipeline

import (
	"bytes"
	"io"
	"strings"

	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/cache"
	"github.com/matzehuels/poa/pkg/errors"
	poaio "github.com/matzehuels/poa/pkg/io"
	"github.com/matzehuels/poa/pkg/po"
)

// inputs is everything the build stage reads.
type inputs struct {
	graphs []*po.Graph
	scores []buildup.PairScore
	hash   string
}

// Load reads the job's input graphs. An existing alignment comes first,
// followed by FASTA files in order, inline FASTA text and inline
// sequences.
func Load(opts Options) ([]*po.Graph, error) {
	in, err := load(opts)
	if err != nil {
		return nil, err
	}
	return in.graphs, nil
}

func load(opts Options) (*inputs, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	var graphs []*po.Graph
	if opts.MSA != "" || opts.MSAText != "" {
		g, err := loadMSA(opts)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	for _, path := range opts.Inputs {
		gs, err := poaio.LoadFASTA(path, opts.caseMode)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, gs...)
	}
	if opts.FASTA != "" {
		gs, err := poaio.ReadFASTA(strings.NewReader(opts.FASTA), opts.caseMode)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, gs...)
	}
	for _, s := range opts.Sequences {
		g, err := fromSequence(s, opts.caseMode)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	if len(graphs) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no sequences to align")
	}

	in := &inputs{graphs: graphs}
	var scoreData []byte
	if opts.Scores != "" {
		data, err := readAll(opts.Scores)
		if err != nil {
			return nil, err
		}
		if in.scores, err = buildup.ReadScores(bytes.NewReader(data), graphs); err != nil {
			return nil, err
		}
		scoreData = data
	}

	hash, err := hashInputs(graphs, scoreData)
	if err != nil {
		return nil, err
	}
	in.hash = hash
	return in, nil
}

func loadMSA(opts Options) (*po.Graph, error) {
	var filter *poaio.Filter
	if opts.Subset != "" {
		f, err := poaio.LoadFilter(opts.Subset, opts.RemoveListed)
		if err != nil {
			return nil, err
		}
		filter = f
	}
	mo := poaio.MSAOptions{Format: opts.msaFormat, Filter: filter, Case: opts.caseMode}
	if opts.MSAText != "" {
		return poaio.ReadMSA(strings.NewReader(opts.MSAText), mo)
	}
	return poaio.LoadMSA(opts.MSA, mo)
}

func fromSequence(s Sequence, mode buildup.CaseMode) (*po.Graph, error) {
	if err := errors.ValidateSequenceName(s.Name); err != nil {
		return nil, err
	}
	residues := make([]byte, 0, len(s.Residues))
	for i := 0; i < len(s.Residues); i++ {
		if ch := s.Residues[i]; errors.IsResidue(ch) {
			residues = append(residues, mode.Apply(ch))
		}
	}
	if len(residues) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "sequence %q has no residues", s.Name)
	}
	title := s.Title
	if title == "" {
		title = poaio.DefaultTitle
	}
	return po.FromSequence(s.Name, title, residues), nil
}

func readAll(path string) ([]byte, error) {
	f, err := poaio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return data, nil
}

// hashInputs identifies a job's inputs by their PO serialization, which
// covers names, titles, residues and any existing alignment structure.
func hashInputs(graphs []*po.Graph, scores []byte) (string, error) {
	var buf bytes.Buffer
	for _, g := range graphs {
		if err := poaio.WritePO(g, &buf); err != nil {
			return "", err
		}
	}
	buf.Write(scores)
	return cache.Hash(buf.Bytes()), nil
}
