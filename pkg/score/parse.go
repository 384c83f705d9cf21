package score

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/poa/pkg/errors"
)

const (
	dirTruncation = "GAP-TRUNCATION-LENGTH="
	dirDecay      = "GAP-DECAY-LENGTH="
	dirPenaltiesX = "GAP-PENALTIES-X="
	dirPenalties  = "GAP-PENALTIES="
)

// Parse reads a matrix in the text format described in the package
// documentation and returns it built.
func Parse(r io.Reader) (*Matrix, error) {
	m := &Matrix{
		GapX:       Gap{DefaultGapOpen, DefaultGapExtend, DefaultGapLong},
		GapY:       Gap{DefaultGapOpen, DefaultGapExtend, DefaultGapLong},
		Truncation: DefaultTruncation,
		Decay:      DefaultDecay,
	}

	var rows map[byte][]int
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || line[0] == '#' {
			continue
		}

		switch {
		case strings.HasPrefix(line, dirTruncation):
			v, err := ints(line[len(dirTruncation):], 1, lineNo)
			if err != nil {
				return nil, err
			}
			m.Truncation = v[0]
			continue
		case strings.HasPrefix(line, dirDecay):
			v, err := ints(line[len(dirDecay):], 1, lineNo)
			if err != nil {
				return nil, err
			}
			m.Decay = v[0]
			continue
		case strings.HasPrefix(line, dirPenaltiesX):
			v, err := ints(line[len(dirPenaltiesX):], 3, lineNo)
			if err != nil {
				return nil, err
			}
			m.GapX = Gap{v[0], v[1], v[2]}
			continue
		case strings.HasPrefix(line, dirPenalties):
			v, err := ints(line[len(dirPenalties):], 3, lineNo)
			if err != nil {
				return nil, err
			}
			m.GapX = Gap{v[0], v[1], v[2]}
			m.GapY = m.GapX
			continue
		}

		if rows == nil {
			for _, f := range strings.Fields(line) {
				m.Symbols = append(m.Symbols, f...)
			}
			if len(m.Symbols) == 0 {
				return nil, errors.New(errors.ErrCodeInvalidMatrix, "line %d: empty symbol line", lineNo)
			}
			rows = make(map[byte][]int, len(m.Symbols))
			continue
		}

		sym := line[0]
		if !m.Has(sym) {
			return nil, errors.New(errors.ErrCodeInvalidMatrix, "line %d: unknown symbol %q", lineNo, sym)
		}
		fields := strings.Fields(line[1:])
		if len(fields) < len(m.Symbols) {
			return nil, errors.New(errors.ErrCodeInvalidMatrix,
				"line %d: missing score value for pair %c:%c", lineNo, sym, m.Symbols[len(fields)])
		}
		row := make([]int, len(m.Symbols))
		for i := range row {
			v, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidMatrix, err, "line %d: bad score for pair %c:%c", lineNo, sym, m.Symbols[i])
			}
			row[i] = v
		}
		rows[sym] = row
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMatrix, err, "read matrix")
	}
	if rows == nil {
		return nil, errors.New(errors.ErrCodeInvalidMatrix, "matrix has no symbol line")
	}

	m.Scores = make([][]int, len(m.Symbols))
	for i, c := range m.Symbols {
		row, ok := rows[c]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidMatrix, "matrix has no row for symbol %q", c)
		}
		m.Scores[i] = row
	}
	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load parses the matrix file at path.
func Load(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "matrix file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open matrix %s", path)
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return m, nil
}

func ints(s string, n, lineNo int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) < n {
		return nil, errors.New(errors.ErrCodeInvalidMatrix, "line %d: expected %d values, got %d", lineNo, n, len(fields))
	}
	out := make([]int, n)
	for i := range out {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMatrix, err, "line %d", lineNo)
		}
		out[i] = v
	}
	return out, nil
}
