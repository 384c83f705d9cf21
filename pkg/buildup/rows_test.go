package buildup

import (
	"testing"

	"github.com/matzehuels/poa/pkg/errors"
)

func TestFromRows(t *testing.T) {
	rows := []Row{
		{Name: "s1", Title: "first", Aligned: []byte("AC-GT")},
		{Name: "s2", Aligned: []byte("ACTGT")},
		{Name: "s3", Aligned: []byte("AG.GT")},
	}
	g, err := FromRows(rows, CaseKeep)
	if err != nil {
		t.Fatalf("FromRows() error: %v", err)
	}
	if g.Name != "s1" || g.Title != "first" {
		t.Errorf("name/title = %q/%q, want s1/first", g.Name, g.Title)
	}
	if g.Len() != 6 {
		t.Errorf("Len() = %d, want 6", g.Len())
	}
	if len(g.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(g.Sources))
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	wantSeq := []string{"ACGT", "ACTGT", "AGGT"}
	for s, want := range wantSeq {
		if got := string(g.Sequence(s)); got != want {
			t.Errorf("Sequence(%d) = %q, want %q", s, got, want)
		}
	}

	wantRows := []string{"AC-GT", "ACTGT", "AG-GT"}
	for s, row := range g.Rows('-') {
		if string(row) != wantRows[s] {
			t.Errorf("Rows()[%d] = %q, want %q", s, row, wantRows[s])
		}
	}
}

func TestFromRowsCase(t *testing.T) {
	rows := func() []Row {
		return []Row{
			{Name: "lower", Aligned: []byte("acgt")},
			{Name: "upper", Aligned: []byte("ACGT")},
		}
	}
	tests := []struct {
		mode  CaseMode
		nodes int
	}{
		{CaseKeep, 8},
		{CaseUpper, 4},
		{CaseLower, 4},
	}
	for _, tt := range tests {
		g, err := FromRows(rows(), tt.mode)
		if err != nil {
			t.Fatalf("FromRows(%v) error: %v", tt.mode, err)
		}
		if g.Len() != tt.nodes {
			t.Errorf("FromRows(%v) Len() = %d, want %d", tt.mode, g.Len(), tt.nodes)
		}
		if _, ncol := g.Columns(); ncol != 4 {
			t.Errorf("FromRows(%v) columns = %d, want 4", tt.mode, ncol)
		}
	}
}

func TestFromRowsEmpty(t *testing.T) {
	if _, err := FromRows(nil, CaseKeep); !errors.Is(err, errors.ErrCodeEmptyInput) {
		t.Errorf("FromRows(nil) error = %v, want %s", err, errors.ErrCodeEmptyInput)
	}
}

func TestParseCaseMode(t *testing.T) {
	for s, want := range map[string]CaseMode{"": CaseKeep, "keep": CaseKeep, "lower": CaseLower, "upper": CaseUpper} {
		if got, err := ParseCaseMode(s); err != nil || got != want {
			t.Errorf("ParseCaseMode(%q) = %v, %v, want %v", s, got, err, want)
		}
	}
	if _, err := ParseCaseMode("title"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ParseCaseMode(title) error = %v", err)
	}
}
