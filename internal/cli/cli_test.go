package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/poa/pkg/bundle"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

const testFASTA = `>x first
ACDEFGHIKLMNPQ
>y second
ACDEFGHIKLMNPQ
>z third
ACDEFGHIKLMNPQ
`

// execute runs the root command with args and returns what it wrote to
// the output writer.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("POA_REDIS_ADDR", "")
	t.Setenv("POA_MONGO_URI", "")

	var out bytes.Buffer
	c := New(&bytes.Buffer{}, LogInfo)
	c.Out = &out
	root := c.RootCommand()
	root.SilenceErrors = true
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"align", "matrix", "bundles", "render", "serve", "cache", "completion"} {
		if !slices.Contains(names, want) {
			t.Errorf("root command missing %q, have %v", want, names)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"clustal"}},
		{"po", []string{"po"}},
		{"po, pir ,", []string{"po", "pir"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, format string
		multiple       bool
		want           string
	}{
		{"", "po", false, ""},
		{"out.aln", "clustal", false, "out.aln"},
		{"out.aln", "po", true, "out.po"},
		{"out", "pir", true, "out.pir"},
		{"out.po.zst", "pir", true, "out.pir.zst"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.format, tt.multiple); got != tt.want {
			t.Errorf("outputPath(%q, %q, %v) = %q, want %q", tt.output, tt.format, tt.multiple, got, tt.want)
		}
	}
}

func TestAlignCommandStdout(t *testing.T) {
	in := writeTemp(t, "seqs.fa", testFASTA)
	out, err := execute(t, "align", "--no-cache", in)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if !strings.HasPrefix(out, "CLUSTAL") {
		t.Errorf("align output does not start with a CLUSTAL header:\n%s", out)
	}
	for _, name := range []string{"x", "y", "z"} {
		if !strings.Contains(out, "\n"+name+" ") {
			t.Errorf("align output missing row %q", name)
		}
	}
}

func TestAlignCommandFiles(t *testing.T) {
	in := writeTemp(t, "seqs.fa", testFASTA)
	base := filepath.Join(t.TempDir(), "out.aln")
	if _, err := execute(t, "align", "--no-cache", "-f", "po,pir", "-o", base, in); err != nil {
		t.Fatalf("align: %v", err)
	}

	poText, err := os.ReadFile(outputPath(base, "po", true))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(poText), "VERSION=LPO.0.1") {
		t.Errorf("po output starts with %q", strings.SplitN(string(poText), "\n", 2)[0])
	}
	pir, err := os.ReadFile(outputPath(base, "pir", true))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(pir), ">"); got != 3 {
		t.Errorf("pir output has %d records, want 3", got)
	}
}

func TestAlignCommandFlagErrors(t *testing.T) {
	in := writeTemp(t, "seqs.fa", testFASTA)
	tests := []struct {
		name string
		args []string
	}{
		{"subset without msa", []string{"align", "--no-cache", "--subset", "keep.txt", in}},
		{"subset and remove", []string{"align", "--no-cache", "--msa", in, "--subset", "a", "--remove", "b"}},
		{"bad format", []string{"align", "--no-cache", "-f", "png", in}},
		{"bad strategy", []string{"align", "--no-cache", "--strategy", "random", in}},
		{"no inputs", []string{"align", "--no-cache"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("align %v: expected error", tt.args)
			}
		})
	}
}

func TestAlignCommandConfig(t *testing.T) {
	in := writeTemp(t, "seqs.fa", testFASTA)
	cfg := writeTemp(t, "job.toml", "formats = [\"fasta\"]\nstrategy = \"iterative\"\n")

	out, err := execute(t, "align", "--no-cache", "--config", cfg, in)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if !strings.HasPrefix(out, ">x") {
		t.Errorf("config format not applied, output:\n%s", out)
	}

	out, err = execute(t, "align", "--no-cache", "--config", cfg, "-f", "clustal", in)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if !strings.HasPrefix(out, "CLUSTAL") {
		t.Errorf("format flag should override config, output:\n%s", out)
	}
}

func TestMatrixCommand(t *testing.T) {
	out, err := execute(t, "matrix", "--list")
	if err != nil {
		t.Fatalf("matrix --list: %v", err)
	}
	for _, name := range score.BuiltinNames() {
		if !strings.Contains(out, name) {
			t.Errorf("matrix --list missing %q", name)
		}
	}

	out, err = execute(t, "matrix", "--symbols", "AC", score.Blosum62)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	if out == "" {
		t.Error("matrix printed nothing")
	}

	if _, err := execute(t, "matrix", "no-such-matrix"); err == nil {
		t.Error("matrix with unknown name should fail")
	}
}

func TestBundlesCommand(t *testing.T) {
	in := writeTemp(t, "seqs.fa", testFASTA)
	aln := filepath.Join(t.TempDir(), "aln.po")
	if _, err := execute(t, "align", "--no-cache", "-f", "po", "-o", aln, in); err != nil {
		t.Fatalf("align: %v", err)
	}

	out, err := execute(t, "bundles", aln)
	if err != nil {
		t.Fatalf("bundles: %v", err)
	}
	if !strings.Contains(out, bundle.ConsensusPrefix+"0") {
		t.Errorf("bundles output missing consensus:\n%s", out)
	}

	if _, err := execute(t, "bundles", "--remove", "0", "--keep", "0", aln); err == nil {
		t.Error("--remove with --keep should fail")
	}

	out, err = execute(t, "bundles", "--keep", "0", aln)
	if err != nil {
		t.Fatalf("bundles --keep: %v", err)
	}
	if !strings.HasPrefix(out, "VERSION=") || !strings.Contains(out, "SOURCECOUNT=4") {
		t.Errorf("bundles --keep output:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	in := writeTemp(t, "seqs.fa", testFASTA)
	aln := filepath.Join(t.TempDir(), "aln.po")
	if _, err := execute(t, "align", "--no-cache", "-f", "po", "-o", aln, in); err != nil {
		t.Fatalf("align: %v", err)
	}

	out, err := execute(t, "render", "-f", "dot", aln)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "digraph") {
		t.Errorf("render output is not DOT:\n%s", out)
	}

	if _, err := execute(t, "render", "-f", "png", aln); err == nil {
		t.Error("render -f png should fail")
	}
}

func TestExistingBundles(t *testing.T) {
	g := po.New("g", "")
	for _, s := range []po.SourceInfo{
		{Name: "a", Bundle: 0},
		{Name: "b", Bundle: po.NoBundle},
		{Name: "CONSENS0", Bundle: 0, Length: 7},
		{Name: "c", Bundle: 1},
	} {
		g.AddSource(s)
	}

	rows := existingBundles(g)
	if len(rows) != 2 {
		t.Fatalf("existingBundles() = %d rows, want 2", len(rows))
	}
	if rows[0].Consensus != "CONSENS0" || rows[0].Length != 7 || !slices.Equal(rows[0].Members, []string{"a"}) {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].ID != 1 || !slices.Equal(rows[1].Members, []string{"c"}) {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestPreview(t *testing.T) {
	if got := preview([]string{"a", "b"}, 4); got != "a, b" {
		t.Errorf("preview() = %q", got)
	}
	if got := preview([]string{"a", "b", "c"}, 2); got != "a, b, … (+1)" {
		t.Errorf("preview() = %q", got)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := execute(t, "completion", shell)
		if err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out, "poa") {
			t.Errorf("completion %s output does not mention poa", shell)
		}
	}
	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("completion tcsh should fail")
	}
}
