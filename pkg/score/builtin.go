package score

import (
	"bytes"
	"embed"
	"path"
	"slices"
	"strings"

	"github.com/matzehuels/poa/pkg/errors"
)

//go:embed matrices/*.mat
var builtinFS embed.FS

// Builtin names.
const (
	Blosum62   = "blosum62"
	Nucleotide = "nuc"
)

// Builtin returns the built-in matrix called name.
func Builtin(name string) (*Matrix, error) {
	data, err := builtinFS.ReadFile(path.Join("matrices", strings.ToLower(name)+".mat"))
	if err != nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no built-in matrix %q (have %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(bytes.NewReader(data))
}

// BuiltinNames lists the built-in matrices in sorted order.
func BuiltinNames() []string {
	entries, _ := builtinFS.ReadDir("matrices")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".mat"))
	}
	slices.Sort(names)
	return names
}

// Default returns the built-in BLOSUM62 matrix.
func Default() *Matrix {
	m, err := Builtin(Blosum62)
	if err != nil {
		errors.Fatal("built-in matrix: %v", err)
	}
	return m
}

// Resolve loads spec as a built-in name when one matches, otherwise as a
// file path.
func Resolve(spec string) (*Matrix, error) {
	if spec == "" {
		return Default(), nil
	}
	if slices.Contains(BuiltinNames(), strings.ToLower(spec)) {
		return Builtin(spec)
	}
	return Load(spec)
}
