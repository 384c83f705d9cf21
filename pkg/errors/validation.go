package errors

import (
	"strings"
	"unicode"
)

// MaxNameLength bounds sequence names so they fit the name columns of the
// PO, CLUSTAL and PIR writers.
const MaxNameLength = 128

// ValidateSequenceName validates a sequence name read from an input file or
// an API request.
//
// The validation rules:
//   - No empty names
//   - No whitespace or control characters (names are whitespace-delimited in
//     score files and CLUSTAL blocks)
//   - Maximum length of MaxNameLength characters
func ValidateSequenceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "sequence name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return New(ErrCodeInvalidInput, "sequence name too long (max %d characters)", MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "sequence name %q contains whitespace or control characters", name)
		}
	}
	return nil
}

// IsResidue reports whether ch may appear as a residue in a sequence or an
// alignment row.
func IsResidue(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		return true
	case ch == '?' || ch == '[' || ch == ']':
		return true
	}
	return false
}

// IsGap reports whether ch is a gap character in an alignment row.
func IsGap(ch byte) bool {
	return ch == '.' || ch == '-'
}

// ValidateResidues checks that every byte of seq is a residue character.
func ValidateResidues(name string, seq []byte) error {
	if len(seq) == 0 {
		return New(ErrCodeInvalidInput, "sequence %q is empty", name)
	}
	for i, ch := range seq {
		if !IsResidue(ch) {
			return New(ErrCodeInvalidInput, "sequence %q: invalid residue %q at position %d", name, ch, i)
		}
	}
	return nil
}

// ValidateFraction checks that f lies in (0, 1].
func ValidateFraction(what string, f float64) error {
	if f <= 0 || f > 1 {
		return New(ErrCodeInvalidInput, "%s must be in (0, 1], got %g", what, f)
	}
	return nil
}

// ValidateMode checks an alignment mode string.
func ValidateMode(mode string) error {
	switch strings.ToLower(mode) {
	case "global", "local":
		return nil
	}
	return New(ErrCodeInvalidInput, "invalid mode: %q (must be one of: global, local)", mode)
}
