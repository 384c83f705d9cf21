// Package score holds substitution matrices and gap-penalty schedules used
// by the partial-order aligner.
//
// A [Matrix] pairs a symbol alphabet with a substitution table and the gap
// parameters for each axis of the dynamic-programming grid. Matrices are
// read from the plain-text format below, or taken from the built-in set
// (see [Builtin]).
//
//	# comment
//	GAP-PENALTIES=12 2 0
//	GAP-TRUNCATION-LENGTH=16
//	GAP-DECAY-LENGTH=0
//	   A  C  G  T
//	A  4 -2 -2 -2
//	...
//
// The first line that is neither a comment nor a directive lists the
// symbols; every later line starts with a symbol followed by one score per
// symbol. GAP-PENALTIES sets both axes; GAP-PENALTIES-X sets the X axis
// only.
//
// Gap penalties form a schedule indexed by the current gap length: the
// opening cost, then the first affine extension up to the truncation
// length, then a linear decay towards the long-gap extension. The schedule
// has one extra slot past the end that the aligner uses for the virtual
// start state.
package score
