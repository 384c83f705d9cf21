// Package align computes optimal alignments between partial-order graphs.
//
// [Align] runs a generalized Needleman-Wunsch / Smith-Waterman dynamic
// program in which every node may have several predecessors. Either side
// may be a branching graph; [AlignSequence] is the common case of a graph
// against one linear sequence.
//
// # Scoring
//
// Each cell (i, j) takes the best of three moves:
//
//   - match: best over predecessor pairs (i', j') plus the substitution
//     score of the two residues
//   - X insertion: best over predecessors i' of cell (i', j) minus the X gap
//     penalty for the run length recorded there
//   - Y insertion: the same along Y
//
// Ties prefer the match, then the larger insertion, then the Y insertion.
// In [Local] mode a match never starts below zero, so any cell can open a new
// alignment; in [Global] mode the alignment must end on a node that is the
// last residue of some source sequence in both graphs.
//
// # Memory
//
// Score rows for Y are reference counted and returned to a pool once no
// later Y node can read them. The move table is dense. [Estimate] gives the
// byte estimate that [Options.MaxAlloc] is checked against before any work
// starts.
package align
