// Package buildup assembles many sequences into one partial-order alignment.
//
// A [Builder] repeatedly aligns two graphs with package align and fuses the
// second into the first with package fuse, discarding the second. Three
// strategies decide what is aligned against what:
//
//   - [Builder.Iterative] aligns every input against the growing result, in
//     input order.
//   - [Builder.Clipped] does the same but trims each input to its aligned
//     span first, so unaligned flanks never enter the graph.
//   - [Builder.Progressive] merges clusters in descending order of pairwise
//     similarity, starting from singleton clusters. Scores come from a file
//     ([ReadScores]) or from local alignment of every pair
//     ([Builder.PairScores]).
//
// Input graphs are consumed: after a build only the returned graph is
// valid. The context is checked between steps, never inside an alignment,
// so cancellation takes effect once the current step has finished.
//
// [FromRows] builds a graph from an already aligned row matrix, as read from
// CLUSTAL or FASTA-PIR files.
package buildup
