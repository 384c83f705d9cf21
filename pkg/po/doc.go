// Package po provides the partial-order (PO) graph used to represent a
// multiple sequence alignment.
//
// # Overview
//
// A PO graph is a directed acyclic graph whose nodes ([Letter]) are residues
// and whose edges record the adjacencies observed in one or more source
// sequences. Residues that were aligned and found identical share a single
// node; residues that were aligned but differ sit on a common alignment
// ring, which plays the role of a column in a classic alignment matrix.
//
// # Invariants
//
// Node indices are topologically ordered: every left link of node i points
// to an index smaller than i. Graphs built by this package and by the fuse
// package also keep the members of each ring contiguous in index order, so
// walking the nodes in order and starting a new column whenever the ring id
// changes yields the alignment columns (see [Graph.Columns]).
//
// # Rings
//
// Rings are kept in a union-find structure with path compression whose
// representative is always the smallest member index, so [Graph.RingID]
// is the canonical ring identity. A circular successor list alongside it
// supports member enumeration with [Graph.RingMembers].
//
// # Provenance
//
// Each node carries (sequence, position) pairs naming the source residues it
// stands for. [SourceInfo] holds per-sequence metadata: name, title, length,
// bundling weight and bundle id. [Graph.BuildIndex] derives the
// position-to-node lookup tables from the provenance lists.
//
// # Fatal Errors
//
// Renumbering operations ([Graph.Compact], [Graph.ReindexSources]) treat any
// reference that cannot be resolved as broken bookkeeping and abort through
// errors.Fatal rather than continue on a corrupted graph.
package po
