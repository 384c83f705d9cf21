// Package fuse merges two aligned partial-order graphs into one.
//
// Given the correspondence arrays produced by package align, [Fuse] builds
// a graph holding every node of both inputs. Aligned pairs chosen by the
// fusion [Policy] become a single node carrying the provenance of both
// sides; every other aligned pair stays as two nodes on one alignment ring.
// Node indices are interleaved so that the result stays topologically
// ordered and every ring occupies a contiguous block of indices.
//
// [RingIdentities] retargets mismatched pairs to a same-residue member of
// the X ring before fusion, and [Clip] trims a sequence graph to its aligned
// span.
package fuse
