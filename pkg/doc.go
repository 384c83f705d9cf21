// Package pkg provides the core libraries for partial-order multiple
// sequence alignment.
//
// # Overview
//
// A partial-order alignment keeps the aligned sequences as a directed
// acyclic graph of residues instead of a rectangular matrix. Aligned
// residues share a column through an alignment ring; identical residues
// share a node. The pkg directory is organized into these areas:
//
//  1. [po] - The graph: nodes, links, provenance, alignment rings
//  2. [score] - Substitution matrices and gap penalties
//  3. [align] - Dynamic programming of a graph against a graph
//  4. [fuse] - Folding an alignment mapping into a graph
//  5. [buildup] - Iterative, clipped and progressive construction
//  6. [bundle] - Heaviest-bundle consensus extraction
//  7. [io] - FASTA, PO, CLUSTAL, FASTA-PIR and JSON formats
//  8. [pipeline] - Orchestration (load → build → bundle → render)
//
// Supporting packages: [cache] and [store] keep results, [render/dot]
// draws graphs, [observability] exposes hooks for metrics and tracing,
// and [errors] defines the coded errors every package returns.
//
// # Architecture
//
// The typical data flow:
//
//	FASTA / existing alignment
//	         ↓
//	    [io] package (parse into single-sequence or MSA graphs)
//	         ↓
//	    [buildup] package (align + fuse, one strategy)
//	         ↓
//	    [bundle] package (consensus paths, optional)
//	         ↓
//	    PO/CLUSTAL/PIR/FASTA/JSON/DOT/SVG output
//
// # Quick Start
//
//	opts := pipeline.Options{Inputs: []string{"globins.fa"}, Formats: []string{"clustal"}}
//	result, err := pipeline.NewRunner(nil, nil, logger).Execute(ctx, opts)
//	os.Stdout.Write(result.Artifacts["clustal"])
package pkg
