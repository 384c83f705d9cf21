// Package io reads and writes the sequence and alignment formats used by
// poa.
//
// # Overview
//
// Every reader produces a [po.Graph] and every writer consumes one; the
// alignment core never touches files. The supported formats are:
//
//   - FASTA: unaligned input sequences, one linear graph per record
//   - PO: the native partial-order format, lossless
//   - CLUSTAL: row-column alignment, 50 columns per block, '-' gaps
//   - FASTA-PIR: row-column alignment, 60 columns per line, '.' gaps
//   - JSON: graph plus bundles, for the HTTP API and external tools
//
// # PO Format
//
// A PO file starts with a header and one SOURCENAME/SOURCEINFO pair per
// sequence, followed by one line per node:
//
//	VERSION=LPO.0.1
//	NAME=seq1
//	TITLE=first sequence
//	LENGTH=3
//	SOURCECOUNT=1
//	SOURCENAME=seq1
//	SOURCEINFO=3 0 1 -1 first sequence
//	A:S0
//	C:L0S0
//	G:L1S0
//
// SOURCEINFO holds length, start, weight, bundle id and title. A node line
// holds the residue, then L<i> for each predecessor, S<k> for each source
// sequence (positions are implied by order), and A<j> naming the next node
// on its alignment ring when the node is not alone.
//
// # Reading Alignments
//
// [ReadMSA] detects the format from the first meaningful line: "VERSION="
// starts a PO file, '>' a FASTA-PIR file, and anything else is read as
// CLUSTAL. A [Filter] keeps or removes sequences by name.
//
//	g, err := io.LoadMSA("family.aln", io.MSAOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Compression
//
// [Open] and [Create] compress and decompress transparently when the path
// ends in ".zst". Every Load and Export helper goes through them.
package io
