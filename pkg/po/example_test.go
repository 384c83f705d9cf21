package po_test

import (
	"fmt"

	"github.com/matzehuels/poa/pkg/po"
)

func ExampleFromSequence() {
	g := po.FromSequence("seq1", "a short peptide", []byte("MKV"))

	fmt.Println(g.Len(), g.EdgeCount())
	fmt.Println(string(g.Sequence(0)))
	// Output:
	// 3 2
	// MKV
}

func ExampleGraph_Crosslink() {
	g := po.FromSequence("seq1", "", []byte("ACGT"))
	g.Crosslink(3, 2)

	cols, n := g.Columns()
	fmt.Println(g.RingID(3), n, cols)
	// Output:
	// 2 3 [0 1 2 2]
}
