package po

// Columns assigns every node to an alignment column. Nodes are visited in
// index order and a new column starts whenever the ring id changes, so a
// ring whose members are contiguous occupies exactly one column. It returns
// the column of each node and the number of columns.
func (g *Graph) Columns() ([]int, int) {
	cols := make([]int, len(g.Letters))
	ncol := 0
	prev := -1
	for i := range g.Letters {
		id := g.RingID(i)
		if i == 0 || id != prev {
			ncol++
			prev = id
		}
		cols[i] = ncol - 1
	}
	return cols, ncol
}

// Rows lays every source sequence out against the alignment columns. Row k
// holds source k's residue in each column it occupies and gap elsewhere.
func (g *Graph) Rows(gap byte) [][]byte {
	cols, ncol := g.Columns()
	rows := make([][]byte, len(g.Sources))
	for k := range rows {
		row := make([]byte, ncol)
		for c := range row {
			row[c] = gap
		}
		rows[k] = row
	}
	for i := range g.Letters {
		for _, s := range g.Letters[i].Sources {
			rows[s.Seq][cols[i]] = g.Letters[i].Residue
		}
	}
	return rows
}
