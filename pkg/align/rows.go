package align

import (
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
)

// rowPool hands out score rows for Y nodes and recycles each one once every
// Y node that lists it as a predecessor has been swept.
type rowPool struct {
	width int
	start []cell   // row -1
	live  [][]cell // live[i] is the row of Y node i, nil once released
	refs  []int    // sweeps still needing row i
	free  [][]cell
	n     int
	peak  int
}

func newRowPool(y *po.Graph, width int) *rowPool {
	p := &rowPool{
		width: width,
		start: make([]cell, width),
		live:  make([][]cell, y.Len()),
		refs:  make([]int, y.Len()),
	}
	for i := range y.Letters {
		for _, l := range y.Letters[i].Left {
			p.refs[l]++
		}
	}
	return p
}

// acquire returns a row for Y node i.
func (p *rowPool) acquire(i int) []cell {
	var row []cell
	if k := len(p.free); k > 0 {
		row = p.free[k-1]
		p.free = p.free[:k-1]
	} else {
		row = make([]cell, p.width)
	}
	p.live[i] = row
	p.n++
	p.peak = max(p.peak, p.n)
	return row
}

// get returns the row of Y node i, or the start row for -1.
func (p *rowPool) get(i int) []cell {
	if i < 0 {
		return p.start
	}
	row := p.live[i]
	if row == nil {
		errors.Fatal("score row %d read after release", i)
	}
	return row
}

// finish releases the rows that Y node i was the last reader of, and row i
// itself when nothing downstream reads it.
func (p *rowPool) finish(i int, preds []int) {
	for _, l := range preds {
		if l < 0 {
			continue
		}
		p.refs[l]--
		if p.refs[l] == 0 {
			p.release(l)
		}
	}
	if p.refs[i] == 0 {
		p.release(i)
	}
}

func (p *rowPool) release(i int) {
	if p.live[i] == nil {
		return
	}
	p.free = append(p.free, p.live[i])
	p.live[i] = nil
	p.n--
}
