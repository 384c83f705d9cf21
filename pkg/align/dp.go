package align

import (
	"math"

	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

// cell is one DP score entry. Gap fields index the gap schedules.
type cell struct {
	score int
	gapX  int32
	gapY  int32
}

// move records how a cell was reached as 1-based indices into the
// predecessor lists of its X and Y nodes. Zero means no step on that axis;
// zero on both axes marks the start of a local alignment.
type move struct {
	x uint16
	y uint16
}

type dp struct {
	x, y  *po.Graph
	m     *score.Matrix
	mode  Mode
	lenX  int
	lenY  int
	predX [][]int
	predY [][]int
	final struct{ x, y []bool }

	penX, penY      []int
	nextGap, nextPp []int32

	moves []move
	rows  *rowPool

	best, bestX, bestY int
}

func newDP(x, y *po.Graph, m *score.Matrix, mode Mode) *dp {
	d := &dp{
		x:     x,
		y:     y,
		m:     m,
		mode:  mode,
		lenX:  x.Len(),
		lenY:  y.Len(),
		best:  minScore,
		bestX: -1,
		bestY: -1,
	}
	d.predX, d.final.x = predecessors(x)
	d.predY, d.final.y = predecessors(y)

	maxGap := m.MaxGap()
	d.penX = m.GapPenaltiesX()
	d.penY = m.GapPenaltiesY()
	d.nextGap = make([]int32, maxGap+2)
	for i := 0; i <= maxGap; i++ {
		d.nextGap[i] = int32(min(i+1, maxGap))
	}
	// Gap length maxGap+1 is the virtual start state.
	if mode == Local {
		d.penX[maxGap+1], d.penY[maxGap+1] = 0, 0
		d.nextGap[maxGap+1] = int32(maxGap + 1)
	} else {
		d.penX[maxGap+1], d.penY[maxGap+1] = d.penX[0], d.penY[0]
		d.nextGap[maxGap+1] = d.nextGap[0]
	}
	d.nextPp = d.nextGap

	d.moves = make([]move, d.lenX*d.lenY)
	d.rows = newRowPool(y, d.lenX+1)
	return d
}

// predecessors returns the predecessor list of every node, with -1 standing
// for the virtual start, and whether each node ends some source sequence.
func predecessors(g *po.Graph) ([][]int, []bool) {
	preds := make([][]int, g.Len())
	final := make([]bool, g.Len())
	for i := range g.Letters {
		l := &g.Letters[i]
		initial := false
		for _, s := range l.Sources {
			if s.Pos == 0 {
				initial = true
			}
			if s.Pos == g.Sources[s.Seq].Length-1 {
				final[i] = true
			}
		}
		switch {
		case len(l.Left) == 0:
			preds[i] = []int{-1}
		case initial:
			preds[i] = append([]int{-1}, l.Left...)
		default:
			preds[i] = append([]int(nil), l.Left...)
		}
		if len(preds[i]) > math.MaxUint16 {
			errors.Fatal("node %d has %d predecessors, more than a move can record", i, len(preds[i]))
		}
	}
	return preds, final
}

// fill runs the DP sweep. Row slices are offset by one so that index 0
// holds column -1.
func (d *dp) fill() {
	maxGap := int32(d.m.MaxGap())

	start := d.rows.start
	start[0] = cell{score: 0, gapX: maxGap + 1, gapY: maxGap + 1}
	for j := 0; j < d.lenX; j++ {
		c := cell{score: minScore}
		for _, p := range d.predX[j] {
			prev := start[p+1]
			try := prev.score - d.penX[prev.gapX]
			if try > c.score {
				c = cell{score: try, gapX: d.nextGap[prev.gapX], gapY: d.nextPp[prev.gapX]}
			}
		}
		start[j+1] = c
	}

	initCol := make([]cell, d.lenY+1)
	initCol[0] = start[0]
	for i := 0; i < d.lenY; i++ {
		c := cell{score: minScore}
		for _, p := range d.predY[i] {
			prev := initCol[p+1]
			try := prev.score - d.penY[prev.gapY]
			if try > c.score {
				c = cell{score: try, gapX: d.nextPp[prev.gapY], gapY: d.nextGap[prev.gapY]}
			}
		}
		initCol[i+1] = c
	}

	floor := minScore
	if d.mode == Local {
		floor = 0
	}

	for i := 0; i < d.lenY; i++ {
		curr := d.rows.acquire(i)
		curr[0] = initCol[i+1]
		ry := d.y.Letters[i].Residue
		moves := d.moves[i*d.lenX : (i+1)*d.lenX]

		for j := 0; j < d.lenX; j++ {
			match, mx, my := floor, 0, 0
			insX, insY := minScore, minScore
			var insXX, insYY int
			var gapXPrev, gapYPrev int32

			for yc, yp := range d.predY[i] {
				prev := d.rows.get(yp)
				pc := prev[j+1]
				if try := pc.score - d.penY[pc.gapY]; try > insY {
					insY, insYY, gapYPrev = try, yc+1, pc.gapY
				}
				for xc, xp := range d.predX[j] {
					if try := prev[xp+1].score; try > match {
						match, mx, my = try, xc+1, yc+1
					}
				}
			}
			for xc, xp := range d.predX[j] {
				pc := curr[xp+1]
				if try := pc.score - d.penX[pc.gapX]; try > insX {
					insX, insXX, gapXPrev = try, xc+1, pc.gapX
				}
			}

			match += d.m.Score(d.x.Letters[j].Residue, ry)

			var c cell
			switch {
			case match >= insY && match >= insX:
				c = cell{score: match}
				moves[j] = move{x: uint16(mx), y: uint16(my)}
			case insX > insY:
				c = cell{score: insX, gapX: d.nextGap[gapXPrev], gapY: d.nextPp[gapXPrev]}
				moves[j] = move{x: uint16(insXX)}
			default:
				c = cell{score: insY, gapX: d.nextPp[gapYPrev], gapY: d.nextGap[gapYPrev]}
				moves[j] = move{y: uint16(insYY)}
			}
			curr[j+1] = c

			if c.score >= d.best && d.canEnd(j, i) {
				if c.score > d.best || (j == d.bestX && i < d.bestY) || j < d.bestX {
					d.best, d.bestX, d.bestY = c.score, j, i
				}
			}
		}
		d.rows.finish(i, d.predY[i])
	}
}

func (d *dp) canEnd(j, i int) bool {
	return d.mode == Local || (d.final.x[j] && d.final.y[i])
}

func (d *dp) traceback() *Result {
	r := &Result{
		Score: d.best,
		XToY:  filled(d.lenX, Unaligned),
		YToX:  filled(d.lenY, Unaligned),
		Stats: Stats{
			NodesX:   d.lenX,
			NodesY:   d.lenY,
			EdgesX:   d.x.EdgeCount(),
			EdgesY:   d.y.EdgeCount(),
			PeakRows: d.rows.peak,
		},
	}
	if d.bestX < 0 || d.bestY < 0 {
		return r
	}
	if d.bestX >= d.lenX || d.bestY >= d.lenY {
		errors.Fatal("traceback start (%d, %d) outside %d x %d table", d.bestX, d.bestY, d.lenX, d.lenY)
	}

	x, y := d.bestX, d.bestY
	for x >= 0 && y >= 0 {
		mv := d.moves[y*d.lenX+x]
		if mv.x > 0 && mv.y > 0 {
			r.XToY[x], r.YToX[y] = y, x
		}
		if mv.x == 0 && mv.y == 0 {
			r.XToY[x], r.YToX[y] = y, x
			break
		}
		nx := x
		if mv.x > 0 {
			nx = d.predX[x][mv.x-1]
		}
		if mv.y > 0 {
			y = d.predY[y][mv.y-1]
		}
		x = nx
	}
	return r
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
