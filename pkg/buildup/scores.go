package buildup

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/poa/pkg/align"
	"github.com/matzehuels/poa/pkg/cache"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/observability"
	"github.com/matzehuels/poa/pkg/po"
	"github.com/matzehuels/poa/pkg/score"
)

// FindGraph returns the index of the first graph that is named name or
// holds a source sequence named name, or -1.
func FindGraph(graphs []*po.Graph, name string) int {
	for i, g := range graphs {
		if g == nil {
			continue
		}
		if g.Name == name || g.FindSource(name) >= 0 {
			return i
		}
	}
	return -1
}

// ReadScores reads whitespace-separated "name1 name2 score" triples and
// resolves the names with FindGraph. An unknown name is an
// ErrCodeInvalidInput error, a malformed score or a dangling field an
// ErrCodeInvalidFormat error. An empty file yields an empty, non-nil slice
// so callers can tell it from no file at all.
func ReadScores(r io.Reader, graphs []*po.Graph) ([]PairScore, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var fields []string
	scores := []PairScore{}
	for sc.Scan() {
		fields = append(fields, sc.Text())
		if len(fields) < 3 {
			continue
		}
		i, j := FindGraph(graphs, fields[0]), FindGraph(graphs, fields[1])
		if i < 0 || j < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid sequence pair, not found: %s,%s", fields[0], fields[1])
		}
		x, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "pair score %s,%s: bad score %q", fields[0], fields[1], fields[2])
		}
		scores = append(scores, PairScore{I: i, J: j, Score: x})
		fields = fields[:0]
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read pair scores")
	}
	if len(fields) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "pair score file ends with an incomplete triple %q", fields)
	}
	return scores, nil
}

// PairScores scores every pair i > j of graphs by local alignment. Pairs
// are aligned concurrently, at most Concurrency at a time, and the result
// lists pairs in (i, j) order regardless of completion order. Scores are
// cached under a fingerprint of both graphs and the matrix.
func (b *Builder) PairScores(ctx context.Context, graphs []*po.Graph) ([]PairScore, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	n := len(graphs)
	if n < 2 {
		return nil, nil
	}

	fps := make([]uint64, n)
	for i, g := range graphs {
		fps[i] = Fingerprint(g)
	}
	opts := cache.PairKeyOpts{Matrix: MatrixFingerprint(b.Matrix), Mode: align.Local.String()}

	out := make([]PairScore, 0, n*(n-1)/2)
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			out = append(out, PairScore{I: i, J: j})
		}
	}

	limit := b.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for k := range out {
		p := &out[k]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			key := b.keyer().PairKey(fps[p.I], fps[p.J], opts)
			if v, ok := b.cachedScore(gctx, key); ok {
				p.Score = v
				return nil
			}
			res, err := b.align(gctx, graphs[p.I], graphs[p.J], align.Local)
			if err != nil {
				return errors.Wrap(errors.GetCode(err), err, "score %s vs %s", graphs[p.I].Name, graphs[p.J].Name)
			}
			p.Score = float64(res.Score)
			b.storeScore(gctx, key, res.Score)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range out {
		b.log().Debug("pair score", "i", p.I, "name_i", graphs[p.I].Name, "j", p.J, "name_j", graphs[p.J].Name, "score", p.Score)
	}
	return out, nil
}

func (b *Builder) keyer() cache.Keyer {
	if b.Keyer == nil {
		return cache.NewDefaultKeyer()
	}
	return b.Keyer
}

func (b *Builder) cachedScore(ctx context.Context, key string) (float64, bool) {
	if b.Cache == nil {
		return 0, false
	}
	data, hit, err := b.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "pairscore")
		return 0, false
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		observability.Cache().OnCacheMiss(ctx, "pairscore")
		return 0, false
	}
	observability.Cache().OnCacheHit(ctx, "pairscore")
	return float64(v), true
}

func (b *Builder) storeScore(ctx context.Context, key string, v int) {
	if b.Cache == nil {
		return
	}
	data := []byte(strconv.Itoa(v))
	if err := b.Cache.Set(ctx, key, data, cache.PairScoreTTL); err != nil {
		b.log().Debug("pair score not cached", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "pairscore", len(data))
}

// Fingerprint hashes the content of g: residues, links and source
// sequences. Two graphs with equal fingerprints align identically.
func Fingerprint(g *po.Graph) uint64 {
	f := cache.NewFingerprint()
	f.Int(g.Len())
	for i := range g.Letters {
		l := &g.Letters[i]
		f.Write([]byte{l.Residue})
		f.Int(len(l.Left))
		for _, p := range l.Left {
			f.Int(p)
		}
	}
	f.Int(len(g.Sources))
	for i := range g.Sources {
		f.String(g.Sources[i].Name)
		f.Int(g.Sources[i].Length)
	}
	return f.Sum()
}

// MatrixFingerprint hashes every setting of m that affects a score.
func MatrixFingerprint(m *score.Matrix) uint64 {
	f := cache.NewFingerprint()
	f.String(string(m.Symbols))
	for _, row := range m.Scores {
		for _, v := range row {
			f.Int(v)
		}
	}
	for _, gap := range []score.Gap{m.GapX, m.GapY} {
		f.Int(gap.Open)
		f.Int(gap.Extend)
		f.Int(gap.Long)
	}
	f.Int(m.Truncation)
	f.Int(m.Decay)
	return f.Sum()
}
