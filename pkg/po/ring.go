package po

import "slices"

// rings is a union-find over node indices. The root of every set is its
// smallest member; next threads the members of each set into a cycle.
type rings struct {
	parent []int
	next   []int
}

func newRings(n int) rings {
	r := rings{parent: make([]int, n), next: make([]int, n)}
	for i := range r.parent {
		r.parent[i] = i
		r.next[i] = i
	}
	return r
}

func (r *rings) grow() int {
	i := len(r.parent)
	r.parent = append(r.parent, i)
	r.next = append(r.next, i)
	return i
}

func (r *rings) clone() rings {
	return rings{parent: slices.Clone(r.parent), next: slices.Clone(r.next)}
}

// find returns the root of i, halving the path on the way.
func (r *rings) find(i int) int {
	for r.parent[i] != i {
		r.parent[i] = r.parent[r.parent[i]]
		i = r.parent[i]
	}
	return i
}

// union merges the sets of a and b. The smaller root wins and the two member
// cycles are spliced by exchanging the successors of a and b.
func (r *rings) union(a, b int) bool {
	ra, rb := r.find(a), r.find(b)
	if ra == rb {
		return false
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	r.parent[rb] = ra
	r.next[a], r.next[b] = r.next[b], r.next[a]
	return true
}

// RingID returns the canonical id of the ring holding node i: the smallest
// node index on that ring.
func (g *Graph) RingID(i int) int {
	return g.rings.find(i)
}

// NextOnRing returns the ring successor of node i. A node alone on its ring
// is its own successor.
func (g *Graph) NextOnRing(i int) int {
	return g.rings.next[i]
}

// SameRing reports whether nodes a and b are aligned to each other.
func (g *Graph) SameRing(a, b int) bool {
	return g.rings.find(a) == g.rings.find(b)
}

// Crosslink merges the alignment rings of nodes a and b. It is a no-op when
// both are already on the same ring and reports whether a merge happened.
func (g *Graph) Crosslink(a, b int) bool {
	return g.rings.union(a, b)
}

// RingMembers returns every node on the ring of i, starting with i and
// following the ring successor order.
func (g *Graph) RingMembers(i int) []int {
	members := []int{i}
	for j := g.rings.next[i]; j != i; j = g.rings.next[j] {
		members = append(members, j)
	}
	return members
}

// RingMax returns the largest node index on the ring of i.
func (g *Graph) RingMax(i int) int {
	best := i
	for j := g.rings.next[i]; j != i; j = g.rings.next[j] {
		if j > best {
			best = j
		}
	}
	return best
}
