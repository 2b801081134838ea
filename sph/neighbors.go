package sph

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/parallel"
)

// Neighbor is one entry of a particle's neighbour list. Distances are cached
// so the density and force stages do not recompute them.
type Neighbor struct {
	Index  int32
	DistSq float64
	Dist   float64
}

// NeighborTable holds, per particle, every other particle within the kernel
// radius. Lists are reused between substeps.
type NeighborTable struct {
	lists   [][]Neighbor
	scratch [][]int32 // candidate buffer per worker slot
}

// Len returns the number of particles the table was built for.
func (t *NeighborTable) Len() int {
	return len(t.lists)
}

// Of returns the neighbours of particle i. Valid until the next search.
func (t *NeighborTable) Of(i int) []Neighbor {
	return t.lists[i]
}

func (t *NeighborTable) reset(n, workers int) {
	if cap(t.lists) < n {
		grown := make([][]Neighbor, n, n+n/2)
		copy(grown, t.lists[:cap(t.lists)])
		t.lists = grown
	}
	t.lists = t.lists[:n]
	for len(t.scratch) < workers {
		t.scratch = append(t.scratch, nil)
	}
}

// clear drops every list but keeps the allocated storage.
func (t *NeighborTable) clear() {
	t.lists = t.lists[:0]
}

// Search rebuilds the table from a grid built over the same positions.
func (t *NeighborTable) Search(g *Grid, positions []r2.Vec, radius float64, workers int, run runFunc) {
	t.reset(len(positions), workers)
	radiusSq := radius * radius

	run(len(positions), func(r parallel.Range, worker int) {
		candidates := t.scratch[worker]
		for i := r.Start; i < r.End; i++ {
			cx, cy := g.particleCell(i)
			candidates = g.QueryCellNeighborhood(cx, cy, candidates[:0])

			pi := positions[i]
			list := t.lists[i][:0]
			for _, j := range candidates {
				if int(j) == i {
					continue
				}
				distSq := r2.Norm2(r2.Sub(positions[j], pi))
				if distSq <= radiusSq {
					list = append(list, Neighbor{Index: j, DistSq: distSq, Dist: math.Sqrt(distSq)})
				}
			}
			t.lists[i] = list
		}
		t.scratch[worker] = candidates
	})
}

// CountRange returns the smallest and largest neighbour count.
func (t *NeighborTable) CountRange() (lo, hi int) {
	if len(t.lists) == 0 {
		return 0, 0
	}
	lo = math.MaxInt
	for _, l := range t.lists {
		lo = min(lo, len(l))
		hi = max(hi, len(l))
	}
	return lo, hi
}
