package sph

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/parallel"
)

// runFunc executes a stage over [0, n). Simulation passes its pool or an
// inline loop depending on the multi-threading toggle.
type runFunc func(n int, fn parallel.StageFunc)

func runInline(n int, fn parallel.StageFunc) {
	if n > 0 {
		fn(parallel.Range{Start: 0, End: n}, 0)
	}
}

// Grid is a uniform bucket grid over a fixed domain with cells of the kernel
// radius, so all neighbours of a particle lie in its own cell or the eight
// around it. Positions outside the domain are clamped into the border cells
// and counted; see Outside.
//
// Buckets are rebuilt from scratch every substep with a counting sort, which
// keeps each bucket in ascending particle order.
type Grid struct {
	origin     r2.Vec
	cellSize   float64
	cols, rows int

	cellOf    []int32 // cell index per particle
	cellStart []int32 // bucket c is entries[cellStart[c]:cellStart[c+1]]
	cursor    []int32
	entries   []int32

	badIndex atomic.Int64
	outside  atomic.Int64
}

func gridDims(domain r2.Box, cellSize float64) (cols, rows int) {
	size := r2.Sub(domain.Max, domain.Min)
	cols = int(math.Ceil(size.X / cellSize))
	rows = int(math.Ceil(size.Y / cellSize))
	return max(cols, 1), max(rows, 1)
}

// NewGrid creates an empty grid covering domain.
func NewGrid(domain r2.Box, cellSize float64) *Grid {
	cols, rows := gridDims(domain, cellSize)
	return &Grid{
		origin:    domain.Min,
		cellSize:  cellSize,
		cols:      cols,
		rows:      rows,
		cellStart: make([]int32, cols*rows+1),
		cursor:    make([]int32, cols*rows),
	}
}

// Dims returns the number of columns and rows.
func (g *Grid) Dims() (cols, rows int) {
	return g.cols, g.rows
}

// CellOf returns the clamped cell coordinates containing p.
func (g *Grid) CellOf(p r2.Vec) (cx, cy int) {
	cx, cy, _ = g.locate(p)
	return cx, cy
}

func (g *Grid) locate(p r2.Vec) (cx, cy int, clamped bool) {
	cx, clampedX := cellCoord(p.X-g.origin.X, g.cellSize, g.cols)
	cy, clampedY := cellCoord(p.Y-g.origin.Y, g.cellSize, g.rows)
	return cx, cy, clampedX || clampedY
}

// cellCoord clamps in float space so far-away positions cannot overflow int.
func cellCoord(offset, size float64, n int) (int, bool) {
	f := math.Floor(offset / size)
	if f < 0 {
		return 0, true
	}
	if f > float64(n-1) {
		return n - 1, true
	}
	return int(f), false
}

// Rebuild assigns every position to a bucket. Cell keys are computed in
// parallel through run; the bucket fill is a serial counting sort.
// A non-finite position aborts the rebuild with ErrNonFinitePosition.
func (g *Grid) Rebuild(positions []r2.Vec, run runFunc) error {
	n := len(positions)
	if cap(g.cellOf) < n {
		g.cellOf = make([]int32, n, n+n/2)
		g.entries = make([]int32, n, n+n/2)
	}
	g.cellOf = g.cellOf[:n]
	g.entries = g.entries[:n]

	g.badIndex.Store(-1)
	g.outside.Store(0)
	run(n, func(r parallel.Range, _ int) {
		outside := 0
		for i := r.Start; i < r.End; i++ {
			p := positions[i]
			if !finiteVec(p) {
				g.badIndex.CompareAndSwap(-1, int64(i))
				g.cellOf[i] = 0
				continue
			}
			cx, cy, clamped := g.locate(p)
			if clamped {
				outside++
			}
			g.cellOf[i] = int32(cy*g.cols + cx)
		}
		if outside > 0 {
			g.outside.Add(int64(outside))
		}
	})
	if bad := g.badIndex.Load(); bad >= 0 {
		return fmt.Errorf("particle %d at %v: %w", bad, positions[bad], ErrNonFinitePosition)
	}

	clear(g.cellStart)
	for _, c := range g.cellOf {
		g.cellStart[c+1]++
	}
	for c := 1; c < len(g.cellStart); c++ {
		g.cellStart[c] += g.cellStart[c-1]
	}
	copy(g.cursor, g.cellStart[:len(g.cursor)])
	for i, c := range g.cellOf {
		g.entries[g.cursor[c]] = int32(i)
		g.cursor[c]++
	}
	return nil
}

// Outside returns how many positions of the last Rebuild lay outside the
// domain and were clamped into a border cell.
func (g *Grid) Outside() int {
	return int(g.outside.Load())
}

// Cell returns the particle indices bucketed in cell (cx, cy) in ascending order.
// The slice is valid until the next Rebuild.
func (g *Grid) Cell(cx, cy int) []int32 {
	c := cy*g.cols + cx
	return g.entries[g.cellStart[c]:g.cellStart[c+1]]
}

// particleCell returns the cell coordinates particle i was bucketed into.
func (g *Grid) particleCell(i int) (cx, cy int) {
	c := int(g.cellOf[i])
	return c % g.cols, c / g.cols
}

// QueryCellNeighborhood appends the contents of the 3x3 block of cells around
// (cx, cy) to dst. Cells outside the grid are skipped.
func (g *Grid) QueryCellNeighborhood(cx, cy int, dst []int32) []int32 {
	for y := max(cy-1, 0); y <= min(cy+1, g.rows-1); y++ {
		for x := max(cx-1, 0); x <= min(cx+1, g.cols-1); x++ {
			dst = append(dst, g.Cell(x, y)...)
		}
	}
	return dst
}

// Occupancy returns the smallest and largest particle count over non-empty cells.
func (g *Grid) Occupancy() (lo, hi int) {
	lo = math.MaxInt
	for c := 0; c+1 < len(g.cellStart); c++ {
		n := int(g.cellStart[c+1] - g.cellStart[c])
		if n == 0 {
			continue
		}
		lo = min(lo, n)
		hi = max(hi, n)
	}
	if hi == 0 {
		return 0, 0
	}
	return lo, hi
}
