package sph

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// latticeJitter is the random offset applied to lattice points, as a fraction
// of the spacing. It breaks the perfect symmetry of a fresh block.
const latticeJitter = 0.01

// Particle is a read-only snapshot of one particle.
type Particle struct {
	ID       int // index in creation order, stable until ClearParticles
	Position r2.Vec
	Velocity r2.Vec
	Force    r2.Vec // from the last substep
	Density  float64
	Pressure float64
}

// Volume describes a rectangular block of particles.
type Volume struct {
	Center         r2.Vec
	CountX, CountY int
	Spacing        float64
	Velocity       r2.Vec
}

// Validate reports an unusable block.
func (v Volume) Validate() error {
	switch {
	case v.CountX <= 0 || v.CountY <= 0:
		return fmt.Errorf("volume %dx%d: %w", v.CountX, v.CountY, ErrInvalidParams)
	case !(v.Spacing > 0) || !finite(v.Spacing):
		return fmt.Errorf("volume spacing %g: %w", v.Spacing, ErrInvalidParams)
	case !finiteVec(v.Center) || !finiteVec(v.Velocity):
		return fmt.Errorf("volume at %v moving %v: %w", v.Center, v.Velocity, ErrInvalidParams)
	}
	return nil
}

// Len returns the number of particles in the block.
func (v Volume) Len() int {
	return v.CountX * v.CountY
}

// Fits reports whether the block holds at most n particles. It does not
// multiply the counts, so huge blocks cannot wrap around. The counts must be
// positive.
func (v Volume) Fits(n int) bool {
	return v.CountX <= n && v.CountY <= n/v.CountX
}

// Lattice appends the particle positions of the block to dst, row by row from
// the bottom. The block is centred on v.Center and each point is jittered
// with offsets drawn from rng.
func (v Volume) Lattice(dst []r2.Vec, rng *rand.Rand) []r2.Vec {
	start := r2.Sub(v.Center, r2.Vec{
		X: float64(v.CountX-1) * v.Spacing / 2,
		Y: float64(v.CountY-1) * v.Spacing / 2,
	})
	amp := latticeJitter * v.Spacing
	for y := 0; y < v.CountY; y++ {
		for x := 0; x < v.CountX; x++ {
			dst = append(dst, r2.Vec{
				X: start.X + float64(x)*v.Spacing + (rng.Float64()*2-1)*amp,
				Y: start.Y + float64(y)*v.Spacing + (rng.Float64()*2-1)*amp,
			})
		}
	}
	return dst
}
