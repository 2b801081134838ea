// Package sph implements a 2D Smoothed Particle Hydrodynamics fluid solver.
//
// A Simulation advances one substep per Update call through a fixed sequence
// of stages: grid rebuild, neighbour search, density and pressure, forces,
// predict, integrate, collisions, position finalisation and emitter spawning.
// Every stage except the last runs as a parallel-for over particles with a
// barrier before the next stage starts.
package sph

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// maxGridCells bounds the grid allocation implied by Domain and KernelRadius.
const maxGridCells = 1 << 24

var (
	// ErrInvalidParams is returned when a parameter set or argument is out of range.
	ErrInvalidParams = errors.New("sph: invalid parameters")
	// ErrCapacity is returned when an operation would exceed Params.MaxParticles.
	ErrCapacity = errors.New("sph: particle capacity exceeded")
	// ErrNonFinitePosition is returned by Update when a particle position is NaN or infinite.
	ErrNonFinitePosition = errors.New("sph: non-finite particle position")
)

// Params is the fixed parameter set of a loaded scenario.
type Params struct {
	KernelRadius    float64 // smoothing radius h, also the grid cell size
	RestDensity     float64
	Stiffness       float64 // gas constant of the equation of state
	Viscosity       float64
	ParticleSpacing float64 // lattice spacing used for volumes
	ParticleMass    float64
	ParticleRadius  float64 // collision radius against static bodies
	Restitution     float64 // 0 = fully inelastic contact
	Friction        float64 // tangential velocity removed per contact, 0..1
	Gravity         r2.Vec
	MaxParticles    int
	Domain          r2.Box // extent of the spatial grid
}

// DefaultParams returns a parameter set that settles a unit-spacing fluid
// under earth gravity at substeps of a few milliseconds.
func DefaultParams() Params {
	return Params{
		KernelRadius:    2.0,
		RestDensity:     1.0,
		Stiffness:       1000,
		Viscosity:       8,
		ParticleSpacing: 1.0,
		ParticleMass:    1.0,
		ParticleRadius:  0.5,
		Restitution:     0,
		Friction:        0.02,
		Gravity:         r2.Vec{Y: -9.8},
		MaxParticles:    20000,
		Domain: r2.Box{
			Min: r2.Vec{X: -40, Y: -5},
			Max: r2.Vec{X: 40, Y: 45},
		},
	}
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	check := func(name string, v float64, ok bool) error {
		if !ok || !finite(v) {
			return fmt.Errorf("%s = %g: %w", name, v, ErrInvalidParams)
		}
		return nil
	}

	checks := []error{
		check("kernel radius", p.KernelRadius, p.KernelRadius > 0),
		check("rest density", p.RestDensity, p.RestDensity > 0),
		check("stiffness", p.Stiffness, p.Stiffness >= 0),
		check("viscosity", p.Viscosity, p.Viscosity >= 0),
		check("particle spacing", p.ParticleSpacing, p.ParticleSpacing > 0),
		check("particle mass", p.ParticleMass, p.ParticleMass > 0),
		check("particle radius", p.ParticleRadius, p.ParticleRadius > 0),
		check("restitution", p.Restitution, p.Restitution >= 0 && p.Restitution <= 1),
		check("friction", p.Friction, p.Friction >= 0 && p.Friction <= 1),
		check("gravity x", p.Gravity.X, true),
		check("gravity y", p.Gravity.Y, true),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if p.MaxParticles <= 0 {
		return fmt.Errorf("max particles = %d: %w", p.MaxParticles, ErrInvalidParams)
	}

	d := p.Domain
	if !finiteVec(d.Min) || !finiteVec(d.Max) || d.Max.X <= d.Min.X || d.Max.Y <= d.Min.Y {
		return fmt.Errorf("domain %v: %w", d, ErrInvalidParams)
	}
	cols, rows := gridDims(d, p.KernelRadius)
	if float64(cols)*float64(rows) > maxGridCells {
		return fmt.Errorf("domain %v needs %dx%d cells at kernel radius %g: %w",
			d, cols, rows, p.KernelRadius, ErrInvalidParams)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v r2.Vec) bool {
	return finite(v.X) && finite(v.Y)
}
