// Package demo lists the interchangeable solver implementations the
// application can switch between at runtime.
package demo

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/components"
	"github.com/pthm-cable/sphfluid/geometry"
	"github.com/pthm-cable/sphfluid/naive"
	"github.com/pthm-cable/sphfluid/sph"
)

// Solver is the capability set shared by every fluid implementation.
type Solver interface {
	Update(dt float64) error

	AddPlane(normal r2.Vec, distance float64) error
	AddCircle(center r2.Vec, radius float64) error
	AddLineSegment(a, b r2.Vec) error
	AddPolygon(vertices []r2.Vec) error
	AddVolume(origin, velocity r2.Vec, countX, countY int, spacing float64) error
	AddEmitter(position, direction r2.Vec, radius, speed, rate, duration float64) error
	AddExternalForces(f r2.Vec)

	SetGravity(g r2.Vec)
	SetParams(p sph.Params) error
	Params() sph.Params

	SetMultiThreading(on bool)
	IsMultiThreading() bool
	IsMultiThreadingSupported() bool
	WorkerThreadCount() int

	ClearBodies()
	ClearParticles()
	ClearEmitters()
	ResetStats()

	Stats() sph.Statistics
	ParticleCount() int
	Particles(dst []sph.Particle) []sph.Particle
	Bodies() []geometry.Body
	Emitters(dst []components.Emitter) []components.Emitter

	Close()
}

var (
	_ Solver = (*sph.Simulation)(nil)
	_ Solver = (*naive.Simulation)(nil)
	_ Solver = sequential{}
)

// Variant is one selectable solver.
type Variant struct {
	Name string
	New  func(params sph.Params, opts sph.Options) (Solver, error)
}

// Variants returns the available solvers in display order.
func Variants() []Variant {
	return []Variant{
		{
			Name: "Uniform Grid (multi-threaded)",
			New: func(p sph.Params, o sph.Options) (Solver, error) {
				s, err := sph.New(p, o)
				if err != nil {
					return nil, err
				}
				return s, nil
			},
		},
		{
			Name: "Uniform Grid (single-threaded)",
			New: func(p sph.Params, o sph.Options) (Solver, error) {
				o.Workers, o.MultiThreading = 1, false
				s, err := sph.New(p, o)
				if err != nil {
					return nil, err
				}
				return sequential{s}, nil
			},
		},
		{
			Name: "Brute Force (single-threaded)",
			New: func(p sph.Params, o sph.Options) (Solver, error) {
				s, err := naive.New(p, o)
				if err != nil {
					return nil, err
				}
				return s, nil
			},
		},
	}
}

// sequential runs a grid solver on the calling goroutine and ignores the
// multithreading toggle.
type sequential struct {
	*sph.Simulation
}

func (sequential) SetMultiThreading(bool)          {}
func (sequential) IsMultiThreading() bool          { return false }
func (sequential) IsMultiThreadingSupported() bool { return false }

// New creates the solver at index.
func New(index int, params sph.Params, opts sph.Options) (Solver, error) {
	variants := Variants()
	if index < 0 || index >= len(variants) {
		return nil, fmt.Errorf("demo index %d out of range [0, %d)", index, len(variants))
	}
	return variants[index].New(params, opts)
}

// Count returns the number of variants.
func Count() int {
	return len(Variants())
}
