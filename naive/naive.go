// Package naive is a reference SPH solver that compares every particle pair.
// It shares the physics of package sph but has no spatial grid and always
// runs on the calling goroutine, which makes it a baseline for benchmarks.
package naive

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/components"
	"github.com/pthm-cable/sphfluid/geometry"
	"github.com/pthm-cable/sphfluid/sph"
	"github.com/pthm-cable/sphfluid/systems"
)

type particle struct {
	pos, vel, force   r2.Vec
	density, pressure float64
}

// Simulation is a brute-force solver with the same behaviour as sph.Simulation.
type Simulation struct {
	mu sync.Mutex

	params sph.Params
	kernel sph.Kernel
	logger *slog.Logger
	rng    *rand.Rand

	particles []particle
	bodies    []geometry.Body
	emitters  *systems.EmitterSystem
	external  r2.Vec
	stats     sph.Statistics
}

// New creates an empty simulation. opts.Workers and opts.MultiThreading are ignored.
func New(params sph.Params, opts sph.Options) (*Simulation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Simulation{
		params:   params,
		kernel:   sph.NewKernel(params.KernelRadius),
		logger:   logger,
		rng:      rng,
		emitters: systems.NewEmitterSystem(ecs.NewWorld(), rng, logger),
	}, nil
}

// Update advances one substep.
func (s *Simulation) Update(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("time step %g: %w", dt, sph.ErrInvalidParams)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.particles {
		p := s.particles[i].pos
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			s.external = r2.Vec{}
			return fmt.Errorf("particle %d at %v: %w", i, p, sph.ErrNonFinitePosition)
		}
	}

	// No grid: the pair scan is timed as density.
	t := &s.stats.Time
	*t = sph.StageTimes{}

	start := time.Now()
	s.stats.NeighborCountMin, s.stats.NeighborCountMax = s.density()
	t.DensityPressure = time.Since(start)

	start = time.Now()
	s.forces()
	t.ViscosityForces = time.Since(start)

	start = time.Now()
	for i := range s.particles {
		p := &s.particles[i]
		p.vel = r2.Add(p.vel, r2.Scale(dt/s.params.ParticleMass, p.force))
	}
	t.Predict = time.Since(start)

	start = time.Now()
	for i := range s.particles {
		p := &s.particles[i]
		p.pos = r2.Add(p.pos, r2.Scale(dt, p.vel))
	}
	t.Integration = time.Since(start)

	start = time.Now()
	for i := range s.particles {
		p := &s.particles[i]
		p.pos, p.vel = sph.ResolveCollisions(p.pos, p.vel, s.bodies, &s.params)
	}
	t.Collisions = time.Since(start)

	start = time.Now()
	s.emitters.Update(dt, s.spawn)
	t.Emitters = time.Since(start)

	s.external = r2.Vec{}
	s.stats.ParticleCount = len(s.particles)
	s.stats.Substeps++
	return nil
}

// density computes density and pressure from all pairs within the kernel
// radius and returns the neighbour count range.
func (s *Simulation) density() (lo, hi int) {
	m := s.params.ParticleMass
	h2 := s.params.KernelRadius * s.params.KernelRadius
	lo = math.MaxInt
	for i := range s.particles {
		pi := &s.particles[i]
		rho := m * s.kernel.W(0)
		count := 0
		for j := range s.particles {
			if i == j {
				continue
			}
			d2 := r2.Norm2(r2.Sub(s.particles[j].pos, pi.pos))
			if d2 <= h2 {
				rho += m * s.kernel.W(d2)
				count++
			}
		}
		pi.density = rho
		pi.pressure = sph.Pressure(rho, s.params.RestDensity, s.params.Stiffness)
		lo, hi = min(lo, count), max(hi, count)
	}
	if len(s.particles) == 0 {
		return 0, 0
	}
	return lo, hi
}

func (s *Simulation) forces() {
	m := s.params.ParticleMass
	h2 := s.params.KernelRadius * s.params.KernelRadius
	body := r2.Scale(m, r2.Add(s.params.Gravity, s.external))

	for i := range s.particles {
		pi := &s.particles[i]
		var f r2.Vec
		for j := range s.particles {
			pj := &s.particles[j]
			rij := r2.Sub(pi.pos, pj.pos)
			d2 := r2.Norm2(rij)
			if i == j || d2 > h2 || d2 == 0 {
				continue
			}
			dist := math.Sqrt(d2)
			dir := r2.Scale(1/dist, rij)

			press := -m * (pi.pressure + pj.pressure) / (2 * pj.density) * s.kernel.GradW(dist)
			visc := s.params.Viscosity * m / pj.density * s.kernel.LaplacianW(dist)
			f = r2.Add(f, r2.Add(
				r2.Scale(press, dir),
				r2.Scale(visc, r2.Sub(pj.vel, pi.vel)),
			))
		}
		pi.force = r2.Add(r2.Scale(m/pi.density, f), body)
	}
}

func (s *Simulation) spawn(position, velocity r2.Vec) bool {
	if len(s.particles) >= s.params.MaxParticles {
		return false
	}
	s.particles = append(s.particles, particle{pos: position, vel: velocity})
	return true
}

func (s *Simulation) AddPlane(normal r2.Vec, distance float64) error {
	b, err := geometry.NewPlane(normal, distance)
	if err != nil {
		return err
	}
	s.addBody(b)
	return nil
}

func (s *Simulation) AddCircle(center r2.Vec, radius float64) error {
	b, err := geometry.NewCircle(center, radius)
	if err != nil {
		return err
	}
	s.addBody(b)
	return nil
}

func (s *Simulation) AddLineSegment(a, b r2.Vec) error {
	body, err := geometry.NewLineSegment(a, b)
	if err != nil {
		return err
	}
	s.addBody(body)
	return nil
}

func (s *Simulation) AddPolygon(vertices []r2.Vec) error {
	b, err := geometry.NewPolygon(vertices)
	if err != nil {
		return err
	}
	s.addBody(b)
	return nil
}

func (s *Simulation) addBody(b geometry.Body) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, b)
}

func (s *Simulation) AddVolume(origin, velocity r2.Vec, countX, countY int, spacing float64) error {
	v := sph.Volume{Center: origin, CountX: countX, CountY: countY, Spacing: spacing, Velocity: velocity}
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if have := len(s.particles); !v.Fits(s.params.MaxParticles - have) {
		return fmt.Errorf("adding %dx%d particles to %d of %d: %w",
			v.CountX, v.CountY, have, s.params.MaxParticles, sph.ErrCapacity)
	}
	for _, p := range v.Lattice(nil, s.rng) {
		s.particles = append(s.particles, particle{pos: p, vel: velocity})
	}
	s.stats.ParticleCount = len(s.particles)
	return nil
}

func (s *Simulation) AddEmitter(position, direction r2.Vec, radius, speed, rate, duration float64) error {
	e, err := systems.NewEmitter(position, direction, radius, speed, rate, duration)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitters.Add(e)
	return nil
}

func (s *Simulation) AddExternalForces(f r2.Vec) {
	if math.IsNaN(f.X) || math.IsNaN(f.Y) || math.IsInf(f.X, 0) || math.IsInf(f.Y, 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.external = r2.Add(s.external, f)
}

func (s *Simulation) SetGravity(g r2.Vec) {
	if math.IsNaN(g.X) || math.IsNaN(g.Y) || math.IsInf(g.X, 0) || math.IsInf(g.Y, 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Gravity = g
}

func (s *Simulation) SetParams(p sph.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.particles) > p.MaxParticles {
		return fmt.Errorf("max particles %d below current count %d: %w",
			p.MaxParticles, len(s.particles), sph.ErrCapacity)
	}
	s.params = p
	s.kernel = sph.NewKernel(p.KernelRadius)
	return nil
}

func (s *Simulation) Params() sph.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetMultiThreading has no effect.
func (s *Simulation) SetMultiThreading(bool) {}

func (s *Simulation) IsMultiThreading() bool          { return false }
func (s *Simulation) IsMultiThreadingSupported() bool { return false }
func (s *Simulation) WorkerThreadCount() int          { return 1 }

func (s *Simulation) ClearBodies() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = s.bodies[:0]
}

func (s *Simulation) ClearParticles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.particles = s.particles[:0]
	s.stats.ParticleCount = 0
}

func (s *Simulation) ClearEmitters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitters.Clear()
}

func (s *Simulation) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = sph.Statistics{ParticleCount: len(s.particles)}
}

func (s *Simulation) Stats() sph.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Simulation) ParticleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.particles)
}

func (s *Simulation) Particles(dst []sph.Particle) []sph.Particle {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.particles {
		dst = append(dst, sph.Particle{
			ID:       i,
			Position: p.pos,
			Velocity: p.vel,
			Force:    p.force,
			Density:  p.density,
			Pressure: p.pressure,
		})
	}
	return dst
}

func (s *Simulation) Bodies() []geometry.Body {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geometry.Body(nil), s.bodies...)
}

func (s *Simulation) Emitters(dst []components.Emitter) []components.Emitter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitters.Emitters(dst)
}

// Close is a no-op; there are no workers to stop.
func (s *Simulation) Close() {}
