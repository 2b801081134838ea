package sph

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/components"
	"github.com/pthm-cable/sphfluid/geometry"
	"github.com/pthm-cable/sphfluid/parallel"
	"github.com/pthm-cable/sphfluid/systems"
)

// Options configures a Simulation beyond its physical parameters.
type Options struct {
	Workers        int // worker goroutines; below 1 uses GOMAXPROCS
	MultiThreading bool
	Seed           int64 // seeds volume jitter and emitter spread
	Logger         *slog.Logger
}

// Simulation is a uniform-grid SPH solver. Particle state is stored as
// parallel slices indexed by particle ID.
//
// All methods are safe for concurrent use; each one holds the simulation
// lock for its whole duration, so no caller ever sees a half-finished substep.
type Simulation struct {
	mu sync.Mutex

	params Params
	kernel Kernel
	logger *slog.Logger
	rng    *rand.Rand

	pool           *parallel.Pool
	multiThreading bool

	pos, next []r2.Vec // next is the integration back buffer
	vel       []r2.Vec
	force     []r2.Vec
	density   []float64
	pressure  []float64

	grid      *Grid
	neighbors NeighborTable
	bodies    []geometry.Body

	world    *ecs.World
	emitters *systems.EmitterSystem

	external r2.Vec // acceleration consumed by the next Update
	dt       float64
	stats    Statistics
}

// New creates an empty simulation.
func New(params Params, opts Options) (*Simulation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	world := ecs.NewWorld()
	s := &Simulation{
		params:         params,
		kernel:         NewKernel(params.KernelRadius),
		logger:         logger,
		rng:            rng,
		pool:           parallel.NewPool(opts.Workers),
		multiThreading: opts.MultiThreading,
		grid:           NewGrid(params.Domain, params.KernelRadius),
		world:          world,
		emitters:       systems.NewEmitterSystem(world, rng, logger),
	}
	return s, nil
}

// Close stops the worker pool. The simulation must not be updated afterwards.
func (s *Simulation) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool.Close()
}

func (s *Simulation) run(n int, fn parallel.StageFunc) {
	if s.multiThreading {
		s.pool.Run(n, fn)
		return
	}
	runInline(n, fn)
}

// Update advances the simulation by one substep of length dt.
// A non-finite particle position aborts the substep with ErrNonFinitePosition
// before any particle state is modified.
func (s *Simulation) Update(dt float64) error {
	if !(dt > 0) || !finite(dt) {
		return fmt.Errorf("time step %g: %w", dt, ErrInvalidParams)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dt = dt
	t := &s.stats.Time
	n := len(s.pos)

	var err error
	timed(&t.UpdateGrid, func() {
		err = s.grid.Rebuild(s.pos, s.run)
	})
	if err != nil {
		s.external = r2.Vec{}
		return fmt.Errorf("update grid: %w", err)
	}
	s.stats.CellOccupancyMin, s.stats.CellOccupancyMax = s.grid.Occupancy()
	if out := s.grid.Outside(); out != s.stats.OutOfDomain {
		if s.stats.OutOfDomain == 0 {
			s.logger.Debug("particles left the grid domain", "count", out, "domain", s.params.Domain)
		}
		s.stats.OutOfDomain = out
	}

	timed(&t.NeighborSearch, func() {
		s.neighbors.Search(s.grid, s.pos, s.params.KernelRadius, s.pool.Workers(), s.run)
	})
	s.stats.NeighborCountMin, s.stats.NeighborCountMax = s.neighbors.CountRange()

	timed(&t.DensityPressure, func() { s.run(n, s.densityStage) })
	timed(&t.ViscosityForces, func() { s.run(n, s.forceStage) })
	timed(&t.Predict, func() { s.run(n, s.predictStage) })
	timed(&t.Integration, func() { s.run(n, s.integrateStage) })
	timed(&t.Collisions, func() { s.run(n, s.collisionStage) })
	timed(&t.DeltaPositions, s.finalize)
	timed(&t.Emitters, func() { s.emitters.Update(dt, s.spawn) })

	s.external = r2.Vec{}
	s.stats.ParticleCount = len(s.pos)
	s.stats.Substeps++
	return nil
}

// spawn appends one particle unless the store is full.
func (s *Simulation) spawn(position, velocity r2.Vec) bool {
	if len(s.pos) >= s.params.MaxParticles {
		return false
	}
	s.appendParticle(position, velocity)
	return true
}

func (s *Simulation) appendParticle(position, velocity r2.Vec) {
	s.pos = append(s.pos, position)
	s.next = append(s.next, position)
	s.vel = append(s.vel, velocity)
	s.force = append(s.force, r2.Vec{})
	s.density = append(s.density, 0)
	s.pressure = append(s.pressure, 0)
}

// AddPlane adds a half-space boundary; see geometry.NewPlane.
func (s *Simulation) AddPlane(normal r2.Vec, distance float64) error {
	b, err := geometry.NewPlane(normal, distance)
	if err != nil {
		return err
	}
	s.addBody(b)
	return nil
}

// AddCircle adds a solid disk.
func (s *Simulation) AddCircle(center r2.Vec, radius float64) error {
	b, err := geometry.NewCircle(center, radius)
	if err != nil {
		return err
	}
	s.addBody(b)
	return nil
}

// AddLineSegment adds a two-sided segment.
func (s *Simulation) AddLineSegment(a, b r2.Vec) error {
	body, err := geometry.NewLineSegment(a, b)
	if err != nil {
		return err
	}
	s.addBody(body)
	return nil
}

// AddPolygon adds a convex polygon.
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

// AddVolume adds a countX by countY block of particles centred on origin,
// all moving with velocity. The whole block is rejected with ErrCapacity if
// it does not fit.
func (s *Simulation) AddVolume(origin, velocity r2.Vec, countX, countY int, spacing float64) error {
	v := Volume{Center: origin, CountX: countX, CountY: countY, Spacing: spacing, Velocity: velocity}
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if have := len(s.pos); !v.Fits(s.params.MaxParticles - have) {
		return fmt.Errorf("adding %dx%d particles to %d of %d: %w",
			v.CountX, v.CountY, have, s.params.MaxParticles, ErrCapacity)
	}
	for _, p := range v.Lattice(nil, s.rng) {
		s.appendParticle(p, velocity)
	}
	s.stats.ParticleCount = len(s.pos)
	return nil
}

// AddEmitter adds an emitter; see systems.NewEmitter for the argument ranges.
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

// AddExternalForces adds an acceleration applied to every particle during the
// next Update only. Non-finite values are ignored.
func (s *Simulation) AddExternalForces(f r2.Vec) {
	if !finiteVec(f) {
		s.logger.Warn("ignoring non-finite external force", "force", f)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.external = r2.Add(s.external, f)
}

// SetGravity replaces the gravity acceleration. Non-finite values are ignored.
func (s *Simulation) SetGravity(g r2.Vec) {
	if !finiteVec(g) {
		s.logger.Warn("ignoring non-finite gravity", "gravity", g)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Gravity = g
}

// SetParams replaces the parameter set. Existing particles are kept, so the
// new capacity must hold them.
func (s *Simulation) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pos) > p.MaxParticles {
		return fmt.Errorf("max particles %d below current count %d: %w",
			p.MaxParticles, len(s.pos), ErrCapacity)
	}
	s.params = p
	s.kernel = NewKernel(p.KernelRadius)
	s.grid = NewGrid(p.Domain, p.KernelRadius)
	s.logger.Debug("parameters set",
		"kernel_radius", p.KernelRadius,
		"stiffness", p.Stiffness,
		"viscosity", p.Viscosity,
		"max_particles", p.MaxParticles,
	)
	return nil
}

// Params returns the current parameter set.
func (s *Simulation) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetMultiThreading switches stage execution between the worker pool and the
// calling goroutine. Takes effect from the next Update.
func (s *Simulation) SetMultiThreading(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multiThreading = on
}

// IsMultiThreading reports whether stages run on the worker pool.
func (s *Simulation) IsMultiThreading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.multiThreading
}

// IsMultiThreadingSupported reports true; every stage can run on the pool.
func (s *Simulation) IsMultiThreadingSupported() bool {
	return true
}

// WorkerThreadCount returns the size of the worker pool.
func (s *Simulation) WorkerThreadCount() int {
	return s.pool.Workers()
}

// ClearBodies removes all static geometry.
func (s *Simulation) ClearBodies() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = s.bodies[:0]
	s.logger.Debug("bodies cleared")
}

// ClearParticles removes every particle.
func (s *Simulation) ClearParticles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = s.pos[:0]
	s.next = s.next[:0]
	s.vel = s.vel[:0]
	s.force = s.force[:0]
	s.density = s.density[:0]
	s.pressure = s.pressure[:0]
	s.neighbors.clear()
	s.stats.ParticleCount = 0
	s.logger.Debug("particles cleared")
}

// ClearEmitters removes all emitters, active or finished.
func (s *Simulation) ClearEmitters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitters.Clear()
	s.logger.Debug("emitters cleared")
}

// ResetStats zeroes the statistics.
func (s *Simulation) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Statistics{ParticleCount: len(s.pos)}
}

// Stats returns a copy of the statistics.
func (s *Simulation) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ParticleCount returns the number of live particles.
func (s *Simulation) ParticleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pos)
}

// Particles appends a snapshot of every particle to dst.
func (s *Simulation) Particles(dst []Particle) []Particle {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pos {
		dst = append(dst, Particle{
			ID:       i,
			Position: s.pos[i],
			Velocity: s.vel[i],
			Force:    s.force[i],
			Density:  s.density[i],
			Pressure: s.pressure[i],
		})
	}
	return dst
}

// Bodies returns a copy of the static geometry.
func (s *Simulation) Bodies() []geometry.Body {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geometry.Body(nil), s.bodies...)
}

// Emitters appends a copy of every emitter to dst.
func (s *Simulation) Emitters(dst []components.Emitter) []components.Emitter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitters.Emitters(dst)
}
