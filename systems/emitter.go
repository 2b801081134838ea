// Package systems provides ECS systems for the simulation.
package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/components"
)

// timeEpsilon absorbs rounding when fixed substeps are summed, so that
// e.g. 60 steps of 1/60 s count as a full second.
const timeEpsilon = 1e-9

// ErrInvalidEmitter is returned by NewEmitter for out-of-range settings.
var ErrInvalidEmitter = errors.New("systems: invalid emitter")

// SpawnFunc creates one particle. It reports false if the particle could not
// be created, for example because the particle store is full.
type SpawnFunc func(position, velocity r2.Vec) bool

// NewEmitter validates the settings and returns an active emitter component.
// The direction is normalized.
func NewEmitter(position, direction r2.Vec, radius, speed, rate, duration float64) (components.Emitter, error) {
	l := r2.Norm(direction)
	switch {
	case !finite(position.X) || !finite(position.Y):
		return components.Emitter{}, fmt.Errorf("position %v: %w", position, ErrInvalidEmitter)
	case !(l > 0) || math.IsInf(l, 0):
		return components.Emitter{}, fmt.Errorf("direction %v: %w", direction, ErrInvalidEmitter)
	case !(radius >= 0) || !finite(radius):
		return components.Emitter{}, fmt.Errorf("radius %g: %w", radius, ErrInvalidEmitter)
	case !(speed >= 0) || !finite(speed):
		return components.Emitter{}, fmt.Errorf("speed %g: %w", speed, ErrInvalidEmitter)
	case !(rate > 0) || !finite(rate):
		return components.Emitter{}, fmt.Errorf("rate %g: %w", rate, ErrInvalidEmitter)
	case !(duration > 0) || !finite(duration):
		return components.Emitter{}, fmt.Errorf("duration %g: %w", duration, ErrInvalidEmitter)
	}

	return components.Emitter{
		Position:  position,
		Direction: r2.Scale(1/l, direction),
		Radius:    radius,
		Speed:     speed,
		Rate:      rate,
		Duration:  duration,
		Active:    true,
	}, nil
}

// EmitterSystem advances emitters and spawns their particles.
type EmitterSystem struct {
	world      *ecs.World
	emitterMap *ecs.Map1[components.Emitter]
	filter     *ecs.Filter1[components.Emitter]
	rng        *rand.Rand
	logger     *slog.Logger

	entities []ecs.Entity // scratch for Clear
}

// NewEmitterSystem creates an emitter system over the given world. Spawn
// jitter is drawn from rng.
func NewEmitterSystem(w *ecs.World, rng *rand.Rand, logger *slog.Logger) *EmitterSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmitterSystem{
		world:      w,
		emitterMap: ecs.NewMap1[components.Emitter](w),
		filter:     ecs.NewFilter1[components.Emitter](w),
		rng:        rng,
		logger:     logger,
	}
}

// Add registers an emitter.
func (s *EmitterSystem) Add(e components.Emitter) ecs.Entity {
	return s.emitterMap.NewEntity(&e)
}

// Update advances every active emitter by dt and calls spawn once per elapsed
// spawn interval. Emitters whose duration has elapsed are deactivated but kept.
// Returns the number of particles spawned.
func (s *EmitterSystem) Update(dt float64, spawn SpawnFunc) int {
	spawned := 0

	query := s.filter.Query()
	for query.Next() {
		e := query.Get()
		if !e.Active {
			continue
		}

		step := math.Min(dt, e.Duration-e.Elapsed)
		e.Elapsed += step
		e.Pending += step

		interval := e.Interval()
		for e.Pending+timeEpsilon >= interval {
			e.Pending -= interval
			if spawn(s.spawnPosition(e), r2.Scale(e.Speed, e.Direction)) {
				spawned++
			}
		}

		if e.Elapsed+timeEpsilon >= e.Duration {
			e.Active = false
			s.logger.Debug("emitter finished",
				"entity", query.Entity(),
				"duration", e.Duration,
			)
		}
	}

	return spawned
}

// spawnPosition places a particle on the emitter line, jittered across its width.
func (s *EmitterSystem) spawnPosition(e *components.Emitter) r2.Vec {
	if e.Radius == 0 {
		return e.Position
	}
	perp := r2.Vec{X: -e.Direction.Y, Y: e.Direction.X}
	offset := (s.rng.Float64()*2 - 1) * e.Radius
	return r2.Add(e.Position, r2.Scale(offset, perp))
}

// Clear removes all emitters.
func (s *EmitterSystem) Clear() {
	s.entities = s.entities[:0]
	query := s.filter.Query()
	for query.Next() {
		s.entities = append(s.entities, query.Entity())
	}
	for _, e := range s.entities {
		s.world.RemoveEntity(e)
	}
}

// Emitters appends a copy of every emitter, active or not, to dst.
func (s *EmitterSystem) Emitters(dst []components.Emitter) []components.Emitter {
	query := s.filter.Query()
	for query.Next() {
		dst = append(dst, *query.Get())
	}
	return dst
}

// Counts returns the total and active number of emitters.
func (s *EmitterSystem) Counts() (total, active int) {
	query := s.filter.Query()
	for query.Next() {
		total++
		if query.Get().Active {
			active++
		}
	}
	return total, active
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
