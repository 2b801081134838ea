package systems

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

func newTestSystem() *EmitterSystem {
	return NewEmitterSystem(ecs.NewWorld(), rand.New(rand.NewSource(1)), nil)
}

func mustEmitter(t *testing.T, s *EmitterSystem, pos, dir r2.Vec, radius, speed, rate, duration float64) {
	t.Helper()
	e, err := NewEmitter(pos, dir, radius, speed, rate, duration)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	s.Add(e)
}

func TestEmitterSpawnCount(t *testing.T) {
	s := newTestSystem()
	mustEmitter(t, s, r2.Vec{}, r2.Vec{X: 1}, 0, 1, 2, 1)

	const dt = 1.0 / 60.0
	count := func(position, velocity r2.Vec) bool { return true }

	spawned := 0
	for i := 0; i < 60; i++ {
		spawned += s.Update(dt, count)
	}
	if spawned < 1 || spawned > 3 {
		t.Errorf("spawned %d particles in one second at rate 2, want 2±1", spawned)
	}

	if total, active := s.Counts(); total != 1 || active != 0 {
		t.Errorf("Counts() = %d, %d, want 1 total, 0 active", total, active)
	}

	after := 0
	for i := 0; i < 120; i++ {
		after += s.Update(dt, count)
	}
	if after != 0 {
		t.Errorf("spawned %d particles after duration elapsed", after)
	}
}

func TestEmitterMultipleIntervalsPerStep(t *testing.T) {
	s := newTestSystem()
	mustEmitter(t, s, r2.Vec{}, r2.Vec{Y: 1}, 0, 1, 100, 10)

	// One 0.1 s step crosses ten 0.01 s intervals.
	got := s.Update(0.1, func(_, _ r2.Vec) bool { return true })
	if got < 9 || got > 11 {
		t.Errorf("spawned %d in one long step, want 10±1", got)
	}
}

func TestEmitterSpawnPlacement(t *testing.T) {
	s := newTestSystem()
	origin := r2.Vec{X: 3, Y: 4}
	mustEmitter(t, s, origin, r2.Vec{X: 0, Y: -2}, 0.5, 3, 50, 1)

	var positions, velocities []r2.Vec
	for i := 0; i < 60; i++ {
		s.Update(1.0/60.0, func(p, v r2.Vec) bool {
			positions = append(positions, p)
			velocities = append(velocities, v)
			return true
		})
	}
	if len(positions) == 0 {
		t.Fatal("no particles spawned")
	}

	for i, p := range positions {
		// Direction is -Y, so jitter runs along X only.
		if math.Abs(p.Y-origin.Y) > 1e-12 {
			t.Errorf("particle %d off the emitter line: %v", i, p)
		}
		if math.Abs(p.X-origin.X) > 0.5+1e-12 {
			t.Errorf("particle %d outside emitter radius: %v", i, p)
		}
		if v := velocities[i]; math.Abs(v.X) > 1e-12 || math.Abs(v.Y+3) > 1e-12 {
			t.Errorf("particle %d velocity = %v, want (0, -3)", i, v)
		}
	}
}

func TestEmitterSpawnRejectedStillAdvances(t *testing.T) {
	s := newTestSystem()
	mustEmitter(t, s, r2.Vec{}, r2.Vec{X: 1}, 0, 1, 10, 0.5)

	attempts := 0
	for i := 0; i < 60; i++ {
		if got := s.Update(1.0/60.0, func(_, _ r2.Vec) bool {
			attempts++
			return false
		}); got != 0 {
			t.Fatalf("Update reported %d spawns while full", got)
		}
	}
	if attempts == 0 {
		t.Error("spawn callback never called")
	}
	if _, active := s.Counts(); active != 0 {
		t.Error("emitter still active after its duration while full")
	}
}

func TestEmitterClear(t *testing.T) {
	s := newTestSystem()
	for i := 0; i < 3; i++ {
		mustEmitter(t, s, r2.Vec{X: float64(i)}, r2.Vec{X: 1}, 0, 1, 1, 1)
	}
	if total, _ := s.Counts(); total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}

	s.Clear()
	if total, _ := s.Counts(); total != 0 {
		t.Errorf("total after Clear = %d, want 0", total)
	}
	if got := s.Emitters(nil); len(got) != 0 {
		t.Errorf("Emitters after Clear = %v", got)
	}
}

func TestNewEmitterValidation(t *testing.T) {
	dir := r2.Vec{X: 1}
	tests := []struct {
		name                          string
		dir                           r2.Vec
		radius, speed, rate, duration float64
	}{
		{"zero direction", r2.Vec{}, 0, 1, 1, 1},
		{"negative radius", dir, -1, 1, 1, 1},
		{"negative speed", dir, 0, -1, 1, 1},
		{"zero rate", dir, 0, 1, 0, 1},
		{"negative rate", dir, 0, 1, -2, 1},
		{"negative duration", dir, 0, 1, 1, -1},
		{"NaN duration", dir, 0, 1, 1, math.NaN()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEmitter(r2.Vec{}, tc.dir, tc.radius, tc.speed, tc.rate, tc.duration)
			if !errors.Is(err, ErrInvalidEmitter) {
				t.Errorf("error = %v, want ErrInvalidEmitter", err)
			}
		})
	}

	e, err := NewEmitter(r2.Vec{}, r2.Vec{X: 3, Y: 4}, 0, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r2.Norm(e.Direction)-1) > 1e-12 {
		t.Errorf("direction not normalized: %v", e.Direction)
	}
}
