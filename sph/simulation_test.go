package sph

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/geometry"
)

const testDt = 1.0 / 240.0

func newTestSimulation(t testing.TB, opts Options) *Simulation {
	t.Helper()
	s, err := New(DefaultParams(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func step(t testing.TB, s *Simulation, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Update(testDt); err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
	}
}

func TestIsolatedParticleDensity(t *testing.T) {
	s := newTestSimulation(t, Options{Workers: 1})
	if err := s.AddVolume(r2.Vec{X: 0, Y: 10}, r2.Vec{}, 1, 1, 1); err != nil {
		t.Fatal(err)
	}
	step(t, s, 1)

	p := s.Particles(nil)[0]
	params := s.Params()
	want := params.ParticleMass * NewKernel(params.KernelRadius).W(0)
	if p.Density != want {
		t.Errorf("density = %v, want exactly %v", p.Density, want)
	}
	if p.Pressure != 0 {
		t.Errorf("under-dense pressure = %v, want 0", p.Pressure)
	}
}

func TestPressureNeverNegative(t *testing.T) {
	s := newTestSimulation(t, Options{Workers: 1})
	if err := s.AddPlane(r2.Vec{Y: 1}, 0); err != nil {
		t.Fatal(err)
	}
	// A sparse block and a compressed one.
	if err := s.AddVolume(r2.Vec{X: -15, Y: 10}, r2.Vec{}, 5, 5, 3); err != nil {
		t.Fatal(err)
	}
	if err := s.AddVolume(r2.Vec{X: 10, Y: 5}, r2.Vec{}, 8, 8, 0.6); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		step(t, s, 1)
		for _, p := range s.Particles(nil) {
			if p.Pressure < 0 {
				t.Fatalf("step %d: particle %d pressure %g", i, p.ID, p.Pressure)
			}
		}
	}
}

func TestResolveCollisionsOnPlane(t *testing.T) {
	params := DefaultParams()
	plane, err := geometry.NewPlane(r2.Vec{Y: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	bodies := []geometry.Body{plane}

	tests := []struct {
		name        string
		restitution float64
		p, v        r2.Vec
	}{
		{"on surface falling", 0, r2.Vec{X: 1}, r2.Vec{X: 2, Y: -3}},
		{"below surface", 0, r2.Vec{Y: -0.2}, r2.Vec{Y: -1}},
		{"bouncy", 0.5, r2.Vec{}, r2.Vec{Y: -4}},
		{"moving away", 0, r2.Vec{}, r2.Vec{Y: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params.Restitution = tc.restitution
			p, v := ResolveCollisions(tc.p, tc.v, bodies, &params)
			if p.Y < params.ParticleRadius-1e-12 {
				t.Errorf("position %v inside plane margin", p)
			}
			if v.Y < 0 {
				t.Errorf("velocity %v still points into the plane", v)
			}
		})
	}

	params.Restitution = 0
	_, v := ResolveCollisions(r2.Vec{}, r2.Vec{X: 2, Y: -3}, bodies, &params)
	if want := 2 * (1 - params.Friction); math.Abs(v.X-want) > 1e-12 || v.Y != 0 {
		t.Errorf("velocity = %v, want (%g, 0)", v, want)
	}
}

func TestWorkerCountDeterminism(t *testing.T) {
	build := func(workers int, mt bool) *Simulation {
		s := newTestSimulation(t, Options{Workers: workers, MultiThreading: mt, Seed: 42})
		if err := s.AddPlane(r2.Vec{Y: 1}, 0); err != nil {
			t.Fatal(err)
		}
		if err := s.AddCircle(r2.Vec{X: 3, Y: 4}, 1.5); err != nil {
			t.Fatal(err)
		}
		if err := s.AddVolume(r2.Vec{Y: 8}, r2.Vec{X: 1}, 12, 12, 1); err != nil {
			t.Fatal(err)
		}
		if err := s.AddEmitter(r2.Vec{X: -10, Y: 10}, r2.Vec{X: 1}, 0.5, 5, 30, 0.5); err != nil {
			t.Fatal(err)
		}
		return s
	}

	single := build(1, false)
	multi := build(4, true)
	step(t, single, 200)
	step(t, multi, 200)

	a, b := single.Particles(nil), multi.Particles(nil)
	if len(a) != len(b) {
		t.Fatalf("particle counts differ: %d vs %d", len(a), len(b))
	}
	const tol = 1e-9
	for i := range a {
		if d := r2.Norm(r2.Sub(a[i].Position, b[i].Position)); d > tol {
			t.Errorf("particle %d differs by %g: %v vs %v", i, d, a[i].Position, b[i].Position)
		}
	}
}

func TestVolumeSettlesOnPlane(t *testing.T) {
	if testing.Short() {
		t.Skip("long settling run")
	}
	s := newTestSimulation(t, Options{MultiThreading: true, Seed: 1})
	if err := s.AddPlane(r2.Vec{Y: 1}, 0); err != nil {
		t.Fatal(err)
	}
	// 10x10 at unit spacing, bottom row at y = 1.5.
	if err := s.AddVolume(r2.Vec{Y: 6}, r2.Vec{}, 10, 10, 1); err != nil {
		t.Fatal(err)
	}

	var buf []Particle
	for i := 0; i < 4000; i++ {
		step(t, s, 1)
		buf = s.Particles(buf[:0])
		for _, p := range buf {
			if p.Position.Y < 0 {
				t.Fatalf("step %d: particle %d crossed the plane at %v", i, p.ID, p.Position)
			}
		}
	}

	var sum float64
	for _, p := range buf {
		sum += r2.Norm(p.Velocity)
	}
	if mean := sum / float64(len(buf)); mean > 0.5 {
		t.Errorf("mean speed after settling = %g, want < 0.5", mean)
	}
}

func TestClearParticles(t *testing.T) {
	s := newTestSimulation(t, Options{})
	if err := s.AddVolume(r2.Vec{Y: 5}, r2.Vec{}, 4, 4, 1); err != nil {
		t.Fatal(err)
	}
	step(t, s, 3)

	s.ClearParticles()
	if n := s.ParticleCount(); n != 0 {
		t.Errorf("ParticleCount() = %d after clear, want 0", n)
	}
	step(t, s, 3)

	if err := s.AddVolume(r2.Vec{Y: 5}, r2.Vec{}, 2, 3, 1); err != nil {
		t.Fatal(err)
	}
	step(t, s, 1)
	if n := s.ParticleCount(); n != 6 {
		t.Errorf("ParticleCount() = %d after refill, want 6", n)
	}
}

func TestClearBodiesRemovesCollision(t *testing.T) {
	s := newTestSimulation(t, Options{})
	if err := s.AddPlane(r2.Vec{Y: 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.AddVolume(r2.Vec{Y: 2}, r2.Vec{}, 1, 1, 1); err != nil {
		t.Fatal(err)
	}

	step(t, s, 240)
	if y := s.Particles(nil)[0].Position.Y; y < 0.5-1e-9 || y > 0.6 {
		t.Fatalf("particle resting at y = %g, want on the plane at 0.5", y)
	}

	s.ClearBodies()
	if n := len(s.Bodies()); n != 0 {
		t.Fatalf("%d bodies after clear", n)
	}
	step(t, s, 240)
	if y := s.Particles(nil)[0].Position.Y; y >= 0 {
		t.Errorf("particle at y = %g, want fallen through", y)
	}
}

func TestAddVolumeCapacity(t *testing.T) {
	params := DefaultParams()
	params.MaxParticles = 50
	s, err := New(params, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.AddVolume(r2.Vec{}, r2.Vec{}, 5, 8, 1); err != nil {
		t.Fatal(err)
	}
	err = s.AddVolume(r2.Vec{X: 10}, r2.Vec{}, 4, 4, 1)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("error = %v, want ErrCapacity", err)
	}
	if n := s.ParticleCount(); n != 40 {
		t.Errorf("ParticleCount() = %d after rejected volume, want 40", n)
	}

	// Emitter spawns stop silently at capacity.
	if err := s.AddEmitter(r2.Vec{Y: 20}, r2.Vec{Y: -1}, 0, 1, 240, 1); err != nil {
		t.Fatal(err)
	}
	step(t, s, 240)
	if n := s.ParticleCount(); n != 50 {
		t.Errorf("ParticleCount() = %d with emitter past capacity, want 50", n)
	}
}

func TestAddVolumeHugeCounts(t *testing.T) {
	tests := []struct {
		name           string
		countX, countY int
	}{
		{"product wraps to zero", 1 << 32, 1 << 32},
		{"product wraps negative", 2, 1 << 62},
		{"wide row", math.MaxInt, 1},
		{"tall column", 1, math.MaxInt},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSimulation(t, Options{})
			if err := s.AddVolume(r2.Vec{}, r2.Vec{}, 2, 2, 1); err != nil {
				t.Fatal(err)
			}
			err := s.AddVolume(r2.Vec{}, r2.Vec{}, tc.countX, tc.countY, 1)
			if !errors.Is(err, ErrCapacity) {
				t.Fatalf("error = %v, want ErrCapacity", err)
			}
			if n := s.ParticleCount(); n != 4 {
				t.Errorf("ParticleCount() = %d, want 4", n)
			}
		})
	}
}

func TestVolumeFits(t *testing.T) {
	tests := []struct {
		countX, countY, room int
		want                 bool
	}{
		{5, 8, 40, true},
		{5, 8, 39, false},
		{1, 1, 0, false},
		{1 << 32, 1 << 32, math.MaxInt, false},
		{2, 1 << 62, math.MaxInt, false},
		{3, 3, -5, false},
	}

	for _, tc := range tests {
		v := Volume{CountX: tc.countX, CountY: tc.countY, Spacing: 1}
		if got := v.Fits(tc.room); got != tc.want {
			t.Errorf("%dx%d Fits(%d) = %v, want %v", tc.countX, tc.countY, tc.room, got, tc.want)
		}
	}
}

func TestStatsCountParticlesOutsideDomain(t *testing.T) {
	for _, threaded := range []bool{false, true} {
		s := newTestSimulation(t, Options{Workers: 3, MultiThreading: threaded})
		if err := s.AddVolume(r2.Vec{Y: 10}, r2.Vec{}, 1, 1, 1); err != nil {
			t.Fatal(err)
		}
		if err := s.AddVolume(r2.Vec{X: 100, Y: 10}, r2.Vec{}, 2, 2, 1); err != nil {
			t.Fatal(err)
		}
		step(t, s, 1)
		if n := s.Stats().OutOfDomain; n != 4 {
			t.Errorf("threaded=%v: OutOfDomain = %d, want 4", threaded, n)
		}

		s.ClearParticles()
		step(t, s, 1)
		if n := s.Stats().OutOfDomain; n != 0 {
			t.Errorf("threaded=%v: OutOfDomain = %d after clear, want 0", threaded, n)
		}
	}
}

func TestEmitterSpawnsThroughSimulation(t *testing.T) {
	s := newTestSimulation(t, Options{})
	if err := s.AddEmitter(r2.Vec{Y: 20}, r2.Vec{X: 1}, 0, 1, 2, 1); err != nil {
		t.Fatal(err)
	}

	step(t, s, 240)
	n := s.ParticleCount()
	if n < 1 || n > 3 {
		t.Errorf("%d particles after one second at rate 2, want 2±1", n)
	}
	step(t, s, 240)
	if after := s.ParticleCount(); after != n {
		t.Errorf("emitter kept spawning: %d -> %d", n, after)
	}

	s.ClearEmitters()
	if got := s.Emitters(nil); len(got) != 0 {
		t.Errorf("%d emitters after clear", len(got))
	}
}

func TestExternalForceIsTransient(t *testing.T) {
	params := DefaultParams()
	params.Gravity = r2.Vec{}
	s, err := New(params, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.AddVolume(r2.Vec{}, r2.Vec{}, 1, 1, 1); err != nil {
		t.Fatal(err)
	}

	s.AddExternalForces(r2.Vec{X: 10})
	step(t, s, 1)
	v := s.Particles(nil)[0].Velocity
	if want := 10 * testDt; math.Abs(v.X-want) > 1e-12 {
		t.Fatalf("velocity after push = %v, want x = %g", v, want)
	}

	step(t, s, 5)
	if got := s.Particles(nil)[0].Velocity; math.Abs(got.X-v.X) > 1e-12 {
		t.Errorf("velocity kept changing without force: %v -> %v", v, got)
	}
}

func TestUpdateRejectsNonFinitePosition(t *testing.T) {
	s := newTestSimulation(t, Options{})
	if err := s.AddVolume(r2.Vec{Y: 5}, r2.Vec{}, 3, 3, 1); err != nil {
		t.Fatal(err)
	}
	s.pos[4].X = math.NaN()

	err := s.Update(testDt)
	if !errors.Is(err, ErrNonFinitePosition) {
		t.Fatalf("Update error = %v, want ErrNonFinitePosition", err)
	}
	if s.Stats().Substeps != 0 {
		t.Error("failed substep was counted")
	}
}

func TestMutatorValidation(t *testing.T) {
	s := newTestSimulation(t, Options{})

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"zero dt", func() error { return s.Update(0) }, ErrInvalidParams},
		{"NaN dt", func() error { return s.Update(math.NaN()) }, ErrInvalidParams},
		{"empty volume", func() error { return s.AddVolume(r2.Vec{}, r2.Vec{}, 0, 3, 1) }, ErrInvalidParams},
		{"zero spacing", func() error { return s.AddVolume(r2.Vec{}, r2.Vec{}, 2, 2, 0) }, ErrInvalidParams},
		{"two-vertex polygon", func() error { return s.AddPolygon([]r2.Vec{{}, {X: 1}}) }, geometry.ErrDegenerate},
		{"zero circle", func() error { return s.AddCircle(r2.Vec{}, 0) }, geometry.ErrDegenerate},
		{"zero-length segment", func() error { return s.AddLineSegment(r2.Vec{X: 1}, r2.Vec{X: 1}) }, geometry.ErrDegenerate},
		{"bad params", func() error {
			p := DefaultParams()
			p.KernelRadius = 0
			return s.SetParams(p)
		}, ErrInvalidParams},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}

	if n := s.ParticleCount(); n != 0 {
		t.Errorf("rejected calls left %d particles", n)
	}
	if n := len(s.Bodies()); n != 0 {
		t.Errorf("rejected calls left %d bodies", n)
	}
	if s.Params().KernelRadius != DefaultParams().KernelRadius {
		t.Error("rejected SetParams changed the parameters")
	}
}

func TestStatsAndReset(t *testing.T) {
	s := newTestSimulation(t, Options{})
	if err := s.AddVolume(r2.Vec{Y: 5}, r2.Vec{}, 6, 6, 1); err != nil {
		t.Fatal(err)
	}
	step(t, s, 5)

	st := s.Stats()
	if st.Substeps != 5 {
		t.Errorf("Substeps = %d, want 5", st.Substeps)
	}
	if st.ParticleCount != 36 {
		t.Errorf("ParticleCount = %d, want 36", st.ParticleCount)
	}
	if st.CellOccupancyMax < st.CellOccupancyMin || st.CellOccupancyMin < 1 {
		t.Errorf("cell occupancy range %d..%d", st.CellOccupancyMin, st.CellOccupancyMax)
	}
	if st.NeighborCountMax < st.NeighborCountMin || st.NeighborCountMax == 0 {
		t.Errorf("neighbour count range %d..%d", st.NeighborCountMin, st.NeighborCountMax)
	}
	if len(st.Time.Stages()) != len(StageNames) {
		t.Errorf("%d stage times for %d names", len(st.Time.Stages()), len(StageNames))
	}

	s.ResetStats()
	if st := s.Stats(); st.Substeps != 0 || st.Time.Total() != 0 {
		t.Errorf("stats after reset = %+v", st)
	}
}

func TestMultiThreadingToggle(t *testing.T) {
	s := newTestSimulation(t, Options{Workers: 3, MultiThreading: false})
	if !s.IsMultiThreadingSupported() {
		t.Fatal("grid solver should support multi-threading")
	}
	if s.WorkerThreadCount() != 3 {
		t.Errorf("WorkerThreadCount() = %d, want 3", s.WorkerThreadCount())
	}
	s.SetMultiThreading(true)
	if !s.IsMultiThreading() {
		t.Error("toggle did not enable multi-threading")
	}
}

func BenchmarkUpdate(b *testing.B) {
	s := newTestSimulation(b, Options{MultiThreading: true})
	if err := s.AddPlane(r2.Vec{Y: 1}, 0); err != nil {
		b.Fatal(err)
	}
	if err := s.AddVolume(r2.Vec{Y: 20}, r2.Vec{}, 60, 30, 1); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Update(testDt); err != nil {
			b.Fatal(err)
		}
	}
}
