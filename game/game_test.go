package game

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/config"
	"github.com/pthm-cable/sphfluid/demo"
	"github.com/pthm-cable/sphfluid/scenario"
	"github.com/pthm-cable/sphfluid/telemetry"
)

const testScenarios = `
scenarios:
  - name: tank
    gravity: [0, -9.8]
    bodies:
      - type: plane
        position: [0, 0]
    volumes:
      - position: [0, 4]
        size: [6, 6]
  - name: drifter
    gravity: [0, 0]
    volumes:
      - position: [0, 10]
        size: [1, 1]
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Simulation.Substeps = 1
	cfg.Workers.Count = 2
	cfg.Benchmark.Iterations = 2
	cfg.Benchmark.Frames = 3
	cfg.Derived.LogEveryFrames = 0
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config, output *telemetry.OutputManager) *Game {
	t.Helper()
	cat, err := scenario.Parse([]byte(testScenarios))
	if err != nil {
		t.Fatalf("scenario.Parse: %v", err)
	}
	g, err := NewGameWithOptions(Options{
		Config:    cfg,
		Catalogue: cat,
		Output:    output,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewGameWithOptions: %v", err)
	}
	t.Cleanup(g.Unload)
	return g
}

func TestNewGameScenarioByName(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Scenario = "drifter"
	g := newTestGame(t, cfg, nil)

	if g.ScenarioIndex() != 1 || g.ScenarioName() != "drifter" {
		t.Errorf("scenario = %d %q, want 1 drifter", g.ScenarioIndex(), g.ScenarioName())
	}
	if got := g.Solver().ParticleCount(); got != 1 {
		t.Errorf("particles = %d, want 1", got)
	}
	if !g.Running() {
		t.Error("game should start running")
	}
}

func TestNewGameErrors(t *testing.T) {
	if _, err := NewGameWithOptions(Options{}); err == nil {
		t.Error("nil config: expected error")
	}

	cfg := testConfig(t)
	cfg.Simulation.Scenario = "missing"
	cat, err := scenario.Parse([]byte(testScenarios))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewGameWithOptions(Options{Config: cfg, Catalogue: cat}); err == nil {
		t.Error("unknown scenario: expected error")
	}

	cfg = testConfig(t)
	cfg.Simulation.Demo = demo.Count()
	if _, err := NewGameWithOptions(Options{Config: cfg, Catalogue: cat}); err == nil {
		t.Error("demo out of range: expected error")
	}
}

func TestStepAndPause(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil)

	for i := 0; i < 3; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if g.Frame() != 3 {
		t.Errorf("Frame = %d, want 3", g.Frame())
	}
	if g.LastSample().Simulation <= 0 {
		t.Error("last sample has no simulation time")
	}
	if g.perfCollector.Total() != 3 {
		t.Errorf("perf samples = %d, want 3", g.perfCollector.Total())
	}

	g.TogglePause()
	if err := g.Step(); err != nil {
		t.Fatal(err)
	}
	if g.Frame() != 3 {
		t.Errorf("paused Step advanced to frame %d", g.Frame())
	}
	g.TogglePause()
	if !g.Running() {
		t.Error("TogglePause twice should resume")
	}
}

func TestScenarioAndDemoSwitching(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil)

	if err := g.NextScenario(); err != nil {
		t.Fatal(err)
	}
	if g.ScenarioIndex() != 1 {
		t.Errorf("after NextScenario index = %d, want 1", g.ScenarioIndex())
	}
	if err := g.NextScenario(); err != nil {
		t.Fatal(err)
	}
	if g.ScenarioIndex() != 0 {
		t.Errorf("NextScenario should wrap, got %d", g.ScenarioIndex())
	}

	g.TogglePause()
	if err := g.NextDemo(); err != nil {
		t.Fatal(err)
	}
	if g.DemoIndex() != 1%demo.Count() {
		t.Errorf("DemoIndex = %d", g.DemoIndex())
	}
	if g.DemoName() != demo.Variants()[g.DemoIndex()].Name {
		t.Errorf("DemoName = %q", g.DemoName())
	}
	if !g.Running() {
		t.Error("NextDemo should resume the simulation")
	}
	if g.ScenarioIndex() != 0 {
		t.Errorf("NextDemo changed scenario to %d", g.ScenarioIndex())
	}
}

func TestReset(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil)
	want := g.Solver().ParticleCount()

	if err := g.Step(); err != nil {
		t.Fatal(err)
	}
	if err := g.Reset(); err != nil {
		t.Fatal(err)
	}
	if got := g.Solver().ParticleCount(); got != want {
		t.Errorf("particles after Reset = %d, want %d", got, want)
	}
	if g.perfCollector.Total() != 0 {
		t.Error("Reset should clear the perf window")
	}
}

func TestToggleThreads(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil)

	for i := 0; i < demo.Count(); i++ {
		s := g.Solver()
		before := s.IsMultiThreading()
		g.ToggleThreads()
		if s.IsMultiThreadingSupported() {
			if s.IsMultiThreading() == before {
				t.Errorf("%s: ToggleThreads did not switch", g.DemoName())
			}
			g.ToggleThreads()
		} else if s.IsMultiThreading() {
			t.Errorf("%s: unsupported solver reports multithreading", g.DemoName())
		}
		if err := g.NextDemo(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestApplyForce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Scenario = "drifter"

	tests := []struct {
		name   string
		paused bool
		wantX  bool
	}{
		{"running", false, true},
		{"paused", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, cfg, nil)
			if tt.paused {
				g.TogglePause()
			}
			g.ApplyForce(r2.Vec{X: 1})
			if tt.paused {
				g.TogglePause()
			}
			if err := g.Step(); err != nil {
				t.Fatal(err)
			}
			p := g.Solver().Particles(nil)
			if len(p) != 1 {
				t.Fatalf("particles = %d, want 1", len(p))
			}
			if got := p[0].Velocity.X > 0; got != tt.wantX {
				t.Errorf("velocity %v, pushed = %v, want %v", p[0].Velocity, got, tt.wantX)
			}
		})
	}
}

func TestSetFluidParams(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil)

	if err := g.SetFluidParams(20, 500); err != nil {
		t.Fatal(err)
	}
	p := g.Solver().Params()
	if p.Viscosity != 20 || p.Stiffness != 500 {
		t.Errorf("params = %g/%g, want 20/500", p.Viscosity, p.Stiffness)
	}
	if err := g.SetFluidParams(-1, 500); err == nil {
		t.Error("negative viscosity: expected error")
	}
}

func runBenchmark(t *testing.T, g *Game) {
	t.Helper()
	limit := g.cfg.Benchmark.Frames*g.cfg.Benchmark.Iterations*demo.Count() + 1
	for i := 0; g.BenchmarkActive(); i++ {
		if i >= limit {
			t.Fatalf("benchmark still active after %d frames", i)
		}
		if err := g.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
}

func TestBenchmark(t *testing.T) {
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	g := newTestGame(t, testConfig(t), out)

	if err := g.NextDemo(); err != nil {
		t.Fatal(err)
	}
	if err := g.StartBenchmark(); err != nil {
		t.Fatal(err)
	}
	if g.DemoIndex() != 0 {
		t.Errorf("benchmark should start at demo 0, got %d", g.DemoIndex())
	}

	if err := g.Step(); err != nil {
		t.Fatal(err)
	}
	p := g.BenchmarkProgress()
	if p.Frame != 1 || p.Iteration != 1 || p.Done != 1 || p.Total != 6*demo.Count() {
		t.Errorf("progress after one frame = %+v", p)
	}

	g.ApplyForce(r2.Vec{Y: 1})
	if g.forceApplying {
		t.Error("ApplyForce should be ignored during a benchmark")
	}

	runBenchmark(t, g)

	if !g.BenchmarkDone() {
		t.Fatal("benchmark should show results")
	}
	if g.Running() {
		t.Error("simulation should stop after the benchmark")
	}
	results := g.BenchmarkResults()
	if len(results) != demo.Count() {
		t.Fatalf("results = %d, want %d", len(results), demo.Count())
	}
	for i, r := range results {
		if r.Demo != demo.Variants()[i].Name {
			t.Errorf("result %d demo = %q", i, r.Demo)
		}
		if r.Scenario != "tank" || r.Frames != 3 || r.Iterations != 2 {
			t.Errorf("result %d = %s %d frames %d iterations", i, r.Scenario, r.Frames, r.Iterations)
		}
		if r.Max.Simulation < r.Min.Simulation {
			t.Errorf("result %d: max %v < min %v", i, r.Max.Simulation, r.Min.Simulation)
		}
	}

	chart := g.BenchmarkChart()
	if len(chart.Series) != demo.Count() {
		t.Errorf("chart series = %d", len(chart.Series))
	}
	for _, s := range chart.Series {
		if len(s.Values) != len(chart.Labels) {
			t.Errorf("series %s has %d values for %d labels", s.Title, len(s.Values), len(chart.Labels))
		}
	}

	g.DismissResult()
	if g.BenchmarkDone() {
		t.Error("DismissResult should leave the result screen")
	}

	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "benchmark.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := bytes.Count(data, []byte("\n")); lines != 1+3*demo.Count() {
		t.Errorf("benchmark.csv has %d lines, want %d", lines, 1+3*demo.Count())
	}
}

func TestStopBenchmark(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil)

	if err := g.StartBenchmark(); err != nil {
		t.Fatal(err)
	}
	if err := g.Step(); err != nil {
		t.Fatal(err)
	}
	g.StopBenchmark()

	if g.BenchmarkActive() || !g.BenchmarkDone() {
		t.Errorf("active=%v done=%v, want false/true", g.BenchmarkActive(), g.BenchmarkDone())
	}
	if g.Running() {
		t.Error("StopBenchmark should pause the simulation")
	}
	if len(g.BenchmarkResults()) != 0 {
		t.Errorf("results = %d, want 0", len(g.BenchmarkResults()))
	}
}

func TestPerfOutput(t *testing.T) {
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t)
	cfg.Derived.LogEveryFrames = 2
	g := newTestGame(t, cfg, out)

	for i := 0; i < 4; i++ {
		if err := g.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := bytes.Count(data, []byte("\n")); lines != 3 {
		t.Errorf("perf.csv has %d lines, want 3:\n%s", lines, data)
	}
}

func TestResetClearsInspection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Scenario = "drifter"
	g := newTestGame(t, cfg, nil)

	particles := g.Solver().Particles(nil)
	if !g.inspector.Pick(particles, particles[0].Position, 1) {
		t.Fatal("expected to pick the only particle")
	}
	if err := g.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.inspector.Selected(); ok {
		t.Error("Reset should clear the inspected particle")
	}
}
