package game

import (
	"github.com/pthm-cable/sphfluid/demo"
	"github.com/pthm-cable/sphfluid/telemetry"
	"github.com/pthm-cable/sphfluid/ui"
)

// benchmark runs every solver variant through Benchmark.Iterations reloads of
// the active scenario, Benchmark.Frames frames each.
type benchmark struct {
	active     bool
	done       bool
	iterations []telemetry.BenchmarkIteration
	framesDone int
	results    []telemetry.DemoResult
}

// chartLabels pairs with chartValues.
var chartLabels = []string{
	"Total", "Integration", "Viscosity", "Predict", "Grid",
	"Neighbors", "Pressure", "Delta", "Collisions", "Emitters",
}

func chartValues(f telemetry.FrameSample) []float64 {
	t := f.Stages
	return []float64{
		telemetry.Millis(f.Simulation),
		telemetry.Millis(t.Integration),
		telemetry.Millis(t.ViscosityForces),
		telemetry.Millis(t.Predict),
		telemetry.Millis(t.UpdateGrid),
		telemetry.Millis(t.NeighborSearch),
		telemetry.Millis(t.DensityPressure),
		telemetry.Millis(t.DeltaPositions),
		telemetry.Millis(t.Collisions),
		telemetry.Millis(t.Emitters),
	}
}

func (b *benchmark) newIteration(frames int) {
	b.iterations = append(b.iterations, telemetry.BenchmarkIteration{
		Frames: make([]telemetry.FrameSample, 0, frames),
	})
}

// StartBenchmark restarts from the first solver variant and records frames
// until every variant has run.
func (g *Game) StartBenchmark() error {
	g.bench = benchmark{active: true}
	g.bench.newIteration(g.cfg.Benchmark.Frames)
	g.simulationActive = true

	g.logger.Info("benchmark started",
		"scenario", g.ScenarioName(),
		"demos", demo.Count(),
		"iterations", g.cfg.Benchmark.Iterations,
		"frames", g.cfg.Benchmark.Frames,
	)
	return g.LoadDemo(0)
}

// StopBenchmark aborts a running benchmark and shows what was collected.
func (g *Game) StopBenchmark() {
	g.bench.framesDone = 0
	g.bench.active = false
	g.bench.done = true
	g.bench.iterations = nil
	g.simulationActive = false
	g.logger.Info("benchmark stopped", "results", len(g.bench.results))
}

// DismissResult leaves the result screen.
func (g *Game) DismissResult() {
	g.bench.done = false
}

// BenchmarkActive reports whether a benchmark is recording.
func (g *Game) BenchmarkActive() bool {
	return g.bench.active
}

// BenchmarkDone reports whether the result screen is showing.
func (g *Game) BenchmarkDone() bool {
	return g.bench.done
}

// BenchmarkResults returns one aggregate per completed solver variant.
func (g *Game) BenchmarkResults() []telemetry.DemoResult {
	return g.bench.results
}

// recordBenchmarkFrame stores sample and moves to the next iteration or
// variant once the current one is full.
func (g *Game) recordBenchmarkFrame(sample telemetry.FrameSample) error {
	b := &g.bench
	it := &b.iterations[len(b.iterations)-1]
	it.Frames = append(it.Frames, sample)
	b.framesDone++

	if len(it.Frames) < g.cfg.Benchmark.Frames {
		return nil
	}

	if len(b.iterations) < g.cfg.Benchmark.Iterations {
		b.newIteration(g.cfg.Benchmark.Frames)
		return g.LoadScenario(g.scenarioIndex)
	}

	r := telemetry.Aggregate(g.DemoName(), g.ScenarioName(), b.iterations)
	b.results = append(b.results, r)
	g.logger.Info("benchmark demo complete",
		"demo", r.Demo,
		"frames", r.Frames,
		"avg_ms", telemetry.Millis(r.Avg.Simulation),
		"max_ms", telemetry.Millis(r.Max.Simulation),
	)
	if err := g.output.WriteBenchmark(r); err != nil {
		g.logger.Error("failed to write benchmark", "error", err)
	}

	if g.demoIndex == demo.Count()-1 {
		b.framesDone = 0
		b.active = false
		b.done = true
		b.iterations = nil
		g.simulationActive = false
		g.logger.Info("benchmark complete", "demos", len(b.results))
		return nil
	}

	b.iterations = b.iterations[:0]
	b.newIteration(g.cfg.Benchmark.Frames)
	return g.LoadDemo(g.demoIndex + 1)
}

// BenchmarkProgress describes the running benchmark for display.
func (g *Game) BenchmarkProgress() ui.BenchmarkProgress {
	p := ui.BenchmarkProgress{
		Demo:       g.demoIndex,
		DemoCount:  demo.Count(),
		Scenario:   g.ScenarioName(),
		Iteration:  len(g.bench.iterations),
		Iterations: g.cfg.Benchmark.Iterations,
		Frames:     g.cfg.Benchmark.Frames,
		Done:       g.bench.framesDone,
		Total:      g.cfg.Benchmark.Frames * g.cfg.Benchmark.Iterations * demo.Count(),
	}
	if n := len(g.bench.iterations); n > 0 {
		p.Frame = len(g.bench.iterations[n-1].Frames)
	}
	return p
}

// BenchmarkChart builds the result chart from each variant's worst frame.
func (g *Game) BenchmarkChart() *ui.Chart {
	c := &ui.Chart{Labels: chartLabels, AxisFormat: "%.2f ms"}
	for i, r := range g.bench.results {
		c.Series = append(c.Series, ui.Series{
			Title:  r.Demo,
			Color:  ui.SeriesColor(i),
			Values: chartValues(r.Max),
		})
	}
	return c
}
