package game

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/demo"
	"github.com/pthm-cable/sphfluid/scenario"
	"github.com/pthm-cable/sphfluid/telemetry"
)

// LoadDemo replaces the solver with variant index and reloads the active scenario.
func (g *Game) LoadDemo(index int) error {
	opts := g.cfg.SPHOptions()
	opts.Logger = g.logger
	solver, err := demo.New(index, g.cfg.SPHParams(), opts)
	if err != nil {
		return fmt.Errorf("load demo: %w", err)
	}
	if g.solver != nil {
		g.solver.Close()
	}
	g.solver = solver
	g.demoIndex = index
	g.solver.SetMultiThreading(g.multiThreading)

	g.logger.Info("demo loaded",
		"demo", g.DemoName(),
		"multithreading", g.solver.IsMultiThreading(),
		"workers", g.solver.WorkerThreadCount(),
	)
	return g.LoadScenario(g.scenarioIndex)
}

// LoadScenario resets the solver to scenario index.
func (g *Game) LoadScenario(index int) error {
	if index < 0 || index >= g.catalogue.Len() {
		return fmt.Errorf("load scenario: index %d out of range [0, %d)", index, g.catalogue.Len())
	}
	s := &g.catalogue.Scenarios[index]
	if err := scenario.Load(g.solver, s, g.cfg.SPHParams(), g.logger); err != nil {
		return fmt.Errorf("load scenario %q: %w", s.Name, err)
	}
	g.scenarioIndex = index
	g.perfCollector.Reset()
	g.inspector.Deselect()
	return nil
}

// NextScenario advances to the next scenario, wrapping around.
func (g *Game) NextScenario() error {
	return g.LoadScenario((g.scenarioIndex + 1) % g.catalogue.Len())
}

// NextDemo switches to the next solver variant and resumes the simulation.
func (g *Game) NextDemo() error {
	g.simulationActive = true
	return g.LoadDemo((g.demoIndex + 1) % demo.Count())
}

// Reset reloads the active scenario.
func (g *Game) Reset() error {
	return g.LoadScenario(g.scenarioIndex)
}

// TogglePause starts or stops the simulation.
func (g *Game) TogglePause() {
	g.simulationActive = !g.simulationActive
}

// ToggleThreads switches multithreading when the solver supports it.
func (g *Game) ToggleThreads() {
	if !g.solver.IsMultiThreadingSupported() {
		return
	}
	g.multiThreading = !g.multiThreading
	g.solver.SetMultiThreading(g.multiThreading)
}

// ApplyForce pushes the fluid along dir for the next frame. The strength is
// Input.ExternalForce per unit of dir.
func (g *Game) ApplyForce(dir r2.Vec) {
	if !g.simulationActive || g.bench.active || g.bench.done {
		return
	}
	if dir == (r2.Vec{}) {
		return
	}
	g.forceApplying = true
	g.solver.AddExternalForces(r2.Scale(g.cfg.Input.ExternalForce, dir))
}

// SetFluidParams changes viscosity and stiffness of the running solver.
func (g *Game) SetFluidParams(viscosity, stiffness float64) error {
	p := g.solver.Params()
	p.Viscosity = viscosity
	p.Stiffness = stiffness
	return g.solver.SetParams(p)
}

// Step advances one frame: Simulation.Substeps solver updates of SubstepDT.
// It does nothing while paused. A solver error pauses the simulation.
func (g *Game) Step() error {
	if !g.simulationActive {
		return nil
	}

	var sample telemetry.FrameSample
	dt := g.cfg.Simulation.SubstepDT
	start := time.Now()
	for i := 0; i < g.cfg.Simulation.Substeps; i++ {
		if err := g.solver.Update(dt); err != nil {
			g.simulationActive = false
			return fmt.Errorf("frame %d substep %d: %w", g.frame, i, err)
		}
		sample.Add(g.solver.Stats().Time)
	}
	sample.Simulation = time.Since(start)

	g.frame++
	g.lastSample = sample
	g.perfCollector.Record(sample)
	g.flushTelemetry()

	if g.bench.active {
		return g.recordBenchmarkFrame(sample)
	}
	return nil
}
