// Package game runs the interactive fluid demo: solver and scenario
// selection, the substep loop, benchmarks, input and drawing.
package game

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/camera"
	"github.com/pthm-cable/sphfluid/components"
	"github.com/pthm-cable/sphfluid/config"
	"github.com/pthm-cable/sphfluid/demo"
	"github.com/pthm-cable/sphfluid/inspector"
	"github.com/pthm-cable/sphfluid/renderer"
	"github.com/pthm-cable/sphfluid/scenario"
	"github.com/pthm-cable/sphfluid/sph"
	"github.com/pthm-cable/sphfluid/telemetry"
	"github.com/pthm-cable/sphfluid/ui"
)

// inspectorHeight keeps the particle panel clear of the controls legend.
const inspectorHeight = 300

// Options configures a Game.
type Options struct {
	Config    *config.Config
	Catalogue *scenario.Catalogue      // nil = built-in scenarios
	Output    *telemetry.OutputManager // nil = no CSV output
	Logger    *slog.Logger             // nil = slog.Default()
	LogStats  bool                     // log perf stats every Telemetry.LogInterval
}

// Game holds the complete demo state.
type Game struct {
	cfg       *config.Config
	logger    *slog.Logger
	catalogue *scenario.Catalogue

	solver         demo.Solver
	demoIndex      int
	scenarioIndex  int
	multiThreading bool

	// State
	simulationActive bool
	forceApplying    bool
	frame            int64
	lastSample       telemetry.FrameSample

	bench benchmark

	// Telemetry
	perfCollector *telemetry.PerfCollector
	output        *telemetry.OutputManager
	logStats      bool

	// Rendering
	camera           *camera.Camera
	hud              *ui.HUD
	controls         *ui.ControlsPanel
	overlays         *ui.OverlayRegistry
	inspector        *inspector.Inspector
	particleRenderer *renderer.ParticleRenderer
	bodyRenderer     *renderer.BodyRenderer
	particles        []sph.Particle
	emitters         []components.Emitter

	screenWidth, screenHeight float32
}

// NewGameWithOptions creates a game and loads the configured demo and scenario.
// Nothing here needs a window; drawing and input are only touched by Update
// and Draw.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("game: nil config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat := opts.Catalogue
	if cat == nil {
		builtin, err := scenario.Builtin()
		if err != nil {
			return nil, err
		}
		cat = builtin
	}
	if cat.Len() == 0 {
		return nil, fmt.Errorf("game: empty scenario catalogue")
	}

	scenarioIndex := 0
	if name := cfg.Simulation.Scenario; name != "" {
		if scenarioIndex = cat.Find(name); scenarioIndex < 0 {
			return nil, fmt.Errorf("game: unknown scenario %q", name)
		}
	}

	domain := cfg.SPHParams().Domain
	center := r2.Scale(0.5, r2.Add(domain.Min, domain.Max))

	g := &Game{
		cfg:              cfg,
		logger:           logger,
		catalogue:        cat,
		scenarioIndex:    scenarioIndex,
		multiThreading:   cfg.Workers.MultiThreading,
		simulationActive: true,
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		output:           opts.Output,
		logStats:         opts.LogStats,
		camera: camera.New(cfg.Derived.ScreenW32, cfg.Derived.ScreenH32,
			cfg.Derived.PixelsPerUnit, float32(center.X), float32(center.Y)),
		hud:              ui.NewHUD(),
		controls:         ui.NewControlsPanel(int32(cfg.Screen.Width)-230, 10, 220),
		overlays:         ui.NewOverlayRegistry(),
		inspector:        inspector.NewInspector(10, int32(cfg.Screen.Height)-inspectorHeight),
		particleRenderer: renderer.NewParticleRenderer(),
		bodyRenderer:     renderer.NewBodyRenderer(),
		screenWidth:      cfg.Derived.ScreenW32,
		screenHeight:     cfg.Derived.ScreenH32,
	}

	if err := g.LoadDemo(cfg.Simulation.Demo); err != nil {
		return nil, err
	}
	return g, nil
}

// Unload releases the solver's worker pool and flushes output files.
func (g *Game) Unload() {
	if g.solver != nil {
		g.solver.Close()
		g.solver = nil
	}
	if err := g.output.Close(); err != nil {
		g.logger.Error("failed to close output", "error", err)
	}
}

// Frame returns the number of simulated frames.
func (g *Game) Frame() int64 {
	return g.frame
}

// Solver returns the active solver.
func (g *Game) Solver() demo.Solver {
	return g.solver
}

// DemoIndex returns the active solver variant.
func (g *Game) DemoIndex() int {
	return g.demoIndex
}

// DemoName returns the title of the active solver variant.
func (g *Game) DemoName() string {
	return demo.Variants()[g.demoIndex].Name
}

// ScenarioIndex returns the active scenario.
func (g *Game) ScenarioIndex() int {
	return g.scenarioIndex
}

// ScenarioName returns the name of the active scenario.
func (g *Game) ScenarioName() string {
	return g.catalogue.Scenarios[g.scenarioIndex].Name
}

// Running reports whether frames advance the simulation.
func (g *Game) Running() bool {
	return g.simulationActive
}

// LastSample returns the timing of the most recent frame.
func (g *Game) LastSample() telemetry.FrameSample {
	return g.lastSample
}

// Perf returns the rolling frame statistics.
func (g *Game) Perf() telemetry.PerfStats {
	return g.perfCollector.Stats()
}
