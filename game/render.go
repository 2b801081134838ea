package game

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sphfluid/inspector"
	"github.com/pthm-cable/sphfluid/renderer"
	"github.com/pthm-cable/sphfluid/ui"
)

var backgroundColor = rl.Color{R: 12, G: 14, B: 20, A: 255}

const controlsLegend = "Arrows: push fluid | Click: inspect | Right drag/wheel: camera | Home: reset view | O: panel | F11: fullscreen"

// Update handles input and advances one frame.
func (g *Game) Update() {
	g.perfCollector.RecordFrame()
	g.forceApplying = false
	g.handleInput()

	if err := g.Step(); err != nil {
		g.logger.Error("simulation stopped", "error", err)
	}
}

// Draw renders the current frame.
func (g *Game) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(backgroundColor)

	w, h := int32(g.screenWidth), int32(g.screenHeight)

	if g.bench.done {
		if len(g.bench.results) > 0 {
			first := g.bench.results[0]
			lines := ui.ResultLines(first.Scenario, first.Frames, first.Iterations)
			g.hud.DrawResult(lines, g.BenchmarkChart(), w, h)
		} else {
			g.hud.DrawResult(ui.ResultLines(g.ScenarioName(), 0, 0), &ui.Chart{}, w, h)
		}
		return
	}

	g.drawScene()

	if g.bench.active {
		g.hud.DrawBenchmark(g.BenchmarkProgress(), w, h)
		return
	}

	g.hud.DrawStatus(g.statusData())
	g.inspector.Draw(g.particles, g.solver.Params().RestDensity)
	g.hud.DrawControls(h, controlsLegend)
	g.drawControlsPanel()
}

// drawScene renders bodies, particles and debug overlays.
func (g *Game) drawScene() {
	params := g.solver.Params()

	if g.overlays.IsEnabled(ui.OverlayGrid) {
		renderer.DrawGrid(params.Domain, params.KernelRadius, g.camera)
	}
	if g.overlays.IsEnabled(ui.OverlayDomain) {
		renderer.DrawDomain(params.Domain, g.camera)
	}

	g.bodyRenderer.Draw(g.solver.Bodies(), g.camera)

	switch {
	case g.overlays.IsEnabled(ui.OverlaySpeedColors):
		g.particleRenderer.Mode = renderer.ColorSpeed
	case g.overlays.IsEnabled(ui.OverlayDensityColors):
		g.particleRenderer.Mode = renderer.ColorDensity
	default:
		g.particleRenderer.Mode = renderer.ColorFlat
	}
	g.particles = g.solver.Particles(g.particles[:0])
	g.particleRenderer.Draw(g.particles, g.camera, params)

	if p, ok := g.inspector.Find(g.particles); ok {
		sx, sy := g.camera.WorldToScreen(float32(p.Position.X), float32(p.Position.Y))
		r := max(g.camera.WorldLength(float32(params.ParticleRadius))*2, 6)
		rl.DrawCircleLines(int32(sx), int32(sy), r, inspector.ColorHighlight)
	}

	if g.overlays.IsEnabled(ui.OverlayEmitters) {
		g.emitters = g.solver.Emitters(g.emitters[:0])
		renderer.DrawEmitters(g.emitters, g.camera)
	}

	if g.forceApplying {
		rl.DrawText("Applying force", int32(g.screenWidth)/2-50, 10, 16, rl.Orange)
	}
}

// drawControlsPanel draws the raygui panel and applies what it requests.
func (g *Game) drawControlsPanel() {
	params := g.solver.Params()
	state := ui.ControlsState{
		Running:        g.simulationActive,
		ThreadsSupport: g.solver.IsMultiThreadingSupported(),
		MultiThreading: g.solver.IsMultiThreading(),
		Viscosity:      params.Viscosity,
		Stiffness:      params.Stiffness,
	}
	res := g.controls.Draw(state, g.overlays)

	var err error
	switch res.Action {
	case ui.ActionNextScenario:
		err = g.NextScenario()
	case ui.ActionNextDemo:
		err = g.NextDemo()
	case ui.ActionTogglePause:
		g.TogglePause()
	case ui.ActionReset:
		err = g.Reset()
	case ui.ActionToggleThreads:
		g.ToggleThreads()
	case ui.ActionBenchmark:
		err = g.StartBenchmark()
	}
	if err == nil && res.Action == ui.ActionNone && res.Changed(state) {
		err = g.SetFluidParams(res.Viscosity, res.Stiffness)
	}
	if err != nil {
		g.logger.Error("controls", "error", err)
	}
}

func (g *Game) statusData() ui.StatusData {
	stats := g.solver.Stats()
	return ui.StatusData{
		ScenarioIndex:  g.scenarioIndex,
		ScenarioCount:  g.catalogue.Len(),
		ScenarioName:   g.ScenarioName(),
		DemoName:       g.DemoName(),
		Running:        g.simulationActive,
		ThreadsSupport: g.solver.IsMultiThreadingSupported(),
		MultiThreading: g.solver.IsMultiThreading(),
		Workers:        g.solver.WorkerThreadCount(),
		FrameTime:      time.Duration(float64(time.Second) * float64(rl.GetFrameTime())),
		SimTime:        g.lastSample.Simulation,
		Particles:      stats.ParticleCount,
		Stats:          stats,
	}
}
