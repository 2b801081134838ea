package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sphfluid/sph"
)

// StatusData holds everything shown in the interactive status text.
type StatusData struct {
	ScenarioIndex  int
	ScenarioCount  int
	ScenarioName   string
	DemoName       string
	Running        bool
	ThreadsSupport bool
	MultiThreading bool
	Workers        int
	FrameTime      time.Duration
	SimTime        time.Duration
	Particles      int
	Stats          sph.Statistics
}

// StatusLines formats the status text, one entry per line.
func StatusLines(d StatusData) []string {
	threads := "Multithreading: not supported"
	if d.ThreadsSupport {
		threads = fmt.Sprintf("Multithreading: %s, %d threads (T)", yesNo(d.MultiThreading), d.Workers)
	}

	t := d.Stats.Time
	return []string{
		fmt.Sprintf("Scenario: [%d / %d] %s (Space)", d.ScenarioIndex+1, d.ScenarioCount, d.ScenarioName),
		fmt.Sprintf("Demo: %s (D)", d.DemoName),
		"Start benchmark (B)",
		fmt.Sprintf("Simulation: %s (P)", yesNo(d.Running)),
		threads,
		"Reset (R)",
		fmt.Sprintf("Frame time: %s, Simulation: %s", ms(d.FrameTime), ms(d.SimTime)),
		fmt.Sprintf("Particles: %d", d.Particles),
		"Stats:",
		fmt.Sprintf("\tMin/Max cell particle count: %d / %d", d.Stats.CellOccupancyMin, d.Stats.CellOccupancyMax),
		fmt.Sprintf("\tMin/Max particle neighbor count: %d / %d", d.Stats.NeighborCountMin, d.Stats.NeighborCountMax),
		fmt.Sprintf("\tParticles outside grid: %d", d.Stats.OutOfDomain),
		"\tTime integration: " + ms(t.Integration),
		"\tTime viscosity forces: " + ms(t.ViscosityForces),
		"\tTime predict: " + ms(t.Predict),
		"\tTime update grid: " + ms(t.UpdateGrid),
		"\tTime neighbor search: " + ms(t.NeighborSearch),
		"\tTime density and pressure: " + ms(t.DensityPressure),
		"\tTime delta positions: " + ms(t.DeltaPositions),
		"\tTime collisions: " + ms(t.Collisions),
		"\tTime emitters: " + ms(t.Emitters),
	}
}

// BenchmarkProgress describes a running benchmark.
type BenchmarkProgress struct {
	Demo, DemoCount       int // Demo is zero-based
	Scenario              string
	Iteration, Iterations int // Iteration is one-based
	Frame, Frames         int // frames recorded in the current iteration
	Done, Total           int // frames recorded over the whole run
}

// Fraction returns the completed share of the whole run.
func (p BenchmarkProgress) Fraction() float32 {
	if p.Total == 0 {
		return 0
	}
	return float32(p.Done) / float32(p.Total)
}

// BenchmarkLines formats the progress text of a running benchmark.
func BenchmarkLines(p BenchmarkProgress) []string {
	return []string{
		fmt.Sprintf("Benchmarking - Demo %d of %d, Scenario: %s (Escape)", p.Demo+1, p.DemoCount, p.Scenario),
		fmt.Sprintf("Iteration %d of %d", p.Iteration, p.Iterations),
		fmt.Sprintf("Frame %d of %d", p.Frame+1, p.Frames),
	}
}

// ResultLines formats the header shown above the benchmark chart.
func ResultLines(scenario string, frames, iterations int) []string {
	return []string{
		fmt.Sprintf("Benchmark done, Scenario: %s, Frames: %d, Iterations: %d", scenario, frames, iterations),
		"Close (Escape)",
	}
}

// HUD renders the status text and benchmark screens.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// DrawStatus renders the interactive status text in the top-left corner.
func (h *HUD) DrawStatus(d StatusData) {
	r := h.renderer
	r.DrawLines(r.Theme.Padding, r.Theme.Padding, StatusLines(d))
}

// DrawBenchmark renders the progress text, a title and the progress bar.
func (h *HUD) DrawBenchmark(p BenchmarkProgress, screenW, screenH int32) {
	r := h.renderer
	r.DrawLines(r.Theme.Padding, r.Theme.Padding, BenchmarkLines(p))

	const titleSize = 40
	title := "Benchmarking"
	titleW := rl.MeasureText(title, titleSize)
	r.DrawCenteredText(title, screenW/2, screenH/2-titleSize, titleSize, r.Theme.TextColor)
	r.DrawProgress((screenW-titleW)/2, screenH/2+8, titleW, titleSize/2, p.Fraction())
}

// DrawResult renders the benchmark header lines and the chart below them.
func (h *HUD) DrawResult(lines []string, chart *Chart, screenW, screenH int32) {
	r := h.renderer
	y := r.DrawLines(r.Theme.Padding, r.Theme.Padding, lines)
	chart.Draw(r, rl.Rectangle{
		X:      0,
		Y:      float32(y),
		Width:  float32(screenW),
		Height: float32(screenH - y),
	})
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ms formats a duration as fractional milliseconds.
func ms(d time.Duration) string {
	return fmt.Sprintf("%.3f ms", float64(d)/float64(time.Millisecond))
}
