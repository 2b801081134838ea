package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sphfluid/config"
	"github.com/pthm-cable/sphfluid/game"
	"github.com/pthm-cable/sphfluid/scenario"
	"github.com/pthm-cable/sphfluid/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output perf stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	scenarios := flag.String("scenarios", "", "Extra scenario catalogue appended to the built-in one")
	scenarioName := flag.String("scenario", "", "Initial scenario name (empty = use config)")
	demoIndex := flag.Int("demo", -1, "Initial solver variant (-1 = use config)")
	seed := flag.Int64("seed", 0, "Lattice jitter seed (0 = use config)")
	maxFrames := flag.Int64("frames", 0, "Stop after N frames (0 = unlimited)")
	benchmark := flag.Bool("benchmark", false, "Run the benchmark on start and exit when it completes")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *scenarios != "" {
		cfg.Simulation.Scenarios = *scenarios
	}
	if *scenarioName != "" {
		cfg.Simulation.Scenario = *scenarioName
	}
	if *demoIndex >= 0 {
		cfg.Simulation.Demo = *demoIndex
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}

	cat, err := scenario.Builtin()
	if err != nil {
		slog.Error("failed to load built-in scenarios", "error", err)
		os.Exit(1)
	}
	if path := cfg.Simulation.Scenarios; path != "" {
		extra, err := scenario.LoadFile(path)
		if err != nil {
			slog.Error("failed to load scenarios", "path", path, "error", err)
			os.Exit(1)
		}
		cat.Append(extra)
	}

	output, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	opts := game.Options{
		Config:    cfg,
		Catalogue: cat,
		Output:    output,
		Logger:    logger,
		LogStats:  *logStats,
	}

	if *headless {
		os.Exit(runHeadless(opts, *maxFrames, *benchmark))
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "SPH Fluid")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	// Esc stops benchmarks instead of closing the window.
	rl.SetExitKey(0)

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer g.Unload()

	if *benchmark {
		if err := g.StartBenchmark(); err != nil {
			slog.Error("failed to start benchmark", "error", err)
			return
		}
	}

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if *maxFrames > 0 && g.Frame() >= *maxFrames {
			break
		}
	}
}

// runHeadless steps the simulation without a window and returns the exit code.
func runHeadless(opts game.Options, maxFrames int64, benchmark bool) int {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"demo", g.DemoName(),
		"scenario", g.ScenarioName(),
		"max_frames", maxFrames,
		"benchmark", benchmark,
	)

	if benchmark {
		if err := g.StartBenchmark(); err != nil {
			slog.Error("failed to start benchmark", "error", err)
			return 1
		}
		for g.BenchmarkActive() {
			if err := g.Step(); err != nil {
				slog.Error("benchmark failed", "error", err)
				return 1
			}
		}
		for _, r := range g.BenchmarkResults() {
			slog.Info("benchmark result",
				"demo", r.Demo,
				"scenario", r.Scenario,
				"iterations", r.Iterations,
				"frames", r.Frames,
				"min_ms", telemetry.Millis(r.Min.Simulation),
				"avg_ms", telemetry.Millis(r.Avg.Simulation),
				"max_ms", telemetry.Millis(r.Max.Simulation),
			)
		}
		return 0
	}

	for maxFrames <= 0 || g.Frame() < maxFrames {
		if err := g.Step(); err != nil {
			slog.Error("simulation failed", "frame", g.Frame(), "error", err)
			return 1
		}
	}
	slog.Info("max frames reached", "frame", g.Frame(), "particles", g.Solver().ParticleCount())
	return 0
}
