package game

// flushTelemetry logs and writes the rolling perf stats every
// Derived.LogEveryFrames frames.
func (g *Game) flushTelemetry() {
	every := g.cfg.Derived.LogEveryFrames
	if every <= 0 || g.frame%every != 0 {
		return
	}

	perfStats := g.perfCollector.Stats()
	particles := g.solver.ParticleCount()

	if g.logStats {
		g.logger.Info("perf",
			"frame", g.frame,
			"demo", g.DemoName(),
			"scenario", g.ScenarioName(),
			"stats", perfStats,
			"solver", g.solver.Stats(),
		)
	}

	if err := g.output.WritePerf(perfStats, g.frame, particles); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
}
