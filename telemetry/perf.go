// Package telemetry collects solver timings for display, logging and CSV export.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/sphfluid/sph"
)

// FrameSample holds the timing of one rendered frame: the wall time of all its
// substeps and the per-stage times summed over those substeps.
type FrameSample struct {
	Simulation time.Duration
	Stages     sph.StageTimes
}

// Add accumulates the stage times of one substep.
func (f *FrameSample) Add(t sph.StageTimes) {
	f.Stages.UpdateGrid += t.UpdateGrid
	f.Stages.NeighborSearch += t.NeighborSearch
	f.Stages.DensityPressure += t.DensityPressure
	f.Stages.ViscosityForces += t.ViscosityForces
	f.Stages.Predict += t.Predict
	f.Stages.Integration += t.Integration
	f.Stages.Collisions += t.Collisions
	f.Stages.DeltaPositions += t.DeltaPositions
	f.Stages.Emitters += t.Emitters
}

// PerfCollector tracks frame timings over a rolling window.
type PerfCollector struct {
	windowSize  int
	samples     []FrameSample
	writeIndex  int
	sampleCount int
	total       int64

	// Render loop timing
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of frames to average over (e.g., 60 for 1 second at 60fps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]FrameSample, windowSize),
	}
}

// Record adds a frame sample, evicting the oldest once the window is full.
func (p *PerfCollector) Record(s FrameSample) {
	p.samples[p.writeIndex] = s
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.total++
}

// Total returns the number of frames recorded since creation or Reset.
func (p *PerfCollector) Total() int64 {
	return p.total
}

// Reset drops every sample.
func (p *PerfCollector) Reset() {
	p.writeIndex = 0
	p.sampleCount = 0
	p.total = 0
}

// RecordFrame records render loop timing.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Simulation time per frame
	AvgSimDuration time.Duration
	MinSimDuration time.Duration
	MaxSimDuration time.Duration

	// Stage breakdown, indexed like sph.StageNames
	StageAvg []time.Duration
	StagePct []float64

	// Render loop
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	stats := PerfStats{
		StageAvg:      make([]time.Duration, len(sph.StageNames)),
		StagePct:      make([]float64, len(sph.StageNames)),
		FrameDuration: p.frameDuration,
		FPS:           fps,
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	stageSum := make([]time.Duration, len(sph.StageNames))
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Simulation

		if i == 0 || s.Simulation < stats.MinSimDuration {
			stats.MinSimDuration = s.Simulation
		}
		if s.Simulation > stats.MaxSimDuration {
			stats.MaxSimDuration = s.Simulation
		}

		for k, d := range s.Stages.Stages() {
			stageSum[k] += d
		}
	}

	n := time.Duration(p.sampleCount)
	stats.AvgSimDuration = total / n
	for k, sum := range stageSum {
		stats.StageAvg[k] = sum / n
		if stats.AvgSimDuration > 0 {
			stats.StagePct[k] = float64(stats.StageAvg[k]) / float64(stats.AvgSimDuration) * 100
		}
	}
	return stats
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_sim_us", s.AvgSimDuration.Microseconds()),
		slog.Int64("min_sim_us", s.MinSimDuration.Microseconds()),
		slog.Int64("max_sim_us", s.MaxSimDuration.Microseconds()),
	}

	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}

	for k, pct := range s.StagePct {
		if pct > 0.1 {
			attrs = append(attrs, slog.Float64(sph.StageNames[k]+"_pct", float64(int(pct*10))/10))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Frame              int64   `csv:"frame"`
	Particles          int     `csv:"particles"`
	AvgSimUS           int64   `csv:"avg_sim_us"`
	MinSimUS           int64   `csv:"min_sim_us"`
	MaxSimUS           int64   `csv:"max_sim_us"`
	FPS                float64 `csv:"fps"`
	UpdateGridPct      float64 `csv:"update_grid_pct"`
	NeighborSearchPct  float64 `csv:"neighbor_search_pct"`
	DensityPressurePct float64 `csv:"density_pressure_pct"`
	ViscosityForcesPct float64 `csv:"viscosity_forces_pct"`
	PredictPct         float64 `csv:"predict_pct"`
	IntegrationPct     float64 `csv:"integration_pct"`
	CollisionsPct      float64 `csv:"collisions_pct"`
	DeltaPositionsPct  float64 `csv:"delta_positions_pct"`
	EmittersPct        float64 `csv:"emitters_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(frame int64, particles int) PerfStatsCSV {
	pct := func(k int) float64 {
		if k < len(s.StagePct) {
			return s.StagePct[k]
		}
		return 0
	}
	return PerfStatsCSV{
		Frame:              frame,
		Particles:          particles,
		AvgSimUS:           s.AvgSimDuration.Microseconds(),
		MinSimUS:           s.MinSimDuration.Microseconds(),
		MaxSimUS:           s.MaxSimDuration.Microseconds(),
		FPS:                s.FPS,
		UpdateGridPct:      pct(0),
		NeighborSearchPct:  pct(1),
		DensityPressurePct: pct(2),
		ViscosityForcesPct: pct(3),
		PredictPct:         pct(4),
		IntegrationPct:     pct(5),
		CollisionsPct:      pct(6),
		DeltaPositionsPct:  pct(7),
		EmittersPct:        pct(8),
	}
}
