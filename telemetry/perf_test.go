package telemetry

import (
	"testing"
	"time"

	"github.com/pthm-cable/sphfluid/sph"
)

func sample(sim, grid, density time.Duration) FrameSample {
	return FrameSample{
		Simulation: sim,
		Stages:     sph.StageTimes{UpdateGrid: grid, DensityPressure: density},
	}
}

func TestFrameSampleAdd(t *testing.T) {
	var f FrameSample
	for i := 0; i < 4; i++ {
		f.Add(sph.StageTimes{NeighborSearch: time.Millisecond, Emitters: time.Microsecond})
	}
	if f.Stages.NeighborSearch != 4*time.Millisecond {
		t.Errorf("NeighborSearch = %v, want 4ms", f.Stages.NeighborSearch)
	}
	if f.Stages.Emitters != 4*time.Microsecond {
		t.Errorf("Emitters = %v, want 4µs", f.Stages.Emitters)
	}
	if f.Simulation != 0 {
		t.Errorf("Add touched Simulation: %v", f.Simulation)
	}
}

func TestPerfCollector_Stats(t *testing.T) {
	pc := NewPerfCollector(10)
	pc.Record(sample(2*time.Millisecond, time.Millisecond, 0))
	pc.Record(sample(4*time.Millisecond, time.Millisecond, 2*time.Millisecond))

	stats := pc.Stats()
	if stats.AvgSimDuration != 3*time.Millisecond {
		t.Errorf("avg = %v, want 3ms", stats.AvgSimDuration)
	}
	if stats.MinSimDuration != 2*time.Millisecond || stats.MaxSimDuration != 4*time.Millisecond {
		t.Errorf("min/max = %v/%v, want 2ms/4ms", stats.MinSimDuration, stats.MaxSimDuration)
	}
	if len(stats.StageAvg) != len(sph.StageNames) {
		t.Fatalf("%d stage averages, want %d", len(stats.StageAvg), len(sph.StageNames))
	}
	if stats.StageAvg[0] != time.Millisecond {
		t.Errorf("update_grid avg = %v, want 1ms", stats.StageAvg[0])
	}
	// 1ms of a 3ms average.
	if pct := stats.StagePct[2]; pct < 33.3 || pct > 33.4 {
		t.Errorf("density_pressure pct = %v, want ~33.3", pct)
	}
	if pc.Total() != 2 {
		t.Errorf("Total() = %d, want 2", pc.Total())
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 5; i++ {
		pc.Record(sample(100*time.Millisecond, 0, 0))
	}
	// Fill the window again; the slow frames must be gone.
	for i := 0; i < 5; i++ {
		pc.Record(sample(time.Millisecond, 0, 0))
	}

	stats := pc.Stats()
	if stats.MaxSimDuration != time.Millisecond {
		t.Errorf("max = %v, want 1ms after window rolled over", stats.MaxSimDuration)
	}
	if pc.Total() != 10 {
		t.Errorf("Total() = %d, want 10", pc.Total())
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()
	if stats.AvgSimDuration != 0 {
		t.Error("expected zero avg duration for empty collector")
	}
	if len(stats.StagePct) != len(sph.StageNames) {
		t.Error("expected a zeroed percentage per stage")
	}
}

func TestPerfCollector_Reset(t *testing.T) {
	pc := NewPerfCollector(3)
	pc.Record(sample(time.Second, 0, 0))
	pc.Reset()

	if pc.Total() != 0 {
		t.Errorf("Total() = %d after Reset", pc.Total())
	}
	if got := pc.Stats().AvgSimDuration; got != 0 {
		t.Errorf("avg = %v after Reset, want 0", got)
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("FPS = %v, want in (0, 70]", stats.FPS)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	pc := NewPerfCollector(4)
	pc.Record(sample(2*time.Millisecond, time.Millisecond, 0))

	row := pc.Stats().ToCSV(120, 900)
	if row.Frame != 120 || row.Particles != 900 {
		t.Errorf("frame/particles = %d/%d", row.Frame, row.Particles)
	}
	if row.AvgSimUS != 2000 {
		t.Errorf("AvgSimUS = %d, want 2000", row.AvgSimUS)
	}
	if row.UpdateGridPct != 50 {
		t.Errorf("UpdateGridPct = %v, want 50", row.UpdateGridPct)
	}

	// A zero-value PerfStats has no stage slices.
	if got := (PerfStats{}).ToCSV(0, 0).EmittersPct; got != 0 {
		t.Errorf("EmittersPct = %v, want 0", got)
	}
}
