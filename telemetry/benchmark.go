package telemetry

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sphfluid/sph"
)

// Benchmark statistic labels.
const (
	StatMin = "min"
	StatMax = "max"
	StatAvg = "avg"
)

// BenchmarkIteration holds the frames of one scenario run.
type BenchmarkIteration struct {
	Frames []FrameSample
}

// DemoResult aggregates every frame of every iteration for one solver.
type DemoResult struct {
	Demo       string
	Scenario   string
	Frames     int // longest iteration
	Iterations int

	Min, Max, Avg FrameSample
}

// Aggregate computes per-field minimum, maximum and mean over all frames.
// Each field is aggregated independently, so Min is not one particular frame.
func Aggregate(demo, scenario string, iterations []BenchmarkIteration) DemoResult {
	r := DemoResult{Demo: demo, Scenario: scenario, Iterations: len(iterations)}

	// columns[0] is the simulation time, the rest follow sph.StageNames.
	columns := make([][]float64, 1+len(sph.StageNames))
	for _, it := range iterations {
		r.Frames = max(r.Frames, len(it.Frames))
		for _, f := range it.Frames {
			columns[0] = append(columns[0], float64(f.Simulation))
			for k, d := range f.Stages.Stages() {
				columns[k+1] = append(columns[k+1], float64(d))
			}
		}
	}
	if len(columns[0]) == 0 {
		return r
	}

	lo := make([]time.Duration, len(columns))
	hi := make([]time.Duration, len(columns))
	mean := make([]time.Duration, len(columns))
	for k, col := range columns {
		lo[k] = time.Duration(floats.Min(col))
		hi[k] = time.Duration(floats.Max(col))
		mean[k] = time.Duration(stat.Mean(col, nil))
	}
	r.Min = frameFromColumns(lo)
	r.Max = frameFromColumns(hi)
	r.Avg = frameFromColumns(mean)
	return r
}

func frameFromColumns(c []time.Duration) FrameSample {
	return FrameSample{
		Simulation: c[0],
		Stages: sph.StageTimes{
			UpdateGrid:      c[1],
			NeighborSearch:  c[2],
			DensityPressure: c[3],
			ViscosityForces: c[4],
			Predict:         c[5],
			Integration:     c[6],
			Collisions:      c[7],
			DeltaPositions:  c[8],
			Emitters:        c[9],
		},
	}
}

// Stat returns the aggregate named by StatMin, StatMax or StatAvg.
func (r DemoResult) Stat(name string) FrameSample {
	switch name {
	case StatMin:
		return r.Min
	case StatAvg:
		return r.Avg
	default:
		return r.Max
	}
}

// BenchmarkCSV is one aggregate row of benchmark.csv, times in milliseconds.
type BenchmarkCSV struct {
	Demo             string  `csv:"demo"`
	Scenario         string  `csv:"scenario"`
	Stat             string  `csv:"stat"`
	Frames           int     `csv:"frames"`
	Iterations       int     `csv:"iterations"`
	SimulationMS     float64 `csv:"simulation_ms"`
	UpdateGridMS     float64 `csv:"update_grid_ms"`
	NeighborSearchMS float64 `csv:"neighbor_search_ms"`
	DensityMS        float64 `csv:"density_pressure_ms"`
	ViscosityMS      float64 `csv:"viscosity_forces_ms"`
	PredictMS        float64 `csv:"predict_ms"`
	IntegrationMS    float64 `csv:"integration_ms"`
	CollisionsMS     float64 `csv:"collisions_ms"`
	DeltaMS          float64 `csv:"delta_positions_ms"`
	EmittersMS       float64 `csv:"emitters_ms"`
}

// ToCSV returns the min, max and avg rows of the result.
func (r DemoResult) ToCSV() []BenchmarkCSV {
	rows := make([]BenchmarkCSV, 0, 3)
	for _, name := range []string{StatMin, StatMax, StatAvg} {
		f := r.Stat(name)
		rows = append(rows, BenchmarkCSV{
			Demo:             r.Demo,
			Scenario:         r.Scenario,
			Stat:             name,
			Frames:           r.Frames,
			Iterations:       r.Iterations,
			SimulationMS:     Millis(f.Simulation),
			UpdateGridMS:     Millis(f.Stages.UpdateGrid),
			NeighborSearchMS: Millis(f.Stages.NeighborSearch),
			DensityMS:        Millis(f.Stages.DensityPressure),
			ViscosityMS:      Millis(f.Stages.ViscosityForces),
			PredictMS:        Millis(f.Stages.Predict),
			IntegrationMS:    Millis(f.Stages.Integration),
			CollisionsMS:     Millis(f.Stages.Collisions),
			DeltaMS:          Millis(f.Stages.DeltaPositions),
			EmittersMS:       Millis(f.Stages.Emitters),
		})
	}
	return rows
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
