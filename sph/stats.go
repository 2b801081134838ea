package sph

import (
	"log/slog"
	"time"
)

// StageTimes holds the wall-clock duration of each stage of the last substep.
type StageTimes struct {
	UpdateGrid      time.Duration
	NeighborSearch  time.Duration
	DensityPressure time.Duration
	ViscosityForces time.Duration
	Predict         time.Duration
	Integration     time.Duration
	Collisions      time.Duration
	DeltaPositions  time.Duration
	Emitters        time.Duration
}

// Total returns the sum of all stage durations.
func (t StageTimes) Total() time.Duration {
	return t.UpdateGrid + t.NeighborSearch + t.DensityPressure + t.ViscosityForces +
		t.Predict + t.Integration + t.Collisions + t.DeltaPositions + t.Emitters
}

// Stages returns the durations in execution order, paired with StageNames.
func (t StageTimes) Stages() []time.Duration {
	return []time.Duration{
		t.UpdateGrid, t.NeighborSearch, t.DensityPressure, t.ViscosityForces,
		t.Predict, t.Integration, t.Collisions, t.DeltaPositions, t.Emitters,
	}
}

// StageNames lists the stage labels in execution order.
var StageNames = []string{
	"update_grid",
	"neighbor_search",
	"density_pressure",
	"viscosity_forces",
	"predict",
	"integration",
	"collisions",
	"delta_positions",
	"emitters",
}

// Statistics is a snapshot of solver counters. Stage times and occupancy
// describe the most recent substep.
type Statistics struct {
	Time StageTimes

	ParticleCount int
	CellOccupancyMin,
	CellOccupancyMax int
	NeighborCountMin,
	NeighborCountMax int

	// OutOfDomain counts particles clamped into the border cells of the
	// grid. They still collide correctly but crowd those cells.
	OutOfDomain int

	Substeps int64 // since the last ResetStats
}

// LogValue implements slog.LogValuer.
func (s Statistics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("particles", s.ParticleCount),
		slog.Int64("substeps", s.Substeps),
		slog.Duration("substep_time", s.Time.Total()),
		slog.Int("cell_min", s.CellOccupancyMin),
		slog.Int("cell_max", s.CellOccupancyMax),
		slog.Int("neighbors_min", s.NeighborCountMin),
		slog.Int("neighbors_max", s.NeighborCountMax),
		slog.Int("out_of_domain", s.OutOfDomain),
	)
}

// timed stores the duration of fn in *dst.
func timed(dst *time.Duration, fn func()) {
	start := time.Now()
	fn()
	*dst = time.Since(start)
}
