package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sphfluid/config"
	"github.com/pthm-cable/sphfluid/game"
	"github.com/pthm-cable/sphfluid/scenario"
	"github.com/pthm-cable/sphfluid/sph"
)

const (
	// speedWeight scales the mean particle speed into the fitness.
	speedWeight = 0.1
	// failedFitness is returned for runs that could not start or diverged.
	failedFitness = 1e3
)

// FitnessEvaluator runs headless simulations and scores how well the fluid
// settles.
type FitnessEvaluator struct {
	params     *ParamVector
	frames     int
	seeds      []int64
	baseConfig *config.Config
	catalogue  *scenario.Catalogue
	logger     *slog.Logger

	mu   sync.Mutex
	last runResult // most recent Evaluate, averaged over seeds
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, frames int, seeds []int64, baseCfg *config.Config, cat *scenario.Catalogue) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		frames:     frames,
		seeds:      seeds,
		baseConfig: baseCfg,
		catalogue:  cat,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// runResult holds the settle metrics of one simulation run.
type runResult struct {
	densityError float64 // mean |density/rest - 1| over the settle window
	meanSpeed    float64 // mean particle speed over the settle window
	failed       bool
}

func (r runResult) fitness() float64 {
	if r.failed || math.IsNaN(r.densityError) || math.IsNaN(r.meanSpeed) {
		return failedFitness
	}
	return r.densityError + speedWeight*r.meanSpeed
}

// Last returns the averaged metrics of the most recent evaluation.
func (fe *FitnessEvaluator) Last() (densityError, meanSpeed float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last.densityError, fe.last.meanSpeed
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	var avg runResult
	for _, r := range results {
		total += r.fitness()
		avg.densityError += r.densityError
		avg.meanSpeed += r.meanSpeed
	}
	n := float64(len(results))
	avg.densityError /= n
	avg.meanSpeed /= n

	fe.mu.Lock()
	fe.last = avg
	fe.mu.Unlock()

	return total / n
}

// copyConfig returns a copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// runSimulation runs one scenario for fe.frames frames and measures the
// last quarter of them.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Simulation.Seed = seed
	cfg.Simulation.Demo = 0
	cfg.Derived.LogEveryFrames = 0

	g, err := game.NewGameWithOptions(game.Options{
		Config:    cfg,
		Catalogue: fe.catalogue,
		Logger:    fe.logger,
	})
	if err != nil {
		return runResult{failed: true}
	}
	defer g.Unload()

	settleFrom := fe.frames - max(fe.frames/4, 1)
	var densityErrs, speeds []float64
	var particles []sph.Particle

	for frame := 0; frame < fe.frames; frame++ {
		if err := g.Step(); err != nil {
			return runResult{failed: true}
		}
		if frame < settleFrom {
			continue
		}

		rest := g.Solver().Params().RestDensity
		particles = g.Solver().Particles(particles[:0])
		for _, p := range particles {
			densityErrs = append(densityErrs, math.Abs(p.Density/rest-1))
			speeds = append(speeds, r2.Norm(p.Velocity))
		}
	}

	if len(densityErrs) == 0 {
		return runResult{failed: true}
	}
	return runResult{
		densityError: stat.Mean(densityErrs, nil),
		meanSpeed:    stat.Mean(speeds, nil),
	}
}
