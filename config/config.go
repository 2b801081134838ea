// Package config provides configuration loading for the fluid demo.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sphfluid/sph"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid value")

// Config holds all application configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	SPH        SPHConfig        `yaml:"sph"`
	Domain     DomainConfig     `yaml:"domain"`
	Workers    WorkersConfig    `yaml:"workers"`
	Input      InputConfig      `yaml:"input"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Benchmark  BenchmarkConfig  `yaml:"benchmark"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Vec2 is a 2D vector written as a two-element YAML sequence.
type Vec2 [2]float64

// R2 converts to the solver's vector type.
func (v Vec2) R2() r2.Vec {
	return r2.Vec{X: v[0], Y: v[1]}
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	TargetFPS     int     `yaml:"target_fps"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"` // 0 = fit the domain width to the screen
}

// SimulationConfig holds the substep loop settings.
type SimulationConfig struct {
	Substeps  int     `yaml:"substeps"`   // Solver updates per rendered frame
	SubstepDT float64 `yaml:"substep_dt"` // Seconds per solver update
	Seed      int64   `yaml:"seed"`
	Demo      int     `yaml:"demo"`     // Initial solver variant index
	Scenario  string  `yaml:"scenario"` // Initial scenario name, empty = first
	Scenarios string  `yaml:"scenarios"`
}

// SPHConfig holds the default fluid parameters. Scenarios may override them.
type SPHConfig struct {
	KernelRadius    float64 `yaml:"kernel_radius"`
	RestDensity     float64 `yaml:"rest_density"`
	Stiffness       float64 `yaml:"stiffness"`
	Viscosity       float64 `yaml:"viscosity"`
	ParticleSpacing float64 `yaml:"particle_spacing"`
	ParticleMass    float64 `yaml:"particle_mass"`
	ParticleRadius  float64 `yaml:"particle_radius"`
	Restitution     float64 `yaml:"restitution"`
	Friction        float64 `yaml:"friction"`
	Gravity         Vec2    `yaml:"gravity"`
	MaxParticles    int     `yaml:"max_particles"`
}

// DomainConfig is the world-space extent of the solver grid.
type DomainConfig struct {
	Min Vec2 `yaml:"min"`
	Max Vec2 `yaml:"max"`
}

// WorkersConfig holds thread pool settings.
type WorkersConfig struct {
	Count          int  `yaml:"count"` // 0 = GOMAXPROCS
	MultiThreading bool `yaml:"multithreading"`
}

// InputConfig holds interactive control settings.
type InputConfig struct {
	ExternalForce float64 `yaml:"external_force"` // Acceleration applied while an arrow key is held
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Frames in the rolling perf window
	LogInterval         float64 `yaml:"log_interval"`          // Seconds between perf log lines, 0 = off
	OutputDir           string  `yaml:"output_dir"`            // CSV output directory, empty = off
}

// BenchmarkConfig holds the benchmark run length.
type BenchmarkConfig struct {
	Iterations int `yaml:"iterations"` // Scenario reloads per demo
	Frames     int `yaml:"frames"`     // Frames per iteration
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SubstepDuration time.Duration // Simulation.SubstepDT as a duration
	FrameDT         float64       // Simulated seconds per rendered frame
	PixelsPerUnit   float32       // Effective world-to-screen scale
	ScreenW32       float32       // Screen.Width as float32
	ScreenH32       float32       // Screen.Height as float32
	LogEveryFrames  int64         // Telemetry.LogInterval in frames, 0 = off
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.SubstepDuration = time.Duration(c.Simulation.SubstepDT * float64(time.Second))
	c.Derived.FrameDT = c.Simulation.SubstepDT * float64(c.Simulation.Substeps)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.LogEveryFrames = 0
	if c.Telemetry.LogInterval > 0 {
		c.Derived.LogEveryFrames = max(int64(math.Round(c.Telemetry.LogInterval/c.Derived.FrameDT)), 1)
	}

	ppu := c.Screen.PixelsPerUnit
	if ppu == 0 {
		ppu = float64(c.Screen.Width) / (c.Domain.Max[0] - c.Domain.Min[0])
	}
	c.Derived.PixelsPerUnit = float32(ppu)
}

// SPHParams converts the fluid and domain sections to solver parameters.
func (c *Config) SPHParams() sph.Params {
	s := c.SPH
	return sph.Params{
		KernelRadius:    s.KernelRadius,
		RestDensity:     s.RestDensity,
		Stiffness:       s.Stiffness,
		Viscosity:       s.Viscosity,
		ParticleSpacing: s.ParticleSpacing,
		ParticleMass:    s.ParticleMass,
		ParticleRadius:  s.ParticleRadius,
		Restitution:     s.Restitution,
		Friction:        s.Friction,
		Gravity:         s.Gravity.R2(),
		MaxParticles:    s.MaxParticles,
		Domain:          r2.Box{Min: c.Domain.Min.R2(), Max: c.Domain.Max.R2()},
	}
}

// SPHOptions returns the solver options for the worker and seed settings.
func (c *Config) SPHOptions() sph.Options {
	return sph.Options{
		Workers:        c.Workers.Count,
		MultiThreading: c.Workers.MultiThreading,
		Seed:           c.Simulation.Seed,
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if err := c.SPHParams().Validate(); err != nil {
		return fmt.Errorf("sph section: %w", err)
	}

	switch {
	case c.Screen.Width <= 0 || c.Screen.Height <= 0:
		return fmt.Errorf("screen %dx%d: %w", c.Screen.Width, c.Screen.Height, ErrInvalid)
	case c.Screen.PixelsPerUnit < 0:
		return fmt.Errorf("pixels_per_unit %g: %w", c.Screen.PixelsPerUnit, ErrInvalid)
	case c.Simulation.Substeps < 1:
		return fmt.Errorf("substeps %d: %w", c.Simulation.Substeps, ErrInvalid)
	case !(c.Simulation.SubstepDT > 0):
		return fmt.Errorf("substep_dt %g: %w", c.Simulation.SubstepDT, ErrInvalid)
	case c.Simulation.Demo < 0:
		return fmt.Errorf("demo %d: %w", c.Simulation.Demo, ErrInvalid)
	case c.Workers.Count < 0:
		return fmt.Errorf("workers %d: %w", c.Workers.Count, ErrInvalid)
	case c.Telemetry.LogInterval < 0:
		return fmt.Errorf("log_interval %g: %w", c.Telemetry.LogInterval, ErrInvalid)
	case c.Telemetry.PerfCollectorWindow < 1:
		return fmt.Errorf("perf_collector_window %d: %w", c.Telemetry.PerfCollectorWindow, ErrInvalid)
	case c.Benchmark.Iterations < 1 || c.Benchmark.Frames < 1:
		return fmt.Errorf("benchmark %d iterations x %d frames: %w",
			c.Benchmark.Iterations, c.Benchmark.Frames, ErrInvalid)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
