// Package scenario holds the scenario catalogue and loads a scenario into a solver.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sphfluid/config"
	"github.com/pthm-cable/sphfluid/demo"
	"github.com/pthm-cable/sphfluid/sph"
)

//go:embed scenarios.yaml
var builtinYAML []byte

// ErrInvalid is returned for malformed scenario definitions.
var ErrInvalid = errors.New("scenario: invalid definition")

// BodyType names the shape of a scenario body.
type BodyType string

const (
	BodyPlane       BodyType = "plane"
	BodyCircle      BodyType = "circle"
	BodyLineSegment BodyType = "line_segment"
	BodyPolygon     BodyType = "polygon"
)

// Catalogue is an ordered list of scenarios.
type Catalogue struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario is a named initial setup.
type Scenario struct {
	Name     string         `yaml:"name"`
	Gravity  config.Vec2    `yaml:"gravity"`
	Params   ParamsOverride `yaml:"params"`
	Bodies   []Body         `yaml:"bodies"`
	Volumes  []Volume       `yaml:"volumes"`
	Emitters []Emitter      `yaml:"emitters"`
}

// ParamsOverride replaces individual fluid parameters. Unset fields keep the
// configured defaults.
type ParamsOverride struct {
	KernelRadius    *float64 `yaml:"kernel_radius,omitempty"`
	RestDensity     *float64 `yaml:"rest_density,omitempty"`
	Stiffness       *float64 `yaml:"stiffness,omitempty"`
	Viscosity       *float64 `yaml:"viscosity,omitempty"`
	ParticleSpacing *float64 `yaml:"particle_spacing,omitempty"`
	ParticleRadius  *float64 `yaml:"particle_radius,omitempty"`
	Restitution     *float64 `yaml:"restitution,omitempty"`
	Friction        *float64 `yaml:"friction,omitempty"`
}

// Body is a static shape placed by position and rotation. Plane normals and
// local vertices are rotated counter-clockwise by Rotation degrees; an
// unrotated plane faces up.
type Body struct {
	Type     BodyType      `yaml:"type"`
	Position config.Vec2   `yaml:"position"`
	Rotation float64       `yaml:"rotation"`
	Radius   float64       `yaml:"radius,omitempty"`
	Verts    []config.Vec2 `yaml:"verts,omitempty"`
}

// Volume is a block of fluid. The particle count per axis is the size divided
// by the particle spacing, rounded down.
type Volume struct {
	Position config.Vec2 `yaml:"position"` // centre
	Size     config.Vec2 `yaml:"size"`
	Velocity config.Vec2 `yaml:"velocity"`
}

// Emitter mirrors the solver's AddEmitter arguments.
type Emitter struct {
	Position  config.Vec2 `yaml:"position"`
	Direction config.Vec2 `yaml:"direction"`
	Radius    float64     `yaml:"radius"`
	Speed     float64     `yaml:"speed"`
	Rate      float64     `yaml:"rate"`
	Duration  float64     `yaml:"duration"`
}

// Builtin returns the embedded catalogue.
func Builtin() (*Catalogue, error) {
	c, err := Parse(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded scenarios: %w", err)
	}
	return c, nil
}

// LoadFile reads a catalogue from a YAML file.
func LoadFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalogue.
func Parse(data []byte) (*Catalogue, error) {
	c := &Catalogue{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	for i := range c.Scenarios {
		if err := c.Scenarios[i].Validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Append adds the scenarios of other after those of c.
func (c *Catalogue) Append(other *Catalogue) {
	c.Scenarios = append(c.Scenarios, other.Scenarios...)
}

// Len returns the number of scenarios.
func (c *Catalogue) Len() int {
	return len(c.Scenarios)
}

// Find returns the index of the named scenario, or -1.
func (c *Catalogue) Find(name string) int {
	for i, s := range c.Scenarios {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structure of the scenario. Value ranges are checked by
// the solver when the scenario is loaded.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("unnamed scenario: %w", ErrInvalid)
	}
	for i, b := range s.Bodies {
		switch b.Type {
		case BodyPlane, BodyCircle:
		case BodyLineSegment:
			if len(b.Verts) != 2 {
				return fmt.Errorf("%s: body %d: line segment with %d verts: %w", s.Name, i, len(b.Verts), ErrInvalid)
			}
		case BodyPolygon:
			if len(b.Verts) < 3 {
				return fmt.Errorf("%s: body %d: polygon with %d verts: %w", s.Name, i, len(b.Verts), ErrInvalid)
			}
		default:
			return fmt.Errorf("%s: body %d: unknown type %q: %w", s.Name, i, b.Type, ErrInvalid)
		}
	}
	for i, v := range s.Volumes {
		if !(v.Size[0] > 0) || !(v.Size[1] > 0) {
			return fmt.Errorf("%s: volume %d: size %v: %w", s.Name, i, v.Size, ErrInvalid)
		}
	}
	return nil
}

// Apply returns base with the overridden fields replaced.
func (o ParamsOverride) Apply(base sph.Params) sph.Params {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.KernelRadius, o.KernelRadius)
	set(&base.RestDensity, o.RestDensity)
	set(&base.Stiffness, o.Stiffness)
	set(&base.Viscosity, o.Viscosity)
	set(&base.ParticleSpacing, o.ParticleSpacing)
	set(&base.ParticleRadius, o.ParticleRadius)
	set(&base.Restitution, o.Restitution)
	set(&base.Friction, o.Friction)
	return base
}

// ParamsFrom returns the solver parameters of the scenario on top of base.
func (s *Scenario) ParamsFrom(base sph.Params) sph.Params {
	p := s.Params.Apply(base)
	p.Gravity = s.Gravity.R2()
	return p
}

// Load resets the solver and builds the scenario in it. Loading stops at the
// first element the solver rejects.
func Load(solver demo.Solver, s *Scenario, base sph.Params, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	solver.ResetStats()
	solver.ClearBodies()
	solver.ClearParticles()
	solver.ClearEmitters()
	solver.SetGravity(s.Gravity.R2())

	params := s.ParamsFrom(base)
	if err := solver.SetParams(params); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}

	for i := range s.Bodies {
		if err := addBody(solver, &s.Bodies[i]); err != nil {
			return fmt.Errorf("%s: body %d: %w", s.Name, i, err)
		}
	}

	spacing := params.ParticleSpacing
	for i, v := range s.Volumes {
		countX := int(math.Floor(v.Size[0] / spacing))
		countY := int(math.Floor(v.Size[1] / spacing))
		if err := solver.AddVolume(v.Position.R2(), v.Velocity.R2(), countX, countY, spacing); err != nil {
			return fmt.Errorf("%s: volume %d: %w", s.Name, i, err)
		}
	}

	for i, e := range s.Emitters {
		if err := solver.AddEmitter(e.Position.R2(), e.Direction.R2(), e.Radius, e.Speed, e.Rate, e.Duration); err != nil {
			return fmt.Errorf("%s: emitter %d: %w", s.Name, i, err)
		}
	}

	logger.Info("scenario loaded",
		"scenario", s.Name,
		"bodies", len(s.Bodies),
		"particles", solver.ParticleCount(),
		"emitters", len(s.Emitters),
	)
	return nil
}

func addBody(solver demo.Solver, b *Body) error {
	rot := rotation(b.Rotation)
	pos := b.Position.R2()

	switch b.Type {
	case BodyPlane:
		normal := rot(r2.Vec{Y: 1})
		return solver.AddPlane(normal, r2.Dot(normal, pos))
	case BodyCircle:
		return solver.AddCircle(pos, b.Radius)
	case BodyLineSegment:
		return solver.AddLineSegment(
			r2.Add(rot(b.Verts[0].R2()), pos),
			r2.Add(rot(b.Verts[1].R2()), pos),
		)
	case BodyPolygon:
		verts := make([]r2.Vec, len(b.Verts))
		for i, v := range b.Verts {
			verts[i] = r2.Add(rot(v.R2()), pos)
		}
		return solver.AddPolygon(verts)
	}
	return fmt.Errorf("unknown body type %q: %w", b.Type, ErrInvalid)
}

// rotation returns a counter-clockwise rotation by deg degrees.
func rotation(deg float64) func(r2.Vec) r2.Vec {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return func(v r2.Vec) r2.Vec {
		return r2.Vec{X: cos*v.X - sin*v.Y, Y: sin*v.X + cos*v.Y}
	}
}
