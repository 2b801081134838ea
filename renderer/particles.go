// Package renderer draws the fluid, its bodies and emitters with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sphfluid/camera"
	"github.com/pthm-cable/sphfluid/sph"
)

// ColorMode selects what particle color encodes.
type ColorMode int

const (
	ColorSpeed ColorMode = iota
	ColorDensity
	ColorFlat
)

// speedRange is the speed, in world units per second, drawn at full brightness.
const speedRange = 20.0

// ParticleRenderer draws fluid particles as filled circles.
type ParticleRenderer struct {
	Mode ColorMode
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{}
}

// Draw renders every visible particle.
func (r *ParticleRenderer) Draw(particles []sph.Particle, cam *camera.Camera, params sph.Params) {
	radius := max(cam.WorldLength(float32(params.ParticleRadius)), 1)
	for i := range particles {
		p := &particles[i]
		x, y := float32(p.Position.X), float32(p.Position.Y)
		if !cam.IsVisible(x, y, float32(params.ParticleRadius)) {
			continue
		}

		var color rl.Color
		switch r.Mode {
		case ColorSpeed:
			color = SpeedColor(math.Hypot(p.Velocity.X, p.Velocity.Y), speedRange)
		case ColorDensity:
			color = DensityColor(p.Density, params.RestDensity)
		default:
			color = rl.Color{R: 60, G: 120, B: 230, A: 255}
		}

		sx, sy := cam.WorldToScreen(x, y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, radius, color)
	}
}

// SpeedColor blends from deep blue at rest to white at maxSpeed.
func SpeedColor(speed, maxSpeed float64) rl.Color {
	t := 0.0
	if maxSpeed > 0 {
		t = math.Min(speed/maxSpeed, 1)
	}
	return rl.Color{
		R: uint8(30 + t*225),
		G: uint8(90 + t*165),
		B: uint8(200 + t*55),
		A: 255,
	}
}

// DensityColor shifts from blue to red as density rises to twice the rest density.
func DensityColor(density, rest float64) rl.Color {
	c := 0.0
	if rest > 0 {
		c = math.Min(density/(2*rest)*255, 255)
	}
	return rl.NewColor(uint8(c), 100, uint8(255-c/2), 255)
}
