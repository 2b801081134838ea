// Package inspector shows the state of one selected particle.
package inspector

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/sph"
)

// Panel dimensions
const (
	PanelWidth   = 300
	PanelPadding = 10
	HeaderHeight = 30
)

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorHighlight   = rl.Color{R: 255, G: 220, B: 80, A: 255}
)

// ParticleView is the inspected form of a particle.
type ParticleView struct {
	X        float64 `inspect:"label,fmt:%.2f"`
	Y        float64 `inspect:"label,fmt:%.2f"`
	Speed    float64 `inspect:"bar,max:20"`
	Heading  float64 `inspect:"angle"`
	Density  float64 `inspect:"bar,max:2,name:Density/rest"`
	Pressure float64 `inspect:"label,fmt:%.1f"`
	Force    float64 `inspect:"label,fmt:%.1f"`
	ID       int     `inspect:"skip"`
}

// NewParticleView derives the displayed values. Density is relative to
// restDensity.
func NewParticleView(p sph.Particle, restDensity float64) ParticleView {
	v := ParticleView{
		X:        p.Position.X,
		Y:        p.Position.Y,
		Speed:    r2.Norm(p.Velocity),
		Pressure: p.Pressure,
		Force:    r2.Norm(p.Force),
		ID:       p.ID,
	}
	if v.Speed > 0 {
		v.Heading = math.Atan2(p.Velocity.Y, p.Velocity.X)
	}
	if restDensity > 0 {
		v.Density = p.Density / restDensity
	}
	return v
}

// Inspector tracks the selected particle by ID.
type Inspector struct {
	selected    int
	hasSelected bool
	panelX      int32
	panelY      int32
}

// NewInspector creates an inspector with its panel at the given corner.
func NewInspector(panelX, panelY int32) *Inspector {
	return &Inspector{panelX: panelX, panelY: panelY}
}

// SetPosition moves the panel.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.panelX = x
	ins.panelY = y
}

// Pick selects the particle nearest to world within radius. A miss clears the
// selection. It reports whether a particle was selected.
func (ins *Inspector) Pick(particles []sph.Particle, world r2.Vec, radius float64) bool {
	best := -1
	bestDist := radius * radius
	for i := range particles {
		d := r2.Norm2(r2.Sub(particles[i].Position, world))
		if d <= bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		ins.Deselect()
		return false
	}
	ins.selected = particles[best].ID
	ins.hasSelected = true
	return true
}

// Deselect clears the selection.
func (ins *Inspector) Deselect() {
	ins.hasSelected = false
}

// Selected returns the selected particle ID.
func (ins *Inspector) Selected() (id int, ok bool) {
	return ins.selected, ins.hasSelected
}

// Find returns the selected particle from a snapshot. A selection that no
// longer exists is cleared.
func (ins *Inspector) Find(particles []sph.Particle) (sph.Particle, bool) {
	if !ins.hasSelected {
		return sph.Particle{}, false
	}
	// IDs are creation order, so the particle is usually at its own index.
	if id := ins.selected; id >= 0 && id < len(particles) && particles[id].ID == id {
		return particles[id], true
	}
	for _, p := range particles {
		if p.ID == ins.selected {
			return p, true
		}
	}
	ins.Deselect()
	return sph.Particle{}, false
}

// Draw renders the panel for the selected particle, if any.
func (ins *Inspector) Draw(particles []sph.Particle, restDensity float64) {
	p, ok := ins.Find(particles)
	if !ok {
		return
	}
	fields := ExtractFields(NewParticleView(p, restDensity))

	height := int32(HeaderHeight + PanelPadding*2)
	for _, f := range fields {
		height += fieldHeight(f)
	}

	x, y := ins.panelX, ins.panelY
	rl.DrawRectangle(x, y, PanelWidth, height, ColorPanelBg)
	rl.DrawRectangleLines(x, y, PanelWidth, height, ColorPanelBorder)
	rl.DrawRectangle(x, y, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawText(fmt.Sprintf("Particle #%d", p.ID), x+PanelPadding, y+7, 16, ColorHeaderText)

	fy := y + HeaderHeight + PanelPadding
	for _, f := range fields {
		fy += DrawField(x+PanelPadding, fy, f)
	}
}

// fieldHeight matches the heights returned by the widget draw functions.
func fieldHeight(f Field) int32 {
	switch f.Widget {
	case WidgetBar:
		return 18
	case WidgetAngle:
		return 44
	default:
		return 20
	}
}
