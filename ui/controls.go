package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Action is a request made through the controls panel.
type Action int

const (
	ActionNone Action = iota
	ActionNextScenario
	ActionNextDemo
	ActionTogglePause
	ActionReset
	ActionToggleThreads
	ActionBenchmark
)

// ControlsState is what the panel displays.
type ControlsState struct {
	Running        bool
	ThreadsSupport bool
	MultiThreading bool
	Viscosity      float64
	Stiffness      float64
}

// ControlsResult holds the panel's output for one frame.
type ControlsResult struct {
	Action    Action
	Viscosity float64
	Stiffness float64
}

// Changed reports whether a slider moved.
func (r ControlsResult) Changed(s ControlsState) bool {
	return r.Viscosity != s.Viscosity || r.Stiffness != s.Stiffness
}

// Slider ranges.
const (
	maxViscosity = 50
	minStiffness = 100
	maxStiffness = 4000
)

// ControlsPanel renders the right-side button and slider panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32 // from the last Draw
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point is over the visible panel.
func (c *ControlsPanel) Contains(px, py float32) bool {
	if !c.visible {
		return false
	}
	return px >= float32(c.x) && px < float32(c.x+c.width) &&
		py >= float32(c.y) && py < float32(c.y+c.height)
}

// Draw renders the panel and returns the requested action and slider values.
func (c *ControlsPanel) Draw(s ControlsState, overlays *OverlayRegistry) ControlsResult {
	res := ControlsResult{Viscosity: s.Viscosity, Stiffness: s.Stiffness}
	if !c.visible {
		return res
	}

	r := c.renderer
	pad := float32(r.Theme.Padding)
	x := float32(c.x) + pad
	w := float32(c.width) - 2*pad
	const rowH = 26

	rows := 6 + 4 // buttons + slider label/slider pairs
	height := int32(rows*(rowH+4)) + r.Theme.Padding*3 + r.Theme.LineHeight
	height += int32(len(overlays.All())+len(overlays.Categories())) * r.Theme.LineHeight
	c.height = height
	r.DrawPanel(c.x, c.y, c.width, height)

	y := float32(c.y) + pad
	button := func(label string, a Action) {
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: rowH}, label) {
			res.Action = a
		}
		y += rowH + 4
	}

	button("Next scenario", ActionNextScenario)
	button("Next demo", ActionNextDemo)
	button(toggleText(s.Running, "Pause", "Resume"), ActionTogglePause)
	button("Reset", ActionReset)
	if s.ThreadsSupport {
		button(toggleText(s.MultiThreading, "Single-threaded", "Multi-threaded"), ActionToggleThreads)
	} else {
		rl.DrawText("Threads: not supported", int32(x), int32(y)+6, r.Theme.FontSize, r.Theme.LabelColor)
		y += rowH + 4
	}
	button("Benchmark", ActionBenchmark)

	rl.DrawText(fmt.Sprintf("Viscosity %.1f", s.Viscosity), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += float32(r.Theme.LineHeight)
	res.Viscosity = float64(gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 18}, "", "",
		float32(s.Viscosity), 0, maxViscosity))
	y += rowH

	rl.DrawText(fmt.Sprintf("Stiffness %.0f", s.Stiffness), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += float32(r.Theme.LineHeight)
	res.Stiffness = float64(gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 18}, "", "",
		float32(s.Stiffness), minStiffness, maxStiffness))
	y += rowH + pad

	c.drawOverlays(int32(x), int32(y), int32(w), overlays)
	return res
}

// drawOverlays lists overlay toggles by category with their key bindings.
func (c *ControlsPanel) drawOverlays(x, y, width int32, overlays *OverlayRegistry) {
	r := c.renderer
	for _, cat := range overlays.Categories() {
		y = r.DrawSectionHeader(x, y, categoryLabel(cat))
		for _, desc := range overlays.ByCategory(cat) {
			enabled := overlays.IsEnabled(desc.ID)
			statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
			nameColor := r.Theme.LabelColor
			if enabled {
				statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
				nameColor = rl.White
			}
			rl.DrawRectangle(x, y+2, 8, 8, statusColor)
			rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)
			if desc.KeyLabel != "" {
				keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
				keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
				rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
			}
			y += r.Theme.LineHeight
		}
	}
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "particles":
		return "Particles"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}
