package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawLines draws one text line per entry and returns the new Y position.
// A leading tab indents the line.
func (r *Renderer) DrawLines(x, y int32, lines []string) int32 {
	for _, line := range lines {
		lx := x
		if len(line) > 0 && line[0] == '\t' {
			lx += 2 * r.Theme.Padding
			line = line[1:]
		}
		rl.DrawText(line, lx, y, r.Theme.FontSize, r.Theme.TextColor)
		y += r.Theme.LineHeight
	}
	return y
}

// DrawProgress draws an outlined bar filled to value in [0, 1].
func (r *Renderer) DrawProgress(x, y, width, height int32, value float32) {
	value = clamp01(value)
	rl.DrawRectangle(x, y, int32(float32(width)*value), height, r.Theme.BarFill)
	rl.DrawRectangleLinesEx(rl.Rectangle{
		X: float32(x), Y: float32(y), Width: float32(width), Height: float32(height),
	}, 2, r.Theme.TextColor)
}

// DrawCenteredText draws text horizontally centered on cx.
func (r *Renderer) DrawCenteredText(text string, cx, y, size int32, color rl.Color) {
	w := rl.MeasureText(text, size)
	rl.DrawText(text, cx-w/2, y, size, color)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
