package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Chart margins in pixels.
const (
	chartAxisWidth   = 80
	chartLabelHeight = 24
	chartLegendRow   = 20
	chartTicks       = 5
)

// Series is one bar per chart label, all in the same color.
type Series struct {
	Title  string
	Color  rl.Color
	Values []float64
}

// Chart is a grouped bar chart: one group per label, one bar per series.
type Chart struct {
	Labels     []string
	Series     []Series
	AxisFormat string // printf format for axis ticks, e.g. "%.2f ms"
}

// Bar is one laid-out bar.
type Bar struct {
	Rect   rl.Rectangle
	Series int
	Label  int
	Value  float64
}

var seriesPalette = []rl.Color{
	{R: 66, G: 135, B: 245, A: 255},
	{R: 245, G: 164, B: 66, A: 255},
	{R: 92, G: 199, B: 108, A: 255},
	{R: 219, G: 80, B: 80, A: 255},
	{R: 170, G: 110, B: 220, A: 255},
}

// SeriesColor returns a stable color for the i-th series.
func SeriesColor(i int) rl.Color {
	return seriesPalette[i%len(seriesPalette)]
}

// Max returns the largest value in any series.
func (c *Chart) Max() float64 {
	var m float64
	for _, s := range c.Series {
		for _, v := range s.Values {
			m = max(m, v)
		}
	}
	return m
}

// plotArea returns the region bars are drawn in, leaving room for the axis,
// labels and legend.
func (c *Chart) plotArea(area rl.Rectangle) rl.Rectangle {
	legend := float32(chartLegendRow * len(c.Series))
	return rl.Rectangle{
		X:      area.X + chartAxisWidth,
		Y:      area.Y + legend,
		Width:  max(area.Width-chartAxisWidth-10, 0),
		Height: max(area.Height-legend-chartLabelHeight, 0),
	}
}

// Layout places every bar inside area. Bars in a group sit side by side and
// share 80% of the group width; heights are scaled to the largest value.
func (c *Chart) Layout(area rl.Rectangle) []Bar {
	if len(c.Labels) == 0 || len(c.Series) == 0 {
		return nil
	}
	plot := c.plotArea(area)
	top := c.Max()

	groupW := plot.Width / float32(len(c.Labels))
	barW := groupW * 0.8 / float32(len(c.Series))
	bottom := plot.Y + plot.Height

	bars := make([]Bar, 0, len(c.Labels)*len(c.Series))
	for li := range c.Labels {
		x := plot.X + float32(li)*groupW + groupW*0.1
		for si, s := range c.Series {
			var v float64
			if li < len(s.Values) {
				v = s.Values[li]
			}
			var h float32
			if top > 0 {
				h = float32(v/top) * plot.Height
			}
			bars = append(bars, Bar{
				Rect:   rl.Rectangle{X: x + float32(si)*barW, Y: bottom - h, Width: barW, Height: h},
				Series: si,
				Label:  li,
				Value:  v,
			})
		}
	}
	return bars
}

// Draw renders the legend, axis, bars and group labels inside area.
func (c *Chart) Draw(r *Renderer, area rl.Rectangle) {
	plot := c.plotArea(area)
	font := r.Theme.FontSize

	for i, s := range c.Series {
		y := int32(area.Y) + int32(i*chartLegendRow)
		rl.DrawRectangle(int32(plot.X), y+2, 12, 12, s.Color)
		rl.DrawText(s.Title, int32(plot.X)+18, y, font, r.Theme.TextColor)
	}

	format := c.AxisFormat
	if format == "" {
		format = "%.2f"
	}
	top := c.Max()
	for i := 0; i <= chartTicks; i++ {
		f := float32(i) / chartTicks
		y := plot.Y + plot.Height*(1-f)
		rl.DrawLineV(rl.Vector2{X: plot.X, Y: y}, rl.Vector2{X: plot.X + plot.Width, Y: y}, rl.Fade(r.Theme.AxisColor, 0.25))
		label := fmt.Sprintf(format, top*float64(f))
		rl.DrawText(label, int32(area.X)+4, int32(y)-font/2, font, r.Theme.AxisColor)
	}
	rl.DrawLineV(rl.Vector2{X: plot.X, Y: plot.Y}, rl.Vector2{X: plot.X, Y: plot.Y + plot.Height}, r.Theme.AxisColor)

	for _, b := range c.Layout(area) {
		rl.DrawRectangleRec(b.Rect, c.Series[b.Series].Color)
	}

	groupW := plot.Width / float32(max(len(c.Labels), 1))
	for i, label := range c.Labels {
		cx := int32(plot.X + groupW*(float32(i)+0.5))
		r.DrawCenteredText(label, cx, int32(plot.Y+plot.Height)+6, font, r.Theme.LabelColor)
	}
}
