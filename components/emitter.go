// Package components defines ECS components for the simulation.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Emitter spawns fluid particles at a fixed rate until its duration elapses.
type Emitter struct {
	Position  r2.Vec
	Direction r2.Vec  // unit length
	Radius    float64 // half-width of the spawn line, perpendicular to Direction
	Speed     float64
	Rate      float64 // particles per second
	Duration  float64 // seconds

	Elapsed float64
	Pending float64 // time accumulated towards the next spawn
	Active  bool
}

// Interval returns the time between two spawns.
func (e *Emitter) Interval() float64 {
	return 1 / e.Rate
}
