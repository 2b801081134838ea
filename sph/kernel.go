package sph

import "math"

// Kernel holds the 2D smoothing kernels for one support radius h:
// poly6 for density, the spiky gradient for pressure and the viscosity
// Laplacian. All of them vanish at and beyond h.
type Kernel struct {
	h, h2     float64
	poly6     float64 // 4 / (pi h^8)
	spiky     float64 // -30 / (pi h^5)
	viscosity float64 // 40 / (pi h^5)
}

// NewKernel precomputes the normalisation constants for support radius h.
func NewKernel(h float64) Kernel {
	h2 := h * h
	h5 := h2 * h2 * h
	return Kernel{
		h:         h,
		h2:        h2,
		poly6:     4 / (math.Pi * h2 * h2 * h2 * h2),
		spiky:     -30 / (math.Pi * h5),
		viscosity: 40 / (math.Pi * h5),
	}
}

// Radius returns the support radius.
func (k Kernel) Radius() float64 {
	return k.h
}

// W evaluates the poly6 kernel at squared distance distSq.
func (k Kernel) W(distSq float64) float64 {
	if distSq >= k.h2 {
		return 0
	}
	d := k.h2 - distSq
	return k.poly6 * d * d * d
}

// GradW returns dW/dr of the spiky kernel at distance r. The gradient with
// respect to particle i is GradW(r) times the unit vector from j to i.
func (k Kernel) GradW(r float64) float64 {
	if r >= k.h {
		return 0
	}
	d := k.h - r
	return k.spiky * d * d
}

// LaplacianW returns the Laplacian of the viscosity kernel at distance r.
func (k Kernel) LaplacianW(r float64) float64 {
	if r >= k.h {
		return 0
	}
	return k.viscosity * (k.h - r)
}
