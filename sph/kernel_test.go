package sph

import (
	"math"
	"testing"
)

func TestKernelValues(t *testing.T) {
	k := NewKernel(2)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"W at origin", k.W(0), 4 / (math.Pi * 4)},
		{"W at support", k.W(4), 0},
		{"W beyond support", k.W(9), 0},
		{"W halfway", k.W(1), 4 / (math.Pi * 256) * 27},
		{"GradW at origin", k.GradW(0), -30 / (math.Pi * 32) * 4},
		{"GradW at support", k.GradW(2), 0},
		{"LaplacianW at origin", k.LaplacianW(0), 40 / (math.Pi * 32) * 2},
		{"LaplacianW beyond", k.LaplacianW(3), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if math.Abs(tc.got-tc.want) > 1e-12 {
				t.Errorf("got %g, want %g", tc.got, tc.want)
			}
		})
	}
}

func TestKernelNormalization(t *testing.T) {
	// The poly6 kernel integrates to one over its disk of support.
	const h = 1.5
	k := NewKernel(h)
	const steps = 2000
	dr := h / steps
	var sum float64
	for i := 0; i < steps; i++ {
		r := (float64(i) + 0.5) * dr
		sum += k.W(r*r) * 2 * math.Pi * r * dr
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("integral of W = %g, want 1", sum)
	}
}

func TestPressureClamped(t *testing.T) {
	for _, rho := range []float64{0, 0.1, 0.5, 0.999, 1, 1.5, 100} {
		if p := Pressure(rho, 1, 1000); p < 0 {
			t.Errorf("Pressure(%g) = %g, want >= 0", rho, p)
		}
	}
	if p := Pressure(1.5, 1, 1000); math.Abs(p-500) > 1e-9 {
		t.Errorf("Pressure(1.5) = %g, want 500", p)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero kernel radius", func(p *Params) { p.KernelRadius = 0 }},
		{"negative kernel radius", func(p *Params) { p.KernelRadius = -1 }},
		{"zero mass", func(p *Params) { p.ParticleMass = 0 }},
		{"zero rest density", func(p *Params) { p.RestDensity = 0 }},
		{"negative viscosity", func(p *Params) { p.Viscosity = -1 }},
		{"restitution above one", func(p *Params) { p.Restitution = 1.5 }},
		{"NaN gravity", func(p *Params) { p.Gravity.Y = math.NaN() }},
		{"no capacity", func(p *Params) { p.MaxParticles = 0 }},
		{"empty domain", func(p *Params) { p.Domain.Max = p.Domain.Min }},
		{"too many cells", func(p *Params) { p.KernelRadius = 1e-4 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
