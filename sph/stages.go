package sph

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/geometry"
	"github.com/pthm-cable/sphfluid/parallel"
)

// Per-particle stages. Each one writes only to the slots of its own range and
// reads shared state written by earlier stages, so any partition of the
// particles gives the same result.

func (s *Simulation) densityStage(r parallel.Range, _ int) {
	m := s.params.ParticleMass
	self := m * s.kernel.W(0)
	for i := r.Start; i < r.End; i++ {
		rho := self
		for _, nb := range s.neighbors.Of(i) {
			rho += m * s.kernel.W(nb.DistSq)
		}
		s.density[i] = rho
		s.pressure[i] = Pressure(rho, s.params.RestDensity, s.params.Stiffness)
	}
}

// Pressure evaluates the clamped equation of state k(rho - rho0).
// Under-dense particles have zero pressure rather than pulling neighbours in.
func Pressure(density, restDensity, stiffness float64) float64 {
	return math.Max(0, stiffness*(density-restDensity))
}

func (s *Simulation) forceStage(r parallel.Range, _ int) {
	m := s.params.ParticleMass
	mu := s.params.Viscosity
	body := r2.Scale(m, r2.Add(s.params.Gravity, s.external))

	for i := r.Start; i < r.End; i++ {
		xi, vi, pi := s.pos[i], s.vel[i], s.pressure[i]
		var f r2.Vec
		for _, nb := range s.neighbors.Of(i) {
			if nb.Dist == 0 {
				continue
			}
			j := nb.Index
			rhoj := s.density[j]
			dir := r2.Scale(1/nb.Dist, r2.Sub(xi, s.pos[j]))

			press := -m * (pi + s.pressure[j]) / (2 * rhoj) * s.kernel.GradW(nb.Dist)
			visc := mu * m / rhoj * s.kernel.LaplacianW(nb.Dist)
			f = r2.Add(f, r2.Add(
				r2.Scale(press, dir),
				r2.Scale(visc, r2.Sub(s.vel[j], vi)),
			))
		}
		s.force[i] = r2.Add(r2.Scale(m/s.density[i], f), body)
	}
}

func (s *Simulation) predictStage(r parallel.Range, _ int) {
	scale := s.dt / s.params.ParticleMass
	for i := r.Start; i < r.End; i++ {
		s.vel[i] = r2.Add(s.vel[i], r2.Scale(scale, s.force[i]))
	}
}

func (s *Simulation) integrateStage(r parallel.Range, _ int) {
	for i := r.Start; i < r.End; i++ {
		s.next[i] = r2.Add(s.pos[i], r2.Scale(s.dt, s.vel[i]))
	}
}

func (s *Simulation) collisionStage(r parallel.Range, _ int) {
	for i := r.Start; i < r.End; i++ {
		s.next[i], s.vel[i] = ResolveCollisions(s.next[i], s.vel[i], s.bodies, &s.params)
	}
}

// ResolveCollisions pushes a particle out of every body it overlaps and
// removes the velocity component pointing into the surface, scaled by
// restitution. Tangential velocity is reduced by friction on contact.
func ResolveCollisions(p, v r2.Vec, bodies []geometry.Body, params *Params) (r2.Vec, r2.Vec) {
	for k := range bodies {
		p, v = resolveContact(p, v, &bodies[k], params.ParticleRadius, params.Restitution, params.Friction)
	}
	return p, v
}

func resolveContact(p, v r2.Vec, b *geometry.Body, radius, restitution, friction float64) (r2.Vec, r2.Vec) {
	d, n := b.SignedDistance(p)
	if d >= radius {
		return p, v
	}
	p = r2.Add(p, r2.Scale(radius-d, n))

	vn := r2.Dot(v, n)
	if vn >= 0 {
		return p, v
	}
	tangent := r2.Sub(v, r2.Scale(vn, n))
	v = r2.Add(
		r2.Scale(1-friction, tangent),
		r2.Scale(-restitution*vn, n),
	)
	return p, v
}

// finalize publishes the integrated positions.
func (s *Simulation) finalize() {
	s.pos, s.next = s.next, s.pos
}
