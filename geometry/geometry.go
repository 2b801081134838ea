// Package geometry provides the static collision bodies a fluid interacts with.
//
// Bodies are a tagged variant rather than an interface: the collision stage
// calls SignedDistance for every particle against every body, and a switch on
// Kind keeps that loop free of dynamic dispatch.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// epsilon is the length below which vectors are treated as zero.
const epsilon = 1e-9

var (
	// ErrDegenerate is returned for bodies with no usable extent or direction.
	ErrDegenerate = errors.New("geometry: degenerate body")
	// ErrNotConvex is returned by NewPolygon for concave or self-intersecting outlines.
	ErrNotConvex = errors.New("geometry: polygon is not convex")
)

// Kind identifies the shape stored in a Body.
type Kind uint8

const (
	KindPlane Kind = iota
	KindCircle
	KindLineSegment
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPlane:
		return "plane"
	case KindCircle:
		return "circle"
	case KindLineSegment:
		return "line_segment"
	case KindPolygon:
		return "polygon"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Body is an immovable collision shape. Only the fields relevant to Kind are set.
type Body struct {
	Kind Kind

	// Plane: points x with Dot(Normal, x) == Distance. Solid behind the normal.
	Normal   r2.Vec
	Distance float64

	// Circle: solid disk.
	Center r2.Vec
	Radius float64

	// LineSegment: infinitely thin, collides from both sides.
	A, B r2.Vec

	// Polygon: convex, counter-clockwise.
	Vertices []r2.Vec
	normals  []r2.Vec // outward normal of edge i -> i+1
}

// NewPlane creates a half-space boundary. A non-unit normal is normalized and
// distance rescaled so the described plane is unchanged.
func NewPlane(normal r2.Vec, distance float64) (Body, error) {
	l := r2.Norm(normal)
	if l < epsilon || !finite(distance) || !finiteVec(normal) {
		return Body{}, fmt.Errorf("plane normal %v: %w", normal, ErrDegenerate)
	}
	return Body{
		Kind:     KindPlane,
		Normal:   r2.Scale(1/l, normal),
		Distance: distance / l,
	}, nil
}

// NewCircle creates a solid disk.
func NewCircle(center r2.Vec, radius float64) (Body, error) {
	if !(radius > 0) || !finite(radius) || !finiteVec(center) {
		return Body{}, fmt.Errorf("circle radius %g: %w", radius, ErrDegenerate)
	}
	return Body{Kind: KindCircle, Center: center, Radius: radius}, nil
}

// NewLineSegment creates a two-sided segment from a to b.
func NewLineSegment(a, b r2.Vec) (Body, error) {
	if !finiteVec(a) || !finiteVec(b) || r2.Norm(r2.Sub(b, a)) < epsilon {
		return Body{}, fmt.Errorf("segment %v-%v: %w", a, b, ErrDegenerate)
	}
	return Body{Kind: KindLineSegment, A: a, B: b}, nil
}

// NewPolygon creates a convex polygon. Vertices may be given in either winding
// order; they are stored counter-clockwise. The input slice is not retained.
func NewPolygon(vertices []r2.Vec) (Body, error) {
	n := len(vertices)
	if n < 3 {
		return Body{}, fmt.Errorf("polygon with %d vertices: %w", n, ErrDegenerate)
	}

	verts := make([]r2.Vec, n)
	copy(verts, vertices)
	for _, v := range verts {
		if !finiteVec(v) {
			return Body{}, fmt.Errorf("polygon vertex %v: %w", v, ErrDegenerate)
		}
	}

	area := signedArea(verts)
	if math.Abs(area) < epsilon {
		return Body{}, fmt.Errorf("polygon with zero area: %w", ErrDegenerate)
	}
	if area < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			verts[i], verts[j] = verts[j], verts[i]
		}
	}

	normals := make([]r2.Vec, n)
	turning := 0.0
	for i := range verts {
		edge := r2.Sub(verts[(i+1)%n], verts[i])
		l := r2.Norm(edge)
		if l < epsilon {
			return Body{}, fmt.Errorf("polygon edge %d has zero length: %w", i, ErrDegenerate)
		}
		normals[i] = r2.Vec{X: edge.Y / l, Y: -edge.X / l}

		next := r2.Sub(verts[(i+2)%n], verts[(i+1)%n])
		if r2.Cross(edge, next) < -epsilon {
			return Body{}, fmt.Errorf("polygon turns clockwise at vertex %d: %w", (i+1)%n, ErrNotConvex)
		}
		turning += math.Atan2(r2.Cross(edge, next), r2.Dot(edge, next))
	}
	// A simple convex outline turns once; a star turns left everywhere but
	// winds around more than once.
	if turning > 3*math.Pi {
		return Body{}, fmt.Errorf("polygon winds %.0f times: %w", turning/(2*math.Pi), ErrNotConvex)
	}

	return Body{Kind: KindPolygon, Vertices: verts, normals: normals}, nil
}

// SignedDistance returns the distance from p to the body's surface, negative
// inside solid bodies, and the unit normal pointing from the surface towards p.
// Line segments have no inside, so their distance is never negative.
func (b *Body) SignedDistance(p r2.Vec) (float64, r2.Vec) {
	switch b.Kind {
	case KindPlane:
		return r2.Dot(b.Normal, p) - b.Distance, b.Normal

	case KindCircle:
		delta := r2.Sub(p, b.Center)
		l := r2.Norm(delta)
		if l < epsilon {
			return -b.Radius, r2.Vec{Y: 1}
		}
		return l - b.Radius, r2.Scale(1/l, delta)

	case KindLineSegment:
		delta := r2.Sub(p, closestOnSegment(p, b.A, b.B))
		l := r2.Norm(delta)
		if l < epsilon {
			// On the segment itself; pick its left-hand side.
			edge := r2.Unit(r2.Sub(b.B, b.A))
			return 0, r2.Vec{X: -edge.Y, Y: edge.X}
		}
		return l, r2.Scale(1/l, delta)

	case KindPolygon:
		return b.polygonDistance(p)
	}
	return math.Inf(1), r2.Vec{}
}

func (b *Body) polygonDistance(p r2.Vec) (float64, r2.Vec) {
	n := len(b.Vertices)
	maxSep := math.Inf(-1)
	maxEdge := 0
	for i := 0; i < n; i++ {
		s := r2.Dot(b.normals[i], r2.Sub(p, b.Vertices[i]))
		if s > maxSep {
			maxSep = s
			maxEdge = i
		}
	}

	// Inside: the least-penetrated edge is the exit.
	if maxSep <= 0 {
		return maxSep, b.normals[maxEdge]
	}

	best := math.Inf(1)
	var bestDelta r2.Vec
	for i := 0; i < n; i++ {
		delta := r2.Sub(p, closestOnSegment(p, b.Vertices[i], b.Vertices[(i+1)%n]))
		if d := r2.Norm2(delta); d < best {
			best = d
			bestDelta = delta
		}
	}
	dist := math.Sqrt(best)
	if dist < epsilon {
		return 0, b.normals[maxEdge]
	}
	return dist, r2.Scale(1/dist, bestDelta)
}

// closestOnSegment returns the point of segment a-b nearest to p.
func closestOnSegment(p, a, b r2.Vec) r2.Vec {
	ab := r2.Sub(b, a)
	t := r2.Dot(r2.Sub(p, a), ab) / r2.Norm2(ab)
	t = math.Max(0, math.Min(1, t))
	return r2.Add(a, r2.Scale(t, ab))
}

func signedArea(verts []r2.Vec) float64 {
	var sum float64
	for i := range verts {
		sum += r2.Cross(verts[i], verts[(i+1)%len(verts)])
	}
	return sum / 2
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v r2.Vec) bool {
	return finite(v.X) && finite(v.Y)
}
