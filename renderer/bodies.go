package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sphfluid/camera"
	"github.com/pthm-cable/sphfluid/components"
	"github.com/pthm-cable/sphfluid/geometry"
)

var (
	bodyColor    = rl.Color{R: 150, G: 110, B: 70, A: 255}
	emitterColor = rl.Color{R: 90, G: 220, B: 120, A: 255}
	gridColor    = rl.Color{R: 255, G: 255, B: 255, A: 24}
	domainColor  = rl.Color{R: 230, G: 200, B: 60, A: 160}
)

// planeExtent is the half-length, in world units, of the line drawn for a plane.
const planeExtent = 1000.0

// BodyRenderer draws static collision bodies.
type BodyRenderer struct {
	points []rl.Vector2
}

// NewBodyRenderer creates a new body renderer.
func NewBodyRenderer() *BodyRenderer {
	return &BodyRenderer{}
}

func screen(cam *camera.Camera, p r2.Vec) rl.Vector2 {
	x, y := cam.WorldToScreen(float32(p.X), float32(p.Y))
	return rl.Vector2{X: x, Y: y}
}

// Draw renders every body.
func (r *BodyRenderer) Draw(bodies []geometry.Body, cam *camera.Camera) {
	for i := range bodies {
		b := &bodies[i]
		switch b.Kind {
		case geometry.KindPlane:
			a, c := PlaneSegment(b.Normal, b.Distance, planeExtent)
			rl.DrawLineEx(screen(cam, a), screen(cam, c), 3, bodyColor)
		case geometry.KindCircle:
			rl.DrawCircleV(screen(cam, b.Center), cam.WorldLength(float32(b.Radius)), bodyColor)
		case geometry.KindLineSegment:
			rl.DrawLineEx(screen(cam, b.A), screen(cam, b.B), 2, bodyColor)
		case geometry.KindPolygon:
			r.drawPolygon(b.Vertices, cam)
		}
	}
}

// drawPolygon fills a convex polygon as a triangle fan. Screen space flips y,
// so counter-clockwise world vertices are emitted in reverse to keep raylib's
// counter-clockwise winding on screen.
func (r *BodyRenderer) drawPolygon(verts []r2.Vec, cam *camera.Camera) {
	r.points = r.points[:0]
	r.points = append(r.points, screen(cam, verts[0]))
	for i := len(verts) - 1; i >= 1; i-- {
		r.points = append(r.points, screen(cam, verts[i]))
	}
	rl.DrawTriangleFan(r.points, bodyColor)
}

// PlaneSegment returns two points on the plane dot(n, x) = d, extent units
// either side of the point closest to the origin.
func PlaneSegment(n r2.Vec, d, extent float64) (r2.Vec, r2.Vec) {
	origin := r2.Scale(d, n)
	tangent := r2.Vec{X: -n.Y, Y: n.X}
	return r2.Sub(origin, r2.Scale(extent, tangent)), r2.Add(origin, r2.Scale(extent, tangent))
}

// DrawEmitters marks active emitters with their spawn line and direction.
func DrawEmitters(emitters []components.Emitter, cam *camera.Camera) {
	for i := range emitters {
		e := &emitters[i]
		if !e.Active {
			continue
		}
		side := r2.Scale(e.Radius, r2.Vec{X: -e.Direction.Y, Y: e.Direction.X})
		rl.DrawLineEx(screen(cam, r2.Sub(e.Position, side)), screen(cam, r2.Add(e.Position, side)), 2, emitterColor)
		tip := r2.Add(e.Position, r2.Scale(math.Max(e.Radius, 1)*1.5, e.Direction))
		rl.DrawLineEx(screen(cam, e.Position), screen(cam, tip), 2, emitterColor)
	}
}

// DrawGrid draws cell lines of size cell over box.
func DrawGrid(box r2.Box, cell float64, cam *camera.Camera) {
	if cell <= 0 {
		return
	}
	for x := box.Min.X; x <= box.Max.X; x += cell {
		rl.DrawLineV(screen(cam, r2.Vec{X: x, Y: box.Min.Y}), screen(cam, r2.Vec{X: x, Y: box.Max.Y}), gridColor)
	}
	for y := box.Min.Y; y <= box.Max.Y; y += cell {
		rl.DrawLineV(screen(cam, r2.Vec{X: box.Min.X, Y: y}), screen(cam, r2.Vec{X: box.Max.X, Y: y}), gridColor)
	}
}

// DrawDomain outlines the solver domain.
func DrawDomain(box r2.Box, cam *camera.Camera) {
	tl := screen(cam, r2.Vec{X: box.Min.X, Y: box.Max.Y})
	br := screen(cam, r2.Vec{X: box.Max.X, Y: box.Min.Y})
	rl.DrawRectangleLinesEx(rl.Rectangle{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}, 1, domainColor)
}
