package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"
)

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	switch {
	case g.bench.active:
		if rl.IsKeyPressed(rl.KeyEscape) {
			g.StopBenchmark()
		}
		return
	case g.bench.done:
		if rl.IsKeyPressed(rl.KeyEscape) {
			g.DismissResult()
		}
		return
	}

	var err error
	switch {
	case rl.IsKeyPressed(rl.KeySpace):
		err = g.NextScenario()
	case rl.IsKeyPressed(rl.KeyP):
		g.TogglePause()
	case rl.IsKeyPressed(rl.KeyD):
		err = g.NextDemo()
	case rl.IsKeyPressed(rl.KeyR):
		err = g.Reset()
	case rl.IsKeyPressed(rl.KeyT):
		g.ToggleThreads()
	case rl.IsKeyPressed(rl.KeyB):
		err = g.StartBenchmark()
	case rl.IsKeyPressed(rl.KeyO):
		g.controls.Toggle()
	case rl.IsKeyPressed(rl.KeyEscape):
		g.inspector.Deselect()
	}
	if err != nil {
		g.logger.Error("input", "error", err)
	}

	for _, key := range g.overlays.Keys() {
		if rl.IsKeyPressed(key) {
			g.overlays.HandleKeyPress(key)
		}
	}

	g.ApplyForce(arrowDirection())
	g.handleCameraInput()
}

// arrowDirection sums the held arrow keys into a direction with unit components.
func arrowDirection() r2.Vec {
	var dir r2.Vec
	if rl.IsKeyDown(rl.KeyUp) {
		dir.Y++
	} else if rl.IsKeyDown(rl.KeyDown) {
		dir.Y--
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		dir.X--
	} else if rl.IsKeyDown(rl.KeyRight) {
		dir.X++
	}
	return dir
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.camera.Resize(w, h)
	g.controls.SetPosition(int32(w)-230, 10)
	g.inspector.SetPosition(10, int32(h)-inspectorHeight)
}

// handleCameraInput processes mouse pan/zoom controls and particle picking.
// Arrow keys push the fluid.
func (g *Game) handleCameraInput() {
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		m := rl.GetMousePosition()
		if !g.controls.Contains(m.X, m.Y) {
			wx, wy := g.camera.ScreenToWorld(m.X, m.Y)
			g.particles = g.solver.Particles(g.particles[:0])
			g.inspector.Pick(g.particles, r2.Vec{X: float64(wx), Y: float64(wy)}, g.solver.Params().KernelRadius)
		}
	}

	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		g.camera.Pan(-d.X, -d.Y)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + wheel*0.1)
	}

	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}
