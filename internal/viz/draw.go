package viz

import (
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/models"
)

// Scales fit the attractors into the camera's unit cube.
const (
	lorenzScale  = 0.04
	rosslerScale = 0.07
)

// trace returns the points of y that leave a trail, in model coordinates.
func (m *Model) trace(t float64, y dynamo.State) []Vec3 {
	switch m.name {
	case "pendulum":
		return []Vec3{{X: math.Sin(y[0]), Y: -math.Cos(y[0])}}
	case "double_pendulum":
		x1, y1 := math.Sin(y[0]), -math.Cos(y[0])
		return []Vec3{{X: x1 + math.Sin(y[1]), Y: y1 - math.Cos(y[1])}}
	case "oscillator":
		return []Vec3{{X: y[0], Y: y[1]}}
	case "two_body":
		return []Vec3{{X: y[0], Y: y[1]}}
	case "nbody":
		pts := make([]Vec3, 0, len(y)/4)
		for i := 0; i+1 < len(y); i += 4 {
			pts = append(pts, Vec3{X: y[i], Y: y[i+1]})
		}
		return pts
	case "lorenz":
		return []Vec3{{X: y[0] * lorenzScale, Y: (y[2] - 25) * lorenzScale, Z: y[1] * lorenzScale}}
	case "rossler":
		return []Vec3{{X: y[0] * rosslerScale, Y: (y[2] - 8) * rosslerScale, Z: y[1] * rosslerScale}}
	}
	if len(y) >= 2 {
		return []Vec3{{X: y[0], Y: y[1]}}
	}
	return []Vec3{{X: t, Y: y[0]}}
}

// initialView is the viewport before any trail has been recorded. Models
// whose extent is not known in advance grow it from there.
func (m *Model) initialView() Viewport {
	switch m.name {
	case "pendulum":
		return Viewport{MinX: -1.2, MaxX: 1.2, MinY: -1.2, MaxY: 0.4}
	case "double_pendulum":
		return Square(2.2)
	case "two_body":
		r := models.Radius(m.t, m.state)
		return Square(1.2 * r)
	case "nbody":
		return Square(1.5)
	}
	v := Viewport{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for _, p := range m.trace(m.t, m.state) {
		v.Include(p.X, p.Y)
		v.Include(-p.X, -p.Y)
	}
	if len(m.state) == 1 {
		v.Include(m.t, 0)
	}
	return v
}

// draw renders the point (t, y) and the trail.
func (m *Model) draw(t float64, y dynamo.State) {
	m.canvas.Clear()
	switch m.name {
	case "lorenz", "rossler":
		m.camera.Polyline(m.canvas, m.trail)
		if p := m.trace(t, y); len(p) > 0 {
			w, h := m.canvas.Dots()
			if px, py, ok := m.camera.Project(p[0], w, h); ok {
				m.canvas.Blob(px, py, 1)
			}
		}
		return
	}

	for _, p := range m.trail {
		m.canvas.Set(m.view.Point(m.canvas, p.X, p.Y))
	}

	switch m.name {
	case "pendulum":
		m.drawPendulum(y)
	case "double_pendulum":
		m.drawDoublePendulum(y)
	case "two_body":
		cx, cy := m.view.Point(m.canvas, 0, 0)
		m.canvas.Blob(cx, cy, 2)
		m.marker(y[0], y[1])
	case "nbody":
		for i := 0; i+1 < len(y); i += 4 {
			m.marker(y[i], y[i+1])
		}
	default:
		for _, p := range m.trace(t, y) {
			m.marker(p.X, p.Y)
		}
	}
}

func (m *Model) marker(x, y float64) {
	px, py := m.view.Point(m.canvas, x, y)
	m.canvas.Blob(px, py, 1)
}

func (m *Model) drawPendulum(y dynamo.State) {
	px, py := m.view.Point(m.canvas, 0, 0)
	bx, by := m.view.Point(m.canvas, math.Sin(y[0]), -math.Cos(y[0]))
	m.canvas.DrawLine(px, py, bx, by)
	m.canvas.Blob(bx, by, 1)
}

func (m *Model) drawDoublePendulum(y dynamo.State) {
	x1, y1 := math.Sin(y[0]), -math.Cos(y[0])
	x2, y2 := x1+math.Sin(y[1]), y1-math.Cos(y[1])
	px, py := m.view.Point(m.canvas, 0, 0)
	ax, ay := m.view.Point(m.canvas, x1, y1)
	bx, by := m.view.Point(m.canvas, x2, y2)
	m.canvas.DrawLine(px, py, ax, ay)
	m.canvas.DrawLine(ax, ay, bx, by)
	m.canvas.Blob(ax, ay, 1)
	m.canvas.Blob(bx, by, 1)
}
