package viz

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Camera looks at the origin from Distance along +z after rotating the
// scene about the x and y axes.
type Camera struct {
	RotX, RotY float64
	Distance   float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 5, Zoom: 1}
}

func (c *Camera) Rotate(dx, dy float64) {
	c.RotX += dx
	c.RotY += dy
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(p Vec3) Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	return p
}

// Project returns the dot coordinates of p on a w by h canvas. ok is false
// for points behind the camera.
func (c *Camera) Project(p Vec3, w, h int) (x, y int, ok bool) {
	r := c.rotate(p).Scale(c.Zoom)
	if r.Z >= c.Distance-0.1 {
		return 0, 0, false
	}
	persp := c.Distance / (c.Distance - r.Z)
	unit := math.Min(float64(w), float64(h)) / 3
	x = w/2 + int(r.X*persp*unit)
	y = h/2 - int(r.Y*persp*unit)
	return x, y, true
}

// Polyline projects and joins pts on c.
func (c *Camera) Polyline(cv *Canvas, pts []Vec3) {
	w, h := cv.Dots()
	px, py, prev := 0, 0, false
	for _, p := range pts {
		x, y, ok := c.Project(p, w, h)
		if ok && prev {
			cv.DrawLine(px, py, x, y)
		} else if ok {
			cv.Set(x, y)
		}
		px, py, prev = x, y, ok
	}
}
