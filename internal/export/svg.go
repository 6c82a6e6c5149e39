// Package export renders trajectories as standalone SVG documents.
package export

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"

	"github.com/san-kum/odesim/internal/viz"
)

type Point struct{ X, Y float64 }

// Marker is a labelled point drawn over the trajectory, such as an event.
type Marker struct {
	Point
	Label string
}

type Options struct {
	Width, Height int
	Theme         viz.Theme
}

func DefaultOptions() Options {
	return Options{Width: 800, Height: 600, Theme: viz.ThemeCyberpunk}
}

func header(w *bufio.Writer, width, height float64, background string) {
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// Canvas writes every set dot of c as a circle, scale pixels apart.
func Canvas(out io.Writer, c *viz.Canvas, scale float64, th viz.Theme) error {
	if c == nil {
		return fmt.Errorf("nil canvas")
	}
	w := bufio.NewWriter(out)
	dw, dh := c.Dots()
	header(w, float64(dw)*scale, float64(dh)*scale, "#0a0a0a")
	fmt.Fprintf(w, "<g fill=\"%s\">\n", th.Primary)
	r := scale * 0.4
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			if c.IsSet(x, y) {
				fmt.Fprintf(w, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}
	w.WriteString("</g>\n</svg>\n")
	return w.Flush()
}

// Trajectory writes pts as a path scaled to fit the image with a margin.
// Non-finite points break the path.
func Trajectory(out io.Writer, pts []Point, marks []Marker, opts Options) error {
	view := viz.Viewport{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for _, p := range pts {
		view.Include(p.X, p.Y)
	}
	if math.IsInf(view.MinX, 0) {
		return fmt.Errorf("no finite points to draw")
	}
	rx, ry := view.MaxX-view.MinX, view.MaxY-view.MinY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	view.MinX -= 0.1 * rx
	view.MaxX += 0.1 * rx
	view.MinY -= 0.1 * ry
	view.MaxY += 0.1 * ry

	width, height := float64(opts.Width), float64(opts.Height)
	project := func(p Point) (float64, float64) {
		x := (p.X - view.MinX) / (view.MaxX - view.MinX) * width
		y := height - (p.Y-view.MinY)/(view.MaxY-view.MinY)*height
		return x, y
	}

	w := bufio.NewWriter(out)
	header(w, width, height, "#0a0a0a")
	fmt.Fprintf(w, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", opts.Theme.Primary)
	pen := false
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			pen = false
			continue
		}
		x, y := project(p)
		if pen {
			fmt.Fprintf(w, " L%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(w, " M%.1f,%.1f", x, y)
			pen = true
		}
	}
	w.WriteString("\"/>\n")

	if len(marks) > 0 {
		fmt.Fprintf(w, "<g fill=\"%s\" font-family=\"monospace\" font-size=\"11\">\n", opts.Theme.Accent)
		for _, m := range marks {
			x, y := project(m.Point)
			fmt.Fprintf(w, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"3\"/>\n", x, y)
			if m.Label != "" {
				fmt.Fprintf(w, "<text x=\"%.1f\" y=\"%.1f\">%s</text>\n", x+5, y-5, html.EscapeString(m.Label))
			}
		}
		w.WriteString("</g>\n")
	}
	w.WriteString("</svg>\n")
	return w.Flush()
}
