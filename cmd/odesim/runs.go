package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/odesim/internal/export"
	"github.com/san-kum/odesim/internal/viz"
)

// captions names state components of the built-in models for plots.
var captions = map[string][]string{
	"decay":           {"amount"},
	"oscillator":      {"position", "velocity"},
	"pendulum":        {"theta (angle)", "omega (angular velocity)"},
	"double_pendulum": {"theta1", "theta2", "omega1", "omega2"},
	"two_body":        {"x (km)", "y (km)", "z (km)", "vx (km/s)", "vy (km/s)", "vz (km/s)"},
	"lorenz":          {"x", "y", "z"},
	"rossler":         {"x", "y", "z"},
	"vanderpol":       {"x", "dx/dt"},
	"duffing":         {"x", "dx/dt"},
}

func caption(model string, i int) string {
	if names, ok := captions[model]; ok && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("x%d vs time", i)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storeFor().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tINTEG\tSPAN\tREASON\tSTEPS\tEVENTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t[%g, %g]\t%s\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Integrator,
			float64(run.T0), float64(run.T1),
			run.Reason,
			run.Steps,
			run.Events,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storeFor()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	crossings, err := st.LoadEvents(args[0])
	if err != nil {
		return err
	}
	if len(crossings) > 0 {
		fmt.Println("\nevents:")
		printEvents(crossings)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storeFor()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d over [%g, %g]\n\n", len(states), times[0], times[len(times)-1])

	numVars := min(len(states[0]), 6)
	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][varIdx]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption(meta.Model, varIdx)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := storeFor()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}
	if xAxis < 0 || yAxis < 0 || len(states[0]) <= xAxis || len(states[0]) <= yAxis {
		return fmt.Errorf("state dimension %d too small for axes x%d, x%d", len(states[0]), xAxis, yAxis)
	}

	fmt.Printf("phase space plot: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("x-axis: %s, y-axis: %s\n\n", caption(meta.Model, xAxis), caption(meta.Model, yAxis))

	view := viz.Viewport{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for _, y := range states {
		view.Include(y[xAxis], y[yAxis])
	}
	canvas := viz.NewCanvas(70, 20)
	px, py := view.Point(canvas, states[0][xAxis], states[0][yAxis])
	for _, y := range states[1:] {
		x1, y1 := view.Point(canvas, y[xAxis], y[yAxis])
		canvas.DrawLine(px, py, x1, y1)
		px, py = x1, y1
	}

	fmt.Printf("  y: [%.4g, %.4g]\n", view.MinY, view.MaxY)
	fmt.Print(canvas.String())
	fmt.Printf("  x: [%.4g, %.4g]\n", view.MinX, view.MaxX)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storeFor()
	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to export")
	}
	if xAxis < 0 || yAxis < 0 || len(states[0]) <= xAxis || len(states[0]) <= yAxis {
		return fmt.Errorf("state dimension %d too small for axes x%d, x%d", len(states[0]), xAxis, yAxis)
	}
	crossings, err := st.LoadEvents(args[0])
	if err != nil {
		return err
	}

	pts := make([]export.Point, len(states))
	for i, y := range states {
		pts[i] = export.Point{X: y[xAxis], Y: y[yAxis]}
	}
	marks := make([]export.Marker, 0, len(crossings))
	for _, c := range crossings {
		if len(c.State) <= max(xAxis, yAxis) {
			continue
		}
		marks = append(marks, export.Marker{
			Point: export.Point{X: c.State[xAxis], Y: c.State[yAxis]},
			Label: c.Detector,
		})
	}
	opts := export.DefaultOptions()
	opts.Theme = viz.GetTheme(theme)
	return export.Trajectory(cmd.OutOrStdout(), pts, marks, opts)
}
