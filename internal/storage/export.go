package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/san-kum/odesim/internal/events"
)

type ExportEvent struct {
	Detector  string    `json:"detector"`
	Time      float64   `json:"time"`
	Value     float64   `json:"value"`
	Direction string    `json:"direction"`
	Precise   bool      `json:"precise"`
	State     []float64 `json:"state"`
}

type ExportData struct {
	Run    RunMetadata   `json:"run"`
	Times  []float64     `json:"times"`
	States [][]float64   `json:"states"`
	Events []ExportEvent `json:"events"`
}

// ExportJSON writes a stored run, trajectory and events included, as one
// JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	crossings, err := s.LoadEvents(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:    *meta,
		Times:  times,
		States: make([][]float64, len(states)),
		Events: exportEvents(crossings),
	}
	for i, y := range states {
		data.States[i] = y
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes the trajectory of a stored run.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("run %s has no data to export", runID)
	}

	rows := make([][]string, 0, len(states)+1)
	header := []string{"time"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	rows = append(rows, header)
	for i, y := range states {
		rows = append(rows, append([]string{formatFloat(times[i])}, formatState(y)...))
	}
	return writeCSVTo(w, rows)
}

func exportEvents(crossings []events.Crossing) []ExportEvent {
	out := make([]ExportEvent, len(crossings))
	for i, c := range crossings {
		out[i] = ExportEvent{
			Detector:  c.Detector,
			Time:      c.Time,
			Value:     c.Value,
			Direction: c.Direction.String(),
			Precise:   c.Precise,
			State:     c.State,
		}
	}
	return out
}
