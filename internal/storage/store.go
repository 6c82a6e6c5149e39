package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	eventsFile   = "events.csv"
)

// Store keeps one directory per run holding metadata.json, states.csv and
// events.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Time is a float that survives JSON when infinite.
type Time float64

func (t Time) MarshalJSON() ([]byte, error) {
	f := float64(t)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(f)
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*t = Time(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*t = Time(f)
	return nil
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	Integrator   string             `json:"integrator"`
	RootSolver   string             `json:"root_solver,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
	T0           Time               `json:"t0"`
	T1           Time               `json:"t1"`
	FinalTime    Time               `json:"final_time"`
	StepSize     float64            `json:"step_size"`
	AbsTol       float64            `json:"abs_tol"`
	RelTol       float64            `json:"rel_tol"`
	Reason       string             `json:"reason"`
	Steps        int                `json:"steps"`
	Rejected     int                `json:"rejected"`
	Evaluations  int                `json:"evaluations"`
	SmallestStep float64            `json:"smallest_step"`
	LargestStep  float64            `json:"largest_step"`
	Events       int                `json:"events"`
	EnergyDrift  float64            `json:"energy_drift"`
	Elapsed      time.Duration      `json:"elapsed_ns"`
	Params       map[string]float64 `json:"params,omitempty"`
	Metrics      map[string]float64 `json:"metrics"`
}

// NewMetadata fills the settings of a run from its config. Parameters are
// read back from sys when it exposes them.
func NewMetadata(cfg *config.Config, sys dynamo.System) RunMetadata {
	meta := RunMetadata{
		Model:      cfg.Model,
		Integrator: cfg.Integrator,
		RootSolver: cfg.RootSolver,
		T0:         Time(cfg.T0),
		T1:         Time(cfg.T1),
		StepSize:   cfg.StepSize,
		AbsTol:     cfg.AbsTol,
		RelTol:     cfg.RelTol,
	}
	if c, ok := sys.(dynamo.Configurable); ok {
		meta.Params = c.GetParams()
	}
	return meta
}

// Save writes a run and returns its id. Fields of meta derived from the
// result are filled in.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s", meta.Model, strings.SplitN(uuid.NewString(), "-", 2)[0])
	meta.Timestamp = time.Now()
	meta.Reason = result.Reason.String()
	meta.Steps = result.Stats.Accepted
	meta.Rejected = result.Stats.Rejected
	meta.Evaluations = result.Stats.Evaluations
	meta.SmallestStep = result.Stats.SmallestStep
	meta.LargestStep = result.Stats.LargestStep
	meta.Events = len(result.Events)
	meta.EnergyDrift = result.EnergyDrift
	meta.Elapsed = result.Elapsed
	meta.Metrics = finiteMetrics(result.Metrics)
	if tf, _ := result.Final(); !math.IsNaN(tf) {
		meta.FinalTime = Time(tf)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result.Times, result.States); err != nil {
		return "", err
	}
	if err := writeEvents(filepath.Join(runDir, eventsFile), result.Events); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := parseFloats(record)
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", statesFile, i+2, err)
		}
		if len(row) == 0 {
			continue
		}
		times = append(times, row[0])
		states = append(states, dynamo.State(row[1:]))
	}
	return states, times, nil
}

// LoadEvents reads the crossings of a run. Runs without an events file
// have none.
func (s *Store) LoadEvents(runID string) ([]events.Crossing, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, eventsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]events.Crossing, 0, len(records))
	for i, record := range records {
		if i == 0 || len(record) < 6 {
			continue
		}
		nums, err := parseFloats(append([]string{record[1], record[2]}, record[6:]...))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", eventsFile, i+1, err)
		}
		dir, err := events.ParseDirection(record[3])
		if err != nil {
			return nil, err
		}
		precise, err := strconv.ParseBool(record[4])
		if err != nil {
			return nil, err
		}
		iters, err := strconv.Atoi(record[5])
		if err != nil {
			return nil, err
		}
		out = append(out, events.Crossing{
			Detector:  record[0],
			Time:      nums[0],
			Value:     nums[1],
			State:     dynamo.State(nums[2:]),
			Direction: dir,
			Precise:   precise,
		})
		out[len(out)-1].Stats.Iterations = iters
		out[len(out)-1].Stats.Converged = precise
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeStates(path string, times []float64, states []dynamo.State) error {
	rows := make([][]string, 0, len(states)+1)
	if len(states) > 0 {
		header := []string{"time"}
		for i := range states[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}
		rows = append(rows, header)
	}
	for i, y := range states {
		rows = append(rows, append([]string{formatFloat(times[i])}, formatState(y)...))
	}
	return writeCSV(path, rows)
}

func writeEvents(path string, crossings []events.Crossing) error {
	rows := [][]string{{"detector", "time", "value", "direction", "precise", "iterations", "state..."}}
	for _, c := range crossings {
		row := []string{
			c.Detector,
			formatFloat(c.Time),
			formatFloat(c.Value),
			c.Direction.String(),
			strconv.FormatBool(c.Precise),
			strconv.Itoa(c.Stats.Iterations),
		}
		rows = append(rows, append(row, formatState(c.State)...))
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSVTo(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSVTo(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	return cw.WriteAll(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatState(y dynamo.State) []string {
	out := make([]string, len(y))
	for i, v := range y {
		out[i] = formatFloat(v)
	}
	return out
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func finiteMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}
