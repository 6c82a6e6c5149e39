package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/models"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	trailCapacity   = 600
	framesPerSecond = 30
	// maxStepsPerFrame keeps one frame responsive when the step size
	// collapses.
	maxStepsPerFrame = 5000
	recentEvents     = 5
)

// Snapshot is a recorded frame for replay.
type Snapshot struct {
	Time   float64
	State  dynamo.State
	Energy float64
}

type TickMsg time.Time

// Model advances an experiment frame by frame and draws it.
type Model struct {
	exp   *experiment.Experiment
	sys   experiment.Model
	integ *integrators.Integrator
	name  string

	t, frame float64
	state    dynamo.State
	pool     *dynamo.StatePool

	canvas  *Canvas
	camera  *Camera
	view    Viewport
	theme   Theme
	trail   []Vec3
	stride  int
	energy  []float64
	history []Snapshot
	// playHead indexes history during replay and is -1 when live.
	playHead int

	events   []events.Crossing
	running  bool
	status   string
	err      error
	showHelp bool

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
}

type Option func(*Model)

// WithFrame sets how much model time passes per frame.
func WithFrame(dt float64) Option {
	return func(m *Model) {
		if dt > 0 {
			m.frame = dt
		}
	}
}

func WithTheme(name string) Option {
	return func(m *Model) { m.theme = GetTheme(name) }
}

// NewModel initializes the integrator of exp at its start point.
func NewModel(exp *experiment.Experiment, opts ...Option) (Model, error) {
	cfg := exp.Config()
	sys := exp.Model()
	x0 := exp.InitialState()

	m := Model{
		exp:      exp,
		sys:      sys,
		integ:    exp.Integrator(),
		name:     cfg.Model,
		frame:    defaultFrame(cfg.T0, cfg.T1, sys, x0),
		pool:     dynamo.NewStatePool(len(x0)),
		canvas:   NewCanvas(width, height),
		camera:   NewCamera(),
		theme:    Themes[0],
		stride:   1,
		playHead: -1,
		running:  true,
		params:   map[string]float64{},
	}
	if nb, ok := sys.(*models.NBody); ok {
		m.stride = nb.NumBodies
	}
	for _, opt := range opts {
		opt(&m)
	}

	if c, ok := sys.(dynamo.Configurable); ok {
		m.params = c.GetParams()
	}
	m.initialParams = make(map[string]float64, len(m.params))
	for k, v := range m.params {
		m.paramKeys = append(m.paramKeys, k)
		m.initialParams[k] = v
	}
	sort.Strings(m.paramKeys)

	if err := m.restart(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func defaultFrame(t0, t1 float64, sys experiment.Model, x0 dynamo.State) float64 {
	if !math.IsInf(t1, 0) {
		return math.Abs(t1-t0) / (20 * framesPerSecond)
	}
	if tb, ok := sys.(*models.TwoBody); ok {
		if p := tb.Period(x0); !math.IsInf(p, 0) {
			return p / (10 * framesPerSecond)
		}
	}
	return 1.0 / framesPerSecond
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/framesPerSecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.running = !m.running
			}
		case "r":
			if err := m.restart(); err != nil {
				m.fail(err)
			}
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "t":
			m.theme = m.theme.Next()
		case "x":
			m.camera.Rotate(0.1, 0)
		case "y":
			m.camera.Rotate(0, 0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.scrub(1)
			}
		}
		return m, tick()
	}
	return m, nil
}

// restart puts the integrator back at the initial point and restores the
// initial parameters.
func (m *Model) restart() error {
	cfg := m.exp.Config()
	if c, ok := m.sys.(dynamo.Configurable); ok {
		for k, v := range m.initialParams {
			if err := c.SetParam(k, v); err != nil {
				return err
			}
			m.params[k] = v
		}
	}
	if err := m.integ.Initialize(m.sys, cfg.T0, m.exp.InitialState()); err != nil {
		return err
	}
	for _, s := range m.history {
		m.pool.Put(s.State)
	}
	m.history = m.history[:0]
	m.trail = m.trail[:0]
	m.energy = m.energy[:0]
	m.events = nil
	m.playHead = -1
	m.err = nil
	m.status = ""
	m.running = true
	m.t, m.state = m.integ.State()
	m.view = m.initialView()
	m.record()
	return nil
}

// step advances the integration by one frame of model time.
func (m *Model) step() {
	cfg := m.exp.Config()
	dir := 1.0
	if cfg.T1 < cfg.T0 {
		dir = -1
	}
	target := m.t + dir*m.frame
	if dir*(target-cfg.T1) > 0 {
		target = cfg.T1
	}

	seen := len(m.integ.Events())
	for i := 0; i < maxStepsPerFrame; i++ {
		reason, err := m.integ.IntegrateStep(target)
		if err != nil {
			m.fail(err)
			break
		}
		if reason == integrators.StopNone {
			continue
		}
		switch reason {
		case integrators.StopEvent:
			m.pause("stopped by event")
		case integrators.StopMaxSteps:
			m.pause("step limit reached")
		case integrators.StopReached:
			if target == cfg.T1 {
				m.pause("finished")
			}
		}
		break
	}

	if all := m.integ.Events(); len(all) > seen {
		m.events = append(m.events, all[seen:]...)
		if len(m.events) > recentEvents {
			m.events = m.events[len(m.events)-recentEvents:]
		}
	}
	m.t, m.state = m.integ.State()
	m.record()
}

func (m *Model) pause(status string) {
	m.running = false
	m.status = status
}

func (m *Model) fail(err error) {
	m.err = err
	m.running = false
	m.status = fmt.Sprintf("failed (%s)", dynamo.KindOf(err))
}

// record stores the current point in the replay history, the energy plot
// and the trail.
func (m *Model) record() {
	e := 0.0
	if h, ok := m.sys.(dynamo.Hamiltonian); ok {
		e = h.Energy(m.state)
	}
	m.energy = append(m.energy, e)
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}

	if len(m.history) == historyCapacity {
		m.pool.Put(m.history[0].State)
		m.history = m.history[1:]
	}
	m.history = append(m.history, Snapshot{Time: m.t, State: m.pool.GetAndCopy(m.state), Energy: e})

	for _, p := range m.trace(m.t, m.state) {
		m.trail = append(m.trail, p)
		m.view.Include(p.X, p.Y)
	}
	if limit := trailCapacity * m.stride; len(m.trail) > limit {
		m.trail = m.trail[len(m.trail)-limit:]
	}
}

// scrub moves the replay position through history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	c, ok := m.sys.(dynamo.Configurable)
	if !ok || len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if val == 0 {
		val = 1e-3 * factor
	}
	if err := c.SetParam(key, val); err != nil {
		m.status = err.Error()
		return
	}
	m.params[key] = val
}

// current is the point shown on screen, live or replayed.
func (m Model) current() Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	e := 0.0
	if len(m.energy) > 0 {
		e = m.energy[len(m.energy)-1]
	}
	return Snapshot{Time: m.t, State: m.state, Energy: e}
}

func (m Model) View() string {
	st := m.theme.styles()
	snap := m.current()
	m.draw(snap.Time, snap.State)

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(m.statusLine(st) + "\n\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	stats := m.integ.Stats()
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.4g", snap.Time))
	row("Method", fmt.Sprintf("%s (%s)", m.integ.Tableau().Name, stepMode(m.integ)))
	row("Steps", fmt.Sprintf("%d (%d rejected)", stats.Accepted, stats.Rejected))
	row("Step size", fmt.Sprintf("%.3g", m.integ.NextStepSize()))
	if _, ok := m.sys.(dynamo.Hamiltonian); ok {
		row("Energy", fmt.Sprintf("%.6g", snap.Energy))
	}

	s.WriteString("\nEVENTS\n")
	if len(m.events) == 0 {
		s.WriteString(st.label.Render("  (none)") + "\n")
	}
	for _, c := range m.events {
		mark := ""
		if !c.Precise {
			mark = " ~"
		}
		s.WriteString(st.value.Render(fmt.Sprintf("  %-10s t=%.6g%s", c.Detector, c.Time, mark)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(st.label.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-10s %s %.4g", k, paramBar(m.params[k], m.initialParams[k]), m.params[k])
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}
	s.WriteString(st.help.Render("SP:Pause R:Restart Q:Quit\nT:Theme [ ]:Replay ↑↓:Tune ?:Help"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(m.canvas.String()), st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

func (m Model) statusLine(st styles) string {
	switch {
	case m.err != nil:
		return st.failed.Render(strings.ToUpper(m.status)) + "\n" + st.value.Render(m.err.Error())
	case m.playHead != -1:
		last := m.history[len(m.history)-1].Time
		return st.paused.Render(fmt.Sprintf("REPLAY (%+.3g)", m.history[m.playHead].Time-last))
	case !m.running && m.status != "":
		return st.paused.Render(strings.ToUpper(m.status))
	case !m.running:
		return st.paused.Render("PAUSED")
	default:
		return st.running.Render("RUNNING")
	}
}

func stepMode(in *integrators.Integrator) string {
	if in.Adaptive() {
		return "adaptive"
	}
	return "fixed"
}

func paramBar(val, initial float64) string {
	const barWidth = 10
	ratio := 0.5
	if initial != 0 {
		ratio = val / (2 * initial)
	}
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(ratio * barWidth)
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

const helpText = `
  Space   pause/resume        R     restart
  Tab     next parameter      Up/K  parameter +5%
  Down/J  parameter -5%       [ ]   replay
  X/Y     rotate (3D)         + -   zoom (3D)
  T       cycle themes        Q     quit
`
