package viz

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/experiment"
)

const (
	screenMenu = iota
	screenSetup
	screenLive
)

type entry struct {
	model, preset string
}

// Menu lists the presets of every registered model, lets the user pick an
// integrator and then runs the choice in a live Model.
type Menu struct {
	reg    *experiment.Registry
	logger *slog.Logger
	theme  Theme

	screen      int
	entries     []entry
	cursor      int
	integrators []string
	integ       int
	err         error
	live        Model
}

func NewMenu(reg *experiment.Registry, logger *slog.Logger) Menu {
	m := Menu{
		reg:         reg,
		logger:      logger,
		theme:       Themes[0],
		integrators: reg.ListIntegrators(),
	}
	for _, model := range reg.ListModels() {
		for _, preset := range config.ListPresets(model) {
			m.entries = append(m.entries, entry{model: model, preset: preset})
		}
	}
	return m
}

func (m Menu) Init() tea.Cmd { return nil }

func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.screen == screenLive {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.screen = screenMenu
			return m, nil
		}
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.screen == screenMenu && m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.screen == screenMenu && m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "left", "h":
		if m.screen == screenSetup {
			m.integ = (m.integ + len(m.integrators) - 1) % len(m.integrators)
		}
	case "right", "l":
		if m.screen == screenSetup {
			m.integ = (m.integ + 1) % len(m.integrators)
		}
	case "esc":
		m.screen = screenMenu
		m.err = nil
	case "enter", " ":
		if len(m.entries) == 0 {
			return m, nil
		}
		if m.screen == screenMenu {
			m.selectPreset()
			return m, nil
		}
		return m.start()
	}
	return m, nil
}

func (m *Menu) selectPreset() {
	cfg := m.preset()
	m.integ = 0
	for i, name := range m.integrators {
		if name == cfg.Integrator {
			m.integ = i
		}
	}
	m.err = nil
	m.screen = screenSetup
}

func (m Menu) preset() *config.Config {
	e := m.entries[m.cursor]
	return config.GetPreset(e.model, e.preset)
}

func (m Menu) start() (tea.Model, tea.Cmd) {
	cfg := m.preset()
	cfg.Integrator = m.integrators[m.integ]
	exp, err := experiment.New(cfg, m.reg, m.logger)
	if err != nil {
		m.err = err
		return m, nil
	}
	live, err := NewModel(exp, WithTheme(m.theme.Name))
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live = live
	m.screen = screenLive
	return m, live.Init()
}

func (m Menu) View() string {
	switch m.screen {
	case screenLive:
		return m.live.View()
	case screenSetup:
		return m.viewSetup()
	}
	return m.viewMenu()
}

func (m Menu) viewMenu() string {
	st := m.theme.styles()
	var b strings.Builder
	b.WriteString("\n    " + st.header.Render("ODESIM") + "\n")
	for i, e := range m.entries {
		line := fmt.Sprintf("%-16s %s", e.model, e.preset)
		if i == m.cursor {
			b.WriteString("    " + st.active.Render("▸ "+line) + "\n")
		} else {
			b.WriteString("      " + st.label.UnsetWidth().Render(line) + "\n")
		}
	}
	b.WriteString(st.help.Render("\n    j/k navigate  enter select  q quit") + "\n")
	return b.String()
}

func (m Menu) viewSetup() string {
	st := m.theme.styles()
	cfg := m.preset()
	var b strings.Builder
	b.WriteString("\n    " + st.header.Render(strings.ToUpper(cfg.Model+" / "+m.entries[m.cursor].preset)) + "\n")

	row := func(label, value string) {
		b.WriteString("    " + st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Integrator", "◂ "+m.integrators[m.integ]+" ▸")
	row("Span", fmt.Sprintf("[%g, %g]", cfg.T0, cfg.T1))
	row("Tolerance", fmt.Sprintf("abs %g rel %g", cfg.AbsTol, cfg.RelTol))
	row("Events", fmt.Sprintf("%d", len(cfg.Events)))
	if m.err != nil {
		b.WriteString("\n    " + st.failed.Render(m.err.Error()) + "\n")
	}
	b.WriteString(lipgloss.NewStyle().MarginTop(1).Render(st.help.Render("    h/l integrator  enter start  esc back")) + "\n")
	return b.String()
}

// RunMenu starts the preset picker on the terminal.
func RunMenu(reg *experiment.Registry, logger *slog.Logger) error {
	_, err := tea.NewProgram(NewMenu(reg, logger), tea.WithAltScreen()).Run()
	return err
}

// Run shows exp live on the terminal until the user quits.
func Run(exp *experiment.Experiment, opts ...Option) error {
	m, err := NewModel(exp, opts...)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
