package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/internal/experiment"
	"github.com/san-kum/timedpid/internal/integrators"
)

const (
	historyCapacity = 600
	frameRate       = 30
)

type TickMsg time.Time

// tunable is one adjustable parameter and the component that owns it.
type tunable struct {
	name   string
	label  string
	target dynamo.Configurable
}

// Model steps the closed loop in real time and lets the user nudge gains and
// plant parameters while it runs.
type Model struct {
	cfg        *config.Config
	plant      dynamo.Plant
	integrator dynamo.Integrator
	loop       *control.Loop
	state      dynamo.State
	u          dynamo.Control
	t          float64
	// stepsPerFrame sets simulated time per frame as a multiple of Dt.
	stepsPerFrame int
	running       bool
	showHelp      bool
	err           error

	params   []tunable
	initial  map[string]float64
	schedule control.Schedule
	selected int

	setpoints []float64
	outputs   []float64
	commands  []float64
}

// NewModel builds a live closed loop from cfg. Open-loop configs are refused:
// there is nothing to tune.
func NewModel(cfg *config.Config) (*Model, error) {
	if cfg.OpenLoop() {
		return nil, fmt.Errorf("viz: live view needs a pid controller")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	plant, err := experiment.GetPlant(cfg.Plant)
	if err != nil {
		return nil, err
	}
	if err := experiment.ApplyPlantParams(plant, cfg.PlantParams); err != nil {
		return nil, err
	}
	integ, err := integrators.Get(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	loop, err := control.NewLoop(cfg.LoopConfig(), plant.ProcessVariable)
	if err != nil {
		return nil, err
	}

	m := &Model{
		cfg:           cfg.Clone(),
		plant:         plant,
		integrator:    integ,
		loop:          loop,
		state:         cfg.GetInitState(),
		schedule:      loop.Schedule(),
		stepsPerFrame: stepsPerFrame(cfg.Dt),
		running:       true,
		initial:       make(map[string]float64),
		setpoints:     make([]float64, 0, historyCapacity),
		outputs:       make([]float64, 0, historyCapacity),
		commands:      make([]float64, 0, historyCapacity),
	}
	m.params = append(m.params, collect("pid", loop)...)
	if c, ok := plant.(dynamo.Configurable); ok {
		m.params = append(m.params, collect(cfg.Plant, c)...)
	}
	for _, p := range m.params {
		m.initial[p.label] = p.target.GetParams()[p.name]
	}
	return m, nil
}

func collect(prefix string, c dynamo.Configurable) []tunable {
	names := make([]string, 0)
	for k := range c.GetParams() {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]tunable, len(names))
	for i, k := range names {
		out[i] = tunable{name: k, label: prefix + "." + k, target: c}
	}
	return out
}

// stepsPerFrame aims for roughly one simulated second per wall second.
func stepsPerFrame(dt float64) int {
	n := int(1.0 / (dt * frameRate))
	return max(n, 1)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			if len(m.params) > 0 {
				m.selected = (m.selected + 1) % len(m.params)
			}
		case "shift+tab":
			if len(m.params) > 0 {
				m.selected = (m.selected + len(m.params) - 1) % len(m.params)
			}
		case "up", "k":
			m.adjust(1.1)
		case "down", "j":
			m.adjust(1 / 1.1)
		case "+", "=":
			m.stepsPerFrame *= 2
		case "-", "_":
			m.stepsPerFrame = max(m.stepsPerFrame/2, 1)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			for i := 0; i < m.stepsPerFrame && m.err == nil; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// adjust scales the selected parameter. A zero value is nudged from a small
// seed so that it can be grown.
func (m *Model) adjust(factor float64) {
	if len(m.params) == 0 {
		return
	}
	p := m.params[m.selected]
	val := p.target.GetParams()[p.name]
	if val == 0 && factor > 1 {
		val = 0.01
	} else {
		val *= factor
	}
	if err := p.target.SetParam(p.name, val); err != nil {
		m.err = err
	}
}

func (m *Model) step() {
	m.u = m.loop.Compute(m.state, m.t)
	if err := m.loop.Err(); err != nil {
		m.err = err
		return
	}

	m.push(m.loop.Setpoint(m.t), m.plant.ProcessVariable(m.state), m.u[0])

	next := m.integrator.Step(m.plant, m.state, m.u, m.t, m.cfg.Dt)
	if !next.IsValid() {
		m.err = fmt.Errorf("%w at t=%.3f", dynamo.ErrInvalidState, m.t)
		return
	}
	m.state = next
	m.t += m.cfg.Dt
}

func (m *Model) push(sp, pv, u float64) {
	if len(m.outputs) == historyCapacity {
		m.setpoints = m.setpoints[1:]
		m.outputs = m.outputs[1:]
		m.commands = m.commands[1:]
	}
	m.setpoints = append(m.setpoints, sp)
	m.outputs = append(m.outputs, pv)
	m.commands = append(m.commands, u)
}

// reset restores the initial state, the original setpoint schedule and any
// parameter that was changed.
func (m *Model) reset() {
	for _, p := range m.params {
		if p.target == dynamo.Configurable(m.loop) && p.name == "Target" {
			continue
		}
		if p.target.GetParams()[p.name] != m.initial[p.label] {
			_ = p.target.SetParam(p.name, m.initial[p.label])
		}
	}
	m.loop.SetSchedule(m.schedule)
	m.loop.Reset()
	m.state = m.cfg.GetInitState()
	m.t = 0
	m.err = nil
	m.setpoints = m.setpoints[:0]
	m.outputs = m.outputs[:0]
	m.commands = m.commands[:0]
}

func (m *Model) View() string {
	var s strings.Builder

	s.WriteString(HeaderStyle.Render(fmt.Sprintf("%s  %s mode", strings.ToUpper(m.cfg.Plant), m.cfg.Mode)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(ErrorStyle.Render("STOPPED: "+m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.outputs) > 1 {
		s.WriteString(ResponseChart(m.setpoints, m.outputs, 60, 10, "setpoint (red) / pv (green)") + "\n\n")
		s.WriteString(CommandChart(m.commands, 60, 4, "command") + "\n\n")
	}

	s.WriteString(Metric("time", fmt.Sprintf("%.2fs", m.t)) + "\n")
	if n := len(m.outputs); n > 0 {
		s.WriteString(Metric("pv", fmt.Sprintf("%.4f", m.outputs[n-1])) + "\n")
		s.WriteString(Metric("setpoint", fmt.Sprintf("%.4f", m.setpoints[n-1])) + "\n")
		s.WriteString(Metric("command", fmt.Sprintf("%.4f", m.commands[n-1])) + "\n")
	}
	s.WriteString(Metric("speed", fmt.Sprintf("x%d", m.stepsPerFrame)) + "\n")

	s.WriteString("\n" + TitleStyle.Render("PARAMETERS") + "\n")
	for i, p := range m.params {
		line := fmt.Sprintf("%-22s %.4g", p.label, p.target.GetParams()[p.name])
		if i == m.selected {
			s.WriteString(Selected.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}

	if m.showHelp {
		s.WriteString("\n" + KeyHint.Render("space pause · r reset · tab/shift+tab select · up/down scale ±10% · +/- speed · q quit"))
	} else {
		s.WriteString("\n" + KeyHint.Render("? help"))
	}
	return s.String()
}

// RunLive starts the interactive loop on the terminal.
func RunLive(cfg *config.Config) error {
	m, err := NewModel(cfg)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
