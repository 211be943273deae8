package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// gainNames is the order the gains are cycled through.
var gainNames = []string{"Kp", "Ki", "Kd"}

const historyLen = 60

// Tunable is a controller whose gains can be changed while it runs.
type Tunable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}

// BodySample is the per-body line of the live view.
type BodySample struct {
	Name      string
	Height    float64
	COMHeight float64
	Mass      float64
	ContactFz float64
	Static    bool
}

// Sample is sent to the view after a step.
type Sample struct {
	Step   int
	Time   float64
	Bodies []BodySample
	Gains  map[string]float64
}

type doneMsg struct{ err error }

// Done tells the view that the run has ended.
func Done(err error) tea.Msg { return doneMsg{err} }

type gainChange struct {
	name  string
	value float64
}

// Feed is the observer side of the live view. OnStep runs on the
// simulation goroutine; gain changes queued by the view are applied there
// before the next sample is taken.
type Feed struct {
	send     func(tea.Msg)
	contact  func(*body.Body) mgl64.Vec3
	every    int
	steps    int
	tunables []Tunable
	tune     chan gainChange
}

// NewFeed samples every n-th step. contact returns the contact force of a
// body in the last step.
func NewFeed(contact func(*body.Body) mgl64.Vec3, every int, tunables ...Tunable) *Feed {
	return &Feed{
		send:     func(tea.Msg) {},
		contact:  contact,
		every:    max(1, every),
		tunables: tunables,
		tune:     make(chan gainChange, 16),
	}
}

// Connect sets where samples are delivered, usually tea.Program.Send.
func (f *Feed) Connect(send func(tea.Msg)) { f.send = send }

// Gains of the first tunable controller, nil without one.
func (f *Feed) Gains() map[string]float64 {
	if len(f.tunables) == 0 {
		return nil
	}
	return f.tunables[0].GetParams()
}

func (f *Feed) OnStep(t float64, bodies []*body.Body) {
	f.steps++
	f.applyGains()
	if f.steps%f.every != 0 {
		return
	}
	f.send(f.sample(t, bodies))
}

func (f *Feed) applyGains() {
	for {
		select {
		case c := <-f.tune:
			for _, tn := range f.tunables {
				tn.SetParam(c.name, c.value)
			}
		default:
			return
		}
	}
}

func (f *Feed) sample(t float64, bodies []*body.Body) Sample {
	s := Sample{Step: f.steps, Time: t, Gains: f.Gains()}
	for _, b := range bodies {
		bs := BodySample{Name: b.Name, Static: b.IsStatic()}
		if !bs.Static {
			bs.Height = b.Root().P[2]
			bs.COMHeight = b.CenterOfMass()[2]
			bs.Mass = b.TotalMass()
			if f.contact != nil {
				bs.ContactFz = f.contact(b)[2]
			}
		}
		s.Bodies = append(s.Bodies, bs)
	}
	return s
}

// request queues a gain change without blocking the view.
func (f *Feed) request(name string, value float64) bool {
	select {
	case f.tune <- gainChange{name, value}:
		return true
	default:
		return false
	}
}

// Live is the bubbletea model of `pmsim run --live`.
type Live struct {
	title    string
	duration float64
	feed     *Feed

	last    Sample
	gains   map[string]float64
	cursor  int
	history []float64

	done bool
	err  error
}

// NewLive builds the view. A zero duration hides the progress bar.
func NewLive(title string, duration float64, feed *Feed) Live {
	return Live{
		title:    title,
		duration: duration,
		feed:     feed,
		gains:    feed.Gains(),
		history:  make([]float64, 0, historyLen),
	}
}

func (m Live) Init() tea.Cmd { return nil }

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case Sample:
		m.last = msg
		if msg.Gains != nil {
			m.gains = msg.Gains
		}
		if len(msg.Bodies) > 0 {
			m.history = append(m.history, msg.Bodies[0].Height)
			if len(m.history) > historyLen {
				m.history = m.history[1:]
			}
		}
		return m, nil
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Live) handleKey(msg tea.KeyMsg) (Live, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(gainNames)-1 {
			m.cursor++
		}
	case "+", "=":
		m.adjust(1.1)
	case "-", "_":
		m.adjust(1 / 1.1)
	}
	return m, nil
}

// adjust scales the selected gain. A zero gain is raised to 1.
func (m *Live) adjust(factor float64) {
	if m.gains == nil {
		return
	}
	name := gainNames[m.cursor]
	v := m.gains[name] * factor
	if v == 0 && factor > 1 {
		v = 1
	}
	if !m.feed.request(name, v) {
		return
	}
	gains := make(map[string]float64, len(m.gains))
	for k, g := range m.gains {
		gains[k] = g
	}
	gains[name] = v
	m.gains = gains
}

func (m Live) View() string {
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.done {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("finished")
		if m.err != nil {
			statusText = yellow.Render("stopped: " + m.err.Error())
		}
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render(m.title), statusText))
	b.WriteString(fmt.Sprintf("   %s\n", dim.Render(fmt.Sprintf("step %d  t=%.3fs", m.last.Step, m.last.Time))))

	if m.duration > 0 {
		progress := min(m.last.Time/m.duration, 1)
		barWidth := 36
		filled := int(progress * float64(barWidth))
		bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
		b.WriteString(fmt.Sprintf("   %s %s\n", bar, dim.Render(fmt.Sprintf("%.1fs/%.1fs", m.last.Time, m.duration))))
	}

	b.WriteString("\n" + dim.Render(fmt.Sprintf("   %-12s %9s %9s %8s %10s", "body", "height", "com z", "mass", "contact fz")) + "\n")
	for _, bs := range m.last.Bodies {
		if bs.Static {
			b.WriteString("   " + dim.Render(fmt.Sprintf("%-12s %9s", bs.Name, "static")) + "\n")
			continue
		}
		b.WriteString("   " + white.Render(fmt.Sprintf("%-12s", bs.Name)) +
			fmt.Sprintf(" %9.4f %9.4f %8.2f ", bs.Height, bs.COMHeight, bs.Mass) +
			magenta.Render(fmt.Sprintf("%10.2f", bs.ContactFz)) + "\n")
	}

	if len(m.history) > 1 {
		b.WriteString(fmt.Sprintf("\n   %s %s\n", dim.Render("z"), cyan.Render(sparkline(m.history, 24))))
	}

	help := "   q quit"
	if m.gains != nil {
		b.WriteString("\n")
		for i, name := range gainNames {
			val := fmt.Sprintf("%8.3f", m.gains[name])
			if i == m.cursor {
				b.WriteString("   " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-4s", name)) + magenta.Render(val) + "\n")
			} else {
				b.WriteString("     " + dim.Render(fmt.Sprintf("%-4s", name)) + dim.Render(val) + "\n")
			}
		}
		help = "   ↑↓ gain  ± adjust  q quit"
	}
	b.WriteString("\n" + dim.Render(help) + "\n")

	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := max(len(data)/width, 1)
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		sb.WriteRune(chars[min(max(idx, 0), 7)])
	}
	return sb.String()
}

// RunLive shows the view while run executes on its own goroutine. Quitting
// the view calls cancel; RunLive returns once run has returned.
func RunLive(m Live, cancel context.CancelFunc, run func() error) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.feed.Connect(p.Send)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		p.Send(Done(run()))
	}()

	_, err := p.Run()
	cancel()
	<-finished
	return err
}
