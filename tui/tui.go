// Package tui is the terminal session host used with --tui. It mirrors
// the GUI contract: one recording per run, silence watchdog, final
// transcript returned to the caller for the single stdout print.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"listen/audio"
	"listen/beep"
	"listen/log"
	"listen/session"
	"listen/transcriber"
)

// Config carries what the model needs to run recording sessions.
type Config struct {
	Audio  audio.Context
	Device *audio.DeviceInfo

	// NewEngine runs as a startup command; recording stays disabled
	// until it returns.
	NewEngine func() (transcriber.Transcriber, error)

	SilenceTimeout time.Duration
}

type state int

const (
	stateLoading state = iota
	stateIdle
	stateRecording
	stateClosed
)

// Messages posted into the event loop. The capture goroutine never
// touches the model; it only sends.
type (
	engineReadyMsg struct{ engine transcriber.Transcriber }
	engineErrMsg   struct{ err error }
	transcriptMsg  struct{ text string }
	levelMsg       struct{ level float64 }
	sessionErrMsg  struct{ err error }
	stoppedMsg     struct{ final string }
	silenceTickMsg time.Time
)

// notifier bridges session callbacks onto the program's queue. The
// program pointer is set right after tea.NewProgram, before any
// session can start.
type notifier struct {
	p *tea.Program
}

func (n *notifier) TranscriptChanged(snapshot string) { n.p.Send(transcriptMsg{snapshot}) }
func (n *notifier) AudioLevel(level float64)          { n.p.Send(levelMsg{level}) }
func (n *notifier) SessionError(err error)            { n.p.Send(sessionErrMsg{err}) }

type model struct {
	cfg    Config
	notify session.Notifier

	state    state
	engine   transcriber.Transcriber
	session  *session.Session
	recStart time.Time

	duration   float64
	level      float64
	peak       float64
	transcript string
	errText    string
	final      string

	width  int
	height int
}

func newModel(cfg Config, notify session.Notifier) model {
	return model{cfg: cfg, notify: notify}
}

// Run drives the program to completion and returns the final
// transcript of the recording, possibly empty.
func Run(cfg Config) (string, error) {
	logger := log.New("tui")

	n := &notifier{}
	p := tea.NewProgram(newModel(cfg, n), tea.WithAltScreen())
	n.p = p

	logger.Info().Msg("starting tui")
	out, err := p.Run()
	if err != nil {
		return "", err
	}
	m := out.(model)
	logger.Info().Int("chars", len(m.final)).Msg("tui closed")
	return m.final, nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(loadEngine(m.cfg.NewEngine), silenceTick())
}

func loadEngine(build func() (transcriber.Transcriber, error)) tea.Cmd {
	return func() tea.Msg {
		eng, err := build()
		if err != nil {
			return engineErrMsg{err}
		}
		return engineReadyMsg{eng}
	}
}

func silenceTick() tea.Cmd {
	return tea.Tick(session.SilencePollInterval, func(t time.Time) tea.Msg {
		return silenceTickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case " ":
			return m.toggleRecording()
		case "q", "ctrl+c":
			if m.state == stateRecording {
				return m.stopRecording()
			}
			m.state = stateClosed
			return m, tea.Quit
		}

	case engineReadyMsg:
		m.engine = msg.engine
		m.errText = ""
		if m.state == stateLoading {
			m.state = stateIdle
		}

	case engineErrMsg:
		m.errText = msg.err.Error()

	case transcriptMsg:
		m.transcript = msg.text

	case levelMsg:
		if m.state == stateRecording {
			m.level = m.level*0.6 + msg.level*0.4
			if msg.level > m.peak {
				m.peak = msg.level
			}
			m.duration = time.Since(m.recStart).Seconds()
		}

	case sessionErrMsg:
		if m.session != nil && m.session.State() == session.StateClosed {
			// Fatal before capture got going; back to idle for a retry.
			beep.PlayError()
			m.session = nil
			m.state = stateIdle
		}
		m.errText = msg.err.Error()

	case stoppedMsg:
		m.final = msg.final
		m.state = stateClosed
		return m, tea.Quit

	case silenceTickMsg:
		if m.state == stateRecording && m.session != nil {
			if final, closed := m.session.CheckSilence(time.Time(msg)); closed {
				beep.PlayStop()
				m.final = final
				m.state = stateClosed
				return m, tea.Quit
			}
			m.duration = time.Time(msg).Sub(m.recStart).Seconds()
		}
		return m, silenceTick()
	}
	return m, nil
}

func (m model) toggleRecording() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateRecording:
		return m.stopRecording()
	case stateIdle:
		s, err := session.New(session.Config{
			Audio:          m.cfg.Audio,
			Device:         m.cfg.Device,
			Transcriber:    m.engine,
			Notifier:       m.notify,
			SilenceTimeout: m.cfg.SilenceTimeout,
		})
		if err != nil {
			m.errText = err.Error()
			return m, nil
		}
		if err := s.Start(); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		beep.PlayStart()
		m.session = s
		m.state = stateRecording
		m.recStart = time.Now()
		m.duration = 0
		m.level = 0
		m.peak = 0
		m.transcript = ""
		m.errText = ""
	}
	return m, nil
}

// stopRecording hands the blocking Stop to a command so the event loop
// keeps rendering while the capture goroutine drains.
func (m model) stopRecording() (tea.Model, tea.Cmd) {
	s := m.session
	m.state = stateClosed
	return m, func() tea.Msg {
		final, _ := s.Stop()
		beep.PlayStop()
		return stoppedMsg{final}
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	recStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	standbyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	meterOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	meterOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
)

const meterWidth = 30

func (m model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Listen") + "\n\n")

	switch m.state {
	case stateLoading:
		b.WriteString(standbyStyle.Render("⏳ loading model...") + "\n")
	case stateRecording:
		b.WriteString(recStyle.Render(fmt.Sprintf("● REC %.1fs", m.duration)) + "\n")
	default:
		b.WriteString(standbyStyle.Render("○ STANDBY") + "\n")
	}

	b.WriteString(renderMeter(m.level) + "\n\n")

	b.WriteString(faintStyle.Render("Transcript") + "\n")
	wrapWidth := width - 2
	if wrapWidth > 76 {
		wrapWidth = 76
	}
	for _, line := range wrapText(m.transcript, wrapWidth) {
		b.WriteString(textStyle.Render(line) + "\n")
	}

	if m.errText != "" {
		b.WriteString("\n" + warnStyle.Render("⚠ "+m.errText) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("space record/stop · q quit") + "\n")
	return b.String()
}

func renderMeter(level float64) string {
	filled := int(math.Min(level*8, 1) * meterWidth)
	return meterOnStyle.Render(strings.Repeat("█", filled)) +
		meterOffStyle.Render(strings.Repeat("░", meterWidth-filled))
}

// wrapText greedily wraps on spaces using display width, so wide runes
// do not overflow the panel.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if lipgloss.Width(line)+1+lipgloss.Width(w) <= width {
			line += " " + w
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}
