// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/chrizzleybear/piano-midi-practice/internal/engine"
	"github.com/chrizzleybear/piano-midi-practice/internal/midiin"
	"github.com/chrizzleybear/piano-midi-practice/internal/model"
	"github.com/chrizzleybear/piano-midi-practice/internal/stats"
)

// tickInterval is the cooperative deadline-check cadence. Hints may land
// up to one interval late.
const tickInterval = 250 * time.Millisecond

const feedbackLines = 8

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	scaleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	echoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	correctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	wrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	waitingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
	escapedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Italic(true)
	positionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
)

type keyMap struct {
	Help key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type (
	noteMsg engine.NoteEvent
	connMsg midiin.Connection
	tickMsg time.Time
)

// Model implements the Bubble Tea practice UI. It owns the consumer loop:
// note events, deadline ticks, and connectivity changes are serialized
// through Update, which keeps the engine single-threaded.
type Model struct {
	cfg     model.Config
	session *engine.Session
	agg     *stats.Aggregator
	events  <-chan engine.NoteEvent
	conns   <-chan midiin.Connection
	log     *zap.Logger

	width  int
	height int

	connected bool
	device    string
	started   bool

	round     engine.Round
	haveRound bool
	echoes    []string
	feedback  []string

	keys keyMap
	help help.Model
}

// NewModel constructs a practice TUI model.
func NewModel(cfg model.Config, session *engine.Session, agg *stats.Aggregator, events <-chan engine.NoteEvent, conns <-chan midiin.Connection, log *zap.Logger) *Model {
	return &Model{
		cfg:     cfg,
		session: session,
		agg:     agg,
		events:  events,
		conns:   conns,
		log:     log,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitNote(), m.waitConn(), tickCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil
	case noteMsg:
		if m.started && m.connected {
			m.apply(m.session.Submit(engine.NoteEvent(msg)))
		}
		return m, m.waitNote()
	case connMsg:
		m.connected = msg.Connected
		m.device = msg.Device
		if m.connected && !m.started {
			m.started = true
			m.apply(m.session.Start(time.Now()))
		}
		return m, m.waitConn()
	case tickMsg:
		// Deadlines pause with the device: no hints while disconnected.
		if m.started && m.connected {
			m.apply(m.session.Tick(time.Time(msg)))
		}
		return m, tickCmd()
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	var content string
	if !m.connected {
		content = waitingStyle.Render("Waiting for MIDI device...")
		if m.device != "" {
			content += "\n" + scaleStyle.Render(fmt.Sprintf("last device: %s", m.device))
		}
	} else {
		content = m.renderSession()
	}
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, lipgloss.Height(footer), lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderSession() string {
	var b strings.Builder
	title := "Scale Degree Practice"
	if m.cfg.Practice == model.PracticeMode {
		title = "Mode Practice"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	if m.haveRound {
		b.WriteString(promptStyle.Render(m.round.Prompt))
		b.WriteString("\n")
		if !m.round.RevealEach() {
			b.WriteString(scaleStyle.Render("Scale: " + scaleNames(m.round)))
			b.WriteString("\n")
		}
		if len(m.echoes) > 0 {
			b.WriteString(echoStyle.Render("Played: ") + positionStyle.Render(strings.Join(m.echoes, " ")))
			b.WriteString("\n")
		}
	}
	if len(m.feedback) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(m.feedback, "\n"))
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	snap := m.agg.Snapshot()
	parts := []string{
		fmt.Sprintf("Rounds %d", snap.Attempted),
		fmt.Sprintf("Correct %d", snap.Correct),
	}
	if snap.Attempted > 0 {
		parts = append(parts, fmt.Sprintf("Accuracy %.1f%%", snap.Accuracy()*100))
	}
	if m.device != "" && m.connected {
		parts = append(parts, m.device)
	}
	line := footerStyle.Render(strings.Join(parts, "  "))
	return line + "\n" + m.help.View(m.keys)
}

// apply folds engine display events into the view state.
func (m *Model) apply(events []engine.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case engine.EventPrompt:
			m.round = ev.Round
			m.haveRound = true
			m.echoes = nil
		case engine.EventEcho:
			if m.round.RevealEach() {
				m.echoes = append(m.echoes, ev.Observed.NameIn(m.round.Flats))
			} else {
				// Scale rounds withhold verdicts; echo position numbers.
				m.echoes = append(m.echoes, fmt.Sprintf("%d", ev.Position+1))
			}
		case engine.EventVerdict:
			if ev.Correct {
				m.pushFeedback(correctStyle.Render("✓ Correct!"))
			} else {
				m.pushFeedback(wrongStyle.Render(fmt.Sprintf(
					"✗ Wrong note (you played %s, expected %s)",
					ev.Observed.NameIn(m.round.Flats),
					ev.Expected.NameIn(m.round.Flats),
				)))
			}
		case engine.EventHint:
			m.pushFeedback(hintStyle.Render(fmt.Sprintf(
				"⏱ Hint: the note is %s",
				ev.Expected.NameIn(m.round.Flats),
			)))
		case engine.EventRoundComplete:
			m.applyResult(ev.Result)
		}
	}
}

func (m *Model) applyResult(result *engine.RoundResult) {
	if result == nil {
		return
	}
	if !result.Round.RevealEach() {
		for i, p := range result.Positions {
			if p.Verdict == engine.VerdictExcluded {
				continue
			}
			line := fmt.Sprintf("%d. expected %s, played %s",
				i+1,
				p.Expected.NameIn(result.Round.Flats),
				p.Observed.NameIn(result.Round.Flats),
			)
			if p.Verdict == engine.VerdictCorrect {
				m.pushFeedback(correctStyle.Render(line + " ✓"))
			} else {
				m.pushFeedback(wrongStyle.Render(line + " ✗"))
			}
		}
	}
	switch {
	case result.Escaped:
		m.pushFeedback(escapedStyle.Render("Round escaped."))
	case result.Passed && !result.Round.RevealEach():
		m.pushFeedback(correctStyle.Render("✓ Complete! Well done!"))
	case !result.Passed && !result.Round.RevealEach():
		m.pushFeedback(wrongStyle.Render("Not quite. Next one coming up."))
	}
	m.log.Debug("round complete",
		zap.Bool("passed", result.Passed),
		zap.Bool("escaped", result.Escaped),
		zap.Duration("elapsed", result.Elapsed),
	)
}

func (m *Model) pushFeedback(line string) {
	m.feedback = append(m.feedback, line)
	if len(m.feedback) > feedbackLines {
		m.feedback = m.feedback[len(m.feedback)-feedbackLines:]
	}
}

func (m *Model) waitNote() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return noteMsg(ev)
	}
}

func (m *Model) waitConn() tea.Cmd {
	return func() tea.Msg {
		c, ok := <-m.conns
		if !ok {
			return nil
		}
		return connMsg(c)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func scaleNames(round engine.Round) string {
	names := make([]string, len(round.Expected))
	for i, pc := range round.Expected {
		names[i] = pc.NameIn(round.Flats)
	}
	return strings.Join(names, " - ")
}
