// Package tui provides the Bubble Tea keypad front end.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pocket-calculator/internal/engine"
)

type keyMap struct {
	Evaluate key.Binding
	Clear    key.Binding
	Sign     key.Binding
	Sqrt     key.Binding
	Log      key.Binding
	History  key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Evaluate, k.Clear, k.Sign, k.Sqrt, k.Log, k.History, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Evaluate: key.NewBinding(key.WithKeys("enter", "="), key.WithHelp("=", "evaluate")),
		Clear:    key.NewBinding(key.WithKeys("esc", "c"), key.WithHelp("c", "clear")),
		Sign:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "±")),
		Sqrt:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "√")),
		Log:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log")),
		History:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

var (
	displayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8DC9CF")).
			Padding(0, 1).
			Align(lipgloss.Right).
			Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	historyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DFF1BA"))
)

const displayWidth = 28

// Model implements the Bubble Tea calculator UI over one engine session.
type Model struct {
	calc        *engine.Session
	keys        keyMap
	help        help.Model
	status      string
	showHistory bool
	width       int
}

// NewModel wraps calc in a keypad UI.
func NewModel(calc *engine.Session) *Model {
	return &Model{
		calc: calc,
		keys: defaultKeyMap(),
		help: help.New(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Evaluate):
		m.evaluate()
		return nil
	case key.Matches(msg, m.keys.Clear):
		m.calc.OnClear()
		m.status = ""
		return nil
	case key.Matches(msg, m.keys.Sign):
		m.calc.OnOperand(engine.SignToggle)
		return nil
	case key.Matches(msg, m.keys.Sqrt):
		m.calc.OnOperand("√")
		return nil
	case key.Matches(msg, m.keys.Log):
		m.calc.OnOperand("log")
		return nil
	case key.Matches(msg, m.keys.History):
		m.showHistory = !m.showHistory
		return nil
	}

	if msg.Type != tea.KeyRunes {
		return nil
	}
	for _, r := range msg.Runes {
		ev, err := engine.ParseKey(string(r))
		if err != nil {
			continue
		}
		if ev.Kind == engine.EventEvaluate {
			m.evaluate()
			continue
		}
		m.calc.Apply(ev)
	}
	return nil
}

func (m *Model) evaluate() {
	res := m.calc.Evaluate()
	switch res.State {
	case engine.StateOK:
		m.status = res.Input + " ="
	case engine.StateNonFinite:
		m.status = res.Input + " = (not finite)"
	default:
		m.status = res.Err.Error()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	display := m.calc.Buffer()
	style := displayStyle.Width(displayWidth)
	if display == engine.ErrorText || display == engine.ParseErrorText {
		style = style.Foreground(lipgloss.Color("#FF4D4F"))
	}
	b.WriteString(style.Render(display))
	b.WriteString("\n")

	if m.status != "" {
		res, ok := m.calc.LastResult()
		if ok && res.Err != nil {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(statusStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	if m.showHistory {
		b.WriteString(m.renderHistory())
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHistory() string {
	entries := m.calc.History().Entries()
	if len(entries) == 0 {
		return statusStyle.Render("no history yet") + "\n"
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(historyStyle.Render(fmt.Sprintf("%s = %s", e.Input, engine.FormatResult(engine.Round(e.Result)))))
		b.WriteString("\n")
	}
	return b.String()
}
