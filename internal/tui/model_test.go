package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"pocket-calculator/internal/engine"
)

func typeRunes(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestModelTypesAndEvaluates(t *testing.T) {
	m := NewModel(engine.NewSession(nil))

	typeRunes(m, "3+4*2")
	if got := m.calc.Buffer(); got != "3+4*2" {
		t.Fatalf("expected buffer %q, got %q", "3+4*2", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.calc.Buffer(); got != "11" {
		t.Fatalf("expected buffer %q, got %q", "11", got)
	}
	if !strings.Contains(m.View(), "3+4*2 =") {
		t.Fatalf("expected status line in view:\n%s", m.View())
	}
}

func TestModelFunctionKeys(t *testing.T) {
	m := NewModel(engine.NewSession(nil))

	typeRunes(m, "s9")
	if got := m.calc.Buffer(); got != "√(9" {
		t.Fatalf("expected buffer %q, got %q", "√(9", got)
	}

	typeRunes(m, "n")
	if got := m.calc.Buffer(); got != "-√(9" {
		t.Fatalf("expected buffer %q, got %q", "-√(9", got)
	}

	typeRunes(m, "c")
	if got := m.calc.Buffer(); got != "0" {
		t.Fatalf("expected buffer %q, got %q", "0", got)
	}
}

func TestModelShowsRejection(t *testing.T) {
	m := NewModel(engine.NewSession(nil))

	typeRunes(m, "1++=")
	if got := m.calc.Buffer(); got != engine.ErrorText {
		t.Fatalf("expected buffer %q, got %q", engine.ErrorText, got)
	}
	if !strings.Contains(m.View(), "gate rejected") {
		t.Fatalf("expected rejection reason in view:\n%s", m.View())
	}
}

func TestModelHistoryToggle(t *testing.T) {
	m := NewModel(engine.NewSession(nil))

	typeRunes(m, "2+2=h")
	if !m.showHistory {
		t.Fatal("expected history to be shown")
	}
	if !strings.Contains(m.View(), "2+2 = 4") {
		t.Fatalf("expected history entry in view:\n%s", m.View())
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel(engine.NewSession(nil))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
