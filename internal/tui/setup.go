package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/quiz"
)

type fieldKind int

const (
	fieldOperator fieldKind = iota
	fieldUpperBound
	fieldQuestions
	fieldTimeLimit
	fieldOrientation
	fieldChart
	fieldFocusWeak
)

type setupField struct {
	kind fieldKind
	op   model.Operator
}

const bigStep = 10

var setupFields = buildSetupFields()

func buildSetupFields() []setupField {
	fields := make([]setupField, 0, len(model.AllOperators)+6)
	for _, op := range model.AllOperators {
		fields = append(fields, setupField{kind: fieldOperator, op: op})
	}
	for _, kind := range []fieldKind{fieldUpperBound, fieldQuestions, fieldTimeLimit, fieldOrientation, fieldChart, fieldFocusWeak} {
		fields = append(fields, setupField{kind: kind})
	}
	return fields
}

func (m *Model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "enter":
		return m, m.startRun()
	case "up", "k":
		m.setupCursor = (m.setupCursor - 1 + len(setupFields)) % len(setupFields)
	case "down", "j", "tab":
		m.setupCursor = (m.setupCursor + 1) % len(setupFields)
	case " ", "x":
		m.adjustField(setupFields[m.setupCursor], 1, true)
	case "left", "h", "-":
		m.adjustField(setupFields[m.setupCursor], -1, false)
	case "right", "l", "+", "=":
		m.adjustField(setupFields[m.setupCursor], 1, false)
	case "pgdown":
		m.adjustField(setupFields[m.setupCursor], -bigStep, false)
	case "pgup":
		m.adjustField(setupFields[m.setupCursor], bigStep, false)
	}
	return m, nil
}

// adjustField applies one edit. Numbers move by delta and clamp to their
// limits; toggles and choices flip regardless of delta.
func (m *Model) adjustField(f setupField, delta int, toggle bool) {
	cfg := m.session.Config()
	var ev quiz.Event
	switch f.kind {
	case fieldOperator:
		ev = quiz.ToggleOperator(f.op, !cfg.HasOperator(f.op))
	case fieldUpperBound:
		if toggle {
			return
		}
		ev = quiz.SetInt(quiz.FieldUpperBound, clamp(cfg.UpperBound+delta, 0, quiz.MaxUpperBound))
	case fieldQuestions:
		if toggle {
			return
		}
		ev = quiz.SetInt(quiz.FieldTotalQuestions, clamp(cfg.TotalQuestions+delta, quiz.MinQuestions, quiz.MaxQuestions))
	case fieldTimeLimit:
		if toggle {
			return
		}
		ev = quiz.SetInt(quiz.FieldTimeLimit, clamp(cfg.TimeLimit+delta, quiz.MinTimeLimit, quiz.MaxTimeLimit))
	case fieldOrientation:
		next := model.Vertical
		if cfg.Orientation == model.Vertical {
			next = model.Horizontal
		}
		ev = quiz.SetOrientation(next)
	case fieldChart:
		next := model.ChartPie
		if cfg.Chart == model.ChartPie {
			next = model.ChartBar
		}
		ev = quiz.SetChart(next)
	case fieldFocusWeak:
		ev = quiz.SetFocusWeak(!cfg.FocusWeak)
	}
	if err := m.session.Handle(ev); err != nil {
		m.notice = err.Error()
		return
	}
	updated := m.session.Config()
	m.remaining = updated.TotalQuestions
	if f.kind == fieldFocusWeak && updated.FocusWeak {
		m.refreshWeakSet()
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func (m *Model) renderSetup() string {
	cfg := m.session.Config()
	lines := []string{titleStyle.Render("Adalan"), mutedStyle.Render("Operators")}
	for i, f := range setupFields {
		if i == len(model.AllOperators) {
			lines = append(lines, "", mutedStyle.Render("Settings"))
		}
		line := m.setupLine(cfg, f)
		if i == m.setupCursor {
			lines = append(lines, accentStyle.Render("› "+line))
		} else {
			lines = append(lines, textStyle.Render("  "+line))
		}
	}
	lines = append(lines, "", mutedStyle.Render("Press enter to start"))
	return strings.Join(lines, "\n")
}

func (m *Model) setupLine(cfg model.QuizConfig, f setupField) string {
	switch f.kind {
	case fieldOperator:
		return fmt.Sprintf("%s %-15s %s", checkbox(cfg.HasOperator(f.op)), f.op.Label(), f.op.Symbol())
	case fieldUpperBound:
		return fmt.Sprintf("%-13s 0..%d", "Range", cfg.UpperBound)
	case fieldQuestions:
		return fmt.Sprintf("%-13s %d", "Questions", cfg.TotalQuestions)
	case fieldTimeLimit:
		return fmt.Sprintf("%-13s %ds", "Time limit", cfg.TimeLimit)
	case fieldOrientation:
		return fmt.Sprintf("%-13s %s", "Layout", cfg.Orientation)
	case fieldChart:
		return fmt.Sprintf("%-13s %s", "Chart", cfg.Chart)
	case fieldFocusWeak:
		return fmt.Sprintf("%-13s %s", "Focus weak", checkbox(cfg.FocusWeak))
	default:
		return ""
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
