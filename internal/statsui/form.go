package statsui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/adalan/internal/model"
)

const dateLayout = "2006-01-02"

const (
	fieldOperator = iota
	fieldSince
	fieldLast
	fieldWindow
)

var fieldPrompts = []string{
	fieldOperator: "Operator: ",
	fieldSince:    "Since (YYYY-MM-DD): ",
	fieldLast:     "Last: ",
	fieldWindow:   "Curve window: ",
}

// settingsForm edits the history filter in place of the tab body.
type settingsForm struct {
	open   bool
	fields []textinput.Model
	focus  int
	err    string
}

func newSettingsForm() settingsForm {
	f := settingsForm{fields: make([]textinput.Model, len(fieldPrompts))}
	for i, prompt := range fieldPrompts {
		in := textinput.New()
		in.Prompt = prompt
		in.Cursor.SetMode(cursor.CursorBlink)
		f.fields[i] = in
	}
	return f
}

// show loads cfg into the fields and focuses the first one.
func (f *settingsForm) show(cfg model.StatsConfig) tea.Cmd {
	f.open = true
	f.err = ""
	f.fields[fieldOperator].SetValue(string(cfg.Operator))
	f.fields[fieldSince].SetValue(formatSince(cfg.Since, ""))
	f.fields[fieldLast].SetValue(formatLast(cfg.Last, ""))
	f.fields[fieldWindow].SetValue(strconv.Itoa(cfg.CurveWindow))
	return f.focusField(0)
}

func (f *settingsForm) hide() {
	f.open = false
	f.err = ""
}

// update returns the parsed config once the form is submitted.
func (f *settingsForm) update(msg tea.KeyMsg) (*model.StatsConfig, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		f.hide()
		return nil, nil
	case tea.KeyEnter:
		cfg, err := parseFilter(
			f.fields[fieldOperator].Value(),
			f.fields[fieldSince].Value(),
			f.fields[fieldLast].Value(),
			f.fields[fieldWindow].Value(),
		)
		if err != nil {
			f.err = err.Error()
			return nil, nil
		}
		f.hide()
		return &cfg, nil
	case tea.KeyTab, tea.KeyDown:
		return nil, f.focusField(f.focus + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return nil, f.focusField(f.focus - 1)
	}
	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return nil, cmd
}

func (f *settingsForm) focusField(idx int) tea.Cmd {
	n := len(f.fields)
	f.focus = (idx%n + n) % n
	var cmd tea.Cmd
	for i := range f.fields {
		if i != f.focus {
			f.fields[i].Blur()
			continue
		}
		cmd = f.fields[i].Focus()
	}
	return cmd
}

func (f *settingsForm) resize(width int) {
	for i := range f.fields {
		f.fields[i].Width = max(10, width-lipgloss.Width(f.fields[i].Prompt)-2)
	}
}

func (f *settingsForm) view() string {
	var b strings.Builder
	b.WriteString("Settings (enter to apply, esc to cancel)")
	for _, in := range f.fields {
		b.WriteString("\n")
		b.WriteString(in.View())
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(f.err))
	}
	return b.String()
}

// parseFilter validates the settings form.
func parseFilter(opInput, sinceInput, lastInput, windowInput string) (model.StatsConfig, error) {
	cfg := model.StatsConfig{CurveWindow: 1}
	if raw := strings.TrimSpace(opInput); raw != "" {
		op, ok := model.ParseOperator(raw)
		if !ok {
			return cfg, fmt.Errorf("unknown operator %q", raw)
		}
		cfg.Operator = op
	}
	if raw := strings.TrimSpace(sinceInput); raw != "" {
		since, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Since = &since
	}
	if raw := strings.TrimSpace(lastInput); raw != "" {
		last, err := strconv.Atoi(raw)
		if err != nil || last < 0 {
			return cfg, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		cfg.Last = last
	}
	if raw := strings.TrimSpace(windowInput); raw != "" {
		window, err := strconv.Atoi(raw)
		if err != nil || window < 1 {
			return cfg, fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		cfg.CurveWindow = window
	}
	return cfg, nil
}

func formatSince(since *time.Time, empty string) string {
	if since == nil {
		return empty
	}
	return since.Format(dateLayout)
}

func formatLast(last int, empty string) string {
	if last <= 0 {
		return empty
	}
	return strconv.Itoa(last)
}

// Curve windows step in multiples of five.
func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	switch {
	case n <= 5:
		return 1
	case n%5 == 0:
		return n - 5
	default:
		return n / 5 * 5
	}
}
