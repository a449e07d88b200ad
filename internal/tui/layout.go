package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/adalan/internal/model"
)

const (
	errorLogMinWidth = 20
	maxErrorLines    = 8
)

func (m *Model) renderQuestion() string {
	cfg := m.session.Config()
	total := cfg.TotalQuestions
	header := fmt.Sprintf("Question %d of %d", total-m.remaining+1, total)
	timer := fmt.Sprintf("Time %ds", m.countdown)
	timerStyle := textStyle
	if m.countdown <= 2 {
		timerStyle = wrongStyle
	}
	lines := []string{
		titleStyle.Render(header) + "   " + timerStyle.Render(timer),
		"",
		renderProblem(m.problem, cfg.Orientation, m.input.View()),
		"",
	}
	switch m.feedback {
	case feedbackCorrect:
		lines = append(lines, correctStyle.Render("Correct Answer !!!"))
	case feedbackWrong:
		lines = append(lines, wrongStyle.Render("Wrong Answer !!!"))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, "", mutedStyle.Render(fmt.Sprintf(
		"Remaining %d  ·  Correct %d  ·  Failed %d  ·  Completed %d%%",
		m.remaining, m.correct, m.failed, m.percent)))
	if len(m.errorLog) > 0 {
		lines = append(lines, "", mutedStyle.Render("Errors"))
		for _, l := range errorLogLines(m.errorLog, m.contentWidth(), maxErrorLines) {
			lines = append(lines, wrongStyle.UnsetBold().Render(l))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 0
	}
	return max(errorLogMinWidth, int(float64(m.width)*0.70))
}

// renderProblem lays the problem out on one line or stacked in columns.
func renderProblem(p model.Problem, orientation model.Orientation, answer string) string {
	if orientation == model.Vertical {
		return strings.Join(append(verticalLines(p), answer), "\n")
	}
	return horizontalText(p) + " = " + answer
}

func horizontalText(p model.Problem) string {
	switch p.Operator {
	case model.OpSquare:
		return strconv.Itoa(p.B) + "²"
	case model.OpCube:
		return strconv.Itoa(p.B) + "³"
	case model.OpSquareRoot:
		return "√" + strconv.Itoa(p.A)
	default:
		return fmt.Sprintf("%d %s %d", p.A, p.Operator.Symbol(), p.B)
	}
}

// verticalLines stacks the operands right-aligned over a rule.
func verticalLines(p model.Problem) []string {
	var rows []string
	switch p.Operator {
	case model.OpSquare, model.OpCube, model.OpSquareRoot:
		rows = []string{horizontalText(p)}
	default:
		a := strconv.Itoa(p.A)
		b := p.Operator.Symbol() + " " + strconv.Itoa(p.B)
		rows = []string{a, b}
	}
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r))
	}
	out := make([]string, 0, len(rows)+1)
	for _, r := range rows {
		out = append(out, runewidth.FillLeft(r, width))
	}
	return append(out, strings.Repeat("─", width))
}

// errorLogLines wraps each entry to width with a hanging indent and keeps
// the newest maxLines lines.
func errorLogLines(entries []string, width, maxLines int) []string {
	var lines []string
	for _, e := range entries {
		lines = append(lines, wrapText(e, width, "  ")...)
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}

// wrapText breaks s at spaces so no line exceeds width display columns.
// Words wider than width are kept whole. Continuation lines start with indent.
func wrapText(s string, width int, indent string) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	indentWidth := runewidth.StringWidth(indent)
	var lines []string
	line, lineWidth, empty := "", 0, true
	for _, word := range strings.Split(s, " ") {
		ww := runewidth.StringWidth(word)
		if !empty && lineWidth+1+ww > width {
			lines = append(lines, strings.TrimRight(line, " "))
			line, lineWidth, empty = indent, indentWidth, true
		}
		if !empty {
			line += " "
			lineWidth++
		}
		line += word
		lineWidth += ww
		empty = false
	}
	return append(lines, line)
}
