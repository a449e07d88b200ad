package tui

import (
	"github.com/verte-zerg/adalan/internal/model"
)

// ShowProblem implements quiz.Display.
func (m *Model) ShowProblem(p model.Problem) {
	m.problem = p
	m.input.Reset()
}

// ShowCountdown implements quiz.Display.
func (m *Model) ShowCountdown(seconds int) {
	m.countdown = seconds
}

// ShowFeedback implements quiz.Display.
func (m *Model) ShowFeedback(correct bool) {
	if correct {
		m.feedback = feedbackCorrect
		return
	}
	m.feedback = feedbackWrong
}

// ShowCounters implements quiz.Display.
func (m *Model) ShowCounters(remaining, correct, failed, percent int) {
	m.remaining = remaining
	m.correct = correct
	m.failed = failed
	m.percent = percent
}

// AppendErrorLine implements quiz.Display.
func (m *Model) AppendErrorLine(line string) {
	m.errorLog = append(m.errorLog, line)
}

// ClearErrorLog implements quiz.Display.
func (m *Model) ClearErrorLog() {
	m.errorLog = nil
}

// ShowSummary implements quiz.Display. The run is persisted before the
// summary screen is shown.
func (m *Model) ShowSummary(summary model.RunSummary) {
	m.summary = &summary
	m.screen = screenSummary
	m.input.Blur()
	m.saveRun(summary)
	if summary.Config.FocusWeak {
		m.refreshWeakSet()
	}
}

// SetConfigLocked implements quiz.Display. A locked config means a run is
// in progress.
func (m *Model) SetConfigLocked(locked bool) {
	if locked {
		m.screen = screenQuestion
		m.feedback = feedbackNone
		return
	}
	m.input.Blur()
	m.screen = screenSetup
}

// Arm implements quiz.Clock. Ticks carrying an older generation are dropped.
func (m *Model) Arm() {
	m.tickGen++
	m.pending = append(m.pending, tickCmd(m.tickGen))
}
