package quiz

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/adalan/internal/model"
)

type counters struct {
	remaining, correct, failed, percent int
}

type recordingDisplay struct {
	problems   []model.Problem
	countdowns []int
	feedback   []bool
	counters   []counters
	errorLines []string
	clears     int
	summaries  []model.RunSummary
	locked     []bool
}

func (d *recordingDisplay) ShowProblem(p model.Problem) { d.problems = append(d.problems, p) }
func (d *recordingDisplay) ShowCountdown(s int)         { d.countdowns = append(d.countdowns, s) }
func (d *recordingDisplay) ShowFeedback(ok bool)        { d.feedback = append(d.feedback, ok) }
func (d *recordingDisplay) ShowCounters(r, c, f, p int) {
	d.counters = append(d.counters, counters{r, c, f, p})
}
func (d *recordingDisplay) AppendErrorLine(line string) { d.errorLines = append(d.errorLines, line) }
func (d *recordingDisplay) ClearErrorLog()              { d.clears++ }
func (d *recordingDisplay) ShowSummary(s model.RunSummary) {
	d.summaries = append(d.summaries, s)
}
func (d *recordingDisplay) SetConfigLocked(locked bool) { d.locked = append(d.locked, locked) }

type countingClock struct{ armed int }

func (c *countingClock) Arm() { c.armed++ }

func scripted(problems ...model.Problem) ProblemSource {
	i := 0
	return func(model.QuizConfig) model.Problem {
		p := problems[i%len(problems)]
		i++
		return p
	}
}

func newTestSession(t *testing.T, cfg model.QuizConfig, problems ...model.Problem) (*Session, *recordingDisplay, *countingClock) {
	t.Helper()
	d := &recordingDisplay{}
	c := &countingClock{}
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s, err := NewSession(cfg, d, c,
		WithProblemSource(scripted(problems...)),
		WithNow(func() time.Time { return fixed }),
		WithIDFunc(func() string { return "run-1" }),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, d, c
}

func testConfig(total int) model.QuizConfig {
	cfg := DefaultConfig()
	cfg.TotalQuestions = total
	return cfg
}

var twoPlusTwo = model.Problem{Operator: model.OpAdd, A: 2, B: 2}

func TestStartWithoutOperatorFails(t *testing.T) {
	cfg := testConfig(3)
	cfg.Operators = nil
	s, d, c := newTestSession(t, cfg, twoPlusTwo)
	if err := s.Start(); !errors.Is(err, ErrNoOperator) {
		t.Fatalf("expected ErrNoOperator, got %v", err)
	}
	if s.Running() || s.Awaiting() || len(d.problems) != 0 || len(d.locked) != 0 || c.armed != 0 {
		t.Fatalf("expected no state change")
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %s", s.State())
	}
}

func TestStartLocksConfigAndShowsProblem(t *testing.T) {
	s, d, c := newTestSession(t, testConfig(3), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Awaiting() || s.State() != StateAwaitingAnswer {
		t.Fatalf("expected awaiting answer")
	}
	if len(d.locked) != 1 || !d.locked[0] {
		t.Fatalf("expected config locked, got %v", d.locked)
	}
	if len(d.problems) != 1 || d.problems[0] != twoPlusTwo {
		t.Fatalf("unexpected problems %v", d.problems)
	}
	if c.armed != 1 {
		t.Fatalf("expected clock armed once, got %d", c.armed)
	}
	if s.Countdown() != DefaultTimeLimit {
		t.Fatalf("expected countdown %d, got %d", DefaultTimeLimit, s.Countdown())
	}
	if err := s.Start(); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := s.Handle(SetInt(FieldTotalQuestions, 5)); !errors.Is(err, ErrConfigLocked) {
		t.Fatalf("expected ErrConfigLocked, got %v", err)
	}
}

func TestSubmitCorrectAnswer(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(3), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Submit("4"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.Correct() != 1 || s.Incorrect() != 0 {
		t.Fatalf("unexpected tallies %d/%d", s.Correct(), s.Incorrect())
	}
	if len(d.feedback) != 1 || !d.feedback[0] {
		t.Fatalf("expected pass feedback, got %v", d.feedback)
	}
	if len(d.errorLines) != 0 {
		t.Fatalf("expected no error lines")
	}
	want := counters{remaining: 2, correct: 1, failed: 0, percent: 33}
	if got := d.counters[len(d.counters)-1]; got != want {
		t.Fatalf("unexpected counters %+v", got)
	}
}

func TestSubmitWrongAnswerLogsError(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(3), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Submit("5"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.Incorrect() != 1 {
		t.Fatalf("expected one failure")
	}
	if len(d.errorLines) != 1 || !strings.Contains(d.errorLines[0], "2 + 2 = 4  You entered: 5") {
		t.Fatalf("unexpected error lines %q", d.errorLines)
	}
	if !strings.HasPrefix(d.errorLines[0], "(Q-3) ") {
		t.Fatalf("expected remaining-count prefix, got %q", d.errorLines[0])
	}
	if len(d.feedback) != 1 || d.feedback[0] {
		t.Fatalf("expected fail feedback")
	}
	if log := s.ErrorLog(); len(log) != 1 {
		t.Fatalf("expected session error log entry, got %v", log)
	}
}

func TestErrorLinesCountDown(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(3), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, raw := range []string{"5", "4", "6"} {
		if err := s.Submit(raw); err != nil {
			t.Fatalf("submit %q: %v", raw, err)
		}
	}
	want := []string{
		"(Q-3) 2 + 2 = 4  You entered: 5",
		"(Q-1) 2 + 2 = 4  You entered: 6",
	}
	if len(d.errorLines) != len(want) {
		t.Fatalf("unexpected error lines %q", d.errorLines)
	}
	for i, line := range want {
		if d.errorLines[i] != line {
			t.Fatalf("line %d: expected %q, got %q", i, line, d.errorLines[i])
		}
	}
	answers := d.summaries[0].Answers
	for i, remaining := range []int{3, 2, 1} {
		if answers[i].Remaining != remaining || answers[i].Index != i+1 {
			t.Fatalf("answer %d: unexpected label %+v", i, answers[i])
		}
	}
}

func TestBlankSquareRootShowsZero(t *testing.T) {
	cfg := testConfig(2)
	cfg.TimeLimit = 1
	s, d, _ := newTestSession(t, cfg, model.Problem{Operator: model.OpSquareRoot, A: 2})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Submit(" "); err != nil {
		t.Fatalf("submit blank: %v", err)
	}
	s.Tick()
	want := []string{
		"(Q-2) √2 = 1.41  You entered: 0",
		"(Q-1) √2 = 1.41  You entered: 0",
	}
	if len(d.errorLines) != len(want) || d.errorLines[0] != want[0] || d.errorLines[1] != want[1] {
		t.Fatalf("expected blank entries shown as 0, got %q", d.errorLines)
	}
	answers := d.summaries[0].Answers
	if !answers[0].Blank || !answers[1].Blank || !answers[1].TimedOut || answers[0].TimedOut {
		t.Fatalf("unexpected blank flags %+v", answers)
	}
}

func TestSubmitInvalidInputChangesNothing(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(3), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Submit("4.5"); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}
	if !s.Awaiting() || s.Remaining() != 3 || len(d.feedback) != 0 {
		t.Fatalf("expected no state change after invalid input")
	}
}

func TestSubmitWhileNotAwaitingIsIgnored(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(2), twoPlusTwo)
	if err := s.Submit("4"); err != nil {
		t.Fatalf("submit idle: %v", err)
	}
	if s.Correct() != 0 || s.Remaining() != 2 || len(d.feedback) != 0 {
		t.Fatalf("idle submit must not count")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Submit("4"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Submit("4"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Run over: further submissions are ignored.
	if err := s.Submit("4"); err != nil {
		t.Fatalf("submit after run: %v", err)
	}
	if len(d.summaries) != 1 || d.summaries[0].Correct != 2 {
		t.Fatalf("expected a single summary with 2 correct, got %+v", d.summaries)
	}
	if len(d.feedback) != 2 {
		t.Fatalf("expected 2 gradings, got %d", len(d.feedback))
	}
}

func TestTimeoutGradesEmptyAnswer(t *testing.T) {
	cfg := testConfig(2)
	cfg.TimeLimit = 3
	s, d, c := newTestSession(t, cfg, twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Tick()
	s.Tick()
	if s.Countdown() != 1 || s.Remaining() != 2 {
		t.Fatalf("expected countdown 1 before timeout, got %d", s.Countdown())
	}
	s.Tick()
	if s.Remaining() != 1 || s.Incorrect() != 1 {
		t.Fatalf("expected timeout to grade a failure, remaining=%d incorrect=%d", s.Remaining(), s.Incorrect())
	}
	if !strings.Contains(d.errorLines[0], "You entered: 0") {
		t.Fatalf("expected zero answer in error line, got %q", d.errorLines[0])
	}
	if !containsInt(d.countdowns, 0) {
		t.Fatalf("expected countdown 0 shown, got %v", d.countdowns)
	}
	if times := s.ResponseTimes(); len(times) != 1 || times[0] != 3 {
		t.Fatalf("expected full time limit as response time, got %v", times)
	}
	if c.armed != 2 || !s.Awaiting() || s.Countdown() != 3 {
		t.Fatalf("expected next question armed with fresh countdown")
	}
}

func TestTimeoutAnswerZeroCanPass(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig(1), model.Problem{Operator: model.OpSubtract, A: 4, B: 4})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < DefaultTimeLimit; i++ {
		s.Tick()
	}
	if s.State() != StateSummaryReady {
		t.Fatalf("expected summary ready, got %s", s.State())
	}
}

func TestTickIgnoredWhenIdle(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(2), twoPlusTwo)
	s.Tick()
	if len(d.countdowns) != 0 || s.Countdown() != 0 {
		t.Fatalf("idle tick must do nothing")
	}
}

func TestResponseTimeUsesCountdown(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig(3), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Tick()
	s.Tick()
	if err := s.Submit("4"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Submit("4"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	times := s.ResponseTimes()
	indices := s.QuestionIndices()
	if len(times) != 2 || times[0] != 2 || times[1] != 0 {
		t.Fatalf("unexpected response times %v", times)
	}
	if len(indices) != 2 || indices[0] != 1 || indices[1] != 2 {
		t.Fatalf("unexpected indices %v", indices)
	}
}

func TestRunCompletesAfterTotalGradings(t *testing.T) {
	const total = 4
	s, d, _ := newTestSession(t, testConfig(total), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	answers := []string{"4", "5", "4", ""}
	for i, a := range answers {
		before := s.Remaining()
		if err := s.Submit(a); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if i < total-1 {
			if s.Remaining() != before-1 {
				t.Fatalf("remaining must drop by one: %d -> %d", before, s.Remaining())
			}
			if s.Correct()+s.Incorrect() != total-s.Remaining() {
				t.Fatalf("tally invariant broken")
			}
			if len(d.summaries) != 0 {
				t.Fatalf("run ended early")
			}
		}
	}
	if len(d.summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(d.summaries))
	}
	sum := d.summaries[0]
	if sum.Total != total || sum.Correct != 2 || sum.Incorrect != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(sum.ResponseTimes) != total || len(sum.QuestionIndices) != total || len(sum.Answers) != total {
		t.Fatalf("expected %d response entries, got %+v", total, sum)
	}
	if sum.ID != "run-1" || sum.EndedAt.IsZero() {
		t.Fatalf("expected id and timestamp on summary")
	}
	if s.Remaining() != total || s.Correct() != 0 || s.Incorrect() != 0 {
		t.Fatalf("expected counters reset for next run")
	}
	if d.clears != 1 || len(s.ErrorLog()) != 0 {
		t.Fatalf("expected error log cleared")
	}
	if got := d.locked[len(d.locked)-1]; got {
		t.Fatalf("expected config unlocked")
	}
	if got := d.counters[len(d.counters)-1]; got != (counters{remaining: total}) {
		t.Fatalf("expected reset counters, got %+v", got)
	}
	if s.State() != StateSummaryReady {
		t.Fatalf("expected summary ready")
	}
	if len(s.ResponseTimes()) != total {
		t.Fatalf("response times kept until summary dismissed")
	}
	if err := s.Handle(DismissSummary()); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if len(s.ResponseTimes()) != 0 || len(s.QuestionIndices()) != 0 || s.State() != StateIdle {
		t.Fatalf("expected history cleared after dismissal")
	}
	if len(sum.ResponseTimes) != total {
		t.Fatalf("summary must not be affected by dismissal")
	}
}

func TestCompletionPercentTruncates(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(3), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = s.Submit("4")
	_ = s.Submit("4")
	if got := d.counters[len(d.counters)-1].percent; got != 66 {
		t.Fatalf("expected 66%%, got %d", got)
	}
}

func TestStartAfterSummaryDismissesImplicitly(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig(1), twoPlusTwo)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = s.Submit("4")
	if err := s.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(s.ResponseTimes()) != 0 {
		t.Fatalf("expected previous history cleared on restart")
	}
}

func TestConfigChangeEvents(t *testing.T) {
	s, _, _ := newTestSession(t, testConfig(3), twoPlusTwo)
	events := []Event{
		SetInt(FieldUpperBound, 20),
		SetInt(FieldTotalQuestions, 7),
		SetInt(FieldTimeLimit, 9),
		ToggleOperator(model.OpDivide, true),
		ToggleOperator(model.OpAdd, false),
		SetOrientation(model.Vertical),
		SetChart(model.ChartPie),
		SetFocusWeak(true),
	}
	for _, ev := range events {
		if err := s.Handle(ev); err != nil {
			t.Fatalf("handle %+v: %v", ev, err)
		}
	}
	cfg := s.Config()
	if cfg.UpperBound != 20 || cfg.TotalQuestions != 7 || cfg.TimeLimit != 9 {
		t.Fatalf("unexpected numeric config %+v", cfg)
	}
	if len(cfg.Operators) != 1 || cfg.Operators[0] != model.OpDivide {
		t.Fatalf("unexpected operators %v", cfg.Operators)
	}
	if cfg.Orientation != model.Vertical || cfg.Chart != model.ChartPie || !cfg.FocusWeak {
		t.Fatalf("unexpected presentation config %+v", cfg)
	}
	if s.Remaining() != 7 {
		t.Fatalf("expected remaining to follow total, got %d", s.Remaining())
	}
	if err := s.Handle(SetInt(FieldTotalQuestions, 0)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if err := s.Handle(SetInt(FieldUpperBound, 101)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if s.Config().TotalQuestions != 7 {
		t.Fatalf("rejected change must not apply")
	}
}

func TestHandleDispatchesRunEvents(t *testing.T) {
	s, d, _ := newTestSession(t, testConfig(1), twoPlusTwo)
	if err := s.Handle(Start()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Handle(Tick()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := s.Handle(Submit("4")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(d.summaries) != 1 || d.summaries[0].ResponseTimes[0] != 1 {
		t.Fatalf("unexpected summary %+v", d.summaries)
	}
}

func TestNewSessionValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeLimit = 0
	if _, err := NewSession(cfg, &recordingDisplay{}, &countingClock{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
