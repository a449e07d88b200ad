// Package quiz implements the per-question quiz state machine.
//
// A Session owns the configuration and run state. It reacts to ticks,
// submissions, configuration edits and start requests, and reports every
// visible change to a Display. It is not safe for concurrent use; the host
// delivers events one at a time.
package quiz

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/adalan/internal/generator"
	"github.com/verte-zerg/adalan/internal/model"
)

// Configuration limits and defaults.
const (
	MaxUpperBound     = 100
	DefaultUpperBound = 50
	MinQuestions      = 1
	MaxQuestions      = 100
	DefaultQuestions  = 10
	MinTimeLimit      = 1
	MaxTimeLimit      = 60
	DefaultTimeLimit  = 5
	DefaultWeakFactor = 2.0
)

// State is the coarse session state.
type State int

// Session states.
const (
	StateIdle State = iota
	StateAwaitingAnswer
	StateSummaryReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateSummaryReady:
		return "summary-ready"
	default:
		return "unknown"
	}
}

// Display receives everything the learner should see.
type Display interface {
	ShowProblem(p model.Problem)
	ShowCountdown(seconds int)
	ShowFeedback(correct bool)
	ShowCounters(remaining, correct, failed, percent int)
	AppendErrorLine(line string)
	ClearErrorLog()
	ShowSummary(summary model.RunSummary)
	SetConfigLocked(locked bool)
}

// Clock is armed whenever a new problem is shown. After Arm the host
// delivers one Tick per second until the problem is graded.
type Clock interface {
	Arm()
}

// ProblemSource produces the next problem for cfg.
type ProblemSource func(cfg model.QuizConfig) model.Problem

// Option customizes a Session.
type Option func(*Session)

// WithProblemSource replaces the default uniform generator.
func WithProblemSource(src ProblemSource) Option {
	return func(s *Session) { s.next = src }
}

// WithNow sets the wall clock used for run timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDFunc sets the run ID generator.
func WithIDFunc(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// Session runs quizzes for a single learner.
type Session struct {
	cfg     model.QuizConfig
	display Display
	clock   Clock
	next    ProblemSource
	now     func() time.Time
	newID   func() string

	running        bool
	summaryPending bool
	awaiting       bool

	problem   model.Problem
	countdown int
	remaining int
	correct   int
	incorrect int
	startedAt time.Time

	responseTimes   []int
	questionIndices []int
	answers         []model.AnswerRecord
	errorLog        []string
}

// DefaultConfig returns the out-of-the-box quiz configuration.
func DefaultConfig() model.QuizConfig {
	return model.QuizConfig{
		UpperBound:     DefaultUpperBound,
		TotalQuestions: DefaultQuestions,
		TimeLimit:      DefaultTimeLimit,
		Operators:      []model.Operator{model.OpAdd},
		Orientation:    model.Horizontal,
		Chart:          model.ChartBar,
		WeakFactor:     DefaultWeakFactor,
	}
}

// ValidateConfig checks ranges. An empty operator set is allowed here and
// rejected by Start.
func ValidateConfig(cfg model.QuizConfig) error {
	if cfg.UpperBound < 0 || cfg.UpperBound > MaxUpperBound {
		return fmt.Errorf("%w: upper bound must be between 0 and %d", ErrInvalidConfig, MaxUpperBound)
	}
	if cfg.TotalQuestions < MinQuestions || cfg.TotalQuestions > MaxQuestions {
		return fmt.Errorf("%w: questions must be between %d and %d", ErrInvalidConfig, MinQuestions, MaxQuestions)
	}
	if cfg.TimeLimit < MinTimeLimit || cfg.TimeLimit > MaxTimeLimit {
		return fmt.Errorf("%w: time limit must be between %d and %d seconds", ErrInvalidConfig, MinTimeLimit, MaxTimeLimit)
	}
	seen := map[model.Operator]struct{}{}
	for _, op := range cfg.Operators {
		if !op.Valid() {
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidConfig, op)
		}
		if _, dup := seen[op]; dup {
			return fmt.Errorf("%w: duplicate operator %q", ErrInvalidConfig, op)
		}
		seen[op] = struct{}{}
	}
	switch cfg.Orientation {
	case model.Horizontal, model.Vertical:
	default:
		return fmt.Errorf("%w: unknown orientation %q", ErrInvalidConfig, cfg.Orientation)
	}
	switch cfg.Chart {
	case model.ChartBar, model.ChartPie:
	default:
		return fmt.Errorf("%w: unknown chart %q", ErrInvalidConfig, cfg.Chart)
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("%w: weak factor must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// NewSession constructs an idle session.
func NewSession(cfg model.QuizConfig, display Display, clock Clock, opts ...Option) (*Session, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	gen := generator.New()
	s := &Session{
		cfg:     cfg.Clone(),
		display: display,
		clock:   clock,
		next: func(c model.QuizConfig) model.Problem {
			return gen.Generate(c.UpperBound, c.Operators)
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.remaining = s.cfg.TotalQuestions
	return s, nil
}

// Handle dispatches a single event.
func (s *Session) Handle(ev Event) error {
	switch ev.Kind {
	case EventTick:
		s.Tick()
		return nil
	case EventSubmit:
		return s.Submit(ev.Input)
	case EventStartRequested:
		return s.Start()
	case EventSummaryDismissed:
		s.DismissSummary()
		return nil
	case EventConfigChanged:
		return s.applyChange(ev)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// Start begins a run.
func (s *Session) Start() error {
	if s.running {
		return ErrRunInProgress
	}
	if len(s.cfg.Operators) == 0 {
		return ErrNoOperator
	}
	s.DismissSummary()
	s.running = true
	s.display.SetConfigLocked(true)
	s.remaining = s.cfg.TotalQuestions
	s.correct = 0
	s.incorrect = 0
	s.startedAt = s.now()
	s.countdown = s.cfg.TimeLimit
	s.display.ShowCountdown(s.countdown)
	s.awaiting = true
	s.generateProblem()
	return nil
}

// Tick advances the countdown by one second. A countdown reaching zero
// grades an empty answer.
func (s *Session) Tick() {
	if !s.awaiting {
		return
	}
	s.countdown--
	if s.countdown <= 0 {
		s.countdown = 0
		s.awaiting = false
		s.display.ShowCountdown(0)
		// Empty input always parses.
		_ = s.grade("", true)
		return
	}
	s.display.ShowCountdown(s.countdown)
}

// Submit grades raw as the answer to the current problem. It is a no-op
// when no answer is awaited.
func (s *Session) Submit(raw string) error {
	if !s.awaiting {
		return nil
	}
	return s.grade(raw, false)
}

// DismissSummary clears the response-time history of the last run.
func (s *Session) DismissSummary() {
	if !s.summaryPending {
		return
	}
	s.summaryPending = false
	s.responseTimes = nil
	s.questionIndices = nil
	s.answers = nil
}

// SetConfig replaces the whole configuration while idle.
func (s *Session) SetConfig(cfg model.QuizConfig) error {
	if s.running {
		return ErrConfigLocked
	}
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	s.cfg = cfg.Clone()
	s.remaining = s.cfg.TotalQuestions
	return nil
}

func (s *Session) applyChange(ev Event) error {
	if s.running {
		return ErrConfigLocked
	}
	cfg := s.cfg.Clone()
	switch ev.Field {
	case FieldUpperBound:
		cfg.UpperBound = ev.Value
	case FieldTotalQuestions:
		cfg.TotalQuestions = ev.Value
	case FieldTimeLimit:
		cfg.TimeLimit = ev.Value
	case FieldOperator:
		cfg.Operators = toggle(cfg.Operators, ev.Operator, ev.Enabled)
	case FieldOrientation:
		cfg.Orientation = ev.Orientation
	case FieldChart:
		cfg.Chart = ev.Chart
	case FieldFocusWeak:
		cfg.FocusWeak = ev.Enabled
	default:
		return fmt.Errorf("%w: unknown field %d", ErrInvalidConfig, ev.Field)
	}
	return s.SetConfig(cfg)
}

// toggle keeps operators in selection order, like the checkbox list it mirrors.
func toggle(ops []model.Operator, op model.Operator, enabled bool) []model.Operator {
	idx := -1
	for i, o := range ops {
		if o == op {
			idx = i
			break
		}
	}
	switch {
	case enabled && idx < 0:
		return append(ops, op)
	case !enabled && idx >= 0:
		return append(ops[:idx], ops[idx+1:]...)
	default:
		return ops
	}
}

func (s *Session) generateProblem() {
	s.problem = s.next(s.cfg)
	s.display.ShowProblem(s.problem)
	s.clock.Arm()
}

func (s *Session) grade(raw string, timedOut bool) error {
	entered, err := ParseAnswer(s.problem.Operator, raw)
	if err != nil {
		return err
	}
	s.awaiting = false

	total := s.cfg.TotalQuestions
	left := s.remaining
	index := total - left + 1
	elapsed := s.cfg.TimeLimit - s.countdown
	expected := CorrectAnswer(s.problem)
	passed := entered == expected
	blank := strings.TrimSpace(raw) == ""

	if passed {
		s.correct++
		s.display.ShowFeedback(true)
	} else {
		s.incorrect++
		line := FormatErrorLine(left, s.problem, expected, entered, blank)
		s.errorLog = append(s.errorLog, line)
		s.display.AppendErrorLine(line)
		s.display.ShowFeedback(false)
	}

	s.remaining--
	answered := total - s.remaining
	s.display.ShowCounters(s.remaining, s.correct, s.incorrect, answered*100/total)

	s.responseTimes = append(s.responseTimes, elapsed)
	s.questionIndices = append(s.questionIndices, index)
	s.answers = append(s.answers, model.AnswerRecord{
		Index:           index,
		Remaining:       left,
		Operator:        s.problem.Operator,
		A:               s.problem.A,
		B:               s.problem.B,
		Correct:         expected,
		Entered:         entered,
		Passed:          passed,
		ResponseSeconds: elapsed,
		TimedOut:        timedOut,
		Blank:           blank,
	})

	if s.remaining == 0 {
		s.finishRun()
		return nil
	}
	s.countdown = s.cfg.TimeLimit
	s.display.ShowCountdown(s.countdown)
	s.awaiting = true
	s.generateProblem()
	return nil
}

func (s *Session) finishRun() {
	summary := model.RunSummary{
		ID:              s.newID(),
		StartedAt:       s.startedAt,
		EndedAt:         s.now(),
		Config:          s.cfg.Clone(),
		Total:           s.cfg.TotalQuestions,
		Correct:         s.correct,
		Incorrect:       s.incorrect,
		ResponseTimes:   append([]int(nil), s.responseTimes...),
		QuestionIndices: append([]int(nil), s.questionIndices...),
		Answers:         append([]model.AnswerRecord(nil), s.answers...),
	}

	s.running = false
	s.display.SetConfigLocked(false)
	s.remaining = s.cfg.TotalQuestions
	s.correct = 0
	s.incorrect = 0
	s.display.ShowCounters(s.remaining, 0, 0, 0)
	s.errorLog = nil
	s.display.ClearErrorLog()
	s.summaryPending = true
	s.display.ShowSummary(summary)
}

// State reports the coarse session state.
func (s *Session) State() State {
	switch {
	case s.running:
		return StateAwaitingAnswer
	case s.summaryPending:
		return StateSummaryReady
	default:
		return StateIdle
	}
}

// Running reports whether a run is in progress.
func (s *Session) Running() bool { return s.running }

// Awaiting reports whether the next submission will be graded.
func (s *Session) Awaiting() bool { return s.awaiting }

// Config returns a copy of the current configuration.
func (s *Session) Config() model.QuizConfig { return s.cfg.Clone() }

// Problem returns the problem currently on display.
func (s *Session) Problem() model.Problem { return s.problem }

// Countdown returns the seconds left for the current problem.
func (s *Session) Countdown() int { return s.countdown }

// Remaining returns the number of questions left in the run.
func (s *Session) Remaining() int { return s.remaining }

// Correct returns the running count of passed questions.
func (s *Session) Correct() int { return s.correct }

// Incorrect returns the running count of failed questions.
func (s *Session) Incorrect() int { return s.incorrect }

// ResponseTimes returns the response times recorded since the last dismissal.
func (s *Session) ResponseTimes() []int { return append([]int(nil), s.responseTimes...) }

// QuestionIndices returns question indices parallel to ResponseTimes.
func (s *Session) QuestionIndices() []int { return append([]int(nil), s.questionIndices...) }

// ErrorLog returns the error lines of the current run.
func (s *Session) ErrorLog() []string { return append([]string(nil), s.errorLog...) }
