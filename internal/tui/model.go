// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/adalan/internal/generator"
	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/quiz"
	statsPkg "github.com/verte-zerg/adalan/internal/stats"
)

const (
	weakTop        = 2
	answerMaxChars = 10
	historyTimeout = 5 * time.Second
)

type screen int

const (
	screenSetup screen = iota
	screenQuestion
	screenSummary
)

type feedback int

const (
	feedbackNone feedback = iota
	feedbackCorrect
	feedbackWrong
)

// History persists runs and supplies weak-operator stats.
type History interface {
	InsertRun(ctx context.Context, run model.RunSummary) error
	ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunAggregate, error)
	GetWeakOperators(ctx context.Context, window int) ([]model.OperatorAggregate, error)
}

type tickMsg struct {
	gen int
}

// Model implements the Bubble Tea quiz UI. It is the session's Display and Clock.
type Model struct {
	session    *quiz.Session
	history    History
	gen        *generator.Generator
	logger     *zap.Logger
	weakWindow int
	weakSet    map[model.Operator]struct{}
	weakLogged bool

	width  int
	height int

	screen      screen
	setupCursor int
	notice      string
	input       textinput.Model

	problem   model.Problem
	countdown int
	remaining int
	correct   int
	failed    int
	percent   int
	feedback  feedback
	errorLog  []string
	summary   *model.RunSummary

	tickGen int
	pending []tea.Cmd

	lastPass float64
	hasLast  bool
	allRuns  int
	allPass  float64
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	wrongStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	noticeStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#FF4D4F")).
			Padding(1, 2)
)

// NewModel constructs a quiz TUI model. Extra session options are applied
// after the model's own problem source.
func NewModel(cfg model.QuizConfig, history History, gen *generator.Generator, logger *zap.Logger, weakWindow int, opts ...quiz.Option) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gen == nil {
		gen = generator.New()
	}
	m := &Model{
		history:    history,
		gen:        gen,
		logger:     logger,
		weakWindow: weakWindow,
		weakSet:    map[model.Operator]struct{}{},
		input:      newAnswerInput(),
	}
	sessionOpts := append([]quiz.Option{quiz.WithProblemSource(m.nextProblem)}, opts...)
	session, err := quiz.NewSession(cfg, m, m, sessionOpts...)
	if err != nil {
		return nil, err
	}
	m.session = session
	m.remaining = cfg.TotalQuestions
	if cfg.FocusWeak {
		m.refreshWeakSet()
	}
	m.loadFooterStats()
	return m, nil
}

func newAnswerInput() textinput.Model {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "?"
	input.CharLimit = answerMaxChars
	input.Width = answerMaxChars
	return input
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
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.notice != "" {
			m.notice = ""
			return m, nil
		}
		switch m.screen {
		case screenQuestion:
			return m, m.updateQuestion(msg)
		case screenSummary:
			m.session.DismissSummary()
			m.summary = nil
			m.screen = screenSetup
			return m, nil
		default:
			return m.updateSetup(msg)
		}
	default:
		if m.screen == screenQuestion {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch {
	case m.notice != "":
		content = noticeStyle.Render(wrongStyle.Render(m.notice) + "\n\n" + mutedStyle.Render("Press any key"))
	case m.screen == screenQuestion:
		content = m.renderQuestion()
	case m.screen == screenSummary:
		content = m.renderSummary()
	default:
		content = m.renderSetup()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	if msg.gen != m.tickGen || !m.session.Awaiting() {
		return nil
	}
	m.session.Tick()
	if m.tickGen == msg.gen && m.session.Awaiting() {
		m.pending = append(m.pending, tickCmd(msg.gen))
	}
	return m.flush()
}

func (m *Model) updateQuestion(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		if err := m.session.Submit(m.input.Value()); err != nil {
			m.logger.Debug("rejected answer", zap.String("input", m.input.Value()), zap.Error(err))
			m.input.Reset()
		}
		return m.flush()
	case tea.KeyRunes:
		if !allowedAnswerRunes(msg.Runes) {
			return nil
		}
	case tea.KeySpace:
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func allowedAnswerRunes(runes []rune) bool {
	for _, r := range runes {
		if (r < '0' || r > '9') && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

func (m *Model) startRun() tea.Cmd {
	err := m.session.Start()
	switch {
	case errors.Is(err, quiz.ErrNoOperator):
		m.notice = "No operator selected"
		return nil
	case err != nil:
		m.notice = err.Error()
		return nil
	}
	m.errorLog = nil
	return tea.Batch(m.flush(), m.input.Focus())
}

func (m *Model) flush() tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}
	cmds := m.pending
	m.pending = nil
	return tea.Batch(cmds...)
}

func tickCmd(gen int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m *Model) nextProblem(cfg model.QuizConfig) model.Problem {
	if cfg.FocusWeak && len(m.weakSet) > 0 {
		return m.gen.GenerateWeighted(cfg.UpperBound, cfg.Operators, m.weakSet, cfg.WeakFactor)
	}
	return m.gen.Generate(cfg.UpperBound, cfg.Operators)
}

func (m *Model) saveRun(run model.RunSummary) {
	if m.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := m.history.InsertRun(ctx, run); err != nil {
		m.logger.Error("failed to save run", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	m.logger.Info("run saved",
		zap.String("run_id", run.ID),
		zap.Int("correct", run.Correct),
		zap.Int("incorrect", run.Incorrect))

	pass, _ := statsPkg.RunMetrics(run.Correct, run.Incorrect, 0)
	m.allPass = (m.allPass*float64(m.allRuns) + pass) / float64(m.allRuns+1)
	m.allRuns++
	m.lastPass = pass
	m.hasLast = true
}

func (m *Model) loadFooterStats() {
	if m.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	runs, err := m.history.ListRuns(ctx, model.StatsConfig{})
	if err != nil {
		m.logger.Error("failed to load run stats", zap.Error(err))
		return
	}
	if len(runs) == 0 {
		return
	}
	var sum float64
	for _, r := range runs {
		pass, _ := statsPkg.RunMetrics(r.Correct, r.Incorrect, 0)
		sum += pass
	}
	last := runs[len(runs)-1]
	m.lastPass, _ = statsPkg.RunMetrics(last.Correct, last.Incorrect, 0)
	m.hasLast = true
	m.allRuns = len(runs)
	m.allPass = sum / float64(len(runs))
}

func (m *Model) refreshWeakSet() {
	if m.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	aggs, err := m.history.GetWeakOperators(ctx, m.weakWindow)
	if err != nil {
		m.logger.Error("failed to load weak operators", zap.Error(err))
		return
	}
	if len(aggs) == 0 && !m.weakLogged {
		m.logger.Info("no stats available for weak-operator focus yet; using uniform operators")
		m.weakLogged = true
	}
	m.weakSet = statsPkg.SelectWeakOperators(aggs, weakTop)
}

func (m *Model) renderFooter() string {
	var segments []string
	switch m.screen {
	case screenSetup:
		segments = append(segments, "↑/↓ select  ←/→ adjust  space toggle  enter start  q quit")
	case screenQuestion:
		segments = append(segments, "enter submit  ctrl+c quit")
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.0f%%", m.lastPass*100))
	}
	if m.allRuns > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.1f%% over %d runs", m.allPass*100, m.allRuns))
	}
	if m.session.Config().FocusWeak && len(m.weakSet) > 0 {
		segments = append(segments, "Focus "+weakLabels(m.weakSet))
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}

func weakLabels(set map[model.Operator]struct{}) string {
	var labels []string
	for _, op := range model.AllOperators {
		if _, ok := set[op]; ok {
			labels = append(labels, op.Label())
		}
	}
	return strings.Join(labels, ", ")
}
