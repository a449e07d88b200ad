// Package statsui provides the Bubble Tea history browser.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/stats"
	"github.com/verte-zerg/adalan/internal/store"
)

const (
	tabOverview = iota
	tabOperators
	tabMistakes
)

const (
	plotHeight    = 10
	fallbackWidth = 80
)

var (
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B0B0B0")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

var tabTitles = []string{
	tabOverview:  "Overview",
	tabOperators: "Operators",
	tabMistakes:  "Mistakes",
}

// Model is the tabbed history browser.
type Model struct {
	store *store.Store
	cfg   model.StatsConfig

	report  stats.Report
	loadErr string

	active int
	pages  []viewport.Model
	ops    table.Model
	form   settingsForm

	width  int
	height int
}

// NewModel loads the report for cfg and returns the browser.
func NewModel(st *store.Store, cfg model.StatsConfig) *Model {
	m := &Model{
		store: st,
		cfg:   cfg,
		form:  newSettingsForm(),
		ops:   buildOperatorTable(nil, fallbackWidth, 1),
		pages: make([]viewport.Model, len(tabTitles)),
	}
	for i := range m.pages {
		m.pages[i] = viewport.New(0, 0)
	}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.fillPages()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.form.open {
			cfg, cmd := m.form.update(msg)
			if cfg != nil {
				m.cfg = *cfg
				m.reload()
			}
			m.resize()
			return m, cmd
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		m.switchTab(-1)
		return m, tea.ClearScreen
	case "right", "l", "tab":
		m.switchTab(1)
		return m, tea.ClearScreen
	case "=", "+":
		m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
		m.reload()
		return m, nil
	case "-":
		m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
		m.reload()
		return m, nil
	case "/", "s":
		cmd := m.form.show(m.cfg)
		m.resize()
		return m, cmd
	case "g", "home":
		m.jump(true)
		return m, nil
	case "G", "end":
		m.jump(false)
		return m, nil
	}
	var cmd tea.Cmd
	if m.active == tabOperators {
		m.ops, cmd = m.ops.Update(msg)
		return m, cmd
	}
	m.pages[m.active], cmd = m.pages[m.active].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	top, body, bottom := m.heights()
	return strings.Join([]string{
		fitLines(m.renderTabs()+"\n"+m.renderFilterSummary(), m.width, top),
		fitLines(m.renderBody(), m.width, body),
		fitLines(m.renderFooter(), m.width, bottom),
	}, "\n")
}

func (m *Model) jump(top bool) {
	if m.active == tabOperators {
		if top {
			m.ops.GotoTop()
		} else {
			m.ops.GotoBottom()
		}
		return
	}
	if top {
		m.pages[m.active].GotoTop()
	} else {
		m.pages[m.active].GotoBottom()
	}
}

func (m *Model) heights() (top, body, bottom int) {
	top = lipgloss.Height(activeTabStyle.Render("X")) + 1
	bottom = 1
	if !m.form.open && m.loadErr != "" {
		bottom = 2
	}
	body = max(1, m.height-top-bottom)
	return top, body, bottom
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, body, _ := m.heights()
	for i := range m.pages {
		m.pages[i].Width = m.width
		m.pages[i].Height = body
	}
	m.ops.SetWidth(m.width)
	m.ops.SetHeight(max(1, body-1))
	m.form.resize(m.width)
}

func (m *Model) switchTab(delta int) {
	n := len(tabTitles)
	m.active = (m.active + delta + n) % n
	if m.active == tabOperators {
		m.ops.Focus()
		return
	}
	m.ops.Blur()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(tabTitles))
	for i, title := range tabTitles {
		if i == m.active {
			parts = append(parts, activeTabStyle.Render(title))
			continue
		}
		parts = append(parts, tabStyle.Render(title))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFilterSummary() string {
	op := "any"
	if m.cfg.Operator != "" {
		op = m.cfg.Operator.Label()
	}
	summary := fmt.Sprintf("Settings: operator=%s  since=%s  last=%s  window=%d",
		op, formatSince(m.cfg.Since, "any"), formatLast(m.cfg.Last, "all"), m.cfg.CurveWindow)
	return mutedStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.form.open {
		return mutedStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := mutedStyle.Render("Tabs: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q")
	if m.loadErr == "" {
		return help
	}
	return help + "\n" + errorStyle.Render(m.loadErr)
}

func (m *Model) renderBody() string {
	switch {
	case m.form.open:
		return m.form.view()
	case m.active != tabOperators:
		return m.pages[m.active].View()
	case len(m.report.Runs) == 0:
		return "No runs found."
	case len(m.report.OperatorAggsAll) == 0:
		return "No operator stats found."
	default:
		return tableStyle.Render(m.ops.View())
	}
}

// reload rebuilds the report for the current filter.
func (m *Model) reload() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.loadErr = err.Error()
		for i := range m.pages {
			m.pages[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.loadErr = ""
	m.report = report
	m.ops.SetRows(operatorRows(report.OperatorAggsAll))
	m.resize()
	m.fillPages()
}

func (m *Model) fillPages() {
	if m.loadErr != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	m.pages[tabOverview].SetContent(renderOverview(m.report.Runs, m.cfg.CurveWindow, width))
	m.pages[tabMistakes].SetContent(capture(func(buf *bytes.Buffer) error {
		return stats.RenderMistakes(buf, m.report.Mistakes)
	}))
}

func renderOverview(runs []model.RunAggregate, window, width int) string {
	if len(runs) == 0 {
		return "No runs found."
	}
	curves := capture(func(buf *bytes.Buffer) error {
		return stats.RenderCurvesWithSize(buf, runs, window, width, plotHeight, true)
	})
	return renderCards(runs, width) + "\n\n" + curves
}

// capture renders into a buffer and trims trailing newlines.
func capture(render func(*bytes.Buffer) error) string {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Sprintf("Failed to render: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderCards(runs []model.RunAggregate, width int) string {
	var questions, correct, incorrect, responseSum int
	var best float64
	for _, r := range runs {
		questions += r.Total
		correct += r.Correct
		incorrect += r.Incorrect
		responseSum += r.ResponseSumSeconds
		rate, _ := stats.RunMetrics(r.Correct, r.Incorrect, 0)
		best = max(best, rate)
	}
	rate, avg := stats.RunMetrics(correct, incorrect, responseSum)
	cards := []string{
		card("Runs", strconv.Itoa(len(runs))),
		card("Questions", strconv.Itoa(questions)),
		card("Pass Rate", fmt.Sprintf("%.1f%%", rate*100)),
		card("Best Run", fmt.Sprintf("%.1f%%", best*100)),
		card("Avg Response", fmt.Sprintf("%.1fs", avg)),
	}
	if width < fallbackWidth {
		return lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...),
	)
}

func card(label, value string) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		cardLabelStyle.Render(label),
		cardValueStyle.Render(value),
	))
}

func operatorRows(aggs []model.OperatorAggregate) []table.Row {
	rows := stats.OperatorRows(aggs)
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Cells())
	}
	return out
}

func buildOperatorTable(aggs []model.OperatorAggregate, width, height int) table.Model {
	cols := make([]table.Column, 0, len(stats.OperatorTableHeaders))
	for _, title := range stats.OperatorTableHeaders {
		cols = append(cols, table.Column{Title: title, Width: max(runewidth.StringWidth(title), 10)})
	}
	for _, op := range model.AllOperators {
		cols[0].Width = max(cols[0].Width, runewidth.StringWidth(op.Label()))
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(operatorRows(aggs)),
		table.WithHeight(max(1, height-1)),
		table.WithWidth(width),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		Foreground(lipgloss.Color("#C0C0C0")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	t.SetStyles(styles)
	return t
}

// fitLines clips s to height lines and pads every line to width.
func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.SplitN(s, "\n", height+1)
	lines = lines[:min(len(lines), height)]
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + strings.Repeat(" ", gap)
		}
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	tail := "..."
	if width <= len(tail) {
		tail = ""
	}
	return runewidth.Truncate(s, width, tail)
}
