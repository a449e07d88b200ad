package tui

import (
	"bytes"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/verte-zerg/adalan/internal/model"
	statsPkg "github.com/verte-zerg/adalan/internal/stats"
)

const (
	summaryBarWidth  = 30
	summaryPieRadius = 5
	summaryPlotH     = 6
	fallbackPlotW    = 40
)

func (m *Model) renderSummary() string {
	s := m.summary
	if s == nil {
		return ""
	}
	lines := []string{
		titleStyle.Render("Run complete"),
		"",
		textStyle.Render(fmt.Sprintf("Total %d  ·  Correct %d  ·  Incorrect %d  ·  Pass %d%%",
			s.Total, s.Correct, s.Incorrect, s.PassPercentage())),
		"",
	}
	var chart bytes.Buffer
	var err error
	if s.Config.Chart == model.ChartPie {
		err = statsPkg.RenderPassFailPie(&chart, s.Correct, s.Incorrect, summaryPieRadius)
	} else {
		err = statsPkg.RenderPassFailBars(&chart, s.Correct, s.Incorrect, summaryBarWidth)
	}
	if err != nil {
		m.logger.Error("failed to render chart", zap.Error(err))
	} else {
		lines = append(lines, strings.TrimRight(chart.String(), "\n"), "")
	}

	if plot := m.responsePlot(s); plot != "" {
		lines = append(lines, plot, "")
	}

	var mistakes []string
	for _, a := range s.Answers {
		if !a.Passed {
			mistakes = append(mistakes, statsPkg.MistakeLine(model.Mistake{RunID: s.ID, EndedAt: s.EndedAt, Answer: a}))
		}
	}
	if len(mistakes) > 0 {
		lines = append(lines, mutedStyle.Render("Mistakes"))
		for _, l := range errorLogLines(mistakes, m.contentWidth(), 0) {
			lines = append(lines, wrongStyle.UnsetBold().Render(l))
		}
		lines = append(lines, "")
	}
	lines = append(lines, mutedStyle.Render("Press any key to continue"))
	return strings.Join(lines, "\n")
}

func (m *Model) responsePlot(s *model.RunSummary) string {
	if len(s.ResponseTimes) == 0 {
		return ""
	}
	values := make([]float64, len(s.ResponseTimes))
	for i, v := range s.ResponseTimes {
		values[i] = float64(v)
	}
	width := fallbackPlotW
	if w := m.contentWidth(); w > 0 {
		width = statsPkg.PlotWidthFor(w)
	}
	var buf bytes.Buffer
	if err := statsPkg.PlotSeries(&buf, "Response Time per Question", []statsPkg.Series{
		{Name: "Seconds", Values: values},
	}, width, summaryPlotH); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
