// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/quiz"
)

const sparkChars = " .:-=+*#%@"

// RunMetrics computes the pass rate (0..1) and mean response time in seconds.
func RunMetrics(correct, incorrect, responseSum int) (passRate, avgResponse float64) {
	answered := correct + incorrect
	if answered <= 0 {
		return 0, 0
	}
	passRate = float64(correct) / float64(answered)
	avgResponse = float64(responseSum) / float64(answered)
	return passRate, avgResponse
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	last := len(sparkChars) - 1
	out := make([]byte, len(values))
	for i, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		out[i] = sparkChars[min(max(idx, 0), last)]
	}
	return string(out)
}

// RenderSummary prints a summary block for runs.
func RenderSummary(w io.Writer, runs []model.RunAggregate) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	var questions, correct, responseSum int
	best := 0.0
	for _, r := range runs {
		questions += r.Total
		correct += r.Correct
		responseSum += r.ResponseSumSeconds
		rate, _ := RunMetrics(r.Correct, r.Incorrect, r.ResponseSumSeconds)
		best = math.Max(best, rate)
	}
	rate, avg := RunMetrics(correct, questions-correct, responseSum)
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", len(runs)),
		fmt.Sprintf("Questions: %d", questions),
		fmt.Sprintf("Pass Rate: %.2f%%", rate*100),
		fmt.Sprintf("Best Run: %.2f%%", best*100),
		fmt.Sprintf("Avg Response: %.2fs", avg),
		"",
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

// RunCurves returns pass-rate (percent) and mean response series, smoothed by window.
func RunCurves(runs []model.RunAggregate, window int) (pass, response []float64) {
	pass = make([]float64, len(runs))
	response = make([]float64, len(runs))
	for i, r := range runs {
		rate, avg := RunMetrics(r.Correct, r.Incorrect, r.ResponseSumSeconds)
		pass[i] = rate * 100
		response[i] = avg
	}
	return MovingAverage(pass, window), MovingAverage(response, window)
}

// RenderCurves prints learning curves for pass rate and response time.
func RenderCurves(w io.Writer, runs []model.RunAggregate, window int) error {
	return RenderCurvesWithSize(w, runs, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, runs []model.RunAggregate, window, totalWidth, height int, useColor bool) error {
	if len(runs) == 0 {
		return nil
	}
	pass, response := RunCurves(runs, window)
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Pass %", Values: pass},
		{Name: "Response (s)", Values: response},
	}, width, height, useColor)
}

// OperatorRow is a display-ready operator aggregate.
type OperatorRow struct {
	Operator    model.Operator
	PassRate    float64
	AvgResponse float64
	Correct     int
	Incorrect   int
	TimedOut    int
}

// OperatorRows converts aggregates into rows sorted by lowest pass rate.
func OperatorRows(aggs []model.OperatorAggregate) []OperatorRow {
	rows := make([]OperatorRow, 0, len(aggs))
	for _, agg := range aggs {
		rate, avg := RunMetrics(agg.Correct, agg.Incorrect, agg.ResponseSumSeconds)
		rows = append(rows, OperatorRow{
			Operator:    agg.Operator,
			PassRate:    rate,
			AvgResponse: avg,
			Correct:     agg.Correct,
			Incorrect:   agg.Incorrect,
			TimedOut:    agg.TimedOut,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PassRate == rows[j].PassRate {
			return rows[i].Operator < rows[j].Operator
		}
		return rows[i].PassRate < rows[j].PassRate
	})
	return rows
}

// OperatorTableHeaders are the column titles used by RenderOperatorTable.
var OperatorTableHeaders = []string{"Operator", "Pass Rate", "Avg Response (s)", "Correct", "Incorrect", "Timed Out"}

// Cells formats the row for a table.
func (r OperatorRow) Cells() []string {
	return []string{
		r.Operator.Label(),
		fmt.Sprintf("%.2f%%", r.PassRate*100),
		fmt.Sprintf("%.1f", r.AvgResponse),
		fmt.Sprintf("%d", r.Correct),
		fmt.Sprintf("%d", r.Incorrect),
		fmt.Sprintf("%d", r.TimedOut),
	}
}

// RenderOperatorTable prints per-operator aggregates.
func RenderOperatorTable(w io.Writer, aggs []model.OperatorAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No operator stats found.")
		return err
	}
	rows := OperatorRows(aggs)
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.Cells()
	}
	lines := append([]string{"Per-Operator (Windowed)"},
		formatTable(OperatorTableHeaders, cells, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})...)
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n\n")
	return err
}

// MistakeLine formats a stored failed answer like the live error log.
func MistakeLine(m model.Mistake) string {
	a := m.Answer
	p := model.Problem{Operator: a.Operator, A: a.A, B: a.B}
	line := quiz.FormatErrorLine(a.Remaining, p, a.Correct, a.Entered, a.Blank)
	if a.TimedOut {
		line += " (timed out)"
	}
	return line
}

// RenderMistakes prints recent failed answers grouped under their run date.
func RenderMistakes(w io.Writer, mistakes []model.Mistake) error {
	if len(mistakes) == 0 {
		_, err := fmt.Fprintln(w, "No mistakes recorded.")
		return err
	}
	var b strings.Builder
	b.WriteString("Recent Mistakes\n")
	lastRun := ""
	for _, m := range mistakes {
		if m.RunID != lastRun {
			fmt.Fprintf(&b, "%s\n", m.EndedAt.Local().Format("2006-01-02 15:04"))
			lastRun = m.RunID
		}
		b.WriteString("  " + MistakeLine(m) + "\n")
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
