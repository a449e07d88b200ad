// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	fallbackTermWidth = 80
	axisSeparator     = " │ "
	colorReset        = "\x1b[0m"
)

var seriesColors = []string{
	"\x1b[36m", // cyan
	"\x1b[33m", // yellow
	"\x1b[35m", // magenta
	"\x1b[32m", // green
}

// brailleBits maps a dot position (column, row) inside a 2x4 cell to its bit.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// canvas is a grid of braille cells, two dots wide and four dots tall each.
type canvas struct {
	cols, rows int
	cells      [][]uint8
}

func newCanvas(cols, rows int) *canvas {
	cells := make([][]uint8, rows)
	for i := range cells {
		cells[i] = make([]uint8, cols)
	}
	return &canvas{cols: cols, rows: rows, cells: cells}
}

func (c *canvas) dot(x, y int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= c.cols || cy >= c.rows {
		return
	}
	c.cells[cy][cx] |= brailleBits[x%2][y%4]
}

// line draws with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.dot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// PlotSeries renders a multi-line braille plot for the provided series.
// Each series is scaled to its own min/max.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return PlotSeriesWithColor(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders a plot with optional forced color output.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	var kept []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	useColor := shouldUseColor(w, forceColor)
	canvases := make([]*canvas, len(kept))
	ranges := make([][2]float64, len(kept))
	for i, s := range kept {
		lo, hi := minMax(s.Values)
		ranges[i] = [2]float64{lo, hi}
		if hi-lo < 1e-9 {
			lo--
			hi++
		}
		values := resample(s.Values, width)
		cv := newCanvas(width, height)
		dotsHigh := height * 4
		px, py := -1, -1
		for x, v := range values {
			y := int(math.Round((1 - (v-lo)/(hi-lo)) * float64(dotsHigh-1)))
			if px >= 0 {
				cv.line(px, py, x*2, y)
			} else {
				cv.dot(x*2, y)
			}
			px, py = x*2, y
		}
		canvases[i] = cv
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	for i, s := range kept {
		fmt.Fprintf(&b, "%s: min=%.2f max=%.2f\n", s.Name, ranges[i][0], ranges[i][1])
	}
	labels := axisLabels(height)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = maxInt(labelWidth, runewidth.StringWidth(l))
	}
	for row := 0; row < height; row++ {
		b.WriteString(runewidth.FillLeft(labels[row], labelWidth))
		b.WriteString(axisSeparator)
		for col := 0; col < width; col++ {
			var mask uint8
			owner := -1
			for i, cv := range canvases {
				if m := cv.cells[row][col]; m != 0 {
					mask |= m
					if owner < 0 {
						owner = i
					}
				}
			}
			ch := string(rune(0x2800 + int(mask)))
			if useColor && owner >= 0 {
				ch = seriesColors[owner%len(seriesColors)] + ch + colorReset
			}
			b.WriteString(ch)
		}
		b.WriteByte('\n')
	}
	legend := make([]string, len(kept))
	for i, s := range kept {
		item := "⠉ " + s.Name
		if useColor {
			item = seriesColors[i%len(seriesColors)] + item + colorReset
		}
		legend[i] = item
	}
	b.WriteString("Legend: " + strings.Join(legend, "  ") + "\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	labels[0] = "max"
	if height > 2 {
		labels[height/2] = "mid"
	}
	if height > 1 {
		labels[height-1] = "min"
	}
	return labels
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	width := totalWidth - runewidth.StringWidth("max"+axisSeparator)
	if width < minPlotWidth {
		width = minPlotWidth
	}
	return width
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := maxInt((i+1)*n/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
