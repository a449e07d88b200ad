package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	passGlyph = "█"
	failGlyph = "░"
)

// RenderPassFailBars draws horizontal bars for correct and incorrect counts.
func RenderPassFailBars(w io.Writer, correct, incorrect, width int) error {
	total := correct + incorrect
	if width <= 0 {
		width = 30
	}
	rows := []struct {
		label string
		count int
		glyph string
	}{
		{"Correct", correct, passGlyph},
		{"Incorrect", incorrect, failGlyph},
	}
	labelWidth := runewidth.StringWidth("Incorrect")
	var b strings.Builder
	for _, r := range rows {
		n := 0
		if total > 0 {
			n = int(math.Round(float64(r.count) * float64(width) / float64(total)))
		}
		fmt.Fprintf(&b, "%s %s %d (%d%%)\n",
			runewidth.FillRight(r.label, labelWidth),
			runewidth.FillRight(strings.Repeat(r.glyph, n), width),
			r.count, percent(r.count, total))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderPassFailPie draws a circle split into correct and incorrect sectors,
// starting at twelve o'clock and moving clockwise.
func RenderPassFailPie(w io.Writer, correct, incorrect, radius int) error {
	total := correct + incorrect
	if radius <= 0 {
		radius = 5
	}
	share := 0.0
	if total > 0 {
		share = float64(correct) / float64(total)
	}
	var b strings.Builder
	r := float64(radius)
	for y := -radius; y <= radius; y++ {
		var line strings.Builder
		for x := -2 * radius; x <= 2*radius; x++ {
			// Terminal cells are about twice as tall as they are wide.
			dx, dy := float64(x)/2, float64(y)
			if dx*dx+dy*dy > r*r+0.5 {
				line.WriteByte(' ')
				continue
			}
			angle := math.Atan2(dx, -dy)
			if angle < 0 {
				angle += 2 * math.Pi
			}
			if total > 0 && angle/(2*math.Pi) < share {
				line.WriteString(passGlyph)
			} else {
				line.WriteString(failGlyph)
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " ") + "\n")
	}
	fmt.Fprintf(&b, "%s Correct %d (%d%%)  %s Incorrect %d (%d%%)\n",
		passGlyph, correct, percent(correct, total), failGlyph, incorrect, percent(incorrect, total))
	_, err := io.WriteString(w, b.String())
	return err
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
