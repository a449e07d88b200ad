package quiz

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/adalan/internal/model"
)

// CorrectAnswer computes the expected answer for p.
// Square and cube use the second operand; square root uses the first,
// rounded to two decimals. Division rounds half to even.
func CorrectAnswer(p model.Problem) float64 {
	a := float64(p.A)
	b := float64(p.B)
	switch p.Operator {
	case model.OpAdd:
		return a + b
	case model.OpSubtract:
		return a - b
	case model.OpMultiply:
		return a * b
	case model.OpDivide:
		return math.RoundToEven(a / b)
	case model.OpSquare:
		return b * b
	case model.OpCube:
		return b * b * b
	case model.OpSquareRoot:
		return math.Round(math.Sqrt(a)*100) / 100
	default:
		return 0
	}
}

// ParseAnswer converts raw learner input. Empty input counts as 0.
// Square-root answers are decimals; everything else must be an integer.
func ParseAnswer(op model.Operator, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if op == model.OpSquareRoot {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAnswer, raw)
		}
		return v, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAnswer, raw)
	}
	return float64(v), nil
}

// FormatErrorLine renders the error-log entry for a failed question.
// remaining is the number of questions left before this one was graded, so
// labels count down over a run. A blank entry is shown as 0.
func FormatErrorLine(remaining int, p model.Problem, correct, entered float64, blank bool) string {
	c := FormatValue(p.Operator, correct)
	e := "0"
	if !blank {
		e = FormatValue(p.Operator, entered)
	}
	switch p.Operator {
	case model.OpSquare:
		return fmt.Sprintf("(Q-%d) %d x %d = %s  You entered: %s", remaining, p.B, p.B, c, e)
	case model.OpCube:
		return fmt.Sprintf("(Q-%d) %d x %d x %d = %s  You entered: %s", remaining, p.B, p.B, p.B, c, e)
	case model.OpSquareRoot:
		return fmt.Sprintf("(Q-%d) √%d = %s  You entered: %s", remaining, p.A, c, e)
	default:
		return fmt.Sprintf("(Q-%d) %d %s %d = %s  You entered: %s", remaining, p.A, p.Operator.Symbol(), p.B, c, e)
	}
}

// FormatValue prints an answer the way the operator's input is parsed:
// integers for most operators, decimals with at least one fraction digit for square roots.
func FormatValue(op model.Operator, v float64) string {
	if op != model.OpSquareRoot {
		return strconv.FormatInt(int64(v), 10)
	}
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
