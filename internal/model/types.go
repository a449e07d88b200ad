// Package model defines shared data structures.
package model

import (
	"math"
	"strings"
	"time"
)

// Operator identifies an arithmetic operation.
type Operator string

// Supported operators.
const (
	OpAdd        Operator = "add"
	OpSubtract   Operator = "subtract"
	OpMultiply   Operator = "multiply"
	OpDivide     Operator = "divide"
	OpSquare     Operator = "square"
	OpCube       Operator = "cube"
	OpSquareRoot Operator = "sqrt"
)

// AllOperators lists operators in display order.
var AllOperators = []Operator{OpAdd, OpSubtract, OpMultiply, OpDivide, OpSquare, OpCube, OpSquareRoot}

// Symbol returns the operator as rendered in problems and error lines.
func (o Operator) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "X"
	case OpDivide:
		return "/"
	case OpSquare:
		return "x2"
	case OpCube:
		return "x3"
	case OpSquareRoot:
		return "sqrt"
	default:
		return string(o)
	}
}

// Label returns a human readable operator name.
func (o Operator) Label() string {
	switch o {
	case OpAdd:
		return "Addition"
	case OpSubtract:
		return "Subtraction"
	case OpMultiply:
		return "Multiplication"
	case OpDivide:
		return "Division"
	case OpSquare:
		return "Square"
	case OpCube:
		return "Cube"
	case OpSquareRoot:
		return "SquareRoot"
	default:
		return string(o)
	}
}

// Unary reports whether the problem shows a single operand.
func (o Operator) Unary() bool {
	return o == OpSquare || o == OpCube || o == OpSquareRoot
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	for _, known := range AllOperators {
		if o == known {
			return true
		}
	}
	return false
}

// ParseOperator accepts an operator name, label or symbol.
func ParseOperator(s string) (Operator, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, op := range AllOperators {
		if s == string(op) || s == strings.ToLower(op.Label()) || s == strings.ToLower(op.Symbol()) {
			return op, true
		}
	}
	switch s {
	case "*", "x", "mul":
		return OpMultiply, true
	case "sub", "minus":
		return OpSubtract, true
	case "div":
		return OpDivide, true
	case "root", "square-root":
		return OpSquareRoot, true
	}
	return "", false
}

// Orientation controls problem layout.
type Orientation string

// Layout orientations.
const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// ChartKind selects the pass/fail chart on the summary screen.
type ChartKind string

// Summary chart kinds.
const (
	ChartBar ChartKind = "bar"
	ChartPie ChartKind = "pie"
)

// QuizConfig defines quiz settings.
type QuizConfig struct {
	UpperBound     int
	TotalQuestions int
	TimeLimit      int
	Operators      []Operator
	Orientation    Orientation
	Chart          ChartKind
	FocusWeak      bool
	WeakFactor     float64
}

// HasOperator reports whether op is enabled.
func (c QuizConfig) HasOperator(op Operator) bool {
	for _, o := range c.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share the operator slice.
func (c QuizConfig) Clone() QuizConfig {
	out := c
	out.Operators = append([]Operator(nil), c.Operators...)
	return out
}

// Problem is one generated question.
type Problem struct {
	Operator Operator
	A        int
	B        int
}

// AnswerRecord captures one graded question. Remaining is the number of
// questions left before this one was graded; error lines are labelled with it.
// Blank marks an empty or timed-out entry.
type AnswerRecord struct {
	Index           int
	Remaining       int
	Operator        Operator
	A               int
	B               int
	Correct         float64
	Entered         float64
	Passed          bool
	ResponseSeconds int
	TimedOut        bool
	Blank           bool
}

// RunSummary describes a completed run.
type RunSummary struct {
	ID              string
	StartedAt       time.Time
	EndedAt         time.Time
	Config          QuizConfig
	Total           int
	Correct         int
	Incorrect       int
	ResponseTimes   []int
	QuestionIndices []int
	Answers         []AnswerRecord
}

// PassPercentage returns the share of correct answers, rounded half to even.
func (s RunSummary) PassPercentage() int {
	return passPercentage(s.Correct, s.Total)
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Operator    Operator
	Since       *time.Time
	Last        int
	CurveWindow int
}

// RunAggregate summarizes a stored run for reporting.
type RunAggregate struct {
	ID                 string
	StartedAt          time.Time
	EndedAt            time.Time
	Total              int
	Correct            int
	Incorrect          int
	UpperBound         int
	TimeLimit          int
	Operators          []Operator
	ResponseSumSeconds int
}

// PassPercentage returns the share of correct answers, rounded half to even.
func (r RunAggregate) PassPercentage() int {
	return passPercentage(r.Correct, r.Total)
}

func passPercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(correct) / float64(total) * 100))
}

// OperatorAggregate aggregates answers per operator.
type OperatorAggregate struct {
	Operator           Operator
	Correct            int
	Incorrect          int
	ResponseSumSeconds int
	TimedOut           int
}

// Mistake is a failed answer joined with its run.
type Mistake struct {
	RunID   string
	EndedAt time.Time
	Answer  AnswerRecord
}
