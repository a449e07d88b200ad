package quiz

import (
	"errors"
	"testing"

	"github.com/verte-zerg/adalan/internal/model"
)

func TestCorrectAnswer(t *testing.T) {
	tests := []struct {
		p    model.Problem
		want float64
	}{
		{model.Problem{Operator: model.OpAdd, A: 2, B: 2}, 4},
		{model.Problem{Operator: model.OpSubtract, A: 3, B: 9}, -6},
		{model.Problem{Operator: model.OpMultiply, A: 7, B: 6}, 42},
		{model.Problem{Operator: model.OpDivide, A: 18, B: 3}, 6},
		{model.Problem{Operator: model.OpDivide, A: 5, B: 2}, 2},
		{model.Problem{Operator: model.OpDivide, A: 7, B: 2}, 4},
		{model.Problem{Operator: model.OpSquare, A: 9, B: 4}, 16},
		{model.Problem{Operator: model.OpCube, A: 9, B: 3}, 27},
		{model.Problem{Operator: model.OpSquareRoot, A: 2, B: 40}, 1.41},
		{model.Problem{Operator: model.OpSquareRoot, A: 49, B: 0}, 7},
	}
	for _, tc := range tests {
		if got := CorrectAnswer(tc.p); got != tc.want {
			t.Errorf("CorrectAnswer(%+v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		op      model.Operator
		input   string
		want    float64
		wantErr bool
	}{
		{model.OpAdd, "", 0, false},
		{model.OpAdd, "  ", 0, false},
		{model.OpAdd, "42", 42, false},
		{model.OpSubtract, "-6", -6, false},
		{model.OpAdd, " 7 ", 7, false},
		{model.OpAdd, "4.0", 0, true},
		{model.OpAdd, "abc", 0, true},
		{model.OpSquareRoot, "1.41", 1.41, false},
		{model.OpSquareRoot, "7", 7, false},
		{model.OpSquareRoot, "", 0, false},
		{model.OpSquareRoot, "1,41", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseAnswer(tc.op, tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAnswer) {
				t.Errorf("ParseAnswer(%s, %q) error = %v, want ErrInvalidAnswer", tc.op, tc.input, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseAnswer(%s, %q) = %v, %v, want %v", tc.op, tc.input, got, err, tc.want)
		}
	}
}

func TestSquareRootRequiresExactRounding(t *testing.T) {
	p := model.Problem{Operator: model.OpSquareRoot, A: 2}
	entered, err := ParseAnswer(p.Operator, "1.414")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if entered == CorrectAnswer(p) {
		t.Fatalf("expected unrounded answer to fail exact comparison")
	}
	entered, _ = ParseAnswer(p.Operator, "1.41")
	if entered != CorrectAnswer(p) {
		t.Fatalf("expected two-decimal answer to pass")
	}
}

func TestFormatErrorLine(t *testing.T) {
	tests := []struct {
		p                model.Problem
		correct, entered float64
		blank            bool
		want             string
	}{
		{model.Problem{Operator: model.OpAdd, A: 2, B: 2}, 4, 5, false, "(Q-3) 2 + 2 = 4  You entered: 5"},
		{model.Problem{Operator: model.OpMultiply, A: 3, B: 4}, 12, 0, true, "(Q-3) 3 X 4 = 12  You entered: 0"},
		{model.Problem{Operator: model.OpDivide, A: 12, B: 4}, 3, 4, false, "(Q-3) 12 / 4 = 3  You entered: 4"},
		{model.Problem{Operator: model.OpSquare, A: 1, B: 5}, 25, 24, false, "(Q-3) 5 x 5 = 25  You entered: 24"},
		{model.Problem{Operator: model.OpCube, A: 1, B: 2}, 8, 6, false, "(Q-3) 2 x 2 x 2 = 8  You entered: 6"},
		{model.Problem{Operator: model.OpSquareRoot, A: 2}, 1.41, 1.4, false, "(Q-3) √2 = 1.41  You entered: 1.4"},
		{model.Problem{Operator: model.OpSquareRoot, A: 9}, 3, 0, false, "(Q-3) √9 = 3.0  You entered: 0.0"},
		{model.Problem{Operator: model.OpSquareRoot, A: 2}, 1.41, 0, true, "(Q-3) √2 = 1.41  You entered: 0"},
	}
	for _, tc := range tests {
		if got := FormatErrorLine(3, tc.p, tc.correct, tc.entered, tc.blank); got != tc.want {
			t.Errorf("FormatErrorLine(%+v, blank=%v) = %q, want %q", tc.p, tc.blank, got, tc.want)
		}
	}
}

func TestFormatErrorLineCountsDown(t *testing.T) {
	p := model.Problem{Operator: model.OpAdd, A: 2, B: 2}
	for remaining, want := range map[int]string{
		3: "(Q-3) 2 + 2 = 4  You entered: 5",
		2: "(Q-2) 2 + 2 = 4  You entered: 5",
		1: "(Q-1) 2 + 2 = 4  You entered: 5",
	} {
		if got := FormatErrorLine(remaining, p, 4, 5, false); got != want {
			t.Errorf("FormatErrorLine(%d) = %q, want %q", remaining, got, want)
		}
	}
}
