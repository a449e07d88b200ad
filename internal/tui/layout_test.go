package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/adalan/internal/model"
)

func TestRenderProblemHorizontal(t *testing.T) {
	cases := []struct {
		p    model.Problem
		want string
	}{
		{model.Problem{Operator: model.OpAdd, A: 12, B: 7}, "12 + 7 = _"},
		{model.Problem{Operator: model.OpMultiply, A: 3, B: 4}, "3 X 4 = _"},
		{model.Problem{Operator: model.OpDivide, A: 12, B: 4}, "12 / 4 = _"},
		{model.Problem{Operator: model.OpSquare, A: 1, B: 7}, "7² = _"},
		{model.Problem{Operator: model.OpCube, A: 1, B: 3}, "3³ = _"},
		{model.Problem{Operator: model.OpSquareRoot, A: 49, B: 2}, "√49 = _"},
	}
	for _, tc := range cases {
		if got := renderProblem(tc.p, model.Horizontal, "_"); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.p.Operator, tc.want, got)
		}
	}
}

func TestRenderProblemVertical(t *testing.T) {
	got := renderProblem(model.Problem{Operator: model.OpSubtract, A: 100, B: 7}, model.Vertical, "_")
	want := strings.Join([]string{
		"100",
		"- 7",
		"───",
		"_",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected vertical layout:\n%s", got)
	}

	got = renderProblem(model.Problem{Operator: model.OpSquareRoot, A: 9}, model.Vertical, "_")
	if got != "√9\n──\n_" {
		t.Fatalf("unexpected unary vertical layout:\n%s", got)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("(Q-1) 12 + 7 = 19  You entered: 5", 20, "  ")
	want := []string{"(Q-1) 12 + 7 = 19", "  You entered: 5"}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if short := wrapText("ok", 20, "  "); len(short) != 1 || short[0] != "ok" {
		t.Fatalf("short text should not wrap: %v", short)
	}
}

func TestErrorLogLinesKeepsNewest(t *testing.T) {
	entries := []string{"one", "two", "three"}
	got := errorLogLines(entries, 0, 2)
	if len(got) != 2 || got[0] != "two" || got[1] != "three" {
		t.Fatalf("unexpected lines %v", got)
	}
}
