package generator

import (
	"math/rand"
	"testing"

	"github.com/verte-zerg/adalan/internal/model"
)

func TestBuildDivisionRepair(t *testing.T) {
	tests := []struct {
		a, b         int
		wantA, wantB int
	}{
		{0, 0, 1, 1},
		{7, 0, 0, 7},
		{6, 3, 18, 3},
		{0, 4, 0, 4},
		{1, 1, 1, 1},
	}
	for _, tc := range tests {
		p := Build(model.OpDivide, tc.a, tc.b)
		if p.A != tc.wantA || p.B != tc.wantB {
			t.Errorf("Build(divide, %d, %d) = (%d, %d), want (%d, %d)", tc.a, tc.b, p.A, p.B, tc.wantA, tc.wantB)
		}
		if p.B == 0 {
			t.Errorf("Build(divide, %d, %d) produced zero divisor", tc.a, tc.b)
		}
	}
}

func TestBuildLeavesOtherOperatorsAlone(t *testing.T) {
	for _, op := range []model.Operator{model.OpAdd, model.OpSubtract, model.OpMultiply, model.OpSquare, model.OpCube, model.OpSquareRoot} {
		p := Build(op, 0, 0)
		if p.A != 0 || p.B != 0 || p.Operator != op {
			t.Fatalf("unexpected problem for %s: %+v", op, p)
		}
	}
}

func TestGenerateStaysInRange(t *testing.T) {
	g := NewWithSource(rand.NewSource(1))
	ops := []model.Operator{model.OpAdd, model.OpSubtract}
	seen := map[model.Operator]bool{}
	for i := 0; i < 500; i++ {
		p := g.Generate(10, ops)
		if p.A < 0 || p.A > 10 || p.B < 0 || p.B > 10 {
			t.Fatalf("operands out of range: %+v", p)
		}
		seen[p.Operator] = true
	}
	if !seen[model.OpAdd] || !seen[model.OpSubtract] {
		t.Fatalf("expected both operators drawn, got %v", seen)
	}
}

func TestGenerateZeroBound(t *testing.T) {
	g := NewWithSource(rand.NewSource(2))
	p := g.Generate(0, []model.Operator{model.OpDivide})
	if p.A != 1 || p.B != 1 {
		t.Fatalf("expected (1,1) for zero bound division, got %+v", p)
	}
}

func TestGenerateDivisionIsExact(t *testing.T) {
	g := NewWithSource(rand.NewSource(3))
	for i := 0; i < 300; i++ {
		p := g.Generate(50, []model.Operator{model.OpDivide})
		if p.B == 0 {
			t.Fatalf("zero divisor: %+v", p)
		}
		if p.A%p.B != 0 {
			t.Fatalf("inexact division: %+v", p)
		}
	}
}

func TestGenerateWeightedFavorsWeak(t *testing.T) {
	g := NewWithSource(rand.NewSource(4))
	ops := []model.Operator{model.OpAdd, model.OpMultiply}
	weak := map[model.Operator]struct{}{model.OpMultiply: {}}
	counts := map[model.Operator]int{}
	for i := 0; i < 2000; i++ {
		counts[g.GenerateWeighted(20, ops, weak, 4).Operator]++
	}
	if counts[model.OpMultiply] <= counts[model.OpAdd]*2 {
		t.Fatalf("expected weak operator to dominate, got %v", counts)
	}
}
