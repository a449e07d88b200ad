// Package generator builds random arithmetic problems.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/adalan/internal/model"
)

// Generator produces randomized problems.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a Generator drawing from src.
func NewWithSource(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// Generate draws both operands from [0, upperBound] and an operator uniformly from ops.
// ops must not be empty.
func (g *Generator) Generate(upperBound int, ops []model.Operator) model.Problem {
	a, b := g.operands(upperBound)
	op := ops[g.rnd.Intn(len(ops))]
	return Build(op, a, b)
}

// GenerateWeighted is Generate with operators in weak weighted by 1+factor.
func (g *Generator) GenerateWeighted(upperBound int, ops []model.Operator, weak map[model.Operator]struct{}, factor float64) model.Problem {
	a, b := g.operands(upperBound)
	weights := make([]float64, len(ops))
	total := 0.0
	for i, op := range ops {
		w := 1.0
		if _, ok := weak[op]; ok {
			w += factor
		}
		weights[i] = w
		total += w
	}
	r := g.rnd.Float64() * total
	acc := 0.0
	idx := len(ops) - 1
	for i, w := range weights {
		acc += w
		if r < acc {
			idx = i
			break
		}
	}
	return Build(ops[idx], a, b)
}

func (g *Generator) operands(upperBound int) (int, int) {
	if upperBound < 0 {
		upperBound = 0
	}
	a := g.rnd.Intn(upperBound + 1)
	b := g.rnd.Intn(upperBound + 1)
	return a, b
}

// Build applies the division repair rule to drawn operands.
// For division: (0,0) becomes (1,1); a zero divisor is swapped with the
// dividend; the dividend is then replaced by a*b so the quotient is exact.
func Build(op model.Operator, a, b int) model.Problem {
	if op == model.OpDivide {
		if a == 0 && b == 0 {
			a, b = 1, 1
		}
		if b == 0 {
			a, b = b, a
		}
		a *= b
	}
	return model.Problem{Operator: op, A: a, B: b}
}
