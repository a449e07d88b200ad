package stats

import (
	"sort"

	"github.com/verte-zerg/adalan/internal/model"
)

// SelectWeakOperators selects the lowest pass-rate operators from aggregates.
// Operators with no answers are never weak.
func SelectWeakOperators(aggs []model.OperatorAggregate, top int) map[model.Operator]struct{} {
	weak := map[model.Operator]struct{}{}
	var candidates []model.OperatorAggregate
	for _, agg := range aggs {
		if agg.Correct+agg.Incorrect > 0 {
			candidates = append(candidates, agg)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ri := passRate(candidates[i])
		rj := passRate(candidates[j])
		if ri == rj {
			return candidates[i].Operator < candidates[j].Operator
		}
		return ri < rj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for _, agg := range candidates[:top] {
		if passRate(agg) < 1 {
			weak[agg.Operator] = struct{}{}
		}
	}
	return weak
}

func passRate(agg model.OperatorAggregate) float64 {
	rate, _ := RunMetrics(agg.Correct, agg.Incorrect, 0)
	return rate
}
