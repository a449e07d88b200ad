package stats

import (
	"context"
	"fmt"

	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/store"
)

const recentMistakeLimit = 50

// Report contains precomputed data for stats rendering.
type Report struct {
	Runs               []model.RunAggregate
	WindowRunIDs       []string
	OperatorAggsAll    []model.OperatorAggregate
	OperatorAggsWindow []model.OperatorAggregate
	Mistakes           []model.Mistake
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list runs: %w", err)
	}
	windowIDs := lastRunIDs(runs, cfg.CurveWindow)
	all, err := st.OperatorAggregates(ctx, runIDs(runs))
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate operators: %w", err)
	}
	window, err := st.OperatorAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate operators: %w", err)
	}
	mistakes, err := st.RecentMistakes(ctx, recentMistakeLimit)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load mistakes: %w", err)
	}
	if cfg.Operator != "" {
		all = filterOperator(all, cfg.Operator)
		window = filterOperator(window, cfg.Operator)
		kept := mistakes[:0]
		for _, m := range mistakes {
			if m.Answer.Operator == cfg.Operator {
				kept = append(kept, m)
			}
		}
		mistakes = kept
	}
	return Report{
		Runs:               runs,
		WindowRunIDs:       windowIDs,
		OperatorAggsAll:    all,
		OperatorAggsWindow: window,
		Mistakes:           mistakes,
	}, nil
}

func filterOperator(aggs []model.OperatorAggregate, op model.Operator) []model.OperatorAggregate {
	var out []model.OperatorAggregate
	for _, agg := range aggs {
		if agg.Operator == op {
			out = append(out, agg)
		}
	}
	return out
}

func runIDs(runs []model.RunAggregate) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func lastRunIDs(runs []model.RunAggregate, window int) []string {
	if window <= 0 || len(runs) <= window {
		return runIDs(runs)
	}
	return runIDs(runs[len(runs)-window:])
}
