package improvement

import (
	"fmt"

	"github.com/aeroopt/optimization-core/pkg/models"
)

// defaultImprovementThreshold is the relative Cd improvement (percent)
// below which the loop is considered converged.
const defaultImprovementThreshold = 0.5

// Decision is the convergence verdict for one iteration.
type Decision struct {
	Converged      bool
	Reason         string
	Iteration      int
	BestCd         float64
	ImprovementPct float64
}

// Evaluator decides whether the optimization loop should stop. It is a
// pure function of the persisted iteration history; calling Check twice
// with the same inputs yields the same decision.
type Evaluator struct {
	MaxIterations        int
	ImprovementThreshold float64
}

// NewEvaluator creates a convergence evaluator. A non-positive threshold
// falls back to the default 0.5%.
func NewEvaluator(maxIterations int, improvementThreshold float64) *Evaluator {
	if improvementThreshold <= 0 {
		improvementThreshold = defaultImprovementThreshold
	}
	return &Evaluator{
		MaxIterations:        maxIterations,
		ImprovementThreshold: improvementThreshold,
	}
}

// Check evaluates the stopping rule for the given iteration against the
// persisted per-iteration history, checked in strict order:
//
//  1. the iteration ceiling,
//  2. enough history to compare (at least two summaries with real scores),
//  3. relative improvement of the latest best Cd against the prior one.
//
// A zero or missing prior best counts as insufficient data rather than a
// division fault.
func (e *Evaluator) Check(history []models.IterationSummary, iteration int) Decision {
	d := Decision{Iteration: iteration}
	if len(history) > 0 {
		d.BestCd = history[len(history)-1].BestCd
	}

	if iteration >= e.MaxIterations {
		d.Converged = true
		d.Reason = fmt.Sprintf("maximum iterations reached (%d)", e.MaxIterations)
		return d
	}

	if len(history) < 2 {
		d.Reason = "insufficient data"
		return d
	}

	current := history[len(history)-1].BestCd
	previous := history[len(history)-2].BestCd
	if previous <= 0 || current <= 0 {
		d.Reason = "insufficient data"
		return d
	}

	improvementPct := (previous - current) / previous * 100
	d.ImprovementPct = improvementPct

	if improvementPct < e.ImprovementThreshold {
		d.Converged = true
		d.Reason = fmt.Sprintf("improvement below threshold (%.3f%% < %.1f%%)",
			improvementPct, e.ImprovementThreshold)
		return d
	}

	d.Reason = fmt.Sprintf("still improving (%.3f%% >= %.1f%%)",
		improvementPct, e.ImprovementThreshold)
	return d
}
