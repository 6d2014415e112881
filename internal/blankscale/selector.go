package blankscale

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/isatislab/isatis/internal/evolution"
	"github.com/isatislab/isatis/internal/models"
)

// Evaluate scores a solution found for model with every comparison metric.
func Evaluate(e Evaluator, model models.Model, sol evolution.Solution) models.ModelEvaluation {
	return models.ModelEvaluation{
		Model:       model,
		Blank:       sol.Blank,
		Scale:       sol.Scale,
		Fitness:     sol.Fitness,
		Passed:      e.PassCount(sol.Blank, sol.Scale),
		SSE:         e.SSE(sol.Blank, sol.Scale),
		Huber:       e.Huber(sol.Blank, sol.Scale),
		Generations: sol.Generations,
		Converged:   sol.Converged,
	}
}

// Select picks the winning evaluation: most passes, then lowest SSE, then
// lowest Huber loss. Remaining ties keep the earlier evaluation.
func Select(evals []models.ModelEvaluation) (models.ModelEvaluation, bool) {
	if len(evals) == 0 {
		return models.ModelEvaluation{}, false
	}
	best := evals[0]
	for _, ev := range evals[1:] {
		if better(ev, best) {
			best = ev
		}
	}
	return best, true
}

func better(a, b models.ModelEvaluation) bool {
	if a.Passed != b.Passed {
		return a.Passed > b.Passed
	}
	if a.SSE != b.SSE {
		return a.SSE < b.SSE
	}
	return a.Huber < b.Huber
}

// OptimizeElement fits blank and scale for one element. In multi-model mode
// every model gets its own optimizer run and the winner is chosen by
// Select; otherwise only the pass-count model runs. rng must be owned by
// the caller.
func OptimizeElement(ctx context.Context, e Evaluator, multiModel bool, opts evolution.Options, rng *rand.Rand) (models.CorrectionParams, []models.ModelEvaluation, error) {
	toRun := []models.Model{models.ModelPassCount}
	if multiModel {
		toRun = models.Models
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	evals := make([]models.ModelEvaluation, 0, len(toRun))
	for _, m := range toRun {
		sol, err := evolution.Optimize(ctx, e.Objective(m), opts, rng)
		if err != nil {
			return models.CorrectionParams{}, evals, fmt.Errorf("element %s model %s: %w", e.Element, m, err)
		}
		ev := Evaluate(e, m, sol)
		logger.Debug("model evaluated",
			"element", e.Element, "model", string(m),
			"blank", ev.Blank, "scale", ev.Scale,
			"passed", ev.Passed, "sse", ev.SSE, "huber", ev.Huber)
		evals = append(evals, ev)
	}

	winner, _ := Select(evals)
	return models.CorrectionParams{
		Element:       e.Element,
		Blank:         winner.Blank,
		Scale:         winner.Scale,
		SelectedModel: winner.Model,
	}, evals, nil
}
