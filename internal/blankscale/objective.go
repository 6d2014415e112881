package blankscale

import (
	"github.com/isatislab/isatis/internal/evolution"
	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/statistics"
)

// Evaluator scores a (blank, scale) pair for one element over a set of
// matched samples. Samples without a reading or with a zero or missing
// certified value are ignored.
type Evaluator struct {
	Data    []models.MatchedSample
	Element string
	Band    statistics.Band
}

// Diffs returns the diff percentages of the corrected readings.
func (e Evaluator) Diffs(blank, scale float64) []float64 {
	out := make([]float64, 0, len(e.Data))
	for _, m := range e.Data {
		v, ref, ok := m.Pair(e.Element)
		if !ok {
			continue
		}
		d, ok := statistics.DiffPercent((v-blank)*scale, ref)
		if !ok {
			continue
		}
		out = append(out, d)
	}
	return out
}

// PassCount counts corrected readings inside the band.
func (e Evaluator) PassCount(blank, scale float64) int {
	n := 0
	for _, d := range e.Diffs(blank, scale) {
		if e.Band.Contains(d) {
			n++
		}
	}
	return n
}

// SSE is the mean squared diff percentage.
func (e Evaluator) SSE(blank, scale float64) float64 {
	diffs := e.Diffs(blank, scale)
	sq := make([]float64, len(diffs))
	for i, d := range diffs {
		sq[i] = d * d
	}
	return statistics.Mean(sq)
}

// Huber is the mean Huber loss of the diff percentages.
func (e Evaluator) Huber(blank, scale float64) float64 {
	diffs := e.Diffs(blank, scale)
	loss := make([]float64, len(diffs))
	for i, d := range diffs {
		loss[i] = statistics.HuberLoss(statistics.DefaultHuberDelta, d)
	}
	return statistics.Mean(loss)
}

// Objective returns the fitness function maximized for model.
func (e Evaluator) Objective(model models.Model) evolution.Objective {
	switch model {
	case models.ModelHuber:
		return func(blank, scale float64) float64 { return -e.Huber(blank, scale) }
	case models.ModelSSE:
		return func(blank, scale float64) float64 { return -e.SSE(blank, scale) }
	default:
		return func(blank, scale float64) float64 { return float64(e.PassCount(blank, scale)) }
	}
}
