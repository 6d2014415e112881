package drift

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/isatislab/isatis/internal/models"
)

// MinPolynomialPoints is the fewest readings a quadratic fit accepts.
const MinPolynomialPoints = 3

// rowFactor returns the correction factor for one reading. ok is false when
// the reading stays uncorrected.
type rowFactor func(row int, seg models.DriftSegment, position int, element string) (float64, bool)

// Correct applies method to every row of the run. Rows are visited segment
// by segment and ctx is checked before each one.
func Correct(ctx context.Context, method models.DriftMethod, samples []models.Sample, segments []models.DriftSegment, ratios models.SegmentRatios, elements []string) ([]models.CorrectedSample, error) {
	switch method {
	case models.DriftNone:
		return walk(ctx, samples, segments, elements, nil)
	case models.DriftLinear:
		return walk(ctx, samples, segments, elements, linearFactor(ratios))
	case models.DriftStepwise:
		return walk(ctx, samples, segments, elements, stepwiseFactor(ratios, segments))
	case models.DriftPolynomial:
		fits := make(map[string]Quadratic, len(elements))
		for _, el := range elements {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("polynomial fit: %w", err)
			}
			if q, ok := fitQuadratic(samples, el); ok {
				fits[el] = q
			}
		}
		return walk(ctx, samples, segments, elements, polynomialFactor(fits))
	}
	return nil, fmt.Errorf("unknown drift method %q", method)
}

// walk builds the corrected run. factor may be nil for a pass-through.
func walk(ctx context.Context, samples []models.Sample, segments []models.DriftSegment, elements []string, factor rowFactor) ([]models.CorrectedSample, error) {
	out := make([]models.CorrectedSample, 0, len(samples))
	next := 0
	for pos, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.SegmentIndex, err)
		}
		for row := max(next, seg.StartIndex); row <= seg.EndIndex && row < len(samples); row++ {
			out = append(out, correctRow(samples[row], row, seg, pos, elements, factor))
		}
		next = max(next, seg.EndIndex+1)
	}
	return out, nil
}

func correctRow(s models.Sample, row int, seg models.DriftSegment, pos int, elements []string, factor rowFactor) models.CorrectedSample {
	cs := models.CorrectedSample{
		Label:             s.Label,
		RowIndex:          row,
		SegmentIndex:      seg.SegmentIndex,
		OriginalValues:    models.CloneValues(s.Values),
		CorrectedValues:   models.CloneValues(s.Values),
		CorrectionFactors: map[string]float64{},
	}
	if factor == nil {
		return cs
	}
	for _, el := range elements {
		v, ok := s.Value(el)
		if !ok {
			continue
		}
		f, ok := factor(row, seg, pos, el)
		if !ok {
			continue
		}
		cs.CorrectedValues[el] = models.Float(v * f)
		cs.CorrectionFactors[el] = f
	}
	return cs
}

// inverse turns an effective drift ratio into a correction factor.
func inverse(effective float64) (float64, bool) {
	if effective == 0 {
		return 0, false
	}
	return 1 / effective, true
}

// LinearEffectiveRatio interpolates the drift ratio between the bracketing
// standards. Rows outside them are clamped to the nearest standard.
func LinearEffectiveRatio(ratio float64, seg models.DriftSegment, row int) float64 {
	length := seg.StandardEnd - seg.StandardStart
	progress := 0.0
	if length > 0 {
		progress = float64(row-seg.StandardStart) / float64(length)
	}
	progress = min(max(progress, 0), 1)
	return 1 + (ratio-1)*progress
}

// linearFactor leaves rows ahead of the first standard uncorrected; they
// carry no factor.
func linearFactor(ratios models.SegmentRatios) rowFactor {
	return func(row int, seg models.DriftSegment, _ int, el string) (float64, bool) {
		if row < seg.StandardStart {
			return 0, false
		}
		return inverse(LinearEffectiveRatio(ratios.Ratio(seg.SegmentIndex, el), seg, row))
	}
}

// StepwiseEffectiveRatio is 1 + stepDelta*(position+1) where stepDelta
// spreads the cumulative drift evenly over the segments.
func StepwiseEffectiveRatio(cumulative float64, segments, position int) float64 {
	if segments <= 0 {
		return 1
	}
	step := (cumulative - 1) / float64(segments)
	return 1 + step*float64(position+1)
}

func stepwiseFactor(ratios models.SegmentRatios, segments []models.DriftSegment) rowFactor {
	cum := make(map[string]float64)
	return func(_ int, _ models.DriftSegment, pos int, el string) (float64, bool) {
		c, ok := cum[el]
		if !ok {
			c = CumulativeRatio(ratios, segments, el)
			cum[el] = c
		}
		return inverse(StepwiseEffectiveRatio(c, len(segments), pos))
	}
}

// Quadratic is y = A + B*x + C*x² plus the mean of the fitted readings.
type Quadratic struct {
	A, B, C float64
	Mean    float64
}

func (q Quadratic) At(x float64) float64 {
	return q.A + q.B*x + q.C*x*x
}

// fitQuadratic least-squares fits element readings against row index.
func fitQuadratic(samples []models.Sample, element string) (Quadratic, bool) {
	var xs, ys []float64
	for i, s := range samples {
		if v, ok := s.Value(element); ok {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	q, err := FitQuadratic(xs, ys)
	if err != nil {
		return Quadratic{}, false
	}
	return q, true
}

// FitQuadratic solves the least-squares quadratic through (xs, ys) with a
// QR factorization.
func FitQuadratic(xs, ys []float64) (Quadratic, error) {
	n := len(xs)
	if n < MinPolynomialPoints || len(ys) != n {
		return Quadratic{}, fmt.Errorf("%w: need %d, have %d", ErrTooFewPoints, MinPolynomialPoints, n)
	}

	a := mat.NewDense(n, 3, nil)
	for i, x := range xs {
		a.Set(i, 0, 1)
		a.Set(i, 1, x)
		a.Set(i, 2, x*x)
	}
	b := mat.NewVecDense(n, append([]float64(nil), ys...))

	var qr mat.QR
	qr.Factorize(a)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, b); err != nil {
		return Quadratic{}, fmt.Errorf("quadratic fit: %w", err)
	}

	return Quadratic{
		A:    coef.AtVec(0),
		B:    coef.AtVec(1),
		C:    coef.AtVec(2),
		Mean: stat.Mean(ys, nil),
	}, nil
}

func polynomialFactor(fits map[string]Quadratic) rowFactor {
	return func(row int, _ models.DriftSegment, _ int, el string) (float64, bool) {
		q, ok := fits[el]
		if !ok {
			return 0, false
		}
		fitted := q.At(float64(row))
		if fitted == 0 {
			return 0, false
		}
		return q.Mean / fitted, true
	}
}
