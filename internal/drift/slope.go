package drift

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/isatislab/isatis/internal/models"
)

// RotateFraction is how far RotateUp and RotateDown move the slope,
// relative to its magnitude.
const RotateFraction = 0.1

var ErrTooFewPoints = errors.New("not enough data points")

// NewSlope returns the slope an action produces from slope.
func NewSlope(action models.SlopeAction, slope, target float64) (float64, error) {
	switch action {
	case models.SlopeZero:
		return 0, nil
	case models.SlopeRotateUp:
		return slope + math.Abs(slope)*RotateFraction, nil
	case models.SlopeRotateDown:
		return slope - math.Abs(slope)*RotateFraction, nil
	case models.SlopeCustom:
		return target, nil
	}
	return 0, fmt.Errorf("unknown slope action %q", action)
}

// OptimizeSlope fits a trend line through element readings against row
// index and rescales every reading so the trend follows the new slope. The
// line pivots around the centroid of the readings.
func OptimizeSlope(samples []models.Sample, element string, action models.SlopeAction, target float64) (*models.SlopeResult, error) {
	var xs, ys []float64
	for i, s := range samples {
		if v, ok := s.Value(element); ok {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("slope for %s: %w: need 2, have %d", element, ErrTooFewPoints, len(xs))
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	newSlope, err := NewSlope(action, slope, target)
	if err != nil {
		return nil, err
	}
	newIntercept := stat.Mean(ys, nil) - newSlope*stat.Mean(xs, nil)

	res := &models.SlopeResult{
		Element:           element,
		OriginalSlope:     slope,
		NewSlope:          newSlope,
		OriginalIntercept: intercept,
		NewIntercept:      newIntercept,
		CorrectedData:     make([]models.CorrectedSample, 0, len(samples)),
	}
	for i, s := range samples {
		cs := models.CorrectedSample{
			Label:             s.Label,
			RowIndex:          i,
			OriginalValues:    models.CloneValues(s.Values),
			CorrectedValues:   models.CloneValues(s.Values),
			CorrectionFactors: map[string]float64{},
		}
		if v, ok := s.Value(element); ok {
			factor := 1.0
			if orig := intercept + slope*float64(i); orig != 0 {
				factor = (newIntercept + newSlope*float64(i)) / orig
			}
			cs.CorrectedValues[element] = models.Float(v * factor)
			cs.CorrectionFactors[element] = factor
		}
		res.CorrectedData = append(res.CorrectedData, cs)
	}
	return res, nil
}
