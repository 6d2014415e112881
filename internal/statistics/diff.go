// Package statistics holds the diff-percent conventions and aggregate
// helpers shared by the optimizer, the CRM comparison and reporting.
package statistics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultHuberDelta is the transition point of the Huber loss.
const DefaultHuberDelta = 1.0

// Band is an inclusive tolerance band on diff percentages.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultBand is the ±10% band used when none is configured.
var DefaultBand = Band{Min: -10, Max: 10}

// bandPlaces is the precision diffs are compared at, so that readings on
// the band edge are not pushed out by float64 rounding.
const bandPlaces = 9

// Contains reports whether diff lies inside the band, bounds included.
// diff is rounded to bandPlaces decimals first.
func (b Band) Contains(diff float64) bool {
	d := Round(diff, bandPlaces)
	return d >= b.Min && d <= b.Max
}

// DiffPercent returns ((value - reference) / reference) * 100.
// ok is false when reference is zero.
func DiffPercent(value, reference float64) (float64, bool) {
	if reference == 0 {
		return 0, false
	}
	return (value - reference) / reference * 100, true
}

// CRMDiffPercent returns ((reference - value) / reference) * 100, the sign
// convention of the CRM comparison table. ok is false when reference is
// zero.
func CRMDiffPercent(value, reference float64) (float64, bool) {
	if reference == 0 {
		return 0, false
	}
	return (reference - value) / reference * 100, true
}

// HuberLoss is 0.5*r² for |r| <= delta, else delta*(|r| - 0.5*delta).
func HuberLoss(delta, r float64) float64 {
	a := math.Abs(r)
	if a <= delta {
		return 0.5 * r * r
	}
	return delta * (a - 0.5*delta)
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
