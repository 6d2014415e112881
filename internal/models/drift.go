package models

import "fmt"

// DriftMethod selects the drift correction strategy.
type DriftMethod string

const (
	DriftNone       DriftMethod = "none"
	DriftLinear     DriftMethod = "linear"
	DriftStepwise   DriftMethod = "stepwise"
	DriftPolynomial DriftMethod = "polynomial"
)

// ParseDriftMethod maps a user-supplied name onto a DriftMethod.
func ParseDriftMethod(s string) (DriftMethod, error) {
	switch DriftMethod(s) {
	case DriftNone, DriftLinear, DriftStepwise, DriftPolynomial:
		return DriftMethod(s), nil
	case "":
		return DriftLinear, nil
	}
	return "", fmt.Errorf("unknown drift method %q: must be none, linear, stepwise or polynomial", s)
}

// StandardKind classifies a detected standard row.
type StandardKind string

const (
	StandardBase      StandardKind = "base"
	StandardCone      StandardKind = "cone"
	StandardReference StandardKind = "reference"
	StandardCheck     StandardKind = "check"
)

// StandardMarker is a row recognised as a check-standard.
type StandardMarker struct {
	Index  int          `json:"index"`
	Label  string       `json:"label"`
	Kind   StandardKind `json:"kind"`
	Number int          `json:"number"`
}

// DriftSegment is the index range between two consecutive standards.
// Adjacent segments share their boundary index. The first and last
// segments are widened to the edges of the run; StandardStart and
// StandardEnd keep the rows of the bracketing standards, and StartLabel
// and EndLabel are the labels of those standard rows, not of StartIndex
// and EndIndex. Both labels are empty when the run has no standards to
// bracket it.
type DriftSegment struct {
	SegmentIndex  int    `json:"segment_index"`
	StartIndex    int    `json:"start_index"`
	EndIndex      int    `json:"end_index"`
	StandardStart int    `json:"standard_start"`
	StandardEnd   int    `json:"standard_end"`
	StartLabel    string `json:"start_label,omitempty"`
	EndLabel      string `json:"end_label,omitempty"`
	SampleCount   int    `json:"sample_count"`
}

// Contains reports whether row lies within the segment bounds.
func (s DriftSegment) Contains(row int) bool {
	return row >= s.StartIndex && row <= s.EndIndex
}

// SegmentRatios maps segment index to element to drift ratio.
type SegmentRatios map[int]map[string]float64

// Ratio returns the ratio for a segment and element, defaulting to 1.
func (r SegmentRatios) Ratio(segment int, element string) float64 {
	if v, ok := r[segment][element]; ok {
		return v
	}
	return 1.0
}

// ElementDrift summarises drift for one element across a run.
type ElementDrift struct {
	Element      string  `json:"element"`
	InitialRatio float64 `json:"initial_ratio"`
	FinalRatio   float64 `json:"final_ratio"`
	DriftPercent float64 `json:"drift_percent"`
	AvgSlope     float64 `json:"avg_slope"`
	Intercept    float64 `json:"intercept"`
}

// CorrectedSample is one row after drift correction. CorrectionFactors only
// holds elements that were actually corrected.
type CorrectedSample struct {
	Label             string              `json:"label"`
	RowIndex          int                 `json:"row_index"`
	SegmentIndex      int                 `json:"segment_index"`
	OriginalValues    map[string]*float64 `json:"original_values"`
	CorrectedValues   map[string]*float64 `json:"corrected_values"`
	CorrectionFactors map[string]float64  `json:"correction_factors"`
}

// DriftResult is the output of drift analysis or correction.
type DriftResult struct {
	Method           DriftMethod             `json:"method"`
	TotalSamples     int                     `json:"total_samples"`
	CorrectedSamples int                     `json:"corrected_samples"`
	Segments         []DriftSegment          `json:"segments"`
	Ratios           SegmentRatios           `json:"ratios,omitempty"`
	ElementDrifts    map[string]ElementDrift `json:"element_drifts"`
	CorrectedData    []CorrectedSample       `json:"corrected_data"`
}

// SlopeAction selects how a fitted trend line is rotated.
type SlopeAction string

const (
	SlopeZero       SlopeAction = "zero"
	SlopeRotateUp   SlopeAction = "up"
	SlopeRotateDown SlopeAction = "down"
	SlopeCustom     SlopeAction = "custom"
)

// SlopeResult is the output of a slope adjustment on one element.
type SlopeResult struct {
	Element           string            `json:"element"`
	OriginalSlope     float64           `json:"original_slope"`
	NewSlope          float64           `json:"new_slope"`
	OriginalIntercept float64           `json:"original_intercept"`
	NewIntercept      float64           `json:"new_intercept"`
	CorrectedData     []CorrectedSample `json:"corrected_data"`
}

// Corrected returns the row with its corrected readings.
func (c CorrectedSample) Corrected() Sample {
	return Sample{Label: c.Label, Values: c.CorrectedValues}
}
