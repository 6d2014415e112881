package drift

import (
	"sort"

	"github.com/isatislab/isatis/internal/models"
)

// Elements returns every column present in the run, sorted.
func Elements(samples []models.Sample) []string {
	seen := make(map[string]bool)
	for _, s := range samples {
		for col := range s.Values {
			seen[col] = true
		}
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// ratio divides end by start, falling back to 1 when either reading is
// missing or start is zero.
func ratio(samples []models.Sample, start, end int, element string) float64 {
	s, ok := samples[start].Value(element)
	if !ok || s == 0 {
		return 1.0
	}
	e, ok := samples[end].Value(element)
	if !ok {
		return 1.0
	}
	return e / s
}

// ComputeRatios returns, per segment and element, the ratio of the raw
// readings at the segment's closing and opening standards.
func ComputeRatios(samples []models.Sample, segments []models.DriftSegment, elements []string) models.SegmentRatios {
	out := make(models.SegmentRatios, len(segments))
	for _, seg := range segments {
		r := make(map[string]float64, len(elements))
		for _, el := range elements {
			r[el] = ratio(samples, seg.StandardStart, seg.StandardEnd, el)
		}
		out[seg.SegmentIndex] = r
	}
	return out
}

// CumulativeRatio multiplies the ratios of every segment for element.
func CumulativeRatio(ratios models.SegmentRatios, segments []models.DriftSegment, element string) float64 {
	cum := 1.0
	for _, seg := range segments {
		cum *= ratios.Ratio(seg.SegmentIndex, element)
	}
	return cum
}

// ElementDrift summarises drift of element across the run. It reports
// false when the first or last standard reading is missing or the first is
// zero.
func ElementDrift(samples []models.Sample, segments []models.DriftSegment, ratios models.SegmentRatios, element string) (models.ElementDrift, bool) {
	if len(segments) == 0 {
		return models.ElementDrift{}, false
	}
	first, ok := samples[segments[0].StandardStart].Value(element)
	if !ok || first == 0 {
		return models.ElementDrift{}, false
	}
	last, ok := samples[segments[len(segments)-1].StandardEnd].Value(element)
	if !ok {
		return models.ElementDrift{}, false
	}

	var total float64
	var valid int
	for _, seg := range segments {
		s, okS := samples[seg.StandardStart].Value(element)
		e, okE := samples[seg.StandardEnd].Value(element)
		if !okS || !okE || seg.SampleCount <= 0 {
			continue
		}
		total += (e - s) / float64(seg.SampleCount)
		valid++
	}
	avgSlope := 0.0
	if valid > 0 {
		avgSlope = total / float64(valid)
	}

	return models.ElementDrift{
		Element:      element,
		InitialRatio: 1.0,
		FinalRatio:   CumulativeRatio(ratios, segments, element),
		DriftPercent: (last - first) / first * 100,
		AvgSlope:     avgSlope,
		Intercept:    first,
	}, true
}

// StandardRatios returns, per element, the ratios between consecutive
// reference-material rows. Pairs with a missing reading or a zero earlier
// reading are skipped.
func StandardRatios(samples []models.Sample, p Patterns, elements []string) map[string][]float64 {
	p = p.orDefault()
	var idx []int
	for i, s := range samples {
		if p.Reference.MatchString(s.Label) {
			idx = append(idx, i)
		}
	}

	out := make(map[string][]float64, len(elements))
	for _, el := range elements {
		list := []float64{}
		for i := 1; i < len(idx); i++ {
			prev, ok := samples[idx[i-1]].Value(el)
			if !ok || prev == 0 {
				continue
			}
			curr, ok := samples[idx[i]].Value(el)
			if !ok {
				continue
			}
			list = append(list, curr/prev)
		}
		out[el] = list
	}
	return out
}
