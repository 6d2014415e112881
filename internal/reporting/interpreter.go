package reporting

import (
	"fmt"
	"math"
	"strings"

	"github.com/isatislab/isatis/internal/models"
)

// InterpretPassRate returns a human-readable explanation of how many
// checks fell inside the tolerance band.
func InterpretPassRate(passed, total int) string {
	if total <= 0 {
		return "No checks were evaluated"
	}
	pct := float64(passed) / float64(total) * 100
	switch {
	case passed >= total:
		return fmt.Sprintf("All checks within tolerance (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most checks within tolerance (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the checks within tolerance (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few checks within tolerance (%.0f%%)", pct)
	}
}

// InterpretImprovement describes the change in passing checks.
func InterpretImprovement(pct float64) string {
	switch {
	case pct > 0:
		return fmt.Sprintf("Correction improved the pass count by %.1f%%", pct)
	case pct < 0:
		return fmt.Sprintf("Correction reduced the pass count by %.1f%%", -pct)
	default:
		return "Correction did not change the pass count"
	}
}

// InterpretDrift labels the magnitude of an element's drift over a run.
func InterpretDrift(driftPercent float64) string {
	a := math.Abs(driftPercent)
	switch {
	case a < 2:
		return "Stable (<2%)"
	case a < 5:
		return "Moderate (2-5%)"
	default:
		return "Significant (>5%)"
	}
}

// CheckCount counts the sample and element cells that carry a diff after
// correction, the denominator of the pass counts.
func CheckCount(data []models.OptimizedSample) int {
	n := 0
	for _, row := range data {
		n += len(row.DiffPercentAfter)
	}
	return n
}

// FormatOptimizationSummary produces a plain-language report of an
// optimization run.
func FormatOptimizationSummary(res *models.OptimizationResult) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")
	checks := CheckCount(res.OptimizedData)
	fmt.Fprintf(&b, "Samples:      %s (%s checks)\n", FormatCount(res.TotalSamples), FormatCount(checks))
	fmt.Fprintf(&b, "Before:       %s\n", InterpretPassRate(res.PassedBefore, checks))
	fmt.Fprintf(&b, "After:        %s\n", InterpretPassRate(res.PassedAfter, checks))
	fmt.Fprintf(&b, "Improvement:  %s\n", InterpretImprovement(res.ImprovementPercent))

	if len(res.Elements) > 0 {
		b.WriteString("\nPer-Element:\n")
		for _, el := range sortedKeys(res.Elements) {
			e := res.Elements[el]
			icon := "✓"
			if e.PassedAfter < e.PassedBefore {
				icon = "✗"
			}
			fmt.Fprintf(&b, "  %s %s: blank %s, scale %s, model %s, %d -> %d passing\n",
				icon, el, FormatNumber(e.Blank, 4), FormatNumber(e.Scale, 4), e.SelectedModel, e.PassedBefore, e.PassedAfter)
			if ci := e.MeanDiffCI; ci != nil {
				fmt.Fprintf(&b, "    mean diff %s%% (%.0f%% CI %s to %s)\n",
					FormatNumber(ci.Mean, 2), ci.Level*100, FormatNumber(ci.Lower, 2), FormatNumber(ci.Upper, 2))
			}
		}
	}

	return b.String()
}

// FormatDriftSummary produces a plain-language report of a drift analysis.
func FormatDriftSummary(res *models.DriftResult) string {
	var b strings.Builder

	b.WriteString("=== Drift ===\n\n")
	fmt.Fprintf(&b, "Method:     %s\n", res.Method)
	fmt.Fprintf(&b, "Segments:   %d\n", len(res.Segments))
	fmt.Fprintf(&b, "Samples:    %s total, %s corrected\n", FormatCount(res.TotalSamples), FormatCount(res.CorrectedSamples))

	if len(res.ElementDrifts) > 0 {
		b.WriteString("\nPer-Element:\n")
		for _, el := range sortedKeys(res.ElementDrifts) {
			d := res.ElementDrifts[el]
			fmt.Fprintf(&b, "  %s: %s%% %s\n", el, FormatNumber(d.DriftPercent, 2), InterpretDrift(d.DriftPercent))
		}
	}

	return b.String()
}
