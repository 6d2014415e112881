package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/reporting"
	"github.com/isatislab/isatis/internal/statistics"
)

// FormatMarkdown formats an optimization result as a markdown report for a
// pull request or a lab notebook.
func FormatMarkdown(res *models.OptimizationResult, band statistics.Band) string {
	var b strings.Builder

	checks := reporting.CheckCount(res.OptimizedData)
	failed := checks - res.PassedAfter

	b.WriteString("## Isatis QC Results\n\n")

	statusIcon := "✅ Passed"
	if failed > 0 {
		statusIcon = "❌ Failed"
	}
	fmt.Fprintf(&b, "**Status:** %s | **Band:** %g%% to %g%% | **Improvement:** %.1f%%\n\n",
		statusIcon, band.Min, band.Max, res.ImprovementPercent)

	fmt.Fprintf(&b, "- **Samples:** %d reference materials, %d checks\n", res.TotalSamples, checks)
	fmt.Fprintf(&b, "- **Passing:** %d before, %d after correction\n\n", res.PassedBefore, res.PassedAfter)

	b.WriteString("### Element Corrections\n\n")
	b.WriteString("| Element | Model | Blank | Scale | Passed | Mean diff |\n")
	b.WriteString("|---------|-------|-------|-------|--------|-----------|\n")

	elements := make([]string, 0, len(res.Elements))
	for el := range res.Elements {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	for _, el := range elements {
		e := res.Elements[el]
		fmt.Fprintf(&b, "| %s | %s | %.4f | %.4f | %d → %d | %.2f%% → %.2f%% |\n",
			el, e.SelectedModel, e.Blank, e.Scale, e.PassedBefore, e.PassedAfter, e.MeanDiffBefore, e.MeanDiffAfter)
	}
	b.WriteString("\n")

	if failed > 0 {
		b.WriteString("### Outside Tolerance\n\n")
		for _, row := range res.OptimizedData {
			for _, el := range elements {
				diff, ok := row.DiffPercentAfter[el]
				if !ok || row.PassAfter[el] {
					continue
				}
				fmt.Fprintf(&b, "- **%s** %s: %.2f%% (reference %s)\n", row.Label, el, diff, row.ReferenceID)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}
