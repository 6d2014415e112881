package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/statistics"
)

func markdownResult(passAfter bool) *models.OptimizationResult {
	passed := 0
	if passAfter {
		passed = 1
	}
	return &models.OptimizationResult{
		TotalSamples: 1,
		PassedBefore: 0,
		PassedAfter:  passed,
		Elements: map[string]models.ElementOptimization{
			"Cu": {
				CorrectionParams: models.CorrectionParams{Element: "Cu", Blank: 1.5, Scale: 0.8, SelectedModel: models.ModelHuber},
				PassedAfter:      passed,
				MeanDiffBefore:   20,
				MeanDiffAfter:    -2.5,
			},
		},
		OptimizedData: []models.OptimizedSample{{
			Label:             "OREAS 1",
			ReferenceID:       "OREAS 1",
			DiffPercentBefore: map[string]float64{"Cu": 20},
			DiffPercentAfter:  map[string]float64{"Cu": -2.5},
			PassBefore:        map[string]bool{"Cu": false},
			PassAfter:         map[string]bool{"Cu": passAfter},
		}},
	}
}

func TestFormatMarkdown_Passed(t *testing.T) {
	md := FormatMarkdown(markdownResult(true), statistics.DefaultBand)

	assert.Contains(t, md, "## Isatis QC Results")
	assert.Contains(t, md, "✅ Passed")
	assert.Contains(t, md, "**Band:** -10% to 10%")
	assert.Contains(t, md, "| Cu | B (huber) | 1.5000 | 0.8000 | 0 → 1 | 20.00% → -2.50% |")
	assert.NotContains(t, md, "Outside Tolerance")
}

func TestFormatMarkdown_Failed(t *testing.T) {
	md := FormatMarkdown(markdownResult(false), statistics.Band{Min: -1, Max: 1})

	assert.Contains(t, md, "❌ Failed")
	assert.Contains(t, md, "### Outside Tolerance")
	assert.Contains(t, md, "- **OREAS 1** Cu: -2.50% (reference OREAS 1)")
}
