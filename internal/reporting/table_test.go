package reporting

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isatislab/isatis/internal/crmcheck"
	"github.com/isatislab/isatis/internal/models"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   string
	}{
		{1234.5, 2, "1,234.50"},
		{0.5, 4, "0.5000"},
		{-3.14159, 2, "-3.14"},
		{1000000, 0, "1,000,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.v, tt.places))
	}
	assert.Equal(t, "12,345", FormatCount(12345))
}

func TestTable_RenderAligned(t *testing.T) {
	tbl := NewTable("Label", "Value")
	tbl.Append("ppm blanks", "1")
	tbl.Append("標準", "2")
	tbl.Append("short")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Label       Value", lines[0])
	assert.Equal(t, "----------  -----", lines[1])

	// the second column starts at the same display offset on every row
	col := runewidth.StringWidth("ppm blanks  ")
	for _, l := range lines[2:4] {
		idx := strings.LastIndex(l, " ")
		assert.Equal(t, col, runewidth.StringWidth(l[:idx+1]), l)
	}
	assert.Equal(t, "short", lines[4])
	assert.Equal(t, 3, tbl.Len())
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
	assert.Equal(t, "標 ", padRight("標", 3))
}

func TestOptimizationTable(t *testing.T) {
	tbl := OptimizationTable(newTestOptimization())
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, []string{"Cu", "A", "2.0000", "0.9000", "1", "2", "15.00", "3.00"}, tbl.rows[0])
}

func TestSampleTable_SkipsMissingCells(t *testing.T) {
	tbl := SampleTable(newTestOptimization().OptimizedData, "Cu")
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "pass", tbl.rows[0][7])
	assert.Equal(t, "FAIL", tbl.rows[1][7])
	assert.Equal(t, "133.2000", tbl.rows[1][3])
}

func TestCRMTable(t *testing.T) {
	rows := []crmcheck.Row{{
		Label:       "OREAS 1",
		ReferenceID: "OREAS 1",
		Differences: []crmcheck.ElementDiff{
			{Column: "Cu", Value: models.Float(95), Reference: models.Float(100), DiffPercent: models.Float(5), InRange: true},
			{Column: "Zn", Value: models.Float(3)},
		},
	}}
	tbl := CRMTable(rows)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "pass", tbl.rows[0][7])
	assert.Equal(t, "-", tbl.rows[1][5])
	assert.Equal(t, "-", tbl.rows[1][7])
}

func TestDriftTables(t *testing.T) {
	res := &models.DriftResult{
		Segments: []models.DriftSegment{{SegmentIndex: 0, StartIndex: 0, EndIndex: 4, SampleCount: 5, StartLabel: "BLK", EndLabel: "RM CHECK 1"}},
		ElementDrifts: map[string]models.ElementDrift{
			"Fe": {Element: "Fe", InitialRatio: 1, FinalRatio: 0.95, DriftPercent: -5},
		},
		CorrectedData: []models.CorrectedSample{
			{Label: "S1", RowIndex: 1, OriginalValues: map[string]*float64{"Fe": models.Float(10)}, CorrectedValues: map[string]*float64{"Fe": models.Float(10.5)}, CorrectionFactors: map[string]float64{"Fe": 1.05}},
			{Label: "S2", RowIndex: 2},
		},
	}

	seg := SegmentTable(res.Segments)
	require.Equal(t, 1, seg.Len())
	assert.Equal(t, []string{"0", "0", "4", "5", "BLK", "RM CHECK 1"}, seg.rows[0])

	drift := DriftTable(res)
	require.Equal(t, 1, drift.Len())
	assert.Equal(t, "-5.00", drift.rows[0][3])

	corrected := CorrectedTable(res.CorrectedData, "Fe")
	require.Equal(t, 1, corrected.Len())
	assert.Equal(t, "1.0500", corrected.rows[0][5])

	ratios := RatioTable(map[string][]float64{"Fe": {1, 0.98}})
	assert.Equal(t, []string{"Fe", "1.0000 0.9800"}, ratios.rows[0])
}
