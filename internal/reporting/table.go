package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/isatislab/isatis/internal/crmcheck"
	"github.com/isatislab/isatis/internal/models"
)

const columnGap = "  "

var printer = message.NewPrinter(language.English)

// Table is a plain-text table whose columns are aligned on terminal
// display width.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// Append adds a row. Missing cells render empty; extra cells are dropped.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the header, a rule and every row.
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if cw := runewidth.StringWidth(c); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	rule := make([]string, len(widths))
	for i, wd := range widths {
		rule[i] = strings.Repeat("-", wd)
	}

	for _, line := range append([][]string{t.headers, rule}, t.rows...) {
		if _, err := fmt.Fprintln(w, t.line(line, widths)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) line(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if i == len(cells)-1 {
			parts[i] = c
			continue
		}
		parts[i] = padRight(c, widths[i])
	}
	return strings.TrimRight(strings.Join(parts, columnGap), " ")
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// FormatNumber formats v with thousands separators and the given number of
// decimal places.
func FormatNumber(v float64, places int) string {
	return printer.Sprintf(fmt.Sprintf("%%.%df", places), v)
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func formatCell(v *float64, places int) string {
	if v == nil {
		return "-"
	}
	return FormatNumber(*v, places)
}

func passMark(ok bool) string {
	if ok {
		return "pass"
	}
	return "FAIL"
}

// OptimizationTable lists the fitted correction of every element.
func OptimizationTable(res *models.OptimizationResult) *Table {
	t := NewTable("Element", "Model", "Blank", "Scale", "Passed before", "Passed after", "Mean diff before", "Mean diff after")
	for _, el := range sortedKeys(res.Elements) {
		e := res.Elements[el]
		t.Append(
			el,
			string(e.SelectedModel),
			FormatNumber(e.Blank, 4),
			FormatNumber(e.Scale, 4),
			FormatCount(e.PassedBefore),
			FormatCount(e.PassedAfter),
			FormatNumber(e.MeanDiffBefore, 2),
			FormatNumber(e.MeanDiffAfter, 2),
		)
	}
	return t
}

// SampleTable lists before/after values and diffs of one element.
func SampleTable(data []models.OptimizedSample, element string) *Table {
	t := NewTable("Label", "Reference", "Original", "Corrected", "Certified", "Diff before %", "Diff after %", "QC")
	for _, row := range data {
		after, ok := row.DiffPercentAfter[element]
		if !ok {
			continue
		}
		t.Append(
			row.Label,
			row.ReferenceID,
			formatCell(row.OriginalValues[element], 4),
			formatCell(row.OptimizedValues[element], 4),
			formatCell(row.ReferenceValues[element], 4),
			FormatNumber(row.DiffPercentBefore[element], 2),
			FormatNumber(after, 2),
			passMark(row.PassAfter[element]),
		)
	}
	return t
}

// CRMTable lists every compared cell of a CRM comparison.
func CRMTable(rows []crmcheck.Row) *Table {
	t := NewTable("Label", "Reference", "Method", "Column", "Value", "Certified", "Diff %", "QC")
	for _, r := range rows {
		for _, d := range r.Differences {
			qc := "-"
			if d.DiffPercent != nil {
				qc = passMark(d.InRange)
			}
			t.Append(r.Label, r.ReferenceID, r.AnalysisMethod, d.Column,
				formatCell(d.Value, 4), formatCell(d.Reference, 4), formatCell(d.DiffPercent, 2), qc)
		}
	}
	return t
}

// SegmentTable lists drift segments.
func SegmentTable(segments []models.DriftSegment) *Table {
	t := NewTable("Segment", "Start", "End", "Samples", "From", "To")
	for _, s := range segments {
		t.Append(
			FormatCount(s.SegmentIndex),
			FormatCount(s.StartIndex),
			FormatCount(s.EndIndex),
			FormatCount(s.SampleCount),
			s.StartLabel,
			s.EndLabel,
		)
	}
	return t
}

// DriftTable lists the per-element drift summary.
func DriftTable(res *models.DriftResult) *Table {
	t := NewTable("Element", "Initial ratio", "Final ratio", "Drift %", "Avg slope", "Intercept")
	for _, el := range sortedKeys(res.ElementDrifts) {
		d := res.ElementDrifts[el]
		t.Append(
			el,
			FormatNumber(d.InitialRatio, 4),
			FormatNumber(d.FinalRatio, 4),
			FormatNumber(d.DriftPercent, 2),
			FormatNumber(d.AvgSlope, 4),
			FormatNumber(d.Intercept, 4),
		)
	}
	return t
}

// RatioTable lists the consecutive reference-material ratios per element.
func RatioTable(ratios map[string][]float64) *Table {
	t := NewTable("Element", "Ratios")
	for _, el := range sortedKeys(ratios) {
		vals := make([]string, len(ratios[el]))
		for i, r := range ratios[el] {
			vals[i] = FormatNumber(r, 4)
		}
		t.Append(el, strings.Join(vals, " "))
	}
	return t
}

// CorrectedTable lists drift-corrected values of one element.
func CorrectedTable(data []models.CorrectedSample, element string) *Table {
	t := NewTable("Row", "Label", "Segment", "Original", "Corrected", "Factor")
	for _, row := range data {
		f, ok := row.CorrectionFactors[element]
		if !ok {
			continue
		}
		t.Append(
			FormatCount(row.RowIndex),
			row.Label,
			FormatCount(row.SegmentIndex),
			formatCell(row.OriginalValues[element], 4),
			formatCell(row.CorrectedValues[element], 4),
			FormatNumber(f, 4),
		)
	}
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
