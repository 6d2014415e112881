package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/isatislab/isatis/internal/models"
)

// LabelColumn is the instrument export column holding the solution label.
const LabelColumn = "Solution Label"

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// table is a parsed CSV file with its header order preserved.
type table struct {
	headers []string
	rows    []Row
}

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names).
func LoadCSV(path string) ([]Row, error) {
	t, err := loadTable(path)
	if err != nil {
		return nil, err
	}
	return t.rows, nil
}

func loadTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return &table{headers: headers, rows: rows}, nil
}

// LoadSamples reads an instrument run export. Row order is preserved; every
// column other than the label becomes an element reading.
func LoadSamples(path string) ([]models.Sample, error) {
	t, err := loadTable(path)
	if err != nil {
		return nil, err
	}
	return ToSamples(t.rows), nil
}

// ToSamples converts CSV rows to samples. A row without a label is named
// Row_<n> (1-based). Cells that are empty or not numbers are recorded as
// missing readings.
func ToSamples(rows []Row) []models.Sample {
	out := make([]models.Sample, 0, len(rows))
	for i, row := range rows {
		label := strings.TrimSpace(row[LabelColumn])
		if label == "" {
			label = fmt.Sprintf("Row_%d", i+1)
		}
		values := make(map[string]*float64, len(row))
		for col, cell := range row {
			if col == LabelColumn || col == "" {
				continue
			}
			values[col] = ParseReading(cell)
		}
		out = append(out, models.Sample{Label: label, Values: values})
	}
	return out
}

// ParseReading parses a numeric cell. It returns nil for blanks and for
// values the instrument flags as non-numeric (e.g. "<LOD", "n/a").
func ParseReading(cell string) *float64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// WriteSamples writes a run in the layout LoadSamples reads: the label
// column first, then element columns in name order. Missing readings are
// written as empty cells.
func WriteSamples(path string, samples []models.Sample) (err error) {
	seen := make(map[string]bool)
	for _, s := range samples {
		for col := range s.Values {
			seen[col] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("csv: close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{LabelColumn}, cols...)); err != nil {
		return fmt.Errorf("csv: write %s: %w", path, err)
	}
	for _, s := range samples {
		record := make([]string, 0, len(cols)+1)
		record = append(record, s.Label)
		for _, col := range cols {
			cell := ""
			if v := s.Values[col]; v != nil {
				cell = strconv.FormatFloat(*v, 'g', -1, 64)
			}
			record = append(record, cell)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: write %s: %w", path, err)
	}
	return nil
}
