// Package crmcheck compares reference-material readings in a run against
// their certified values, using the CRM table sign convention
// ((certified - measured) / certified).
package crmcheck

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"

	"github.com/isatislab/isatis/internal/matching"
	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/sources"
	"github.com/isatislab/isatis/internal/statistics"
)

var (
	ErrNoSamples    = errors.New("no samples")
	ErrNoReferences = errors.New("no reference records")
	ErrNoMatches    = errors.New("no reference-material rows matched a reference record")
)

// ElementDiff is the comparison of one column of one row.
type ElementDiff struct {
	Column      string   `json:"column"`
	Value       *float64 `json:"value"`
	Reference   *float64 `json:"reference"`
	DiffPercent *float64 `json:"diff_percent"`
	InRange     bool     `json:"in_range"`
}

// Row is the comparison of one reference-material row.
type Row struct {
	Label          string        `json:"label"`
	ReferenceID    string        `json:"reference_id"`
	AnalysisMethod string        `json:"analysis_method"`
	Differences    []ElementDiff `json:"differences"`
}

// Passed counts the in-range differences.
func (r Row) Passed() int {
	n := 0
	for _, d := range r.Differences {
		if d.InRange {
			n++
		}
	}
	return n
}

// Compare matches every row selected by pattern to a certified record and
// diffs each element column. Columns are reported in name order; columns
// without an element symbol are skipped. A nil pattern selects every row.
func Compare(samples []models.Sample, records []models.ReferenceRecord, band statistics.Band, pattern *regexp.Regexp) []Row {
	var rows []Row
	for _, s := range matching.FilterLabels(samples, pattern) {
		rec, ok := matching.Match(s.Label, records)
		if !ok {
			continue
		}

		cols := make([]string, 0, len(s.Values))
		for col := range s.Values {
			if matching.ElementSymbol(col) != "" {
				cols = append(cols, col)
			}
		}
		sort.Strings(cols)
		if len(cols) == 0 {
			continue
		}

		method := rec.AnalysisMethod
		if method == "" {
			method = "Unknown"
		}
		row := Row{Label: s.Label, ReferenceID: rec.ID, AnalysisMethod: method}
		for _, col := range cols {
			d := ElementDiff{Column: col}
			v, hasValue := s.Value(col)
			if hasValue {
				d.Value = models.Float(v)
			}
			ref, hasRef := matching.ReferenceValue(rec, col)
			if hasRef {
				d.Reference = models.Float(ref)
			}
			if hasValue && hasRef {
				if diff, ok := statistics.CRMDiffPercent(v, ref); ok {
					d.DiffPercent = models.Float(statistics.Round(diff, 2))
					d.InRange = band.Contains(diff)
				}
			}
			row.Differences = append(row.Differences, d)
		}
		rows = append(rows, row)
	}
	return rows
}

// Service runs CRM comparisons over its sources.
type Service struct {
	samples    sources.SampleSource
	references sources.ReferenceSource
	logger     *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(samples sources.SampleSource, references sources.ReferenceSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{samples: samples, references: references, logger: logger}
}

// Diff compares the run against the reference records. An empty pattern
// means matching.DefaultReferencePattern; the zero band means
// statistics.DefaultBand.
func (s *Service) Diff(ctx context.Context, band statistics.Band, pattern string) models.Result[[]Row] {
	if band == (statistics.Band{}) {
		band = statistics.DefaultBand
	}
	if pattern == "" {
		pattern = matching.DefaultReferencePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return models.Fail[[]Row]("crm diff: invalid reference pattern %q: %v", pattern, err)
	}

	samples, err := s.samples.Samples(ctx)
	if err != nil {
		return models.Fail[[]Row]("crm diff: loading samples: %v", err)
	}
	if len(samples) == 0 {
		return models.Fail[[]Row]("crm diff: %v", ErrNoSamples)
	}
	records, err := s.references.References(ctx)
	if err != nil {
		return models.Fail[[]Row]("crm diff: loading reference records: %v", err)
	}
	if len(records) == 0 {
		return models.Fail[[]Row]("crm diff: %v", ErrNoReferences)
	}

	rows := Compare(samples, records, band, re)
	s.logger.Debug("crm comparison", "samples", len(samples), "rows", len(rows))
	if len(rows) == 0 {
		return models.Fail[[]Row]("crm diff: %v", ErrNoMatches)
	}
	return models.Ok(rows)
}
