// Package sources defines where the engines get their input from: an
// ordered sample run and a set of certified reference records.
package sources

//go:generate go tool mockgen -destination=mocks/mock_sources.go -package=mocks github.com/isatislab/isatis/internal/sources SampleSource,ReferenceSource

import (
	"context"

	"github.com/isatislab/isatis/internal/dataset"
	"github.com/isatislab/isatis/internal/models"
)

// SampleSource supplies the ordered rows of an instrument run.
type SampleSource interface {
	Samples(ctx context.Context) ([]models.Sample, error)
}

// ReferenceSource supplies certified reference records.
type ReferenceSource interface {
	References(ctx context.Context) ([]models.ReferenceRecord, error)
}

// StaticSamples serves an in-memory run.
type StaticSamples []models.Sample

func (s StaticSamples) Samples(ctx context.Context) ([]models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// StaticReferences serves in-memory reference records.
type StaticReferences []models.ReferenceRecord

func (r StaticReferences) References(ctx context.Context) ([]models.ReferenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// CSVRun reads a run export from a CSV file on every call.
type CSVRun struct {
	Path string
}

func (c CSVRun) Samples(ctx context.Context) ([]models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dataset.LoadSamples(c.Path)
}

// ReferenceFile reads reference records from a YAML or JSON file.
type ReferenceFile struct {
	Path string
}

func (f ReferenceFile) References(ctx context.Context) ([]models.ReferenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dataset.LoadReferences(f.Path)
}
