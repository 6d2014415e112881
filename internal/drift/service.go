package drift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/sources"
)

var ErrNoSamples = errors.New("no samples")

// Options configures drift analysis and correction.
type Options struct {
	Method   models.DriftMethod
	Patterns Patterns
	// Elements restricts the run to these columns. Empty means all.
	Elements []string
}

// Service runs drift analysis over a sample source.
type Service struct {
	samples sources.SampleSource
	logger  *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(samples sources.SampleSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{samples: samples, logger: logger}
}

func (s *Service) load(ctx context.Context) ([]models.Sample, error) {
	samples, err := s.samples.Samples(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}

func selectElements(samples []models.Sample, requested []string) []string {
	all := Elements(samples)
	if len(requested) == 0 {
		return all
	}
	return slices.DeleteFunc(all, func(el string) bool { return !slices.Contains(requested, el) })
}

// analyze detects segments and computes ratios and element drifts.
func analyze(samples []models.Sample, opts Options) *models.DriftResult {
	segments := DetectSegments(samples, opts.Patterns)
	elements := selectElements(samples, opts.Elements)
	ratios := ComputeRatios(samples, segments, elements)

	drifts := make(map[string]models.ElementDrift, len(elements))
	for _, el := range elements {
		if d, ok := ElementDrift(samples, segments, ratios, el); ok {
			drifts[el] = d
		}
	}
	return &models.DriftResult{
		Method:        opts.Method,
		TotalSamples:  len(samples),
		Segments:      segments,
		Ratios:        ratios,
		ElementDrifts: drifts,
		CorrectedData: []models.CorrectedSample{},
	}
}

// Analyze reports segments, ratios and element drifts without correcting.
func (s *Service) Analyze(ctx context.Context, opts Options) models.Result[*models.DriftResult] {
	samples, err := s.load(ctx)
	if err != nil {
		return models.Fail[*models.DriftResult]("analyze drift: %v", err)
	}
	return Analyze(ctx, samples, opts)
}

// Apply analyzes the run and corrects it with opts.Method.
func (s *Service) Apply(ctx context.Context, opts Options) models.Result[*models.DriftResult] {
	samples, err := s.load(ctx)
	if err != nil {
		return models.Fail[*models.DriftResult]("apply drift correction: %v", err)
	}
	res := Apply(ctx, samples, opts)
	if res.Succeeded {
		s.logger.Info("drift correction applied",
			"method", string(res.Data.Method),
			"segments", len(res.Data.Segments),
			"corrected_samples", res.Data.CorrectedSamples)
	}
	return res
}

// Segments returns the detected segments.
func (s *Service) Segments(ctx context.Context, p Patterns) models.Result[[]models.DriftSegment] {
	samples, err := s.load(ctx)
	if err != nil {
		return models.Fail[[]models.DriftSegment]("detect segments: %v", err)
	}
	return models.Ok(DetectSegments(samples, p))
}

// StandardRatios returns the ratios between consecutive reference-material
// rows per element.
func (s *Service) StandardRatios(ctx context.Context, p Patterns, elements []string) models.Result[map[string][]float64] {
	samples, err := s.load(ctx)
	if err != nil {
		return models.Fail[map[string][]float64]("drift ratios: %v", err)
	}
	return models.Ok(StandardRatios(samples, p, selectElements(samples, elements)))
}

// Slope rotates the trend of one element.
func (s *Service) Slope(ctx context.Context, element string, action models.SlopeAction, target float64) models.Result[*models.SlopeResult] {
	samples, err := s.load(ctx)
	if err != nil {
		return models.Fail[*models.SlopeResult]("optimize slope: %v", err)
	}
	res, err := OptimizeSlope(samples, element, action, target)
	if err != nil {
		return models.Fail[*models.SlopeResult]("optimize slope: %v", err)
	}
	return models.Ok(res)
}

// Analyze is the source-free form of Service.Analyze.
func Analyze(ctx context.Context, samples []models.Sample, opts Options) models.Result[*models.DriftResult] {
	if len(samples) == 0 {
		return models.Fail[*models.DriftResult]("analyze drift: %v", ErrNoSamples)
	}
	if err := ctx.Err(); err != nil {
		return models.Fail[*models.DriftResult]("analyze drift: %v", err)
	}
	return models.Ok(analyze(samples, opts))
}

// Apply is the source-free form of Service.Apply. CorrectedSamples counts
// rows that carry at least one correction factor.
func Apply(ctx context.Context, samples []models.Sample, opts Options) models.Result[*models.DriftResult] {
	if len(samples) == 0 {
		return models.Fail[*models.DriftResult]("apply drift correction: %v", ErrNoSamples)
	}
	if opts.Method == "" {
		opts.Method = models.DriftLinear
	}

	res := analyze(samples, opts)
	elements := selectElements(samples, opts.Elements)
	corrected, err := Correct(ctx, opts.Method, samples, res.Segments, res.Ratios, elements)
	if err != nil {
		return models.Fail[*models.DriftResult]("apply drift correction: %v", err)
	}
	res.CorrectedData = corrected
	for _, cs := range corrected {
		if len(cs.CorrectionFactors) > 0 {
			res.CorrectedSamples++
		}
	}
	return models.Ok(res)
}
