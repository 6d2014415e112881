// Package blankscale fits a per-element blank offset and scale factor that
// bring reference-material readings into agreement with their certified
// values.
package blankscale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/isatislab/isatis/internal/cache"
	"github.com/isatislab/isatis/internal/evolution"
	"github.com/isatislab/isatis/internal/matching"
	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/sources"
	"github.com/isatislab/isatis/internal/statistics"
)

// ConfidenceLevel is the level of the bootstrap interval reported for the
// after-correction mean diff.
const ConfidenceLevel = 0.95

var (
	ErrNoSamples    = errors.New("no samples")
	ErrNoReferences = errors.New("no reference records")
	ErrNoMatches    = errors.New("no samples matched a reference record")
	ErrNoElements   = errors.New("no elements with both readings and certified values")
)

// Request configures an optimization run. Zero values select defaults.
type Request struct {
	// Elements restricts the run to these columns. Empty means every
	// column shared by the samples and their reference records.
	Elements []string
	// Band is the pass window for diff percentages. The zero Band means
	// statistics.DefaultBand.
	Band           statistics.Band
	MaxIterations  int
	PopulationSize int
	// Seed makes the run reproducible. Nil draws a fresh seed per element.
	Seed          *int64
	UseMultiModel bool
	// Workers bounds concurrent element optimizations. Zero means GOMAXPROCS.
	Workers int
	// ReferencePattern selects reference-material rows by label. Empty
	// means matching.DefaultReferencePattern.
	ReferencePattern string
}

// ManualRequest applies a hand-picked correction to one element.
type ManualRequest struct {
	Element          string
	Blank            float64
	Scale            float64
	Band             statistics.Band
	ReferencePattern string
}

// Service runs blank/scale optimizations against a sample source and a
// reference source.
type Service struct {
	samples    sources.SampleSource
	references sources.ReferenceSource
	cache      *cache.Cache
	logger     *slog.Logger
	progress   ProgressFunc
}

// ProgressFunc is called after each element finishes optimizing. Calls are
// serialized; done counts the finished elements.
type ProgressFunc func(element string, done, total int)

// Option configures a Service.
type Option func(*Service)

// WithCache stores seeded optimization results in c.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProgress reports element completion to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) { s.progress = fn }
}

// NewService creates a Service.
func NewService(samples sources.SampleSource, references sources.ReferenceSource, opts ...Option) *Service {
	s := &Service{
		samples:    samples,
		references: references,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func bandOrDefault(b statistics.Band) statistics.Band {
	if b == (statistics.Band{}) {
		return statistics.DefaultBand
	}
	return b
}

// load reads both sources, keeps the reference-material rows and matches
// them to certified records.
func (s *Service) load(ctx context.Context, pattern string) ([]models.MatchedSample, error) {
	if pattern == "" {
		pattern = matching.DefaultReferencePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid reference pattern %q: %w", pattern, err)
	}

	samples, err := s.samples.Samples(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	records, err := s.references.References(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reference records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoReferences
	}

	rm := matching.FilterLabels(samples, re)
	matched := matching.MatchAll(rm, records)
	s.logger.Debug("matched reference samples",
		"samples", len(samples), "reference_rows", len(rm), "matched", len(matched))
	if len(matched) == 0 {
		return nil, ErrNoMatches
	}
	return matched, nil
}

// selectElements intersects the requested columns with the common ones,
// keeping the common (sorted) order.
func selectElements(matched []models.MatchedSample, requested []string) ([]string, error) {
	common := matching.CommonElements(matched)
	if len(requested) > 0 {
		common = slices.DeleteFunc(common, func(el string) bool {
			return !slices.Contains(requested, el)
		})
	}
	if len(common) == 0 {
		return nil, ErrNoElements
	}
	return common, nil
}

// elementStats returns the pass count and mean diff for one element under
// the given correction.
func elementStats(e Evaluator, blank, scale float64) (int, float64) {
	return e.PassCount(blank, scale), statistics.Mean(e.Diffs(blank, scale))
}

// Optimize fits blank and scale for every selected element.
func (s *Service) Optimize(ctx context.Context, req Request) models.Result[*models.OptimizationResult] {
	start := time.Now()
	band := bandOrDefault(req.Band)

	matched, err := s.load(ctx, req.ReferencePattern)
	if err != nil {
		return models.Fail[*models.OptimizationResult]("optimize: %v", err)
	}
	elements, err := selectElements(matched, req.Elements)
	if err != nil {
		return models.Fail[*models.OptimizationResult]("optimize: %v", err)
	}

	opts := evolution.DefaultOptions()
	if req.PopulationSize > 0 {
		opts.PopulationSize = req.PopulationSize
	}
	if req.MaxIterations > 0 {
		opts.MaxGenerations = req.MaxIterations
	}
	opts.Logger = s.logger

	var cacheKey string
	if req.Seed != nil && s.cache != nil {
		cacheKey, err = cache.Key("blankscale/v1", matched, elements, band,
			opts.PopulationSize, opts.MaxGenerations, *req.Seed, req.UseMultiModel)
		if err != nil {
			s.logger.Warn("cache key failed", "error", err)
		} else {
			var cached models.OptimizationResult
			if s.cache.Get(cacheKey, &cached) {
				s.logger.Debug("optimization served from cache", "key", cacheKey)
				return models.Ok(&cached)
			}
		}
	}

	// Seeds are drawn in element order before any worker starts so the
	// outcome does not depend on scheduling.
	seeds := make([]int64, len(elements))
	if req.Seed != nil {
		master := rand.New(rand.NewSource(*req.Seed))
		for i := range seeds {
			seeds[i] = master.Int63()
		}
	} else {
		for i := range seeds {
			seeds[i] = -1
		}
	}

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu       sync.Mutex
		finished int
	)
	results := make([]models.ElementOptimization, len(elements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, el := range elements {
		g.Go(func() error {
			rng := statistics.NewRand(seeds[i])
			ev := Evaluator{Data: matched, Element: el, Band: band}

			params, evals, err := OptimizeElement(gctx, ev, req.UseMultiModel, opts, rng)
			if err != nil {
				return err
			}

			passedBefore, meanBefore := elementStats(ev, 0, 1)
			passedAfter, meanAfter := elementStats(ev, params.Blank, params.Scale)
			ci := statistics.BootstrapMeanCI(ev.Diffs(params.Blank, params.Scale), ConfidenceLevel, rng)

			results[i] = models.ElementOptimization{
				CorrectionParams: params,
				PassedBefore:     passedBefore,
				PassedAfter:      passedAfter,
				MeanDiffBefore:   meanBefore,
				MeanDiffAfter:    meanAfter,
				MeanDiffCI:       &ci,
				Evaluations:      evals,
			}
			s.logger.Debug("element optimized",
				"element", el, "model", string(params.SelectedModel),
				"blank", params.Blank, "scale", params.Scale,
				"passed_before", passedBefore, "passed_after", passedAfter)
			if s.progress != nil {
				mu.Lock()
				finished++
				s.progress(el, finished, len(elements))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Fail[*models.OptimizationResult]("optimize: %v", err)
	}

	byElement := make(map[string]models.ElementOptimization, len(elements))
	params := make(map[string]models.CorrectionParams, len(elements))
	res := &models.OptimizationResult{TotalSamples: len(matched), Elements: byElement}
	for i, el := range elements {
		byElement[el] = results[i]
		params[el] = results[i].CorrectionParams
		res.PassedBefore += results[i].PassedBefore
		res.PassedAfter += results[i].PassedAfter
	}
	res.ImprovementPercent = Improvement(res.PassedBefore, res.PassedAfter)
	res.OptimizedData = BuildOptimizedData(matched, elements, params, band)

	s.logger.Info("optimization complete",
		"elements", len(elements), "samples", len(matched),
		"passed_before", res.PassedBefore, "passed_after", res.PassedAfter,
		"duration", time.Since(start))

	if cacheKey != "" {
		if err := s.cache.Put(cacheKey, res); err != nil {
			s.logger.Warn("caching optimization result failed", "error", err)
		}
	}
	return models.Ok(res)
}

// Preview applies a manual blank and scale to one element without
// optimizing.
func (s *Service) Preview(ctx context.Context, req ManualRequest) models.Result[*models.ManualResult] {
	band := bandOrDefault(req.Band)

	matched, err := s.load(ctx, req.ReferencePattern)
	if err != nil {
		return models.Fail[*models.ManualResult]("preview: %v", err)
	}
	if !slices.Contains(matching.CommonElements(matched), req.Element) {
		return models.Fail[*models.ManualResult]("preview: element %q has no matched certified values", req.Element)
	}

	p := models.CorrectionParams{Element: req.Element, Blank: req.Blank, Scale: req.Scale}
	ev := Evaluator{Data: matched, Element: req.Element, Band: band}
	return models.Ok(&models.ManualResult{
		CorrectionParams: p,
		PassedBefore:     ev.PassCount(0, 1),
		PassedAfter:      ev.PassCount(p.Blank, p.Scale),
		OptimizedData: BuildOptimizedData(matched, []string{req.Element},
			map[string]models.CorrectionParams{req.Element: p}, band),
	})
}

// CurrentStatistics reports pass counts with no correction applied.
func (s *Service) CurrentStatistics(ctx context.Context, band statistics.Band, referencePattern string) models.Result[*models.OptimizationResult] {
	band = bandOrDefault(band)

	matched, err := s.load(ctx, referencePattern)
	if err != nil {
		return models.Fail[*models.OptimizationResult]("statistics: %v", err)
	}
	elements, err := selectElements(matched, nil)
	if err != nil {
		return models.Fail[*models.OptimizationResult]("statistics: %v", err)
	}

	res := &models.OptimizationResult{
		TotalSamples: len(matched),
		Elements:     make(map[string]models.ElementOptimization, len(elements)),
	}
	params := make(map[string]models.CorrectionParams, len(elements))
	for _, el := range elements {
		ev := Evaluator{Data: matched, Element: el, Band: band}
		passed, mean := elementStats(ev, 0, 1)
		p := models.CorrectionParams{Element: el, Blank: 0, Scale: 1}
		params[el] = p
		res.Elements[el] = models.ElementOptimization{
			CorrectionParams: p,
			PassedBefore:     passed,
			PassedAfter:      passed,
			MeanDiffBefore:   mean,
			MeanDiffAfter:    mean,
		}
		res.PassedBefore += passed
	}
	res.PassedAfter = res.PassedBefore
	res.OptimizedData = BuildOptimizedData(matched, elements, params, band)
	return models.Ok(res)
}

// Improvement is the relative change in passes, in percent. It is 0 when
// nothing passed before.
func Improvement(before, after int) float64 {
	if before <= 0 {
		return 0
	}
	return float64(after-before) / float64(before) * 100
}

// BuildOptimizedData applies params to every matched sample. Cells without
// a reading or with a zero or missing certified value are left out of the
// optimized values, diffs and pass flags. Reported diffs are rounded to two
// decimals; pass flags use the unrounded diff.
func BuildOptimizedData(data []models.MatchedSample, elements []string, params map[string]models.CorrectionParams, band statistics.Band) []models.OptimizedSample {
	out := make([]models.OptimizedSample, 0, len(data))
	for _, m := range data {
		row := models.OptimizedSample{
			Label:             m.Label,
			ReferenceID:       m.ReferenceID,
			OriginalValues:    models.CloneValues(m.SampleValues),
			ReferenceValues:   models.CloneValues(m.ReferenceValues),
			OptimizedValues:   make(map[string]*float64, len(elements)),
			DiffPercentBefore: make(map[string]float64, len(elements)),
			DiffPercentAfter:  make(map[string]float64, len(elements)),
			PassBefore:        make(map[string]bool, len(elements)),
			PassAfter:         make(map[string]bool, len(elements)),
		}
		for _, el := range elements {
			v, ref, ok := m.Pair(el)
			if !ok {
				continue
			}
			p, has := params[el]
			if !has {
				p = models.CorrectionParams{Element: el, Scale: 1}
			}
			corrected := p.Apply(v)
			before, _ := statistics.DiffPercent(v, ref)
			after, _ := statistics.DiffPercent(corrected, ref)

			row.OptimizedValues[el] = models.Float(corrected)
			row.DiffPercentBefore[el] = statistics.Round(before, 2)
			row.DiffPercentAfter[el] = statistics.Round(after, 2)
			row.PassBefore[el] = band.Contains(before)
			row.PassAfter[el] = band.Contains(after)
		}
		out = append(out, row)
	}
	return out
}
