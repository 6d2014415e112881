package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/isatislab/isatis/internal/blankscale"
	"github.com/isatislab/isatis/internal/cache"
	"github.com/isatislab/isatis/internal/projectconfig"
	"github.com/isatislab/isatis/internal/reporting"
	"github.com/isatislab/isatis/internal/spinner"
	"github.com/isatislab/isatis/internal/utils"
)

func newOptimizeCommand() *cobra.Command {
	var (
		run      runFlags
		band     bandFlags
		out      outputFlags
		elements []string
		maxIter  int
		popSize  int
		workers  int
		seed     int64
		multi    bool
		pattern  string
		useCache bool
		cacheDir string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Fit blank and scale corrections per element",
		Long: `Fit a blank offset and a scale factor for every element so that as many
reference-material readings as possible fall inside the tolerance band.

Reference-material rows are selected by label, matched to their certified
records, and each element is optimized independently with differential
evolution. With --seed the run is reproducible and may be served from the
result cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadProjectConfig(cmd)
			if err != nil {
				return err
			}
			b, err := band.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			asTable, err := out.table(w, formatMarkdown)
			if err != nil {
				return err
			}

			req := blankscale.Request{
				Elements:         cfg.Elements,
				Band:             b,
				MaxIterations:    cfg.Optimization.MaxIterations,
				PopulationSize:   cfg.Optimization.PopulationSize,
				Seed:             cfg.Optimization.Seed,
				UseMultiModel:    *cfg.Optimization.MultiModel,
				Workers:          cfg.Optimization.Workers,
				ReferencePattern: cfg.Optimization.ReferencePattern,
			}
			flags := cmd.Flags()
			if flags.Changed("element") {
				req.Elements = elements
			}
			if flags.Changed("max-iterations") {
				req.MaxIterations = maxIter
			}
			if flags.Changed("population") {
				req.PopulationSize = popSize
			}
			if flags.Changed("workers") {
				req.Workers = workers
			}
			if flags.Changed("seed") {
				req.Seed = &seed
			}
			if flags.Changed("multi-model") {
				req.UseMultiModel = multi
			}
			if flags.Changed("reference-pattern") {
				req.ReferencePattern = pattern
			}

			opts := []blankscale.Option{blankscale.WithLogger(slog.Default())}
			c, err := resultCache(cmd, cfg, useCache, cacheDir)
			if err != nil {
				return err
			}
			if c != nil {
				opts = append(opts, blankscale.WithCache(c))
			}

			// Progress goes to stderr only when a person is watching.
			var sp *spinner.Spinner
			if errOut := cmd.ErrOrStderr(); isTerminal(errOut) {
				sp = spinner.Start(errOut, "Optimizing elements")
				opts = append(opts, blankscale.WithProgress(func(el string, done, total int) {
					sp.Update(fmt.Sprintf("Optimizing elements: %d of %d done (%s)", done, total, el))
				}))
			}

			svc := blankscale.NewService(run.sampleSource(), run.referenceSource(), opts...)
			res := svc.Optimize(cmd.Context(), req)
			if sp != nil {
				sp.Stop()
			}
			if err := res.Err(); err != nil {
				return err
			}

			switch {
			case out.format == formatMarkdown:
				if _, err := fmt.Fprint(w, FormatMarkdown(res.Data, b)); err != nil {
					return err
				}
			case asTable:
				if err := renderTables(w, reporting.OptimizationTable(res.Data)); err != nil {
					return err
				}
				if _, err := fmt.Fprint(w, "\n", reporting.FormatOptimizationSummary(res.Data)); err != nil {
					return err
				}
			default:
				if err := writeJSON(w, res.Data); err != nil {
					return err
				}
			}

			return out.finish(cmd, reporting.ConvertOptimization(res.Data, b, time.Now()))
		},
	}

	run.register(cmd, true)
	band.register(cmd)
	out.register(cmd, true)
	cmd.Flags().Lookup("format").Usage = "Output format: auto, table, json or markdown"
	cmd.Flags().StringSliceVarP(&elements, "element", "e", nil, "Restrict the run to these element columns")
	cmd.Flags().IntVar(&maxIter, "max-iterations", projectconfig.DefaultMaxIterations, "Maximum generations per model")
	cmd.Flags().IntVar(&popSize, "population", projectconfig.DefaultPopulationSize, "Population size (at least 4)")
	cmd.Flags().IntVar(&workers, "workers", projectconfig.DefaultWorkers, "Elements optimized concurrently")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for a reproducible run")
	cmd.Flags().BoolVar(&multi, "multi-model", projectconfig.DefaultMultiModel, "Fit all objective models and keep the best")
	cmd.Flags().StringVar(&pattern, "reference-pattern", projectconfig.DefaultReferencePattern, "Regular expression selecting reference-material labels")
	cmd.Flags().BoolVar(&useCache, "cache", false, "Serve and store seeded results in the result cache")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Result cache directory")

	return cmd
}

// resultCache returns the cache to use, or nil when caching is off. The
// flags override the cache section of the project config; a relative
// directory from the config is taken relative to the config file.
func resultCache(cmd *cobra.Command, cfg *projectconfig.ProjectConfig, enabled bool, dir string) (*cache.Cache, error) {
	on := cfg.Cache.Enabled != nil && *cfg.Cache.Enabled
	if cmd.Flags().Changed("cache") {
		on = enabled
	}
	if !on {
		return nil, nil
	}
	d := utils.ResolvePath(cfg.Cache.Dir, cfg.Dir)
	if cmd.Flags().Changed("cache-dir") || d == "" {
		d = dir
	}
	abs, err := filepath.Abs(d)
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}
	return cache.New(abs), nil
}

func newPreviewCommand() *cobra.Command {
	var (
		run     runFlags
		band    bandFlags
		out     outputFlags
		element string
		blank   float64
		scale   float64
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Apply a hand-picked blank and scale to one element",
		Long: `Apply a blank offset and scale factor to one element and show how many
reference-material readings pass before and after the correction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadProjectConfig(cmd)
			if err != nil {
				return err
			}
			b, err := band.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			asTable, err := out.table(w)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("reference-pattern") {
				pattern = cfg.Optimization.ReferencePattern
			}

			svc := blankscale.NewService(run.sampleSource(), run.referenceSource(), blankscale.WithLogger(slog.Default()))
			res := svc.Preview(cmd.Context(), blankscale.ManualRequest{
				Element:          element,
				Blank:            blank,
				Scale:            scale,
				Band:             b,
				ReferencePattern: pattern,
			})
			if err := res.Err(); err != nil {
				return err
			}

			if !asTable {
				return writeJSON(w, res.Data)
			}
			if err := renderTables(w, reporting.SampleTable(res.Data.OptimizedData, element)); err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "\n%s: blank %s, scale %s, %d -> %d passing\n", element,
				reporting.FormatNumber(res.Data.Blank, 4), reporting.FormatNumber(res.Data.Scale, 4),
				res.Data.PassedBefore, res.Data.PassedAfter)
			return err
		},
	}

	run.register(cmd, true)
	band.register(cmd)
	out.register(cmd, false)
	cmd.Flags().StringVarP(&element, "element", "e", "", "Element column to correct")
	_ = cmd.MarkFlagRequired("element")
	cmd.Flags().Float64Var(&blank, "blank", 0, "Blank offset subtracted from every reading")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Scale factor applied after the blank")
	cmd.Flags().StringVar(&pattern, "reference-pattern", projectconfig.DefaultReferencePattern, "Regular expression selecting reference-material labels")

	return cmd
}

func newStatsCommand() *cobra.Command {
	var (
		run     runFlags
		band    bandFlags
		out     outputFlags
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report QC statistics of the uncorrected run",
		Long: `Report how many reference-material readings fall inside the tolerance
band without any correction (blank 0, scale 1).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadProjectConfig(cmd)
			if err != nil {
				return err
			}
			b, err := band.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			asTable, err := out.table(w)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("reference-pattern") {
				pattern = cfg.Optimization.ReferencePattern
			}

			svc := blankscale.NewService(run.sampleSource(), run.referenceSource(), blankscale.WithLogger(slog.Default()))
			res := svc.CurrentStatistics(cmd.Context(), b, pattern)
			if err := res.Err(); err != nil {
				return err
			}

			if asTable {
				if err := renderTables(w, reporting.OptimizationTable(res.Data)); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(w, "\n%s\n", reporting.InterpretPassRate(res.Data.PassedBefore, reporting.CheckCount(res.Data.OptimizedData))); err != nil {
					return err
				}
			} else if err := writeJSON(w, res.Data); err != nil {
				return err
			}

			return out.finish(cmd, reporting.ConvertOptimization(res.Data, b, time.Now()))
		},
	}

	run.register(cmd, true)
	band.register(cmd)
	out.register(cmd, true)
	cmd.Flags().StringVar(&pattern, "reference-pattern", projectconfig.DefaultReferencePattern, "Regular expression selecting reference-material labels")

	return cmd
}
