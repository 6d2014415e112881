package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/isatislab/isatis/internal/dataset"
	"github.com/isatislab/isatis/internal/drift"
	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/projectconfig"
	"github.com/isatislab/isatis/internal/reporting"
)

// driftFlags are shared by the drift subcommands.
type driftFlags struct {
	run      runFlags
	out      outputFlags
	method   string
	base     string
	cone     string
	rm       string
	elements []string
}

func (f *driftFlags) register(cmd *cobra.Command, withMethod bool) {
	f.run.register(cmd, false)
	f.out.register(cmd, false)
	if withMethod {
		cmd.Flags().StringVarP(&f.method, "method", "m", projectconfig.DefaultDriftMethod, "Correction method: none, linear, stepwise or polynomial")
	}
	cmd.Flags().StringVar(&f.base, "base-pattern", projectconfig.DefaultBasePattern, "Regular expression for base standard labels")
	cmd.Flags().StringVar(&f.cone, "cone-pattern", projectconfig.DefaultConePattern, "Regular expression for cone standard labels")
	cmd.Flags().StringVar(&f.rm, "rm-pattern", projectconfig.DefaultRMPattern, "Regular expression for reference-material labels")
	cmd.Flags().StringSliceVarP(&f.elements, "element", "e", nil, "Restrict to these element columns")
}

// options merges the drift section of the project config with the flags.
func (f *driftFlags) options(cmd *cobra.Command) (drift.Options, error) {
	cfg, err := loadProjectConfig(cmd)
	if err != nil {
		return drift.Options{}, err
	}
	flags := cmd.Flags()
	pick := func(name, flagValue, cfgValue string) string {
		if flags.Changed(name) {
			return flagValue
		}
		return cfgValue
	}

	method := cfg.Drift.Method
	if flags.Lookup("method") != nil && flags.Changed("method") {
		method = f.method
	}
	m, err := models.ParseDriftMethod(method)
	if err != nil {
		return drift.Options{}, err
	}

	p, err := drift.CompilePatterns(
		pick("base-pattern", f.base, cfg.Drift.BasePattern),
		pick("cone-pattern", f.cone, cfg.Drift.ConePattern),
		pick("rm-pattern", f.rm, cfg.Drift.RMPattern),
	)
	if err != nil {
		return drift.Options{}, err
	}

	elements := cfg.Elements
	if flags.Changed("element") {
		elements = f.elements
	}
	return drift.Options{Method: m, Patterns: p, Elements: elements}, nil
}

func (f *driftFlags) service() *drift.Service {
	return drift.NewService(f.run.sampleSource(), slog.Default())
}

func newDriftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Detect and correct instrument drift",
		Long: `Detect check standards in an instrument run, split the run into segments
between them and correct time-dependent drift of every element.`,
	}

	cmd.AddCommand(newDriftAnalyzeCommand())
	cmd.AddCommand(newDriftApplyCommand())
	cmd.AddCommand(newDriftSegmentsCommand())
	cmd.AddCommand(newDriftRatiosCommand())

	return cmd
}

func newDriftAnalyzeCommand() *cobra.Command {
	var f driftFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report segments and per-element drift without correcting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			asTable, err := f.out.table(w)
			if err != nil {
				return err
			}

			res := f.service().Analyze(cmd.Context(), opts)
			if err := res.Err(); err != nil {
				return err
			}
			if !asTable {
				return writeJSON(w, res.Data)
			}
			if err := renderTables(w, reporting.SegmentTable(res.Data.Segments), reporting.DriftTable(res.Data)); err != nil {
				return err
			}
			_, err = fmt.Fprint(w, "\n", reporting.FormatDriftSummary(res.Data))
			return err
		},
	}
	f.register(cmd, false)
	return cmd
}

func newDriftApplyCommand() *cobra.Command {
	var (
		f      driftFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Correct drift with the chosen method",
		Long: `Correct drift with the chosen method and report the corrected readings.

linear interpolates the drift ratio across each segment, stepwise applies
the cumulative ratio of the preceding segments, and polynomial fits a
quadratic trend per element. With --output the corrected run is written as
CSV in the layout of the instrument export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			asTable, err := f.out.table(w)
			if err != nil {
				return err
			}

			res := f.service().Apply(cmd.Context(), opts)
			if err := res.Err(); err != nil {
				return err
			}

			if output != "" {
				if err := writeCorrected(output, res.Data.CorrectedData); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Corrected run written to %s\n", output) //nolint:errcheck
			}

			if !asTable {
				return writeJSON(w, res.Data)
			}
			tables := []*reporting.Table{reporting.DriftTable(res.Data)}
			for _, el := range opts.Elements {
				tables = append(tables, reporting.CorrectedTable(res.Data.CorrectedData, el))
			}
			if err := renderTables(w, tables...); err != nil {
				return err
			}
			_, err = fmt.Fprint(w, "\n", reporting.FormatDriftSummary(res.Data))
			return err
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the corrected run to this CSV file")
	return cmd
}

func newDriftSegmentsCommand() *cobra.Command {
	var f driftFlags
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "List the segments between detected standards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			asTable, err := f.out.table(w)
			if err != nil {
				return err
			}

			res := f.service().Segments(cmd.Context(), opts.Patterns)
			if err := res.Err(); err != nil {
				return err
			}
			if !asTable {
				return writeJSON(w, res.Data)
			}
			return renderTables(w, reporting.SegmentTable(res.Data))
		},
	}
	f.register(cmd, false)
	return cmd
}

func newDriftRatiosCommand() *cobra.Command {
	var f driftFlags
	cmd := &cobra.Command{
		Use:   "ratios",
		Short: "List ratios between consecutive reference-material readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			asTable, err := f.out.table(w)
			if err != nil {
				return err
			}

			res := f.service().StandardRatios(cmd.Context(), opts.Patterns, opts.Elements)
			if err := res.Err(); err != nil {
				return err
			}
			if !asTable {
				return writeJSON(w, res.Data)
			}
			return renderTables(w, reporting.RatioTable(res.Data))
		},
	}
	f.register(cmd, false)
	return cmd
}

func newSlopeCommand() *cobra.Command {
	var (
		run     runFlags
		out     outputFlags
		element string
		action  string
		target  float64
		output  string
	)
	cmd := &cobra.Command{
		Use:   "slope",
		Short: "Rotate the trend line of one element",
		Long: `Fit a trend line through one element's readings against run order and
rescale every reading so the trend follows a new slope.

Actions: zero flattens the trend, up and down rotate it by 10% of its
magnitude, custom sets the slope given by --target. The line pivots around
the centroid of the readings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			asTable, err := out.table(w)
			if err != nil {
				return err
			}

			svc := drift.NewService(run.sampleSource(), slog.Default())
			res := svc.Slope(cmd.Context(), element, models.SlopeAction(action), target)
			if err := res.Err(); err != nil {
				return err
			}

			if output != "" {
				if err := writeCorrected(output, res.Data.CorrectedData); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Corrected run written to %s\n", output) //nolint:errcheck
			}

			if !asTable {
				return writeJSON(w, res.Data)
			}
			if err := renderTables(w, reporting.CorrectedTable(res.Data.CorrectedData, element)); err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "\n%s: slope %s -> %s, intercept %s -> %s\n", element,
				reporting.FormatNumber(res.Data.OriginalSlope, 6), reporting.FormatNumber(res.Data.NewSlope, 6),
				reporting.FormatNumber(res.Data.OriginalIntercept, 4), reporting.FormatNumber(res.Data.NewIntercept, 4))
			return err
		},
	}
	run.register(cmd, false)
	out.register(cmd, false)
	cmd.Flags().StringVarP(&element, "element", "e", "", "Element column to adjust")
	_ = cmd.MarkFlagRequired("element")
	cmd.Flags().StringVarP(&action, "action", "a", string(models.SlopeZero), "Slope action: zero, up, down or custom")
	cmd.Flags().Float64Var(&target, "target", 0, "Target slope for the custom action")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the corrected run to this CSV file")
	return cmd
}

func writeCorrected(path string, data []models.CorrectedSample) error {
	samples := make([]models.Sample, len(data))
	for i, c := range data {
		samples[i] = c.Corrected()
	}
	if err := dataset.WriteSamples(path, samples); err != nil {
		return fmt.Errorf("writing corrected run: %w", err)
	}
	return nil
}
