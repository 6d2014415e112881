package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/isatislab/isatis/internal/projectconfig"
	"github.com/isatislab/isatis/internal/reporting"
	"github.com/isatislab/isatis/internal/sources"
	"github.com/isatislab/isatis/internal/statistics"
)

// Output formats accepted by --format.
const (
	formatAuto     = "auto"
	formatTable    = "table"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

// loadProjectConfig reads --config when given, otherwise the nearest
// .isatis.yaml above the working directory, falling back to defaults.
func loadProjectConfig(cmd *cobra.Command) (*projectconfig.ProjectConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return projectconfig.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return projectconfig.Load(wd)
}

// runFlags locate the instrument run and the reference records.
type runFlags struct {
	samples    string
	references string
}

func (f *runFlags) register(cmd *cobra.Command, withReferences bool) {
	cmd.Flags().StringVarP(&f.samples, "samples", "s", "", "Instrument run export (CSV)")
	_ = cmd.MarkFlagRequired("samples")
	if withReferences {
		cmd.Flags().StringVarP(&f.references, "references", "r", "", "Certified reference records (CSV, YAML or JSON)")
		_ = cmd.MarkFlagRequired("references")
	}
}

func (f *runFlags) sampleSource() sources.SampleSource {
	return sources.CSVRun{Path: f.samples}
}

func (f *runFlags) referenceSource() sources.ReferenceSource {
	return sources.ReferenceFile{Path: f.references}
}

// bandFlags override the configured tolerance band.
type bandFlags struct {
	min float64
	max float64
}

func (b *bandFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&b.min, "min-diff", projectconfig.DefaultMinDiff, "Lower bound of the tolerance band (%)")
	cmd.Flags().Float64Var(&b.max, "max-diff", projectconfig.DefaultMaxDiff, "Upper bound of the tolerance band (%)")
}

func (b *bandFlags) resolve(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) (statistics.Band, error) {
	band := statistics.Band{Min: *cfg.Optimization.MinDiff, Max: *cfg.Optimization.MaxDiff}
	if cmd.Flags().Changed("min-diff") {
		band.Min = b.min
	}
	if cmd.Flags().Changed("max-diff") {
		band.Max = b.max
	}
	if band.Min > band.Max {
		return statistics.Band{}, fmt.Errorf("min-diff %g is greater than max-diff %g", band.Min, band.Max)
	}
	return band, nil
}

// outputFlags control how results are written.
type outputFlags struct {
	format   string
	junit    string
	failOnQC bool
}

func (o *outputFlags) register(cmd *cobra.Command, withQC bool) {
	cmd.Flags().StringVarP(&o.format, "format", "f", formatAuto, "Output format: auto, table or json")
	if withQC {
		cmd.Flags().StringVar(&o.junit, "junit", "", "Write QC results as JUnit XML to this path")
		cmd.Flags().BoolVar(&o.failOnQC, "fail-on-qc", false, "Exit with code 1 when any check is outside tolerance")
	}
}

// table reports whether results should be rendered as a table. auto picks
// a table for terminals and JSON otherwise.
func (o *outputFlags) table(w io.Writer, allowed ...string) (bool, error) {
	switch o.format {
	case formatTable:
		return true, nil
	case formatJSON:
		return false, nil
	case formatAuto, "":
		return isTerminal(w), nil
	}
	for _, a := range allowed {
		if o.format == a {
			return false, nil
		}
	}
	return false, fmt.Errorf("unsupported format %q", o.format)
}

// finish writes the JUnit report when requested and turns failing checks
// into a QCFailureError when --fail-on-qc is set.
func (o *outputFlags) finish(cmd *cobra.Command, suites *reporting.JUnitTestSuites) error {
	if o.junit != "" {
		if err := reporting.WriteJUnitXML(suites, o.junit); err != nil {
			return fmt.Errorf("writing JUnit report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "JUnit report written to %s\n", o.junit) //nolint:errcheck
	}
	if o.failOnQC && suites.Failed() {
		return &QCFailureError{Failed: suites.Failures, Total: suites.Tests}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func renderTables(w io.Writer, tables ...*reporting.Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := t.Render(w); err != nil {
			return err
		}
	}
	return nil
}
