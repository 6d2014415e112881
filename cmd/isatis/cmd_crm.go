package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/isatislab/isatis/internal/crmcheck"
	"github.com/isatislab/isatis/internal/projectconfig"
	"github.com/isatislab/isatis/internal/reporting"
)

func newCRMCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crm",
		Short: "Compare reference materials against certified values",
	}

	cmd.AddCommand(newCRMDiffCommand())

	return cmd
}

func newCRMDiffCommand() *cobra.Command {
	var (
		run     runFlags
		band    bandFlags
		out     outputFlags
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff every reference-material reading against its certified value",
		Long: `Match every reference-material row to its certified record and report the
difference of each element column as (certified - measured) / certified.

When a reference material is certified under several analysis methods,
4-Acid Digestion is preferred, then Aqua Regia Digestion.`,
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

			svc := crmcheck.NewService(run.sampleSource(), run.referenceSource(), slog.Default())
			res := svc.Diff(cmd.Context(), b, pattern)
			if err := res.Err(); err != nil {
				return err
			}

			if asTable {
				if err := renderTables(w, reporting.CRMTable(res.Data)); err != nil {
					return err
				}
				passed, total := 0, 0
				for _, r := range res.Data {
					passed += r.Passed()
					for _, d := range r.Differences {
						if d.DiffPercent != nil {
							total++
						}
					}
				}
				if _, err := fmt.Fprintf(w, "\n%s\n", reporting.InterpretPassRate(passed, total)); err != nil {
					return err
				}
			} else if err := writeJSON(w, res.Data); err != nil {
				return err
			}

			return out.finish(cmd, reporting.ConvertCRM(res.Data, b, time.Now()))
		},
	}

	run.register(cmd, true)
	band.register(cmd)
	out.register(cmd, true)
	cmd.Flags().StringVar(&pattern, "reference-pattern", projectconfig.DefaultReferencePattern, "Regular expression selecting reference-material labels")

	return cmd
}
