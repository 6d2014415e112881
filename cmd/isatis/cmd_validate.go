package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/isatislab/isatis/internal/projectconfig"
	"github.com/isatislab/isatis/internal/validation"
)

const (
	kindAuto      = "auto"
	kindReference = "reference"
	kindConfig    = "config"
)

func newValidateCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "validate <file> [file ...]",
		Short: "Validate reference record files and project configs",
		Long: `Validate reference record files (CSV, YAML or JSON) and .isatis.yaml
project configs before a run.

With --kind auto, files named .isatis.yaml are checked as configs and
everything else as reference records.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != kindAuto && kind != kindReference && kind != kindConfig {
				return fmt.Errorf("unsupported kind %q: must be auto, reference or config", kind)
			}

			w := cmd.OutOrStdout()
			problems := 0
			for _, path := range args {
				errs, err := validateFile(path, kind)
				if err != nil {
					return err
				}
				if len(errs) == 0 {
					fmt.Fprintf(w, "✓ %s\n", path) //nolint:errcheck
					continue
				}
				problems += len(errs)
				fmt.Fprintf(w, "✗ %s\n", path) //nolint:errcheck
				for _, e := range errs {
					fmt.Fprintf(w, "    %s\n", e) //nolint:errcheck
				}
			}
			if problems > 0 {
				return fmt.Errorf("validation failed: %d problem(s)", problems)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", kindAuto, "File kind: auto, reference or config")

	return cmd
}

func validateFile(path, kind string) ([]string, error) {
	if kind == kindAuto {
		kind = kindReference
		if filepath.Base(path) == projectconfig.FileName {
			kind = kindConfig
		}
	}
	if kind == kindConfig {
		return validation.ValidateConfigFile(path)
	}
	return validation.ValidateReferenceFile(path)
}
