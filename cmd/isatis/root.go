package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isatis",
		Short: "Isatis - quality control for ICP-MS runs",
		Long: `Isatis corrects ICP-MS instrument runs against certified reference materials.

It fits per-element blank and scale corrections, detects and corrects
instrument drift between check standards, and reports how many reference
readings fall inside the tolerance band before and after correction.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("config", "", "Path to the project config (default: .isatis.yaml found from the working directory)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newOptimizeCommand())
	cmd.AddCommand(newPreviewCommand())
	cmd.AddCommand(newStatsCommand())
	cmd.AddCommand(newDriftCommand())
	cmd.AddCommand(newSlopeCommand())
	cmd.AddCommand(newCRMCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newCacheCommand())

	return cmd
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}
