package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/isatislab/isatis/internal/cache"
	"github.com/isatislab/isatis/internal/projectconfig"
	"github.com/isatislab/isatis/internal/utils"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the optimization result cache",
		Long: `Manage the optimization result cache.

Seeded optimization runs are cached on disk, keyed by the matched samples,
the selected elements and every optimizer setting. Unseeded runs are never
cached.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the optimization result cache",
		Long: `Clear all cached optimization results.

The next seeded optimization run recomputes every element from scratch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := cacheDir
			if !cmd.Flags().Changed("cache-dir") {
				cfg, err := loadProjectConfig(cmd)
				if err != nil {
					return err
				}
				if cfg.Cache.Dir != "" {
					dir = utils.ResolvePath(cfg.Cache.Dir, cfg.Dir)
				}
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}

			c := cache.New(absDir)
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory to clear")

	return cmd
}
