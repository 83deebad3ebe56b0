// Package cmd provides the CLI commands for onlevel.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"onlevel-reserving/internal/logging"
)

var (
	verbose   bool
	logFormat string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "onlevel",
	Short: "Bring loss triangles to current rate level and project ultimates",
	Long: `onlevel restates historical losses or premiums at the current rate level
using a rate change schedule, then runs configured reserving pipelines.

Examples:
  onlevel reserve configs/tort_reform.yaml
  onlevel onlevel --sample casualty_ay --column Incurred --schedule-sample tort_reform --vertical
  onlevel index --schedule rates.csv --reference 2008-12-31`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := logging.FromEnv(logging.DefaultConfig())
		if logFormat != "" {
			cfg.Format = logFormat
		}
		if verbose {
			cfg.Level = "debug"
		}
		l, err := logging.New(cfg)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		logger = l
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.AddCommand(reserveCmd)
	rootCmd.AddCommand(onlevelCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(versionCmd)
}

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "onlevel version %s\n", version)
	},
}
