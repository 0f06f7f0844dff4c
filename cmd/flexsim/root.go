package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flexsim",
	Short: "Cycle-level out-of-order core timing simulator.",
	Long: `flexsim runs synthetic instruction streams through out-of-order ` +
		`cores that share a coherent memory fabric, and reports timing ` +
		`statistics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		logrus.SetLevel(level)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warning",
		"Logging level (panic, fatal, error, warning, info, debug, trace).")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}
