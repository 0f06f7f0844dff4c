package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CyberSME/flexus/timing/uarch"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the default core options to a JSON file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("output")

		if err := uarch.DefaultOptions().SaveOptions(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Default options written to %s\n", path)

		return nil
	},
}

func init() {
	configCmd.Flags().StringP("output", "o", "flexsim_options.json",
		"Path of the options file to write.")
}
