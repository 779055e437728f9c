package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show warehouse table counts and pipeline health",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := startRun()
		if err != nil {
			return err
		}
		defer run.close()

		health, err := run.store.PipelineHealth(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(health)
			return nil
		}
		printHealth(health)
		return nil
	},
}
