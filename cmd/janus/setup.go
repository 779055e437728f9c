package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:     "setup",
	Short:   "Create the warehouse schemas and bronze idempotency constraints",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// startRun applies pending migrations.
		run, err := startRun()
		if err != nil {
			return err
		}
		defer run.close()

		created, err := run.store.EnsureBronzeIdempotency(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range created {
			run.logger.Info("created", "object", name)
		}

		if jsonOutput {
			if created == nil {
				created = []string{}
			}
			printJSON(map[string]any{"run_id": run.id, "created": created})
			return nil
		}
		if len(created) == 0 {
			fmt.Println("Warehouse schema is up to date")
			return nil
		}
		fmt.Printf("Created %d objects:\n", len(created))
		for _, name := range created {
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}
