package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alexander-Kershaw/JANUS/internal/events"
	"github.com/Alexander-Kershaw/JANUS/internal/silver"
)

var silverCmd = &cobra.Command{
	Use:     "silver",
	Short:   "Rebuild the silver layer from bronze",
	GroupID: "silver",
}

var silverEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Validate, deduplicate and replace silver.silver_events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSilver(cmd.Context(), silver.EntityEvents, events.TopicSilverEventsRefreshed)
	},
}

var silverBillingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Validate and replace silver.silver_billing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSilver(cmd.Context(), silver.EntityBilling, events.TopicSilverBillingRefreshed)
	},
}

func init() {
	silverCmd.AddCommand(silverEventsCmd)
	silverCmd.AddCommand(silverBillingCmd)
}

func runSilver(ctx context.Context, entity, topic string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := startRun()
	if err != nil {
		return err
	}
	defer run.close()

	t := silver.NewTransformer(run.store, run.logger)
	var rep *silver.Report
	if entity == silver.EntityEvents {
		rep, err = t.RunEvents(ctx)
	} else {
		rep, err = t.RunBilling(ctx)
	}
	if err != nil {
		run.logger.Error("silver refresh failed", "entity", entity, "err", err)
		return err
	}

	run.emit(ctx, topic, events.SilverRefreshed{
		RunID:  run.id,
		At:     time.Now().UTC(),
		Report: rep,
	})

	if jsonOutput {
		printJSON(struct {
			RunID string `json:"run_id"`
			*silver.Report
		}{run.id, rep})
		return nil
	}
	printSilverReport(run.id, rep)
	return nil
}
