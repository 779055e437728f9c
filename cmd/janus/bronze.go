package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alexander-Kershaw/JANUS/internal/bronze"
	"github.com/Alexander-Kershaw/JANUS/internal/events"
)

var bronzeCmd = &cobra.Command{
	Use:     "bronze",
	Short:   "Load raw files into the bronze layer",
	GroupID: "bronze",
}

var bronzeEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Load daily JSONL event files into bronze.bronze_events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := bronzeOptions(cmd, bronze.DefaultEventOptions())
		if err != nil {
			return err
		}
		return runBronze(cmd.Context(), "events", opts, events.TopicBronzeEventsLoaded)
	},
}

var bronzeBillingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Load billing CSV files into bronze.bronze_billing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := bronzeOptions(cmd, bronze.DefaultBillingOptions())
		if err != nil {
			return err
		}
		return runBronze(cmd.Context(), "billing", opts, events.TopicBronzeBillingLoaded)
	},
}

func init() {
	for _, c := range []struct {
		cmd  *cobra.Command
		opts bronze.Options
	}{
		{bronzeEventsCmd, bronze.DefaultEventOptions()},
		{bronzeBillingCmd, bronze.DefaultBillingOptions()},
	} {
		c.cmd.Flags().String("dir", c.opts.Dir, "directory holding the raw files")
		c.cmd.Flags().String("glob", c.opts.Glob, "file name pattern")
		c.cmd.Flags().Int("limit-files", 0, "load at most this many files (0 = all)")
		c.cmd.Flags().Int("batch-size", c.opts.BatchSize, "rows per insert statement")
		bronzeCmd.AddCommand(c.cmd)
	}
}

func bronzeOptions(cmd *cobra.Command, opts bronze.Options) (bronze.Options, error) {
	var err error
	if opts.Dir, err = cmd.Flags().GetString("dir"); err != nil {
		return opts, err
	}
	if opts.Glob, err = cmd.Flags().GetString("glob"); err != nil {
		return opts, err
	}
	if opts.LimitFiles, err = cmd.Flags().GetInt("limit-files"); err != nil {
		return opts, err
	}
	if opts.BatchSize, err = cmd.Flags().GetInt("batch-size"); err != nil {
		return opts, err
	}
	return opts, nil
}

func runBronze(ctx context.Context, entity string, opts bronze.Options, topic string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := startRun()
	if err != nil {
		return err
	}
	defer run.close()

	loader := bronze.NewLoader(run.store, run.logger)
	var res *bronze.Result
	if entity == "events" {
		res, err = loader.LoadEvents(ctx, opts)
	} else {
		res, err = loader.LoadBilling(ctx, opts)
	}
	if err != nil {
		run.logger.Error("bronze load failed", "entity", entity, "err", err)
		return err
	}

	run.emit(ctx, topic, events.BronzeLoaded{
		RunID:  run.id,
		Entity: entity,
		At:     time.Now().UTC(),
		Result: res,
	})

	if jsonOutput {
		printJSON(struct {
			RunID  string `json:"run_id"`
			Entity string `json:"entity"`
			*bronze.Result
		}{run.id, entity, res})
		return nil
	}
	printBronzeResult(run.id, entity, res)
	return nil
}
