package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alexander-Kershaw/JANUS/internal/churn"
	"github.com/Alexander-Kershaw/JANUS/internal/events"
	"github.com/Alexander-Kershaw/JANUS/internal/report"
)

var churnCmd = &cobra.Command{
	Use:     "churn",
	Short:   "Evaluate and fit the baseline churn model",
	GroupID: "model",
}

var churnTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run temporal cross-validation, fit the final model and write model cards",
	Long: `Reads dbt.gold_user_features_daily, censors the last label_horizon_days
days, scores one walk-forward fold per remaining day after min_train_days,
then fits the final model on every eligible day.

Artifacts are written to --reports-dir and, when configured, to S3
(JANUS_REPORTS_S3_BUCKET) and a git clone (JANUS_REPORTS_GIT_REPO).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = cfg.ChurnConfig
		}
		reportsDir, _ := cmd.Flags().GetString("reports-dir")
		if reportsDir == "" {
			reportsDir = cfg.ReportsDir
		}
		tail, _ := cmd.Flags().GetInt("tail")
		return runChurnTrain(cmd.Context(), configPath, reportsDir, tail)
	},
}

func init() {
	churnTrainCmd.Flags().String("config", "", "validator TOML file (default: $JANUS_CHURN_CONFIG)")
	churnTrainCmd.Flags().String("reports-dir", "", "artifact directory (default: $JANUS_REPORTS_DIR)")
	churnTrainCmd.Flags().Int("tail", 5, "number of trailing folds to print")
	churnCmd.AddCommand(churnTrainCmd)
}

func runChurnTrain(ctx context.Context, configPath, reportsDir string, tail int) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Configuration errors are reported before touching the warehouse.
	vcfg, err := churn.LoadConfig(configPath)
	if err != nil {
		return err
	}

	run, err := startRun()
	if err != nil {
		return err
	}
	defer run.close()

	rows, err := run.store.ListUserFeatures(ctx)
	if err != nil {
		return fmt.Errorf("read gold features: %w", err)
	}
	run.logger.Info("gold features loaded", "rows", len(rows))

	res, err := churn.NewValidator(vcfg, run.logger).Run(ctx, rows)
	if err != nil {
		run.logger.Error("churn training failed", "err", err)
		return err
	}
	res.Final.RunID = run.id

	artifacts, err := report.ChurnArtifacts(res)
	if err != nil {
		return err
	}
	dests, err := reportDestinations(ctx, reportsDir, run.logger)
	if err != nil {
		return err
	}
	if err := report.Publish(ctx, artifacts, dests...); err != nil {
		return fmt.Errorf("publish model cards: %w", err)
	}
	run.logger.Info("model cards written", "dir", reportsDir, "artifacts", len(artifacts), "destinations", len(dests))

	run.emit(ctx, events.TopicChurnTrained, events.ChurnTrained{
		RunID:   run.id,
		At:      time.Now().UTC(),
		Summary: res.Summary,
		Final:   res.Final,
	})

	if jsonOutput {
		printJSON(struct {
			RunID   string         `json:"run_id"`
			Summary churn.Summary  `json:"summary"`
			Final   churn.FinalFit `json:"final_fit"`
		}{run.id, res.Summary, res.Final})
		return nil
	}
	printChurnResult(res, tail)
	return nil
}
