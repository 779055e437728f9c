package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alexander-Kershaw/JANUS/internal/events"
	"github.com/Alexander-Kershaw/JANUS/internal/idgen"
	"github.com/Alexander-Kershaw/JANUS/internal/report"
	"github.com/Alexander-Kershaw/JANUS/internal/store/postgres"
)

// batchRun holds what every pipeline command needs: a run id, a logger
// tagged with it, the warehouse and the event publisher.
type batchRun struct {
	id        string
	logger    *slog.Logger
	store     *postgres.PostgresStore
	publisher events.Publisher
}

// startRun connects to the warehouse (applying pending migrations) and to
// NATS when configured. Callers must call close.
func startRun() (*batchRun, error) {
	id, err := idgen.RunID()
	if err != nil {
		return nil, err
	}
	runLogger := logger.With("run_id", id)

	store, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			// Run events are optional; the batch still runs.
			runLogger.Warn("events disabled", "err", err)
			publisher = &events.NoopPublisher{}
		} else {
			publisher = pub
			runLogger.Debug("events enabled", "nats_url", cfg.NATSURL)
		}
	} else {
		publisher = &events.NoopPublisher{}
		runLogger.Debug("events disabled (JANUS_NATS_URL not set)")
	}

	return &batchRun{id: id, logger: runLogger, store: store, publisher: publisher}, nil
}

func (r *batchRun) close() {
	if err := r.publisher.Close(); err != nil {
		r.logger.Error("error closing publisher", "err", err)
	}
	if err := r.store.Close(); err != nil {
		r.logger.Error("error closing store", "err", err)
	}
}

func (r *batchRun) emit(ctx context.Context, topic string, event any) {
	events.Emit(ctx, r.publisher, r.logger, topic, event)
}

// reportDestinations builds the artifact destinations: the local directory
// always, plus S3 and git when configured.
func reportDestinations(ctx context.Context, dir string, log *slog.Logger) ([]report.Destination, error) {
	dests := []report.Destination{report.NewDirDestination(dir)}

	if cfg.ReportsS3Bucket != "" {
		s3Dest, err := report.NewS3Destination(ctx,
			cfg.ReportsS3Bucket,
			cfg.ReportsS3Prefix,
			cfg.ReportsS3Region,
			cfg.ReportsS3Endpoint,
		)
		if err != nil {
			return nil, fmt.Errorf("create S3 report destination: %w", err)
		}
		dests = append(dests, s3Dest)
		log.Info("report S3 destination enabled", "bucket", cfg.ReportsS3Bucket, "prefix", cfg.ReportsS3Prefix)
	}

	if cfg.ReportsGitRepo != "" {
		dests = append(dests, report.NewGitDestination(cfg.ReportsGitRepo, cfg.ReportsGitDir, cfg.ReportsGitBranch, "model cards: update"))
		log.Info("report git destination enabled", "repo", cfg.ReportsGitRepo, "dir", cfg.ReportsGitDir)
	}
	return dests, nil
}
