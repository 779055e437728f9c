// Package bronze lands raw event and billing files in the bronze schema.
//
// Every record is stored as read, with its source file, the load's
// ingestion timestamp and a content hash. Inserts skip rows whose hash is
// already present, so reloading an unchanged file is a no-op.
package bronze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/store"
)

// ErrNoFiles is returned when the input glob matches nothing.
var ErrNoFiles = errors.New("no input files")

// Options selects the input files of one load and how many parsed records
// are buffered before they are sent to the store.
type Options struct {
	Dir        string
	Glob       string
	LimitFiles int // 0 loads every matched file
	BatchSize  int
}

// DefaultEventOptions returns the options for daily JSONL event files.
func DefaultEventOptions() Options {
	return Options{Dir: "data/raw/events", Glob: "*.jsonl", BatchSize: 500}
}

// DefaultBillingOptions returns the options for daily billing CSV files.
func DefaultBillingOptions() Options {
	return Options{Dir: "data/raw/billing", Glob: "*.csv", BatchSize: 1000}
}

// Result summarises one load.
type Result struct {
	Files          int       `json:"files"`
	RecordsRead    int64     `json:"records_read"`
	InsertAttempts int64     `json:"insert_attempts"`
	Inserted       int64     `json:"inserted"`
	IngestionTS    time.Time `json:"ingestion_ts"`
	Created        []string  `json:"created,omitempty"`
}

// Loader writes parsed files into bronze through a store.
type Loader struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a loader backed by s.
func NewLoader(s store.Store, logger *slog.Logger) *Loader {
	return &Loader{store: s, logger: logger, now: time.Now}
}

// fileLoader parses one file and inserts its rows through tx.
type fileLoader func(ctx context.Context, tx store.Store, path string, ts time.Time, batchSize int, res *Result) (int64, error)

// LoadEvents loads JSONL event files into bronze.bronze_events.
func (l *Loader) LoadEvents(ctx context.Context, opts Options) (*Result, error) {
	return l.load(ctx, "events", opts, loadEventsFile)
}

// LoadBilling loads CSV billing files into bronze.bronze_billing.
func (l *Loader) LoadBilling(ctx context.Context, opts Options) (*Result, error) {
	return l.load(ctx, "billing", opts, loadBillingFile)
}

// load runs the whole load in one transaction: a malformed file leaves no
// rows from this run behind.
func (l *Loader) load(ctx context.Context, entity string, opts Options, loadFile fileLoader) (*Result, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	files, err := ListFiles(opts.Dir, opts.Glob, opts.LimitFiles)
	if err != nil {
		return nil, err
	}

	res := &Result{Files: len(files)}
	err = l.store.RunInTransaction(ctx, func(tx store.Store) error {
		created, err := tx.EnsureBronzeIdempotency(ctx)
		if err != nil {
			return fmt.Errorf("ensure bronze idempotency: %w", err)
		}
		for _, name := range created {
			l.logger.Info("created bronze object", "name", name)
		}
		res.Created = created

		latest, err := tx.MaxBronzeIngestionTS(ctx)
		if err != nil {
			return err
		}
		res.IngestionTS = IngestionTS(l.now(), latest)

		for _, path := range files {
			read, err := loadFile(ctx, tx, path, res.IngestionTS, opts.BatchSize, res)
			if err != nil {
				return err
			}
			l.logger.Info("bronze file loaded", "entity", entity, "file", filepath.Base(path), "read", read)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load bronze %s: %w", entity, err)
	}

	l.logger.Info("bronze load complete",
		"entity", entity,
		"files", res.Files,
		"records_read", res.RecordsRead,
		"insert_attempts", res.InsertAttempts,
		"inserted", res.Inserted,
	)
	return res, nil
}

// IngestionTS picks the timestamp stamped on every row of a load. It is now,
// at the warehouse's microsecond resolution, but always later than anything
// already in bronze so that "latest load wins" has a single answer.
func IngestionTS(now time.Time, latest *time.Time) time.Time {
	ts := now.UTC().Truncate(time.Microsecond)
	if latest != nil {
		floor := latest.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
		if ts.Before(floor) {
			ts = floor
		}
	}
	return ts
}

// ListFiles returns the files in dir matching glob, sorted by name and
// limited to the first limit entries when limit is positive.
func ListFiles(dir, glob string, limit int) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input dir %s is not a directory", dir)
	}

	pattern := filepath.Join(dir, glob)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", glob, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, pattern)
	}
	return files, nil
}
