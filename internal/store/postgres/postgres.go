// Package postgres implements the store.Store interface backed by the
// PostgreSQL warehouse.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
	"github.com/Alexander-Kershaw/JANUS/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the warehouse at the given URL, configures the
// connection pool, and runs any pending schema migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewFromDB wraps an already-open database without running migrations.
func NewFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "janus_schema_migrations"})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// classify maps integrity and schema errors reported by Postgres onto the
// store sentinels so callers can tell fatal configuration problems apart.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Class() {
	case "23":
		return fmt.Errorf("%w: %w", store.ErrConstraint, err)
	case "42":
		return fmt.Errorf("%w: %w", store.ErrSchema, err)
	}
	return err
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) InsertBronzeEvents(ctx context.Context, rows []*model.BronzeEvent) (int64, error) {
	return queryInsertBronzeEvents(ctx, s.db, rows)
}

func (s *PostgresStore) InsertBronzeBilling(ctx context.Context, rows []*model.BronzeBilling) (int64, error) {
	return queryInsertBronzeBilling(ctx, s.db, rows)
}

func (s *PostgresStore) ListBronzeEvents(ctx context.Context) ([]*model.BronzeEvent, error) {
	return queryListBronzeEvents(ctx, s.db)
}

func (s *PostgresStore) ListBronzeBilling(ctx context.Context) ([]*model.BronzeBilling, error) {
	return queryListBronzeBilling(ctx, s.db)
}

func (s *PostgresStore) MaxBronzeIngestionTS(ctx context.Context) (*time.Time, error) {
	return queryMaxBronzeIngestionTS(ctx, s.db)
}

func (s *PostgresStore) EnsureBronzeIdempotency(ctx context.Context) ([]string, error) {
	return queryEnsureBronzeIdempotency(ctx, s.db)
}

func (s *PostgresStore) LockSilver(ctx context.Context, entity string) error {
	return queryLockSilver(ctx, s.db, entity)
}

func (s *PostgresStore) ReplaceSilverEvents(ctx context.Context, silver []*model.SilverEvent, quarantine []*model.EventQuarantine) error {
	return queryReplaceSilverEvents(ctx, s.db, silver, quarantine)
}

func (s *PostgresStore) ReplaceSilverBilling(ctx context.Context, silver []*model.SilverBilling, quarantine []*model.BillingQuarantine) error {
	return queryReplaceSilverBilling(ctx, s.db, silver, quarantine)
}

func (s *PostgresStore) ListUserFeatures(ctx context.Context) ([]*model.UserFeatureRow, error) {
	return queryListUserFeatures(ctx, s.db)
}

func (s *PostgresStore) TableCounts(ctx context.Context) ([]model.TableCount, error) {
	return queryTableCounts(ctx, s.db)
}

func (s *PostgresStore) PipelineHealth(ctx context.Context) (*model.PipelineHealth, error) {
	return queryPipelineHealth(ctx, s.db)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) InsertBronzeEvents(ctx context.Context, rows []*model.BronzeEvent) (int64, error) {
	return queryInsertBronzeEvents(ctx, s.tx, rows)
}

func (s *txStore) InsertBronzeBilling(ctx context.Context, rows []*model.BronzeBilling) (int64, error) {
	return queryInsertBronzeBilling(ctx, s.tx, rows)
}

func (s *txStore) ListBronzeEvents(ctx context.Context) ([]*model.BronzeEvent, error) {
	return queryListBronzeEvents(ctx, s.tx)
}

func (s *txStore) ListBronzeBilling(ctx context.Context) ([]*model.BronzeBilling, error) {
	return queryListBronzeBilling(ctx, s.tx)
}

func (s *txStore) MaxBronzeIngestionTS(ctx context.Context) (*time.Time, error) {
	return queryMaxBronzeIngestionTS(ctx, s.tx)
}

func (s *txStore) EnsureBronzeIdempotency(ctx context.Context) ([]string, error) {
	return queryEnsureBronzeIdempotency(ctx, s.tx)
}

func (s *txStore) LockSilver(ctx context.Context, entity string) error {
	return queryLockSilver(ctx, s.tx, entity)
}

func (s *txStore) ReplaceSilverEvents(ctx context.Context, silver []*model.SilverEvent, quarantine []*model.EventQuarantine) error {
	return queryReplaceSilverEvents(ctx, s.tx, silver, quarantine)
}

func (s *txStore) ReplaceSilverBilling(ctx context.Context, silver []*model.SilverBilling, quarantine []*model.BillingQuarantine) error {
	return queryReplaceSilverBilling(ctx, s.tx, silver, quarantine)
}

func (s *txStore) ListUserFeatures(ctx context.Context) ([]*model.UserFeatureRow, error) {
	return queryListUserFeatures(ctx, s.tx)
}

func (s *txStore) TableCounts(ctx context.Context) ([]model.TableCount, error) {
	return queryTableCounts(ctx, s.tx)
}

func (s *txStore) PipelineHealth(ctx context.Context) (*model.PipelineHealth, error) {
	return queryPipelineHealth(ctx, s.tx)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
