// Package store defines the warehouse persistence interface shared by the
// bronze loader, the silver transform and the churn trainer.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

var (
	// ErrConstraint marks an integrity constraint violation during a write.
	ErrConstraint = errors.New("constraint violation")
	// ErrSchema marks a destination whose schema does not match the writer.
	ErrSchema = errors.New("schema mismatch")
)

// Store defines the persistence interface for the warehouse.
type Store interface {
	// Bronze
	InsertBronzeEvents(ctx context.Context, rows []*model.BronzeEvent) (int64, error) // returns rows actually inserted
	InsertBronzeBilling(ctx context.Context, rows []*model.BronzeBilling) (int64, error)
	ListBronzeEvents(ctx context.Context) ([]*model.BronzeEvent, error)
	ListBronzeBilling(ctx context.Context) ([]*model.BronzeBilling, error)
	MaxBronzeIngestionTS(ctx context.Context) (*time.Time, error)
	EnsureBronzeIdempotency(ctx context.Context) ([]string, error) // returns objects created

	// Silver
	LockSilver(ctx context.Context, entity string) error
	ReplaceSilverEvents(ctx context.Context, silver []*model.SilverEvent, quarantine []*model.EventQuarantine) error
	ReplaceSilverBilling(ctx context.Context, silver []*model.SilverBilling, quarantine []*model.BillingQuarantine) error

	// Gold
	ListUserFeatures(ctx context.Context) ([]*model.UserFeatureRow, error)

	// Health
	TableCounts(ctx context.Context) ([]model.TableCount, error)
	PipelineHealth(ctx context.Context) (*model.PipelineHealth, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
