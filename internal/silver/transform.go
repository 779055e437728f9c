package silver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
	"github.com/Alexander-Kershaw/JANUS/internal/store"
)

// Entities accepted by the silver lock.
const (
	EntityEvents  = "events"
	EntityBilling = "billing"
)

// Report summarises one silver rebuild.
type Report struct {
	Entity            string                   `json:"entity"`
	BronzeRows        int                      `json:"bronze_rows"`
	ValidRows         int                      `json:"valid_rows"`
	DuplicatesDropped int                      `json:"duplicates_dropped"`
	SilverRows        int                      `json:"silver_rows"`
	QuarantineRows    int                      `json:"quarantine_rows"`
	Reasons           map[model.ReasonCode]int `json:"reasons"`
	LateRows          int                      `json:"late_rows"`
}

// Report summarises an event partition of bronzeRows input rows.
func (p *EventPartition) Report(bronzeRows int) *Report {
	r := &Report{
		Entity:            EntityEvents,
		BronzeRows:        bronzeRows,
		ValidRows:         p.Valid,
		DuplicatesDropped: p.Duplicates,
		SilverRows:        len(p.Silver),
		QuarantineRows:    len(p.Quarantine),
		Reasons:           make(map[model.ReasonCode]int),
	}
	for _, q := range p.Quarantine {
		r.Reasons[q.ReasonCode]++
	}
	for _, s := range p.Silver {
		if s.IsLate {
			r.LateRows++
		}
	}
	return r
}

// Report summarises a billing partition of bronzeRows input rows.
func (p *BillingPartition) Report(bronzeRows int) *Report {
	r := &Report{
		Entity:         EntityBilling,
		BronzeRows:     bronzeRows,
		ValidRows:      len(p.Silver),
		SilverRows:     len(p.Silver),
		QuarantineRows: len(p.Quarantine),
		Reasons:        make(map[model.ReasonCode]int),
	}
	for _, q := range p.Quarantine {
		r.Reasons[q.ReasonCode]++
	}
	return r
}

// Transformer rebuilds silver tables from bronze.
type Transformer struct {
	store  store.Store
	logger *slog.Logger
}

// NewTransformer creates a transformer backed by s.
func NewTransformer(s store.Store, logger *slog.Logger) *Transformer {
	return &Transformer{store: s, logger: logger}
}

// RunEvents rebuilds silver.silver_events and its quarantine. The read,
// truncate and inserts share one transaction; on error the previous
// contents stay in place.
func (t *Transformer) RunEvents(ctx context.Context) (*Report, error) {
	var rep *Report
	err := t.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.LockSilver(ctx, EntityEvents); err != nil {
			return err
		}
		rows, err := tx.ListBronzeEvents(ctx)
		if err != nil {
			return err
		}
		p, err := PartitionEvents(rows)
		if err != nil {
			return err
		}
		if err := tx.ReplaceSilverEvents(ctx, p.Silver, p.Quarantine); err != nil {
			return err
		}
		rep = p.Report(len(rows))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh silver events: %w", err)
	}

	t.logger.Info("silver events refreshed",
		"bronze", rep.BronzeRows,
		"silver", rep.SilverRows,
		"quarantine", rep.QuarantineRows,
		"duplicates", rep.DuplicatesDropped,
		"late", rep.LateRows,
	)
	return rep, nil
}

// RunBilling rebuilds silver.silver_billing and its quarantine in one
// transaction.
func (t *Transformer) RunBilling(ctx context.Context) (*Report, error) {
	var rep *Report
	err := t.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.LockSilver(ctx, EntityBilling); err != nil {
			return err
		}
		rows, err := tx.ListBronzeBilling(ctx)
		if err != nil {
			return err
		}
		p, err := PartitionBilling(rows)
		if err != nil {
			return err
		}
		if err := tx.ReplaceSilverBilling(ctx, p.Silver, p.Quarantine); err != nil {
			return err
		}
		rep = p.Report(len(rows))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh silver billing: %w", err)
	}

	t.logger.Info("silver billing refreshed",
		"bronze", rep.BronzeRows,
		"silver", rep.SilverRows,
		"quarantine", rep.QuarantineRows,
	)
	return rep, nil
}
