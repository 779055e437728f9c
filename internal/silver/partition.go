// Package silver rebuilds the silver tables from bronze.
//
// A rebuild classifies every bronze row, routes failures to quarantine,
// keeps one row per event_id and annotates lateness. The partition is a pure
// function of its input; Transformer swaps the result into the warehouse in
// one transaction.
package silver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

// emptyProps is stored when a bronze event carries no props.
var emptyProps = json.RawMessage(`{}`)

// EventPartition is the result of partitioning bronze events. Silver is
// ordered by event_id; Quarantine keeps the bronze read order.
type EventPartition struct {
	Silver     []*model.SilverEvent
	Quarantine []*model.EventQuarantine
	Valid      int
	Duplicates int
}

// BillingPartition is the result of partitioning bronze billing rows. Both
// slices keep the bronze read order.
type BillingPartition struct {
	Silver     []*model.SilverBilling
	Quarantine []*model.BillingQuarantine
}

// PartitionEvents splits bronze events into quarantine and deduplicated,
// enriched silver rows. Every invalid row yields one quarantine record;
// among valid rows sharing an event_id only the winner survives.
func PartitionEvents(rows []*model.BronzeEvent) (*EventPartition, error) {
	p := &EventPartition{}
	winners := make(map[string]*model.BronzeEvent)

	for _, r := range rows {
		reason, ok := model.ClassifyEvent(r)
		if !ok {
			raw, err := eventRawRecord(r)
			if err != nil {
				return nil, err
			}
			p.Quarantine = append(p.Quarantine, &model.EventQuarantine{
				BronzeRowHash: r.RowHash,
				SourceFile:    r.SourceFile,
				IngestionTS:   r.IngestionTS,
				ReasonCode:    reason,
				RawRecord:     raw,
			})
			continue
		}

		p.Valid++
		id := *r.EventID
		if cur, seen := winners[id]; !seen || supersedes(r, cur) {
			winners[id] = r
		}
	}
	p.Duplicates = p.Valid - len(winners)

	p.Silver = make([]*model.SilverEvent, 0, len(winners))
	for _, w := range winners {
		p.Silver = append(p.Silver, enrich(w))
	}
	sort.Slice(p.Silver, func(i, j int) bool {
		return p.Silver[i].EventID < p.Silver[j].EventID
	})
	return p, nil
}

// supersedes reports whether a should replace b as the representative of
// their event_id: latest receipt first, then latest load. The row hash
// settles exact ties so the choice never depends on read order.
func supersedes(a, b *model.BronzeEvent) bool {
	if !a.ReceivedTS.Equal(*b.ReceivedTS) {
		return a.ReceivedTS.After(*b.ReceivedTS)
	}
	if !a.IngestionTS.Equal(b.IngestionTS) {
		return a.IngestionTS.After(b.IngestionTS)
	}
	return a.RowHash > b.RowHash
}

// Lateness returns how many whole seconds after eventTS the event was
// received, never negative.
func Lateness(eventTS, receivedTS time.Time) int64 {
	sec := int64(receivedTS.Sub(eventTS) / time.Second)
	if sec < 0 {
		return 0
	}
	return sec
}

// enrich builds the silver row for a validated bronze event.
func enrich(r *model.BronzeEvent) *model.SilverEvent {
	lateness := Lateness(*r.EventTS, *r.ReceivedTS)
	props := r.Props
	if len(bytes.TrimSpace(props)) == 0 || bytes.Equal(bytes.TrimSpace(props), []byte("null")) {
		props = emptyProps
	}
	return &model.SilverEvent{
		EventID:       *r.EventID,
		EventTS:       *r.EventTS,
		ReceivedTS:    *r.ReceivedTS,
		UserID:        r.UserID,
		DeviceID:      r.DeviceID,
		SessionID:     r.SessionID,
		EventType:     *r.EventType,
		Props:         props,
		BronzeRowHash: r.RowHash,
		SourceFile:    r.SourceFile,
		IngestionTS:   r.IngestionTS,
		IsLate:        lateness > 0,
		LatenessSec:   lateness,
	}
}

// PartitionBilling splits bronze billing rows into quarantine and silver.
// Billing has no business key dedup; every valid row is promoted.
func PartitionBilling(rows []*model.BronzeBilling) (*BillingPartition, error) {
	p := &BillingPartition{}
	for _, r := range rows {
		reason, ok := model.ClassifyBilling(r)
		if !ok {
			raw, err := billingRawRecord(r)
			if err != nil {
				return nil, err
			}
			p.Quarantine = append(p.Quarantine, &model.BillingQuarantine{
				BronzeRowHash: r.RowHash,
				SourceFile:    r.SourceFile,
				IngestionTS:   r.IngestionTS,
				ReasonCode:    reason,
				RawRecord:     raw,
			})
			continue
		}
		p.Silver = append(p.Silver, &model.SilverBilling{
			BillingDate:   *r.BillingDate,
			UserID:        *r.UserID,
			Event:         model.BillingEvent(*r.Event),
			PlanID:        *r.PlanID,
			BronzeRowHash: r.RowHash,
			SourceFile:    r.SourceFile,
			IngestionTS:   r.IngestionTS,
		})
	}
	return p, nil
}

// eventRawRecord snapshots every bronze column, nulls included.
func eventRawRecord(r *model.BronzeEvent) (json.RawMessage, error) {
	var props any
	if len(r.Props) > 0 {
		props = r.Props
	}
	return rawRecord(r.RowHash, map[string]any{
		"event_id":     r.EventID,
		"event_ts":     r.EventTS,
		"received_ts":  r.ReceivedTS,
		"user_id":      r.UserID,
		"device_id":    r.DeviceID,
		"session_id":   r.SessionID,
		"event_type":   r.EventType,
		"props":        props,
		"source_file":  r.SourceFile,
		"ingestion_ts": r.IngestionTS,
		"row_hash":     r.RowHash,
	})
}

func billingRawRecord(r *model.BronzeBilling) (json.RawMessage, error) {
	var date *string
	if r.BillingDate != nil {
		s := r.BillingDate.Format(time.DateOnly)
		date = &s
	}
	return rawRecord(r.RowHash, map[string]any{
		"billing_date": date,
		"user_id":      r.UserID,
		"event":        r.Event,
		"plan_id":      r.PlanID,
		"source_file":  r.SourceFile,
		"ingestion_ts": r.IngestionTS,
		"row_hash":     r.RowHash,
	})
}

func rawRecord(rowHash string, fields map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("snapshot bronze row %s: %w", rowHash, err)
	}
	return raw, nil
}
