// Package model holds the warehouse row types shared across layers and the
// silver validation rules.
package model

import (
	"encoding/json"
	"time"
)

// BronzeEvent is a raw telemetry row in bronze.bronze_events.
// Business fields are nullable; provenance fields are always set.
type BronzeEvent struct {
	EventID    *string         `json:"event_id"`
	EventTS    *time.Time      `json:"event_ts"`
	ReceivedTS *time.Time      `json:"received_ts"`
	UserID     *string         `json:"user_id"`
	DeviceID   *string         `json:"device_id"`
	SessionID  *string         `json:"session_id"`
	EventType  *string         `json:"event_type"`
	Props      json.RawMessage `json:"props"`

	SourceFile  string    `json:"source_file"`
	IngestionTS time.Time `json:"ingestion_ts"`
	RowHash     string    `json:"row_hash"`
}

// BronzeBilling is a raw billing row in bronze.bronze_billing.
type BronzeBilling struct {
	BillingDate *time.Time `json:"billing_date"`
	UserID      *string    `json:"user_id"`
	Event       *string    `json:"event"`
	PlanID      *string    `json:"plan_id"`

	SourceFile  string    `json:"source_file"`
	IngestionTS time.Time `json:"ingestion_ts"`
	RowHash     string    `json:"row_hash"`
}

// BillingEvent is the closed set of billing event names accepted into silver.
type BillingEvent string

const (
	BillingStart   BillingEvent = "start"
	BillingUpgrade BillingEvent = "upgrade"
	BillingCancel  BillingEvent = "cancel"
)

// IsValid reports whether the billing event is one of start, upgrade or cancel.
func (e BillingEvent) IsValid() bool {
	switch e {
	case BillingStart, BillingUpgrade, BillingCancel:
		return true
	}
	return false
}

// StringPtr returns a pointer to s. Handy for building nullable columns.
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
