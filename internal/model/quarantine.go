package model

import (
	"encoding/json"
	"time"
)

// ReasonCode classifies why a bronze row was rejected. Only the first failing
// check is recorded.
type ReasonCode string

// Event reason codes, in check order.
const (
	ReasonMissingEventID    ReasonCode = "missing_event_id"
	ReasonMissingEventTS    ReasonCode = "missing_event_ts"
	ReasonMissingReceivedTS ReasonCode = "missing_received_ts"
	ReasonMissingEventType  ReasonCode = "missing_event_type"
)

// Billing reason codes, in check order.
const (
	ReasonMissingBillingDate ReasonCode = "missing_billing_date"
	ReasonMissingUserID      ReasonCode = "missing_user_id"
	ReasonMissingEvent       ReasonCode = "missing_event"
	ReasonInvalidEvent       ReasonCode = "invalid_event"
	ReasonMissingPlanID      ReasonCode = "missing_plan_id"
)

// ReasonUnknownInvalid is reserved for rows that fail no named check but were
// still rejected. The silver transform never produces it.
const ReasonUnknownInvalid ReasonCode = "unknown_invalid"

// String returns the string representation of the reason code.
func (r ReasonCode) String() string {
	return string(r)
}

// EventQuarantine is a rejected bronze event with its original payload.
type EventQuarantine struct {
	BronzeRowHash string    `json:"bronze_row_hash"`
	SourceFile    string    `json:"source_file"`
	IngestionTS   time.Time `json:"ingestion_ts"`

	ReasonCode   ReasonCode      `json:"reason_code"`
	ReasonDetail *string         `json:"reason_detail,omitempty"`
	RawRecord    json.RawMessage `json:"raw_record"`
}

// BillingQuarantine is a rejected bronze billing row with its original payload.
type BillingQuarantine struct {
	BronzeRowHash string    `json:"bronze_row_hash"`
	SourceFile    string    `json:"source_file"`
	IngestionTS   time.Time `json:"ingestion_ts"`

	ReasonCode ReasonCode      `json:"reason_code"`
	RawRecord  json.RawMessage `json:"raw_record"`
}
