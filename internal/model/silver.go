package model

import (
	"encoding/json"
	"time"
)

// SilverEvent is a validated, deduplicated and lateness-annotated event.
type SilverEvent struct {
	EventID    string          `json:"event_id"`
	EventTS    time.Time       `json:"event_ts"`
	ReceivedTS time.Time       `json:"received_ts"`
	UserID     *string         `json:"user_id"`
	DeviceID   *string         `json:"device_id"`
	SessionID  *string         `json:"session_id"`
	EventType  string          `json:"event_type"`
	Props      json.RawMessage `json:"props"`

	BronzeRowHash string    `json:"bronze_row_hash"`
	SourceFile    string    `json:"source_file"`
	IngestionTS   time.Time `json:"ingestion_ts"`

	IsLate      bool  `json:"is_late"`
	LatenessSec int64 `json:"lateness_sec"`
}

// SilverBilling is a validated billing row. All business fields are required.
type SilverBilling struct {
	BillingDate time.Time    `json:"billing_date"`
	UserID      string       `json:"user_id"`
	Event       BillingEvent `json:"event"`
	PlanID      string       `json:"plan_id"`

	BronzeRowHash string    `json:"bronze_row_hash"`
	SourceFile    string    `json:"source_file"`
	IngestionTS   time.Time `json:"ingestion_ts"`
}
