package model

import "time"

// TableCount is the row count of one warehouse table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// PipelineHealth summarises warehouse freshness and lateness.
type PipelineHealth struct {
	LatestIngestionTS *time.Time   `json:"latest_ingestion_ts"`
	LateRatePct       *float64     `json:"late_rate_pct"`
	LateEvents        int64        `json:"late_events"`
	TotalEvents       int64        `json:"total_events"`
	Tables            []TableCount `json:"tables"`
}
