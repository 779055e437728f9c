package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/bronze"
	"github.com/Alexander-Kershaw/JANUS/internal/churn"
	"github.com/Alexander-Kershaw/JANUS/internal/silver"
)

// Event topic constants
const (
	TopicBronzeEventsLoaded     = "janus.bronze.events.loaded"
	TopicBronzeBillingLoaded    = "janus.bronze.billing.loaded"
	TopicSilverEventsRefreshed  = "janus.silver.events.refreshed"
	TopicSilverBillingRefreshed = "janus.silver.billing.refreshed"
	TopicChurnTrained           = "janus.churn.trained"

	// TopicAll matches every run event.
	TopicAll = "janus.>"
)

// Event types

type BronzeLoaded struct {
	RunID  string         `json:"run_id"`
	Entity string         `json:"entity"`
	At     time.Time      `json:"at"`
	Result *bronze.Result `json:"result"`
}

type SilverRefreshed struct {
	RunID  string         `json:"run_id"`
	At     time.Time      `json:"at"`
	Report *silver.Report `json:"report"`
}

type ChurnTrained struct {
	RunID   string         `json:"run_id"`
	At      time.Time      `json:"at"`
	Summary churn.Summary  `json:"summary"`
	Final   churn.FinalFit `json:"final_fit"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Emit publishes event and logs a failure instead of returning it. Run
// events are informational and never fail a run.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, topic string, event any) {
	if err := pub.Publish(ctx, topic, event); err != nil {
		logger.Warn("publish run event failed", "topic", topic, "err", err)
	}
}
