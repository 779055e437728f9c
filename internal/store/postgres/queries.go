package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

// insertBatchSize bounds the rows per multi-row INSERT so that the
// parameter count stays well under the Postgres limit of 65535.
const insertBatchSize = 500

const bronzeEventColumns = `event_id, event_ts, received_ts, user_id, device_id, session_id, event_type, props,
	source_file, ingestion_ts, row_hash`

const bronzeBillingColumns = `billing_date, user_id, event, plan_id,
	source_file, ingestion_ts, row_hash`

const silverEventColumns = `event_id, event_ts, received_ts, user_id, device_id, session_id, event_type, props,
	bronze_row_hash, source_file, ingestion_ts,
	is_late, lateness_sec`

const silverBillingColumns = `billing_date, user_id, event, plan_id,
	bronze_row_hash, source_file, ingestion_ts`

const eventQuarantineColumns = `bronze_row_hash, source_file, ingestion_ts,
	reason_code, reason_detail,
	raw_record`

const billingQuarantineColumns = `bronze_row_hash, source_file, ingestion_ts,
	reason_code, raw_record`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// valuesClause returns "($1, $2), ($3, $4)" style placeholders for n rows of
// width columns each.
func valuesClause(n, width int) string {
	var b strings.Builder
	argIdx := 0
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := 0; j < width; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			argIdx++
			fmt.Fprintf(&b, "$%d", argIdx)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// --- Bronze ---

func queryInsertBronzeEvents(ctx context.Context, db executor, rows []*model.BronzeEvent) (int64, error) {
	var inserted int64
	for start := 0; start < len(rows); start += insertBatchSize {
		batch := rows[start:min(start+insertBatchSize, len(rows))]
		args := make([]any, 0, len(batch)*11)
		for _, r := range batch {
			args = append(args,
				nullStringPtr(r.EventID),
				nullTimePtr(r.EventTS),
				nullTimePtr(r.ReceivedTS),
				nullStringPtr(r.UserID),
				nullStringPtr(r.DeviceID),
				nullStringPtr(r.SessionID),
				nullStringPtr(r.EventType),
				jsonbBytes(r.Props),
				r.SourceFile,
				r.IngestionTS,
				r.RowHash,
			)
		}
		res, err := db.ExecContext(ctx,
			`INSERT INTO bronze.bronze_events (`+bronzeEventColumns+`) VALUES `+
				valuesClause(len(batch), 11)+` ON CONFLICT (row_hash) DO NOTHING`,
			args...,
		)
		if err != nil {
			return inserted, classify(fmt.Errorf("insert bronze events: %w", err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert bronze events: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

func queryInsertBronzeBilling(ctx context.Context, db executor, rows []*model.BronzeBilling) (int64, error) {
	var inserted int64
	for start := 0; start < len(rows); start += insertBatchSize {
		batch := rows[start:min(start+insertBatchSize, len(rows))]
		args := make([]any, 0, len(batch)*7)
		for _, r := range batch {
			args = append(args,
				nullDatePtr(r.BillingDate),
				nullStringPtr(r.UserID),
				nullStringPtr(r.Event),
				nullStringPtr(r.PlanID),
				r.SourceFile,
				r.IngestionTS,
				r.RowHash,
			)
		}
		res, err := db.ExecContext(ctx,
			`INSERT INTO bronze.bronze_billing (`+bronzeBillingColumns+`) VALUES `+
				valuesClause(len(batch), 7)+` ON CONFLICT (row_hash) DO NOTHING`,
			args...,
		)
		if err != nil {
			return inserted, classify(fmt.Errorf("insert bronze billing: %w", err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert bronze billing: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

// Bronze rows are read in a fixed order so that the silver transform sees
// the same sequence on every run.
func queryListBronzeEvents(ctx context.Context, db executor) ([]*model.BronzeEvent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+bronzeEventColumns+`
		FROM bronze.bronze_events
		ORDER BY ingestion_ts, source_file, row_hash`)
	if err != nil {
		return nil, classify(fmt.Errorf("list bronze events: %w", err))
	}
	defer rows.Close()
	return scanBronzeEvents(rows)
}

func queryListBronzeBilling(ctx context.Context, db executor) ([]*model.BronzeBilling, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+bronzeBillingColumns+`
		FROM bronze.bronze_billing
		ORDER BY ingestion_ts, source_file, row_hash`)
	if err != nil {
		return nil, classify(fmt.Errorf("list bronze billing: %w", err))
	}
	defer rows.Close()
	return scanBronzeBillings(rows)
}

func queryMaxBronzeIngestionTS(ctx context.Context, db executor) (*time.Time, error) {
	var ts sql.NullTime
	err := db.QueryRowContext(ctx, `
		SELECT max(ingestion_ts) FROM (
			SELECT max(ingestion_ts) AS ingestion_ts FROM bronze.bronze_events
			UNION ALL
			SELECT max(ingestion_ts) FROM bronze.bronze_billing
		) t`).Scan(&ts)
	if err != nil {
		return nil, classify(fmt.Errorf("max bronze ingestion_ts: %w", err))
	}
	return timePtr(ts), nil
}

// bronzeUniqueConstraints are the row_hash constraints that make ON CONFLICT
// inserts into bronze possible.
var bronzeUniqueConstraints = []struct {
	table string
	name  string
}{
	{"bronze_events", "bronze_events_row_hash_uk"},
	{"bronze_billing", "bronze_billing_row_hash_uk"},
}

var bronzeIndexes = []struct {
	name   string
	table  string
	column string
}{
	{"bronze_events_ingestion_ts_idx", "bronze_events", "ingestion_ts"},
	{"bronze_events_event_ts_idx", "bronze_events", "event_ts"},
	{"bronze_billing_ingestion_ts_idx", "bronze_billing", "ingestion_ts"},
	{"bronze_billing_billing_date_idx", "bronze_billing", "billing_date"},
}

// queryEnsureBronzeIdempotency creates the bronze unique constraints and
// indexes that are missing. Existence is read from the catalog first, so the
// statement sequence is safe to repeat.
func queryEnsureBronzeIdempotency(ctx context.Context, db executor) ([]string, error) {
	var created []string

	for _, c := range bronzeUniqueConstraints {
		var exists bool
		err := db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM pg_constraint
				WHERE conname = $1 AND conrelid = to_regclass($2)
			)`, c.name, "bronze."+c.table).Scan(&exists)
		if err != nil {
			return created, classify(fmt.Errorf("check constraint %s: %w", c.name, err))
		}
		if exists {
			continue
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf(
			`ALTER TABLE bronze.%s ADD CONSTRAINT %s UNIQUE (row_hash)`,
			pq.QuoteIdentifier(c.table), pq.QuoteIdentifier(c.name),
		)); err != nil {
			return created, classify(fmt.Errorf("add constraint %s: %w", c.name, err))
		}
		created = append(created, c.name)
	}

	for _, idx := range bronzeIndexes {
		var exists bool
		if err := db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, "bronze."+idx.name).Scan(&exists); err != nil {
			return created, classify(fmt.Errorf("check index %s: %w", idx.name, err))
		}
		if exists {
			continue
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON bronze.%s (%s)`,
			pq.QuoteIdentifier(idx.name), pq.QuoteIdentifier(idx.table), pq.QuoteIdentifier(idx.column),
		)); err != nil {
			return created, classify(fmt.Errorf("create index %s: %w", idx.name, err))
		}
		created = append(created, idx.name)
	}

	return created, nil
}

// --- Silver ---

// queryLockSilver serialises silver rebuilds of one entity. The lock is
// transaction scoped and released on commit or rollback.
func queryLockSilver(ctx context.Context, db executor, entity string) error {
	if _, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "janus.silver."+entity); err != nil {
		return fmt.Errorf("lock silver %s: %w", entity, err)
	}
	return nil
}

func queryReplaceSilverEvents(ctx context.Context, db executor, silver []*model.SilverEvent, quarantine []*model.EventQuarantine) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE TABLE silver.silver_events, silver.silver_events_quarantine`); err != nil {
		return classify(fmt.Errorf("truncate silver events: %w", err))
	}

	for start := 0; start < len(quarantine); start += insertBatchSize {
		batch := quarantine[start:min(start+insertBatchSize, len(quarantine))]
		args := make([]any, 0, len(batch)*6)
		for _, q := range batch {
			args = append(args,
				q.BronzeRowHash,
				q.SourceFile,
				q.IngestionTS,
				string(q.ReasonCode),
				nullStringPtr(q.ReasonDetail),
				jsonbBytes(q.RawRecord),
			)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO silver.silver_events_quarantine (`+eventQuarantineColumns+`) VALUES `+valuesClause(len(batch), 6),
			args...,
		); err != nil {
			return classify(fmt.Errorf("insert silver events quarantine: %w", err))
		}
	}

	for start := 0; start < len(silver); start += insertBatchSize {
		batch := silver[start:min(start+insertBatchSize, len(silver))]
		args := make([]any, 0, len(batch)*13)
		for _, e := range batch {
			args = append(args,
				e.EventID,
				e.EventTS,
				e.ReceivedTS,
				nullStringPtr(e.UserID),
				nullStringPtr(e.DeviceID),
				nullStringPtr(e.SessionID),
				e.EventType,
				jsonbBytes(e.Props),
				e.BronzeRowHash,
				e.SourceFile,
				e.IngestionTS,
				e.IsLate,
				e.LatenessSec,
			)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO silver.silver_events (`+silverEventColumns+`) VALUES `+valuesClause(len(batch), 13),
			args...,
		); err != nil {
			return classify(fmt.Errorf("insert silver events: %w", err))
		}
	}

	return nil
}

func queryReplaceSilverBilling(ctx context.Context, db executor, silver []*model.SilverBilling, quarantine []*model.BillingQuarantine) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE TABLE silver.silver_billing, silver.silver_billing_quarantine`); err != nil {
		return classify(fmt.Errorf("truncate silver billing: %w", err))
	}

	for start := 0; start < len(quarantine); start += insertBatchSize {
		batch := quarantine[start:min(start+insertBatchSize, len(quarantine))]
		args := make([]any, 0, len(batch)*5)
		for _, q := range batch {
			args = append(args,
				q.BronzeRowHash,
				q.SourceFile,
				q.IngestionTS,
				string(q.ReasonCode),
				jsonbBytes(q.RawRecord),
			)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO silver.silver_billing_quarantine (`+billingQuarantineColumns+`) VALUES `+valuesClause(len(batch), 5),
			args...,
		); err != nil {
			return classify(fmt.Errorf("insert silver billing quarantine: %w", err))
		}
	}

	for start := 0; start < len(silver); start += insertBatchSize {
		batch := silver[start:min(start+insertBatchSize, len(silver))]
		args := make([]any, 0, len(batch)*7)
		for _, b := range batch {
			args = append(args,
				b.BillingDate.Format(time.DateOnly),
				b.UserID,
				string(b.Event),
				b.PlanID,
				b.BronzeRowHash,
				b.SourceFile,
				b.IngestionTS,
			)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO silver.silver_billing (`+silverBillingColumns+`) VALUES `+valuesClause(len(batch), 7),
			args...,
		); err != nil {
			return classify(fmt.Errorf("insert silver billing: %w", err))
		}
	}

	return nil
}

// --- Gold ---

func queryListUserFeatures(ctx context.Context, db executor) ([]*model.UserFeatureRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT date_day, user_id, plan_id,
			events_7d, sessions_7d, feature_use_7d, support_tickets_14d, late_rate_7d,
			churn_7d::int
		FROM dbt.gold_user_features_daily
		ORDER BY date_day, user_id`)
	if err != nil {
		return nil, classify(fmt.Errorf("list user features: %w", err))
	}
	defer rows.Close()
	return scanUserFeatures(rows)
}

// --- Health ---

// warehouseTables are reported by TableCounts in this order.
var warehouseTables = []string{
	"bronze.bronze_billing",
	"bronze.bronze_events",
	"silver.silver_billing",
	"silver.silver_billing_quarantine",
	"silver.silver_events",
	"silver.silver_events_quarantine",
}

func queryTableCounts(ctx context.Context, db executor) ([]model.TableCount, error) {
	parts := make([]string, len(warehouseTables))
	for i, t := range warehouseTables {
		parts[i] = fmt.Sprintf(`SELECT '%s' AS table_name, count(*) AS rows FROM %s`, t, t)
	}
	rows, err := db.QueryContext(ctx, `SELECT table_name, rows FROM (`+
		strings.Join(parts, " UNION ALL ")+`) t ORDER BY table_name`)
	if err != nil {
		return nil, classify(fmt.Errorf("table counts: %w", err))
	}
	defer rows.Close()

	var counts []model.TableCount
	for rows.Next() {
		var c model.TableCount
		if err := rows.Scan(&c.Table, &c.Rows); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func queryPipelineHealth(ctx context.Context, db executor) (*model.PipelineHealth, error) {
	var (
		h        model.PipelineHealth
		latest   sql.NullTime
		lateRate sql.NullFloat64
	)
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT max(ingestion_ts) FROM bronze.bronze_events),
			(SELECT avg(is_late::int)::float * 100.0 FROM silver.silver_events),
			(SELECT count(*) FILTER (WHERE is_late) FROM silver.silver_events),
			(SELECT count(*) FROM silver.silver_events)`).Scan(&latest, &lateRate, &h.LateEvents, &h.TotalEvents)
	if err != nil {
		return nil, classify(fmt.Errorf("pipeline health: %w", err))
	}
	h.LatestIngestionTS = timePtr(latest)
	if lateRate.Valid {
		v := lateRate.Float64
		h.LateRatePct = &v
	}

	tables, err := queryTableCounts(ctx, db)
	if err != nil {
		return nil, err
	}
	h.Tables = tables
	return &h, nil
}
