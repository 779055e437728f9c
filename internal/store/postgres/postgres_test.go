package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
	"github.com/Alexander-Kershaw/JANUS/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var bronzeEventRowColumns = []string{
	"event_id", "event_ts", "received_ts", "user_id", "device_id", "session_id", "event_type", "props",
	"source_file", "ingestion_ts", "row_hash",
}

var bronzeBillingRowColumns = []string{
	"billing_date", "user_id", "event", "plan_id",
	"source_file", "ingestion_ts", "row_hash",
}

var userFeatureColumns = []string{
	"date_day", "user_id", "plan_id",
	"events_7d", "sessions_7d", "feature_use_7d", "support_tickets_14d", "late_rate_7d",
	"churn_7d",
}

func TestValuesClause(t *testing.T) {
	for _, tc := range []struct {
		n, width int
		want     string
	}{
		{0, 3, ""},
		{1, 1, "($1)"},
		{1, 3, "($1, $2, $3)"},
		{2, 2, "($1, $2), ($3, $4)"},
	} {
		if got := valuesClause(tc.n, tc.width); got != tc.want {
			t.Errorf("valuesClause(%d, %d) = %q, want %q", tc.n, tc.width, got, tc.want)
		}
	}
}

func TestScanHelpers(t *testing.T) {
	// nullStringPtr
	if nullStringPtr(nil).Valid {
		t.Error("nullStringPtr(nil) should be invalid")
	}
	if ns := nullStringPtr(model.StringPtr("")); !ns.Valid || ns.String != "" {
		t.Errorf("nullStringPtr(\"\") = %v, want valid empty string", ns)
	}

	// nullTimePtr
	if nullTimePtr(nil).Valid {
		t.Error("nullTimePtr(nil) should be invalid")
	}
	now := time.Now()
	if nt := nullTimePtr(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("nullTimePtr(now) = %v", nt)
	}

	// nullDatePtr
	d := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	if nd := nullDatePtr(&d); !nd.Valid || nd.String != "2026-01-31" {
		t.Errorf("nullDatePtr = %v, want 2026-01-31", nd)
	}

	// dateOf keeps the reported wall-clock date.
	loc := time.FixedZone("plus2", 2*3600)
	if got := dateOf(time.Date(2026, 3, 4, 1, 30, 0, 0, loc)); !got.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dateOf = %v", got)
	}

	// jsonbBytes
	if jsonbBytes(nil) != nil {
		t.Error("jsonbBytes(nil) should be nil")
	}
	if b, ok := jsonbBytes(json.RawMessage(`{"a":1}`)).([]byte); !ok || string(b) != `{"a":1}` {
		t.Error("jsonbBytes should pass JSON through")
	}
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want error
	}{
		{"UniqueViolation", &pq.Error{Code: "23505", Message: "duplicate key"}, store.ErrConstraint},
		{"NotNullViolation", &pq.Error{Code: "23502", Message: "null value"}, store.ErrConstraint},
		{"UndefinedTable", &pq.Error{Code: "42P01", Message: "relation does not exist"}, store.ErrSchema},
		{"UndefinedColumn", &pq.Error{Code: "42703", Message: "column does not exist"}, store.ErrSchema},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("classify(%v) = %v, want wrapping %v", tc.err, got, tc.want)
			}
			var pqErr *pq.Error
			if !errors.As(got, &pqErr) {
				t.Error("classified error should still unwrap to *pq.Error")
			}
		})
	}

	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
	plain := errors.New("connection reset")
	if got := classify(plain); got != plain {
		t.Errorf("classify(plain) = %v, want unchanged", got)
	}
	deadlock := &pq.Error{Code: "40P01"}
	if got := classify(deadlock); errors.Is(got, store.ErrConstraint) || errors.Is(got, store.ErrSchema) {
		t.Errorf("classify(deadlock) = %v, want unclassified", got)
	}
}

func TestQueryInsertBronzeEvents(t *testing.T) {
	db, mock := newMockDB(t)
	ingested := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	eventTS := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	rows := []*model.BronzeEvent{
		{
			EventID: model.StringPtr("evt_1"), EventTS: &eventTS, ReceivedTS: &eventTS,
			UserID: model.StringPtr("u_1"), EventType: model.StringPtr("login"),
			Props:      json.RawMessage(`{"country":"GB"}`),
			SourceFile: "events/2026-01-05.jsonl", IngestionTS: ingested, RowHash: "h1",
		},
		{
			SourceFile: "events/2026-01-05.jsonl", IngestionTS: ingested, RowHash: "h2",
		},
	}

	mock.ExpectExec(`INSERT INTO bronze.bronze_events .+ ON CONFLICT \(row_hash\) DO NOTHING`).
		WithArgs(
			"evt_1", eventTS, eventTS, "u_1", nil, nil, "login", []byte(`{"country":"GB"}`),
			"events/2026-01-05.jsonl", ingested, "h1",
			nil, nil, nil, nil, nil, nil, nil, nil,
			"events/2026-01-05.jsonl", ingested, "h2",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := queryInsertBronzeEvents(context.Background(), db, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1 (one row already present)", n)
	}
}

func TestQueryInsertBronzeEvents_Batches(t *testing.T) {
	db, mock := newMockDB(t)
	rows := make([]*model.BronzeEvent, insertBatchSize+1)
	for i := range rows {
		rows[i] = &model.BronzeEvent{SourceFile: "f", RowHash: string(rune('a' + i%26))}
	}
	mock.ExpectExec("INSERT INTO bronze.bronze_events").WillReturnResult(sqlmock.NewResult(0, int64(insertBatchSize)))
	mock.ExpectExec("INSERT INTO bronze.bronze_events").WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := queryInsertBronzeEvents(context.Background(), db, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != int64(insertBatchSize+1) {
		t.Errorf("inserted = %d, want %d", n, insertBatchSize+1)
	}
}

func TestQueryInsertBronzeEvents_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	n, err := queryInsertBronzeEvents(context.Background(), db, nil)
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", n, err)
	}
}

func TestQueryInsertBronzeEvents_MissingConstraint(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO bronze.bronze_events").
		WillReturnError(&pq.Error{Code: "42P10", Message: "there is no unique or exclusion constraint matching the ON CONFLICT specification"})

	_, err := queryInsertBronzeEvents(context.Background(), db, []*model.BronzeEvent{{SourceFile: "f", RowHash: "h"}})
	if !errors.Is(err, store.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestQueryInsertBronzeBilling(t *testing.T) {
	db, mock := newMockDB(t)
	ingested := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := []*model.BronzeBilling{{
		BillingDate: &day, UserID: model.StringPtr("u_1"), Event: model.StringPtr("start"),
		SourceFile: "billing/2026-01-05.csv", IngestionTS: ingested, RowHash: "b1",
	}}

	mock.ExpectExec(`INSERT INTO bronze.bronze_billing .+ ON CONFLICT \(row_hash\) DO NOTHING`).
		WithArgs("2026-01-05", "u_1", "start", nil, "billing/2026-01-05.csv", ingested, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := queryInsertBronzeBilling(context.Background(), db, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1", n)
	}
}

func TestQueryListBronzeEvents(t *testing.T) {
	db, mock := newMockDB(t)
	ingested := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	eventTS := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bronzeEventRowColumns).
		AddRow("evt_1", eventTS, eventTS, "u_1", "dev_1", "sess_1", "login", []byte(`{"a":1}`), "f.jsonl", ingested, "h1").
		AddRow(nil, nil, nil, nil, nil, nil, nil, nil, "f.jsonl", ingested, "h2")
	mock.ExpectQuery("SELECT .+ FROM bronze.bronze_events ORDER BY ingestion_ts, source_file, row_hash").WillReturnRows(rows)

	events, err := queryListBronzeEvents(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].EventID == nil || *events[0].EventID != "evt_1" || string(events[0].Props) != `{"a":1}` {
		t.Errorf("first event = %+v", events[0])
	}
	second := events[1]
	if second.EventID != nil || second.EventTS != nil || second.ReceivedTS != nil || second.EventType != nil || second.Props != nil {
		t.Errorf("null columns should scan to nil, got %+v", second)
	}
	if second.RowHash != "h2" || !second.IngestionTS.Equal(ingested) {
		t.Errorf("provenance = (%q, %v)", second.RowHash, second.IngestionTS)
	}
}

func TestQueryListBronzeBilling(t *testing.T) {
	db, mock := newMockDB(t)
	ingested := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bronzeBillingRowColumns).
		AddRow(day, "u_1", "start", "pro", "b.csv", ingested, "b1").
		AddRow(nil, nil, "refund", nil, "b.csv", ingested, "b2")
	mock.ExpectQuery("SELECT .+ FROM bronze.bronze_billing ORDER BY").WillReturnRows(rows)

	billing, err := queryListBronzeBilling(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(billing) != 2 {
		t.Fatalf("got %d rows, want 2", len(billing))
	}
	if billing[0].BillingDate == nil || !billing[0].BillingDate.Equal(day) {
		t.Errorf("billing_date = %v, want %v", billing[0].BillingDate, day)
	}
	if billing[1].BillingDate != nil || billing[1].UserID != nil || *billing[1].Event != "refund" {
		t.Errorf("second row = %+v", billing[1])
	}
}

func TestQueryMaxBronzeIngestionTS(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT max\(ingestion_ts\)`).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	ts, err := queryMaxBronzeIngestionTS(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != nil {
		t.Errorf("empty bronze should report nil, got %v", ts)
	}
}

func TestQueryEnsureBronzeIdempotency(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT EXISTS .+ FROM pg_constraint").
		WithArgs("bronze_events_row_hash_uk", "bronze.bronze_events").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS .+ FROM pg_constraint").
		WithArgs("bronze_billing_row_hash_uk", "bronze.bronze_billing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`ALTER TABLE bronze."bronze_billing" ADD CONSTRAINT "bronze_billing_row_hash_uk" UNIQUE \(row_hash\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	for _, idx := range bronzeIndexes {
		exists := idx.name != "bronze_events_event_ts_idx"
		mock.ExpectQuery(`SELECT to_regclass\(\$1\) IS NOT NULL`).
			WithArgs("bronze." + idx.name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
		if !exists {
			mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "bronze_events_event_ts_idx" ON bronze."bronze_events" \("event_ts"\)`).
				WillReturnResult(sqlmock.NewResult(0, 0))
		}
	}

	created, err := queryEnsureBronzeIdempotency(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"bronze_billing_row_hash_uk", "bronze_events_event_ts_idx"}
	if len(created) != len(want) {
		t.Fatalf("created = %v, want %v", created, want)
	}
	for i := range want {
		if created[i] != want[i] {
			t.Errorf("created[%d] = %q, want %q", i, created[i], want[i])
		}
	}
}

func TestQueryEnsureBronzeIdempotency_AllPresent(t *testing.T) {
	db, mock := newMockDB(t)
	for range bronzeUniqueConstraints {
		mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}
	for range bronzeIndexes {
		mock.ExpectQuery("SELECT to_regclass").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}

	created, err := queryEnsureBronzeIdempotency(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("created = %v, want none on a prepared warehouse", created)
	}
}

func TestQueryLockSilver(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("janus.silver.events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryLockSilver(context.Background(), db, "events"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryReplaceSilverEvents(t *testing.T) {
	db, mock := newMockDB(t)
	ingested := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	eventTS := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	receivedTS := eventTS.Add(90 * time.Second)

	silver := []*model.SilverEvent{{
		EventID: "evt_1", EventTS: eventTS, ReceivedTS: receivedTS, EventType: "login",
		Props: json.RawMessage(`{}`), BronzeRowHash: "h1", SourceFile: "f", IngestionTS: ingested,
		IsLate: true, LatenessSec: 90,
	}}
	quarantine := []*model.EventQuarantine{{
		BronzeRowHash: "h2", SourceFile: "f", IngestionTS: ingested,
		ReasonCode: model.ReasonMissingEventTS, RawRecord: json.RawMessage(`{"event_id":"evt_2"}`),
	}}

	mock.ExpectExec("TRUNCATE TABLE silver.silver_events, silver.silver_events_quarantine").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO silver.silver_events_quarantine").
		WithArgs("h2", "f", ingested, "missing_event_ts", nil, []byte(`{"event_id":"evt_2"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO silver.silver_events \(`).
		WithArgs("evt_1", eventTS, receivedTS, nil, nil, nil, "login", []byte(`{}`), "h1", "f", ingested, true, int64(90)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryReplaceSilverEvents(context.Background(), db, silver, quarantine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryReplaceSilverEvents_EmptyOnlyTruncates(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("TRUNCATE TABLE silver.silver_events").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryReplaceSilverEvents(context.Background(), db, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryReplaceSilverEvents_ConstraintViolation(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("TRUNCATE TABLE silver.silver_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO silver.silver_events").
		WillReturnError(&pq.Error{Code: "23514", Message: "check constraint violated"})

	silver := []*model.SilverEvent{{EventID: "evt_1", EventType: "login", Props: json.RawMessage(`{}`)}}
	err := queryReplaceSilverEvents(context.Background(), db, silver, nil)
	if !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
}

func TestQueryReplaceSilverBilling(t *testing.T) {
	db, mock := newMockDB(t)
	ingested := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	silver := []*model.SilverBilling{{
		BillingDate: day, UserID: "u_1", Event: model.BillingUpgrade, PlanID: "team",
		BronzeRowHash: "b1", SourceFile: "b.csv", IngestionTS: ingested,
	}}
	quarantine := []*model.BillingQuarantine{{
		BronzeRowHash: "b2", SourceFile: "b.csv", IngestionTS: ingested,
		ReasonCode: model.ReasonInvalidEvent, RawRecord: json.RawMessage(`{"event":"refund"}`),
	}}

	mock.ExpectExec("TRUNCATE TABLE silver.silver_billing, silver.silver_billing_quarantine").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO silver.silver_billing_quarantine").
		WithArgs("b2", "b.csv", ingested, "invalid_event", []byte(`{"event":"refund"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO silver.silver_billing \(`).
		WithArgs("2026-01-05", "u_1", "upgrade", "team", "b1", "b.csv", ingested).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryReplaceSilverBilling(context.Background(), db, silver, quarantine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewFromDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE TABLE silver.silver_billing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO silver.silver_billing_quarantine").
		WillReturnError(&pq.Error{Code: "42703", Message: "column \"raw_record\" does not exist"})
	mock.ExpectRollback()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.ReplaceSilverBilling(context.Background(), nil, []*model.BillingQuarantine{{
			BronzeRowHash: "b1", ReasonCode: model.ReasonMissingPlanID, RawRecord: json.RawMessage(`{}`),
		}})
	})
	if !errors.Is(err, store.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestRunInTransaction_Commits(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewFromDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.LockSilver(context.Background(), "billing")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryListUserFeatures(t *testing.T) {
	db, mock := newMockDB(t)
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userFeatureColumns).
		AddRow(day, "u_1", "pro", 12.0, 3.0, 4.0, 0.0, 0.25, 1).
		AddRow(day, "u_2", nil, nil, nil, nil, nil, nil, 0)
	mock.ExpectQuery("SELECT .+ FROM dbt.gold_user_features_daily ORDER BY date_day, user_id").WillReturnRows(rows)

	features, err := queryListUserFeatures(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(features) != 2 {
		t.Fatalf("got %d rows, want 2", len(features))
	}
	if !features[0].Churn7d || features[0].PlanID != "pro" || *features[0].Events7d != 12 {
		t.Errorf("first row = %+v", features[0])
	}
	if features[1].PlanID != model.UnknownPlan {
		t.Errorf("null plan_id = %q, want %q", features[1].PlanID, model.UnknownPlan)
	}
	if features[1].Events7d != nil || features[1].Churn7d {
		t.Errorf("second row = %+v", features[1])
	}
}

func TestQueryListUserFeatures_NullLabel(t *testing.T) {
	db, mock := newMockDB(t)
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(userFeatureColumns).AddRow(day, "u_1", "pro", 1.0, 1.0, 1.0, 0.0, 0.0, nil)
	mock.ExpectQuery("SELECT .+ FROM dbt.gold_user_features_daily").WillReturnRows(rows)

	if _, err := queryListUserFeatures(context.Background(), db); err == nil {
		t.Fatal("expected error for null churn_7d")
	}
}

func TestQueryPipelineHealth(t *testing.T) {
	db, mock := newMockDB(t)
	latest := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT\s+\(SELECT max\(ingestion_ts\) FROM bronze.bronze_events\)`).
		WillReturnRows(sqlmock.NewRows([]string{"latest", "late_rate", "late", "total"}).AddRow(latest, 12.5, 5, 40))
	counts := sqlmock.NewRows([]string{"table_name", "rows"})
	for _, table := range warehouseTables {
		counts.AddRow(table, 10)
	}
	mock.ExpectQuery("SELECT table_name, rows FROM").WillReturnRows(counts)

	h, err := queryPipelineHealth(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.LatestIngestionTS == nil || !h.LatestIngestionTS.Equal(latest) {
		t.Errorf("latest_ingestion_ts = %v", h.LatestIngestionTS)
	}
	if h.LateRatePct == nil || *h.LateRatePct != 12.5 || h.LateEvents != 5 || h.TotalEvents != 40 {
		t.Errorf("health = %+v", h)
	}
	if len(h.Tables) != len(warehouseTables) {
		t.Errorf("tables = %d, want %d", len(h.Tables), len(warehouseTables))
	}
}
