package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanBronzeEvent scans a single row into a model.BronzeEvent.
// The row must contain columns in the order defined by bronzeEventColumns.
func scanBronzeEvent(row scannable) (*model.BronzeEvent, error) {
	var e model.BronzeEvent
	var (
		eventID    sql.NullString
		eventTS    sql.NullTime
		receivedTS sql.NullTime
		userID     sql.NullString
		deviceID   sql.NullString
		sessionID  sql.NullString
		eventType  sql.NullString
		props      []byte
	)

	err := row.Scan(
		&eventID,
		&eventTS,
		&receivedTS,
		&userID,
		&deviceID,
		&sessionID,
		&eventType,
		&props,
		&e.SourceFile,
		&e.IngestionTS,
		&e.RowHash,
	)
	if err != nil {
		return nil, err
	}

	e.EventID = stringPtr(eventID)
	e.EventTS = timePtr(eventTS)
	e.ReceivedTS = timePtr(receivedTS)
	e.UserID = stringPtr(userID)
	e.DeviceID = stringPtr(deviceID)
	e.SessionID = stringPtr(sessionID)
	e.EventType = stringPtr(eventType)
	e.IngestionTS = e.IngestionTS.UTC()
	if len(props) > 0 {
		e.Props = json.RawMessage(props)
	}

	return &e, nil
}

func scanBronzeEvents(rows *sql.Rows) ([]*model.BronzeEvent, error) {
	var events []*model.BronzeEvent
	for rows.Next() {
		e, err := scanBronzeEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanBronzeBilling scans a single row into a model.BronzeBilling.
func scanBronzeBilling(row scannable) (*model.BronzeBilling, error) {
	var b model.BronzeBilling
	var (
		billingDate sql.NullTime
		userID      sql.NullString
		event       sql.NullString
		planID      sql.NullString
	)

	err := row.Scan(
		&billingDate,
		&userID,
		&event,
		&planID,
		&b.SourceFile,
		&b.IngestionTS,
		&b.RowHash,
	)
	if err != nil {
		return nil, err
	}

	if billingDate.Valid {
		d := dateOf(billingDate.Time)
		b.BillingDate = &d
	}
	b.UserID = stringPtr(userID)
	b.Event = stringPtr(event)
	b.PlanID = stringPtr(planID)
	b.IngestionTS = b.IngestionTS.UTC()

	return &b, nil
}

func scanBronzeBillings(rows *sql.Rows) ([]*model.BronzeBilling, error) {
	var billing []*model.BronzeBilling
	for rows.Next() {
		b, err := scanBronzeBilling(rows)
		if err != nil {
			return nil, err
		}
		billing = append(billing, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return billing, nil
}

// scanUserFeature scans one gold feature row. A null plan is mapped to
// model.UnknownPlan; a null label is an error because the trainer cannot use it.
func scanUserFeature(row scannable) (*model.UserFeatureRow, error) {
	var f model.UserFeatureRow
	var (
		planID            sql.NullString
		events7d          sql.NullFloat64
		sessions7d        sql.NullFloat64
		featureUse7d      sql.NullFloat64
		supportTickets14d sql.NullFloat64
		lateRate7d        sql.NullFloat64
		churn7d           sql.NullInt64
	)

	err := row.Scan(
		&f.DateDay,
		&f.UserID,
		&planID,
		&events7d,
		&sessions7d,
		&featureUse7d,
		&supportTickets14d,
		&lateRate7d,
		&churn7d,
	)
	if err != nil {
		return nil, err
	}

	f.DateDay = dateOf(f.DateDay)
	f.PlanID = model.UnknownPlan
	if planID.Valid {
		f.PlanID = planID.String
	}
	f.Events7d = floatPtr(events7d)
	f.Sessions7d = floatPtr(sessions7d)
	f.FeatureUse7d = floatPtr(featureUse7d)
	f.SupportTickets14d = floatPtr(supportTickets14d)
	f.LateRate7d = floatPtr(lateRate7d)
	if !churn7d.Valid {
		return nil, fmt.Errorf("null churn_7d for user %s on %s", f.UserID, f.DateDay.Format(time.DateOnly))
	}
	f.Churn7d = churn7d.Int64 != 0

	return &f, nil
}

func scanUserFeatures(rows *sql.Rows) ([]*model.UserFeatureRow, error) {
	var features []*model.UserFeatureRow
	for rows.Next() {
		f, err := scanUserFeature(rows)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return features, nil
}

// dateOf truncates t to a UTC calendar date, keeping the wall-clock date
// that Postgres reported.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullDatePtr converts a *time.Time holding a calendar date to its
// YYYY-MM-DD literal, or null.
func nullDatePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.DateOnly), Valid: true}
}

// nullStringPtr converts a *string to sql.NullString. Unlike the empty
// string, only a nil pointer is null.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// jsonbBytes converts json.RawMessage to a JSONB argument. Empty input is an
// untyped nil so the driver sends NULL rather than an empty document.
func jsonbBytes(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
