package model

import (
	"testing"
	"time"
)

// validBronzeEvent returns a BronzeEvent that passes every check.
func validBronzeEvent() BronzeEvent {
	ts := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	return BronzeEvent{
		EventID:     StringPtr("evt_1"),
		EventTS:     TimePtr(ts),
		ReceivedTS:  TimePtr(ts.Add(time.Minute)),
		EventType:   StringPtr("login"),
		SourceFile:  "events_2026-01-05.jsonl",
		IngestionTS: ts.Add(time.Hour),
		RowHash:     "abc",
	}
}

func validBronzeBilling() BronzeBilling {
	return BronzeBilling{
		BillingDate: TimePtr(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)),
		UserID:      StringPtr("u_1"),
		Event:       StringPtr("start"),
		PlanID:      StringPtr("pro"),
		SourceFile:  "billing_2026-01-05.csv",
		RowHash:     "def",
	}
}

func TestClassifyEvent(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(e *BronzeEvent)
		want   ReasonCode
		valid  bool
	}{
		{"Valid", func(e *BronzeEvent) {}, "", true},
		{"MissingEventID", func(e *BronzeEvent) { e.EventID = nil }, ReasonMissingEventID, false},
		{"MissingEventTS", func(e *BronzeEvent) { e.EventTS = nil }, ReasonMissingEventTS, false},
		{"MissingReceivedTS", func(e *BronzeEvent) { e.ReceivedTS = nil }, ReasonMissingReceivedTS, false},
		{"MissingEventType", func(e *BronzeEvent) { e.EventType = nil }, ReasonMissingEventType, false},
		{"FirstFailureWins", func(e *BronzeEvent) {
			e.EventTS = nil
			e.EventType = nil
		}, ReasonMissingEventTS, false},
		{"NullOptionalFieldsStillValid", func(e *BronzeEvent) {
			e.UserID = nil
			e.Props = nil
		}, "", true},
		{"EmptyStringIsNotNull", func(e *BronzeEvent) { e.EventID = StringPtr("") }, "", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := validBronzeEvent()
			tc.mutate(&e)
			got, valid := ClassifyEvent(&e)
			if got != tc.want || valid != tc.valid {
				t.Errorf("ClassifyEvent() = (%q, %v), want (%q, %v)", got, valid, tc.want, tc.valid)
			}
		})
	}
}

func TestClassifyBilling(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(b *BronzeBilling)
		want   ReasonCode
		valid  bool
	}{
		{"Valid", func(b *BronzeBilling) {}, "", true},
		{"MissingBillingDate", func(b *BronzeBilling) { b.BillingDate = nil }, ReasonMissingBillingDate, false},
		{"MissingUserID", func(b *BronzeBilling) { b.UserID = nil }, ReasonMissingUserID, false},
		{"MissingEvent", func(b *BronzeBilling) { b.Event = nil }, ReasonMissingEvent, false},
		{"InvalidEvent", func(b *BronzeBilling) { b.Event = StringPtr("refund") }, ReasonInvalidEvent, false},
		{"EventCaseSensitive", func(b *BronzeBilling) { b.Event = StringPtr("Start") }, ReasonInvalidEvent, false},
		{"MissingPlanID", func(b *BronzeBilling) { b.PlanID = nil }, ReasonMissingPlanID, false},
		{"MissingEventBeforeMissingPlan", func(b *BronzeBilling) {
			b.Event = nil
			b.PlanID = nil
		}, ReasonMissingEvent, false},
		{"UpgradeAccepted", func(b *BronzeBilling) { b.Event = StringPtr("upgrade") }, "", true},
		{"CancelAccepted", func(b *BronzeBilling) { b.Event = StringPtr("cancel") }, "", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := validBronzeBilling()
			tc.mutate(&b)
			got, valid := ClassifyBilling(&b)
			if got != tc.want || valid != tc.valid {
				t.Errorf("ClassifyBilling() = (%q, %v), want (%q, %v)", got, valid, tc.want, tc.valid)
			}
		})
	}
}

func TestReasonOrder(t *testing.T) {
	events := EventReasons()
	want := []ReasonCode{ReasonMissingEventID, ReasonMissingEventTS, ReasonMissingReceivedTS, ReasonMissingEventType}
	if len(events) != len(want) {
		t.Fatalf("EventReasons() len = %d, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("EventReasons()[%d] = %q, want %q", i, events[i], want[i])
		}
	}
	if got := len(BillingReasons()); got != 5 {
		t.Errorf("BillingReasons() len = %d, want 5", got)
	}
}

func TestBillingEvent_IsValid(t *testing.T) {
	for _, tc := range []struct {
		event BillingEvent
		want  bool
	}{
		{BillingStart, true},
		{BillingUpgrade, true},
		{BillingCancel, true},
		{BillingEvent(""), false},
		{BillingEvent("pause"), false},
	} {
		if got := tc.event.IsValid(); got != tc.want {
			t.Errorf("BillingEvent(%q).IsValid() = %v, want %v", tc.event, got, tc.want)
		}
	}
}
