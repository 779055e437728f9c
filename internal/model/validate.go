package model

// eventCheck is one required-field rule for bronze events.
type eventCheck struct {
	reason ReasonCode
	failed func(e *BronzeEvent) bool
}

// eventChecks are evaluated in order; the first failure names the reason.
var eventChecks = []eventCheck{
	{ReasonMissingEventID, func(e *BronzeEvent) bool { return e.EventID == nil }},
	{ReasonMissingEventTS, func(e *BronzeEvent) bool { return e.EventTS == nil }},
	{ReasonMissingReceivedTS, func(e *BronzeEvent) bool { return e.ReceivedTS == nil }},
	{ReasonMissingEventType, func(e *BronzeEvent) bool { return e.EventType == nil }},
}

type billingCheck struct {
	reason ReasonCode
	failed func(b *BronzeBilling) bool
}

var billingChecks = []billingCheck{
	{ReasonMissingBillingDate, func(b *BronzeBilling) bool { return b.BillingDate == nil }},
	{ReasonMissingUserID, func(b *BronzeBilling) bool { return b.UserID == nil }},
	{ReasonMissingEvent, func(b *BronzeBilling) bool { return b.Event == nil }},
	{ReasonInvalidEvent, func(b *BronzeBilling) bool { return !BillingEvent(*b.Event).IsValid() }},
	{ReasonMissingPlanID, func(b *BronzeBilling) bool { return b.PlanID == nil }},
}

// ClassifyEvent reports whether a bronze event may be promoted to silver.
// When it may not, the reason of the first failing check is returned.
func ClassifyEvent(e *BronzeEvent) (ReasonCode, bool) {
	for _, c := range eventChecks {
		if c.failed(e) {
			return c.reason, false
		}
	}
	return "", true
}

// ClassifyBilling reports whether a bronze billing row may be promoted to
// silver, returning the first failing reason otherwise.
func ClassifyBilling(b *BronzeBilling) (ReasonCode, bool) {
	for _, c := range billingChecks {
		if c.failed(b) {
			return c.reason, false
		}
	}
	return "", true
}

// EventReasons lists the event reason codes in check order.
func EventReasons() []ReasonCode {
	out := make([]ReasonCode, len(eventChecks))
	for i, c := range eventChecks {
		out[i] = c.reason
	}
	return out
}

// BillingReasons lists the billing reason codes in check order.
func BillingReasons() []ReasonCode {
	out := make([]ReasonCode, len(billingChecks))
	for i, c := range billingChecks {
		out[i] = c.reason
	}
	return out
}
