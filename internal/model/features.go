package model

import "time"

// UnknownPlan is the category assigned to feature rows without a plan.
const UnknownPlan = "unknown"

// UserFeatureRow is one (date_day, user_id) row of dbt.gold_user_features_daily.
// Numeric features are nullable; the model pipeline imputes them.
type UserFeatureRow struct {
	DateDay time.Time `json:"date_day"`
	UserID  string    `json:"user_id"`
	PlanID  string    `json:"plan_id"`

	Events7d          *float64 `json:"events_7d"`
	Sessions7d        *float64 `json:"sessions_7d"`
	FeatureUse7d      *float64 `json:"feature_use_7d"`
	SupportTickets14d *float64 `json:"support_tickets_14d"`
	LateRate7d        *float64 `json:"late_rate_7d"`

	Churn7d bool `json:"churn_7d"`
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}
