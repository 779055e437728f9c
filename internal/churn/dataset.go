package churn

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

var (
	// ErrInsufficientDays means too few days remain after censoring.
	ErrInsufficientDays = errors.New("insufficient days")
	// ErrEmptyPartition means a train or test set has no rows.
	ErrEmptyPartition = errors.New("empty partition")
	// ErrSingleClass means the training labels are all one class.
	ErrSingleClass = errors.New("training labels contain a single class")
)

// Dataset is the gold feature table grouped by calendar day.
type Dataset struct {
	Rows  []*model.UserFeatureRow
	Days  []time.Time // distinct, ascending
	byDay map[time.Time][]*model.UserFeatureRow
}

// NewDataset sorts rows by (date_day, user_id) and indexes them by day.
func NewDataset(rows []*model.UserFeatureRow) *Dataset {
	sorted := make([]*model.UserFeatureRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].DateDay.Equal(sorted[j].DateDay) {
			return sorted[i].DateDay.Before(sorted[j].DateDay)
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	d := &Dataset{Rows: sorted, byDay: make(map[time.Time][]*model.UserFeatureRow)}
	for _, r := range sorted {
		day := dayOf(r.DateDay)
		if _, ok := d.byDay[day]; !ok {
			d.Days = append(d.Days, day)
		}
		d.byDay[day] = append(d.byDay[day], r)
	}
	return d
}

// On returns the rows of the given days, in day order.
func (d *Dataset) On(days ...time.Time) []*model.UserFeatureRow {
	var out []*model.UserFeatureRow
	for _, day := range days {
		out = append(out, d.byDay[dayOf(day)]...)
	}
	return out
}

// Positives counts rows labelled as churned.
func Positives(rows []*model.UserFeatureRow) int {
	n := 0
	for _, r := range rows {
		if r.Churn7d {
			n++
		}
	}
	return n
}

// Censor drops the trailing horizonDays calendar days whose labels are not
// yet observable. days must be distinct and ascending. It fails when fewer
// than max(2, minTrain+testWindow) days remain.
func Censor(days []time.Time, cfg Config) (eligible []time.Time, cutoff time.Time, err error) {
	if len(days) < 2 {
		return nil, time.Time{}, fmt.Errorf("%w: need at least 2 days of data, got %d", ErrInsufficientDays, len(days))
	}
	cutoff = days[len(days)-1].AddDate(0, 0, -cfg.LabelHorizonDays)
	for _, d := range days {
		if !d.After(cutoff) {
			eligible = append(eligible, d)
		}
	}
	if need := max(2, cfg.MinTrainDays+cfg.TestWindowDays); len(eligible) < need {
		return nil, cutoff, fmt.Errorf("%w: days_total=%d eligible_days=%d need=%d cutoff=%s label_horizon_days=%d",
			ErrInsufficientDays, len(days), len(eligible), need, cutoff.Format(time.DateOnly), cfg.LabelHorizonDays)
	}
	return eligible, cutoff, nil
}

// GenerateFolds returns one fold per eligible day from index minTrain on.
// Each fold trains on every eligible day before its test day.
func GenerateFolds(eligible []time.Time, minTrain int) []*TemporalFold {
	var folds []*TemporalFold
	for i := minTrain; i < len(eligible); i++ {
		folds = append(folds, &TemporalFold{
			TestDay:   eligible[i],
			TrainDays: eligible[:i:i],
		})
	}
	return folds
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
