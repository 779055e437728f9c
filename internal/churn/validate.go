// Package churn evaluates the baseline churn classifier with walk-forward
// temporal cross-validation and fits the final model.
package churn

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

// TemporalFold is one walk-forward evaluation step. Metrics are nil when
// undefined or when the fold was skipped.
type TemporalFold struct {
	TestDay        time.Time   `json:"test_day"`
	TrainDays      []time.Time `json:"train_days"`
	RowsTrain      int         `json:"rows_train"`
	RowsTest       int         `json:"rows_test"`
	PositivesTrain int         `json:"positives_train"`
	PositivesTest  int         `json:"positives_test"`
	ChurnRateTrain *float64    `json:"churn_rate_train"`
	ChurnRateTest  *float64    `json:"churn_rate_test"`
	PRAUC          *float64    `json:"pr_auc"`
	ROCAUC         *float64    `json:"roc_auc"`
	Skipped        bool        `json:"skipped"`
}

// Summary aggregates the folds that were scored.
type Summary struct {
	LabelHorizonDays            int      `json:"label_horizon_days"`
	MinTrainDays                int      `json:"min_train_days"`
	CutoffDayInclusive          string   `json:"cutoff_day_inclusive"`
	DaysTotal                   int      `json:"days_total"`
	DaysEligibleAfterCensor     int      `json:"days_eligible_after_censor"`
	RowsTotal                   int      `json:"rows_total"`
	PositivesTotal              int      `json:"positives_total"`
	FoldsTotal                  int      `json:"folds_total"`
	FoldsUsed                   int      `json:"folds_used"`
	FoldsSkippedNoTestPositives int      `json:"folds_skipped_no_test_positives"`
	PRAUCMean                   *float64 `json:"pr_auc_mean"`
	PRAUCStd                    *float64 `json:"pr_auc_std"`
	ROCAUCMean                  *float64 `json:"roc_auc_mean"`
	ROCAUCStd                   *float64 `json:"roc_auc_std"`
}

// Coefficient is the fitted weight of one encoded feature.
type Coefficient struct {
	Feature string  `json:"feature"`
	Coef    float64 `json:"coef"`
}

// FinalFit describes the model trained on every eligible day.
type FinalFit struct {
	RunID        string  `json:"run_id,omitempty"`
	ModelVersion string  `json:"model_version"`
	CutoffDay    string  `json:"cutoff_day_inclusive"`
	RowsFit      int     `json:"rows_fit"`
	PositivesFit int     `json:"positives_fit"`
	ChurnRateFit float64 `json:"churn_rate_fit"`
	Seed         int64   `json:"seed"`
	Notes        string  `json:"notes"`
}

// Result is everything one training run produces.
type Result struct {
	Folds        []*TemporalFold
	Summary      Summary
	Final        FinalFit
	Coefficients []Coefficient
	Model        *Model
}

const finalFitNotes = "Final fit trained on all eligible days after censoring. Use temporal CV files for performance."

// Validator runs temporal cross-validation and the final fit.
type Validator struct {
	cfg    Config
	logger *slog.Logger
}

// NewValidator creates a validator. cfg must already be valid.
func NewValidator(cfg Config, logger *slog.Logger) *Validator {
	return &Validator{cfg: cfg, logger: logger}
}

// Run censors the label tail, evaluates every fold in day order, aggregates
// the scores and fits the final model on all eligible rows. Censoring
// errors are returned before any model is fitted.
func (v *Validator) Run(ctx context.Context, rows []*model.UserFeatureRow) (*Result, error) {
	if err := v.cfg.Validate(); err != nil {
		return nil, err
	}
	if v.cfg.TestWindowDays != 1 {
		v.logger.Warn("test_window_days is not implemented, folds test one day each",
			"test_window_days", v.cfg.TestWindowDays)
	}

	ds := NewDataset(rows)
	eligible, cutoff, err := Censor(ds.Days, v.cfg)
	if err != nil {
		return nil, err
	}
	v.logger.Info("censored label tail",
		"days_total", len(ds.Days),
		"days_eligible", len(eligible),
		"cutoff", cutoff.Format(time.DateOnly),
	)

	folds := GenerateFolds(eligible, v.cfg.MinTrainDays)
	for _, f := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := v.evaluate(ds, f); err != nil {
			return nil, fmt.Errorf("fold %s: %w", f.TestDay.Format(time.DateOnly), err)
		}
	}

	res := &Result{
		Folds:   folds,
		Summary: summarize(v.cfg, ds, eligible, cutoff, folds),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final := ds.On(eligible...)
	m, err := Fit(final)
	if err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}
	res.Model = m
	res.Coefficients = Coefficients(m)
	positives := Positives(final)
	res.Final = FinalFit{
		ModelVersion: ModelVersion,
		CutoffDay:    cutoff.Format(time.DateOnly),
		RowsFit:      len(final),
		PositivesFit: positives,
		ChurnRateFit: float64(positives) / float64(len(final)),
		Seed:         v.cfg.Seed,
		Notes:        finalFitNotes,
	}

	v.logger.Info("temporal cv complete",
		"folds", res.Summary.FoldsTotal,
		"used", res.Summary.FoldsUsed,
		"skipped", res.Summary.FoldsSkippedNoTestPositives,
		"rows_fit", res.Final.RowsFit,
	)
	return res, nil
}

// evaluate fills in one fold's counts and, unless it is skipped, its scores.
func (v *Validator) evaluate(ds *Dataset, f *TemporalFold) error {
	train := ds.On(f.TrainDays...)
	test := ds.On(f.TestDay)
	if len(train) == 0 || len(test) == 0 {
		return fmt.Errorf("%w: train=%d test=%d", ErrEmptyPartition, len(train), len(test))
	}

	f.RowsTrain, f.RowsTest = len(train), len(test)
	f.PositivesTrain, f.PositivesTest = Positives(train), Positives(test)
	f.ChurnRateTrain = rate(f.PositivesTrain, f.RowsTrain)
	f.ChurnRateTest = rate(f.PositivesTest, f.RowsTest)

	if v.cfg.SkipIfNoTestPositives && f.PositivesTest == 0 {
		f.Skipped = true
		v.logger.Debug("fold skipped", "test_day", f.TestDay.Format(time.DateOnly), "rows_test", f.RowsTest)
		return nil
	}

	m, err := Fit(train)
	if err != nil {
		return err
	}
	y := labels(test)
	probs := m.PredictProba(test)
	ap := AveragePrecision(y, probs)
	f.PRAUC = &ap
	f.ROCAUC = ROCAUC(y, probs)
	return nil
}

func summarize(cfg Config, ds *Dataset, eligible []time.Time, cutoff time.Time, folds []*TemporalFold) Summary {
	s := Summary{
		LabelHorizonDays:        cfg.LabelHorizonDays,
		MinTrainDays:            cfg.MinTrainDays,
		CutoffDayInclusive:      cutoff.Format(time.DateOnly),
		DaysTotal:               len(ds.Days),
		DaysEligibleAfterCensor: len(eligible),
		RowsTotal:               len(ds.Rows),
		PositivesTotal:          Positives(ds.Rows),
		FoldsTotal:              len(folds),
	}
	var pr, roc []*float64
	for _, f := range folds {
		if f.Skipped {
			s.FoldsSkippedNoTestPositives++
			continue
		}
		s.FoldsUsed++
		pr = append(pr, f.PRAUC)
		roc = append(roc, f.ROCAUC)
	}
	s.PRAUCMean, s.PRAUCStd = meanStd(pr)
	s.ROCAUCMean, s.ROCAUCStd = meanStd(roc)
	return s
}

// Coefficients lists the model weights by descending value.
func Coefficients(m *Model) []Coefficient {
	out := make([]Coefficient, len(m.Coef))
	for i, c := range m.Coef {
		out[i] = Coefficient{Feature: m.FeatureNames[i], Coef: c}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Coef > out[j].Coef })
	return out
}

func rate(n, total int) *float64 {
	if total == 0 {
		return nil
	}
	r := float64(n) / float64(total)
	return &r
}
