package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/churn"
)

// Artifact file names.
const (
	FoldsFile        = "churn_temporal_cv_folds.csv"
	SummaryFile      = "churn_temporal_cv_summary.json"
	CoefficientsFile = "churn_baseline_coefficients.csv"
	FinalFitFile     = "churn_baseline_final_fit.json"
	ModelFile        = "baseline_model.json"
)

var foldColumns = []string{
	"test_day",
	"train_start",
	"train_end",
	"train_days",
	"rows_train",
	"rows_test",
	"positives_train",
	"positives_test",
	"churn_rate_train",
	"churn_rate_test",
	"skipped",
	"pr_auc",
	"roc_auc",
}

// ChurnArtifacts encodes every artifact of a training run, in a stable
// order.
func ChurnArtifacts(res *churn.Result) ([]Artifact, error) {
	folds, err := FoldsCSV(res.Folds)
	if err != nil {
		return nil, err
	}
	coefs, err := CoefficientsCSV(res.Coefficients)
	if err != nil {
		return nil, err
	}
	summary, err := indentJSON(res.Summary)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	final, err := indentJSON(res.Final)
	if err != nil {
		return nil, fmt.Errorf("encode final fit: %w", err)
	}
	mdl, err := indentJSON(res.Model)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return []Artifact{
		{Name: FoldsFile, Data: folds},
		{Name: SummaryFile, Data: summary},
		{Name: CoefficientsFile, Data: coefs},
		{Name: FinalFitFile, Data: final},
		{Name: ModelFile, Data: mdl},
	}, nil
}

// FoldsCSV encodes one row per fold. Undefined metrics are empty cells.
func FoldsCSV(folds []*churn.TemporalFold) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(foldColumns); err != nil {
		return nil, fmt.Errorf("encode folds: %w", err)
	}
	for _, f := range folds {
		var start, end string
		if n := len(f.TrainDays); n > 0 {
			start = f.TrainDays[0].Format(time.DateOnly)
			end = f.TrainDays[n-1].Format(time.DateOnly)
		}
		rec := []string{
			f.TestDay.Format(time.DateOnly),
			start,
			end,
			strconv.Itoa(len(f.TrainDays)),
			strconv.Itoa(f.RowsTrain),
			strconv.Itoa(f.RowsTest),
			strconv.Itoa(f.PositivesTrain),
			strconv.Itoa(f.PositivesTest),
			optFloat(f.ChurnRateTrain),
			optFloat(f.ChurnRateTest),
			strconv.FormatBool(f.Skipped),
			optFloat(f.PRAUC),
			optFloat(f.ROCAUC),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("encode folds: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode folds: %w", err)
	}
	return buf.Bytes(), nil
}

// CoefficientsCSV encodes feature,coef rows in the given order.
func CoefficientsCSV(coefs []churn.Coefficient) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"feature", "coef"}); err != nil {
		return nil, fmt.Errorf("encode coefficients: %w", err)
	}
	for _, c := range coefs {
		if err := w.Write([]string{c.Feature, formatFloat(c.Coef)}); err != nil {
			return nil, fmt.Errorf("encode coefficients: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode coefficients: %w", err)
	}
	return buf.Bytes(), nil
}

// indentJSON encodes v with two-space indentation and a trailing newline.
func indentJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if s == "-0" {
		return strings.TrimPrefix(s, "-")
	}
	return s
}
