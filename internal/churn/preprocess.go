package churn

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

// NumericFeatures are read from the gold table in this order.
var NumericFeatures = []string{
	"events_7d",
	"sessions_7d",
	"feature_use_7d",
	"support_tickets_14d",
	"late_rate_7d",
}

// CategoricalFeature is one-hot encoded after the numeric columns.
const CategoricalFeature = "plan_id"

// numericFill replaces missing numeric values before scaling.
const numericFill = 0.0

// Preprocessor imputes, standardises and one-hot encodes feature rows.
// Categories unseen during fitting encode to all zeros.
type Preprocessor struct {
	Means      []float64 `json:"means"`
	Scales     []float64 `json:"scales"`
	Categories []string  `json:"categories"`
}

// FitPreprocessor learns scaling statistics and the category vocabulary.
func FitPreprocessor(rows []*model.UserFeatureRow) *Preprocessor {
	p := &Preprocessor{
		Means:  make([]float64, len(NumericFeatures)),
		Scales: make([]float64, len(NumericFeatures)),
	}
	col := make([]float64, len(rows))
	for j := range NumericFeatures {
		for i, r := range rows {
			col[i] = numericValue(r, j)
		}
		var mean, std float64
		if len(rows) > 0 {
			mean, std = stat.PopMeanStdDev(col, nil)
		}
		p.Means[j] = mean
		p.Scales[j] = 1
		if std > 1e-12 {
			p.Scales[j] = std
		}
	}

	seen := make(map[string]bool)
	for _, r := range rows {
		c := category(r)
		if !seen[c] {
			seen[c] = true
			p.Categories = append(p.Categories, c)
		}
	}
	sort.Strings(p.Categories)
	return p
}

// Width is the number of encoded columns.
func (p *Preprocessor) Width() int {
	return len(p.Means) + len(p.Categories)
}

// FeatureNames names the encoded columns, e.g. events_7d or plan_id_pro.
func (p *Preprocessor) FeatureNames() []string {
	names := make([]string, 0, p.Width())
	names = append(names, NumericFeatures...)
	for _, c := range p.Categories {
		names = append(names, CategoricalFeature+"_"+c)
	}
	return names
}

// Transform encodes rows into a row-major design matrix.
func (p *Preprocessor) Transform(rows []*model.UserFeatureRow) [][]float64 {
	index := make(map[string]int, len(p.Categories))
	for i, c := range p.Categories {
		index[c] = len(p.Means) + i
	}
	X := make([][]float64, len(rows))
	for i, r := range rows {
		x := make([]float64, p.Width())
		for j := range p.Means {
			x[j] = (numericValue(r, j) - p.Means[j]) / p.Scales[j]
		}
		if k, ok := index[category(r)]; ok {
			x[k] = 1
		}
		X[i] = x
	}
	return X
}

func numericValue(r *model.UserFeatureRow, j int) float64 {
	var v *float64
	switch j {
	case 0:
		v = r.Events7d
	case 1:
		v = r.Sessions7d
	case 2:
		v = r.FeatureUse7d
	case 3:
		v = r.SupportTickets14d
	case 4:
		v = r.LateRate7d
	}
	if v == nil {
		return numericFill
	}
	return *v
}

func category(r *model.UserFeatureRow) string {
	if r.PlanID == "" {
		return model.UnknownPlan
	}
	return r.PlanID
}
