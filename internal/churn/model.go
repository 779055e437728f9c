package churn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
)

// ModelVersion identifies the feature pipeline and classifier layout.
const ModelVersion = "baseline_v1"

// Model is a fitted preprocessing pipeline and logistic regression. It
// round-trips through JSON.
type Model struct {
	Version            string   `json:"version"`
	NumericFeatures    []string `json:"numeric_features"`
	CategoricalFeature string   `json:"categorical_feature"`
	NumericFill        float64  `json:"numeric_fill"`
	CategoricalFill    string   `json:"categorical_fill"`

	Preprocessor

	FeatureNames []string  `json:"feature_names"`
	Coef         []float64 `json:"coef"`
	Intercept    float64   `json:"intercept"`
}

// Fit trains the pipeline on rows.
func Fit(rows []*model.UserFeatureRow) (*Model, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no training rows", ErrEmptyPartition)
	}
	pre := FitPreprocessor(rows)
	coef, intercept, err := fitLogistic(pre.Transform(rows), labels(rows))
	if err != nil {
		return nil, err
	}
	return &Model{
		Version:            ModelVersion,
		NumericFeatures:    append([]string(nil), NumericFeatures...),
		CategoricalFeature: CategoricalFeature,
		NumericFill:        numericFill,
		CategoricalFill:    model.UnknownPlan,
		Preprocessor:       *pre,
		FeatureNames:       pre.FeatureNames(),
		Coef:               coef,
		Intercept:          intercept,
	}, nil
}

// PredictProba returns the churn probability of each row.
func (m *Model) PredictProba(rows []*model.UserFeatureRow) []float64 {
	X := m.Preprocessor.Transform(rows)
	probs := make([]float64, len(X))
	for i, x := range X {
		probs[i] = sigmoid(floats.Dot(m.Coef, x) + m.Intercept)
	}
	return probs
}

func labels(rows []*model.UserFeatureRow) []bool {
	y := make([]bool, len(rows))
	for i, r := range rows {
		y[i] = r.Churn7d
	}
	return y
}
