package churn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	// inverseRegularization is C in 0.5*|w|^2 + C*sum(weighted log loss).
	inverseRegularization = 1.0
	maxIterations         = 2000
)

// fitLogistic fits an L2-regularised logistic regression with class-balanced
// sample weights using L-BFGS. The intercept is not penalised. X must be
// non-empty and y must contain both classes.
func fitLogistic(X [][]float64, y []bool) (coef []float64, intercept float64, err error) {
	n := len(X)
	if n == 0 {
		return nil, 0, ErrEmptyPartition
	}
	positives := 0
	for _, v := range y {
		if v {
			positives++
		}
	}
	if positives == 0 || positives == n {
		return nil, 0, fmt.Errorf("%w: %d of %d rows positive", ErrSingleClass, positives, n)
	}

	// Balanced weights: n / (classes * count(class)).
	wPos := float64(n) / (2 * float64(positives))
	wNeg := float64(n) / (2 * float64(n-positives))
	weights := make([]float64, n)
	targets := make([]float64, n)
	for i, v := range y {
		weights[i] = wNeg
		if v {
			weights[i] = wPos
			targets[i] = 1
		}
	}

	d := len(X[0])
	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			w, b := theta[:d], theta[d]
			loss := 0.5 * floats.Dot(w, w)
			for i, x := range X {
				z := floats.Dot(w, x) + b
				if targets[i] == 1 {
					loss += inverseRegularization * weights[i] * softplus(-z)
				} else {
					loss += inverseRegularization * weights[i] * softplus(z)
				}
			}
			return loss
		},
		Grad: func(grad, theta []float64) {
			w, b := theta[:d], theta[d]
			copy(grad[:d], w)
			grad[d] = 0
			for i, x := range X {
				r := inverseRegularization * weights[i] * (sigmoid(floats.Dot(w, x)+b) - targets[i])
				floats.AddScaled(grad[:d], r, x)
				grad[d] += r
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   maxIterations,
		GradientThreshold: 1e-8,
	}
	result, err := optimize.Minimize(problem, make([]float64, d+1), settings, &optimize.LBFGS{})
	// A line search that cannot improve near the optimum still leaves a
	// usable point.
	if result == nil || !allFinite(result.X) {
		if err == nil {
			err = fmt.Errorf("optimizer returned no finite solution")
		}
		return nil, 0, fmt.Errorf("fit logistic regression: %w", err)
	}
	return result.X[:d:d], result.X[d], nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+exp(t)) without overflow.
func softplus(t float64) float64 {
	return math.Max(t, 0) + math.Log1p(math.Exp(-math.Abs(t)))
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
