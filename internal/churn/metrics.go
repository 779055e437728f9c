package churn

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ROCAUC returns the area under the ROC curve, or nil unless both classes
// are present.
func ROCAUC(y []bool, scores []float64) *float64 {
	positives := 0
	for _, v := range y {
		if v {
			positives++
		}
	}
	if positives == 0 || positives == len(y) {
		return nil
	}

	s := append([]float64(nil), scores...)
	classes := append([]bool(nil), y...)
	stat.SortWeightedLabeled(s, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, s, classes, nil)
	auc := integrate.Trapezoidal(fpr, tpr)
	return &auc
}

// AveragePrecision summarises the precision-recall curve as the
// recall-weighted mean of precision at each distinct score threshold. It is
// 0 when y has no positives.
func AveragePrecision(y []bool, scores []float64) float64 {
	positives := 0
	for _, v := range y {
		if v {
			positives++
		}
	}
	if positives == 0 {
		return 0
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	var ap, prevRecall float64
	tp, fp := 0, 0
	for i, idx := range order {
		if y[idx] {
			tp++
		} else {
			fp++
		}
		// Close the threshold only after the last row sharing this score.
		if i+1 < len(order) && scores[order[i+1]] == scores[idx] {
			continue
		}
		recall := float64(tp) / float64(positives)
		precision := float64(tp) / float64(tp+fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap
}

// meanStd aggregates the finite values among xs. The mean needs one value
// and the sample standard deviation two; otherwise they are nil.
func meanStd(xs []*float64) (mean, std *float64) {
	var finite []float64
	for _, x := range xs {
		if x != nil && !math.IsNaN(*x) && !math.IsInf(*x, 0) {
			finite = append(finite, *x)
		}
	}
	if len(finite) >= 1 {
		m := stat.Mean(finite, nil)
		mean = &m
	}
	if len(finite) >= 2 {
		s := stat.StdDev(finite, nil)
		std = &s
	}
	return mean, std
}
