// Package metrics implements the binary-classification metrics reported by
// the training pipelines.
package metrics

import (
	"fmt"
	"math"
	"sort"

	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

const epsilonSmall = 1e-15

// ConfusionMatrix is [[TN, FP], [FN, TP]]: rows index the true label,
// columns the predicted label.
type ConfusionMatrix [2][2]int

// TN returns the true-negative count.
func (c ConfusionMatrix) TN() int { return c[0][0] }

// FP returns the false-positive count.
func (c ConfusionMatrix) FP() int { return c[0][1] }

// FN returns the false-negative count.
func (c ConfusionMatrix) FN() int { return c[1][0] }

// TP returns the true-positive count.
func (c ConfusionMatrix) TP() int { return c[1][1] }

// Metrics bundles the standard binary-classification measures for one
// evaluation split.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	LogLoss   float64
	AUC       float64
	Confusion ConfusionMatrix
}

func validateLabels(name string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return bankmlErrors.NewValueError(name, "input slices cannot be empty")
	}
	if len(yTrue) != len(yPred) {
		return bankmlErrors.NewDimensionError(name, len(yTrue), len(yPred), 0)
	}
	for i, v := range yTrue {
		if v != 0 && v != 1 {
			return bankmlErrors.NewValidationError("yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %g at index %d", v, i), v)
		}
	}
	return nil
}

// Accuracy returns the fraction of predictions matching the true labels.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := validateLabels("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// Confusion computes the confusion matrix of hard 0/1 predictions.
func Confusion(yTrue, yPred []float64) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if err := validateLabels("Confusion", yTrue, yPred); err != nil {
		return cm, err
	}
	for i := range yTrue {
		t, p := 0, 0
		if yTrue[i] == 1 {
			t = 1
		}
		if yPred[i] >= 0.5 {
			p = 1
		}
		cm[t][p]++
	}
	return cm, nil
}

// Precision returns TP / (TP + FP), or 0 when there are no positive
// predictions.
func Precision(yTrue, yPred []float64) (float64, error) {
	cm, err := Confusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	denom := cm.TP() + cm.FP()
	if denom == 0 {
		return 0, nil
	}
	return float64(cm.TP()) / float64(denom), nil
}

// Recall returns TP / (TP + FN), or 0 when there are no positive labels.
func Recall(yTrue, yPred []float64) (float64, error) {
	cm, err := Confusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	denom := cm.TP() + cm.FN()
	if denom == 0 {
		return 0, nil
	}
	return float64(cm.TP()) / float64(denom), nil
}

// F1Score returns the harmonic mean of precision and recall, or 0 when
// both are 0.
func F1Score(yTrue, yPred []float64) (float64, error) {
	p, err := Precision(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	r, err := Recall(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if p+r == 0 {
		return 0, nil
	}
	return 2 * p * r / (p + r), nil
}

// LogLoss returns the mean cross-entropy between binary labels and
// predicted probabilities. Probabilities are clamped away from 0 and 1.
func LogLoss(yTrue, yProba []float64) (float64, error) {
	if err := validateLabels("LogLoss", yTrue, yProba); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range yTrue {
		p := yProba[i]
		if p < epsilonSmall {
			p = epsilonSmall
		} else if p > 1-epsilonSmall {
			p = 1 - epsilonSmall
		}
		sum -= yTrue[i]*math.Log(p) + (1-yTrue[i])*math.Log(1-p)
	}
	return sum / float64(len(yTrue)), nil
}

// AUC returns the area under the ROC curve of predicted scores. When all
// samples share one class the AUC is undefined and 0.5 is returned.
func AUC(yTrue, yScore []float64) (float64, error) {
	if err := validateLabels("AUC", yTrue, yScore); err != nil {
		return 0, err
	}
	nPos, nNeg := 0.0, 0.0
	for _, v := range yTrue {
		if v == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	// Rank-sum formulation with midranks for tied scores.
	idx := make([]int, len(yScore))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yScore[idx[a]] < yScore[idx[b]] })

	ranks := make([]float64, len(yScore))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && yScore[idx[j]] == yScore[idx[i]] {
			j++
		}
		mid := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = mid
		}
		i = j
	}
	rankSum := 0.0
	for i, v := range yTrue {
		if v == 1 {
			rankSum += ranks[i]
		}
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// EvaluateBinary computes all metrics for one split from predicted
// probabilities, thresholding at 0.5 for the label-based measures.
func EvaluateBinary(yTrue, yProba []float64) (Metrics, error) {
	var m Metrics
	if err := validateLabels("EvaluateBinary", yTrue, yProba); err != nil {
		return m, err
	}
	yPred := make([]float64, len(yProba))
	for i, p := range yProba {
		if p >= 0.5 {
			yPred[i] = 1
		}
	}
	var err error
	if m.Accuracy, err = Accuracy(yTrue, yPred); err != nil {
		return m, err
	}
	if m.Precision, err = Precision(yTrue, yPred); err != nil {
		return m, err
	}
	if m.Recall, err = Recall(yTrue, yPred); err != nil {
		return m, err
	}
	if m.F1, err = F1Score(yTrue, yPred); err != nil {
		return m, err
	}
	if m.LogLoss, err = LogLoss(yTrue, yProba); err != nil {
		return m, err
	}
	if m.AUC, err = AUC(yTrue, yProba); err != nil {
		return m, err
	}
	if m.Confusion, err = Confusion(yTrue, yPred); err != nil {
		return m, err
	}
	return m, nil
}
