// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"fmt"
	"io"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// CategoricalAccuracyGraph returns the fraction of examples where argmax(logits) is the argmax of the
// one-hot labels. Labels and logits are shaped [batch, numClasses].
func CategoricalAccuracyGraph(_ *context.Context, labels, logits []*Node) *Node {
	labels0, logits0 := labels[0], logits[0]
	if !labels0.Shape().Equal(logits0.Shape()) {
		exceptions.Panicf("one-hot labels (%s) and logits (%s) must have the same shape", labels0.Shape(), logits0.Shape())
	}
	modelChoices := ArgMax(logits0, -1, dtypes.Int32)
	trueChoices := ArgMax(labels0, -1, dtypes.Int32)
	correct := ConvertDType(Equal(modelChoices, trueChoices), logits0.DType())
	return ReduceAllMean(correct)
}

func accuracyPPrint(value *tensors.Tensor) string {
	return fmt.Sprintf("%.2f%%", 100.0*tensors.ToScalar[float32](value))
}

// NewMeanCategoricalAccuracy returns the mean accuracy metric over one-hot labels.
func NewMeanCategoricalAccuracy(name, shortName string) *metrics.MeanMetric {
	return metrics.NewMeanMetric(name, shortName, metrics.AccuracyMetricType, CategoricalAccuracyGraph, accuracyPPrint)
}

// NewMovingAverageCategoricalAccuracy returns the exponential moving average of the accuracy, used during training.
func NewMovingAverageCategoricalAccuracy(name, shortName string, newExampleWeight float64) metrics.Interface {
	return metrics.NewExponentialMovingAverageMetric(name, shortName, metrics.AccuracyMetricType,
		CategoricalAccuracyGraph, accuracyPPrint, newExampleWeight)
}

// ConfusionMatrix counts predictions: cell [i][j] is the number of examples of true class i predicted as class j.
type ConfusionMatrix [][]int

// NewConfusionMatrix creates an empty numClasses x numClasses matrix.
func NewConfusionMatrix(numClasses int) ConfusionMatrix {
	m := make(ConfusionMatrix, numClasses)
	for ii := range m {
		m[ii] = make([]int, numClasses)
	}
	return m
}

// Add one prediction. It returns an ErrClassIndex error if either index is out of range.
func (m ConfusionMatrix) Add(trueClass, predicted int) error {
	n := len(m)
	if trueClass < 0 || trueClass >= n || predicted < 0 || predicted >= n {
		return errors.Wrapf(ErrClassIndex, "true class %d / predicted %d for %d classes", trueClass, predicted, n)
	}
	m[trueClass][predicted]++
	return nil
}

// Support is the number of examples of each true class: the row sums.
func (m ConfusionMatrix) Support() []int {
	support := make([]int, len(m))
	for ii, row := range m {
		for _, count := range row {
			support[ii] += count
		}
	}
	return support
}

// Total number of examples.
func (m ConfusionMatrix) Total() int {
	total := 0
	for _, s := range m.Support() {
		total += s
	}
	return total
}

// Accuracy is the fraction of examples in the diagonal, 0 if the matrix is empty.
func (m ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	correct := 0
	for ii := range m {
		correct += m[ii][ii]
	}
	return float64(correct) / float64(total)
}

// ClassMetrics holds the per-class figures of a classification report.
type ClassMetrics struct {
	Class                 string
	Precision, Recall, F1 float64
	Support               int
}

// ClassificationReport with per-class metrics (in class index order) and their macro and weighted averages.
type ClassificationReport struct {
	Classes               []ClassMetrics
	Accuracy              float64
	MacroAvg, WeightedAvg ClassMetrics
}

// safeDiv returns 0 when the denominator is 0.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Report computes precision, recall and F1 for each class. Classes with no predictions (or no examples)
// get 0 for the undefined metrics.
func (m ConfusionMatrix) Report(classNames []string) (*ClassificationReport, error) {
	n := len(m)
	if len(classNames) != n {
		return nil, errors.Wrapf(ErrShapeMismatch, "confusion matrix for %d classes, but %d class names given", n, len(classNames))
	}
	support := m.Support()
	predicted := make([]int, n)
	for _, row := range m {
		for jj, count := range row {
			predicted[jj] += count
		}
	}
	r := &ClassificationReport{Accuracy: m.Accuracy()}
	total := m.Total()
	r.MacroAvg.Class, r.WeightedAvg.Class = "macro avg", "weighted avg"
	for ii, name := range classNames {
		tp := float64(m[ii][ii])
		cm := ClassMetrics{
			Class:     name,
			Precision: safeDiv(tp, float64(predicted[ii])),
			Recall:    safeDiv(tp, float64(support[ii])),
			Support:   support[ii],
		}
		cm.F1 = safeDiv(2*cm.Precision*cm.Recall, cm.Precision+cm.Recall)
		r.Classes = append(r.Classes, cm)

		r.MacroAvg.Precision += cm.Precision / float64(n)
		r.MacroAvg.Recall += cm.Recall / float64(n)
		r.MacroAvg.F1 += cm.F1 / float64(n)
		w := safeDiv(float64(cm.Support), float64(total))
		r.WeightedAvg.Precision += cm.Precision * w
		r.WeightedAvg.Recall += cm.Recall * w
		r.WeightedAvg.F1 += cm.F1 * w
	}
	r.MacroAvg.Support, r.WeightedAvg.Support = total, total
	return r, nil
}

// nameWidth is the width of the first column when printing names, at least minWidth.
func nameWidth(minWidth int, names ...string) int {
	width := minWidth
	for _, name := range names {
		width = max(width, len(name))
	}
	return width
}

// Print the report in plain text, in the layout of scikit-learn's classification_report.
func (r *ClassificationReport) Print(w io.Writer) {
	names := []string{r.MacroAvg.Class, r.WeightedAvg.Class}
	for _, cm := range r.Classes {
		names = append(names, cm.Class)
	}
	width := nameWidth(0, names...)
	row := func(cm ClassMetrics) {
		_, _ = fmt.Fprintf(w, "%*s %9.2f %9.2f %9.2f %9d\n", width, cm.Class, cm.Precision, cm.Recall, cm.F1, cm.Support)
	}
	_, _ = fmt.Fprintf(w, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, cm := range r.Classes {
		row(cm)
	}
	_, _ = fmt.Fprintf(w, "\n%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
}

// Print the matrix in plain text, one row per true class and one column per predicted class.
func (m ConfusionMatrix) Print(w io.Writer, classNames []string) {
	width := nameWidth(0, classNames...)
	colWidth := nameWidth(6, classNames...)
	_, _ = fmt.Fprintf(w, "%*s", width, "")
	for _, name := range classNames {
		_, _ = fmt.Fprintf(w, " %*s", colWidth, name)
	}
	_, _ = fmt.Fprintln(w)
	for ii, row := range m {
		name := ""
		if ii < len(classNames) {
			name = classNames[ii]
		}
		_, _ = fmt.Fprintf(w, "%*s", width, name)
		for _, count := range row {
			_, _ = fmt.Fprintf(w, " %*d", colWidth, count)
		}
		_, _ = fmt.Fprintln(w)
	}
}
