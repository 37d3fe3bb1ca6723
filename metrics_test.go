// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

func TestCategoricalAccuracyGraph(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	exec, err := context.NewExec(backend, context.New(), func(ctx *context.Context, labels, logits *Node) *Node {
		return CategoricalAccuracyGraph(ctx, []*Node{labels}, []*Node{logits})
	})
	require.NoError(t, err)
	labels := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 1, 0}}
	logits := [][]float32{{2, 1, 0}, {0, 3, -1}, {5, 0, 1}, {-1, 0.5, 0.1}}
	outputs, err := exec.Exec(labels, logits)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, tensors.ToScalar[float32](outputs[0]), 1e-6)
}

func TestConfusionMatrix(t *testing.T) {
	m := NewConfusionMatrix(3)
	require.Len(t, m, 3)
	pairs := [][2]int{{0, 0}, {0, 0}, {0, 1}, {1, 1}, {1, 1}, {1, 1}, {2, 0}, {2, 2}}
	for _, p := range pairs {
		require.NoError(t, m.Add(p[0], p[1]))
	}
	require.ErrorIs(t, m.Add(3, 0), ErrClassIndex)
	require.ErrorIs(t, m.Add(0, -1), ErrClassIndex)

	assert.Equal(t, ConfusionMatrix{{2, 1, 0}, {0, 3, 0}, {1, 0, 1}}, m)
	assert.Equal(t, []int{3, 3, 2}, m.Support())
	assert.Equal(t, 8, m.Total())
	assert.InDelta(t, 6.0/8.0, m.Accuracy(), 1e-9)

	r, err := m.Report([]string{"Apple", "Banana", "Cherry"})
	require.NoError(t, err)
	require.Len(t, r.Classes, 3)
	apple := r.Classes[0]
	assert.Equal(t, "Apple", apple.Class)
	assert.InDelta(t, 2.0/3.0, apple.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, apple.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, apple.F1, 1e-9)
	assert.Equal(t, 3, apple.Support)
	banana := r.Classes[1]
	assert.InDelta(t, 0.75, banana.Precision, 1e-9)
	assert.InDelta(t, 1.0, banana.Recall, 1e-9)
	cherry := r.Classes[2]
	assert.InDelta(t, 1.0, cherry.Precision, 1e-9)
	assert.InDelta(t, 0.5, cherry.Recall, 1e-9)

	assert.InDelta(t, 0.75, r.Accuracy, 1e-9)
	assert.Equal(t, 8, r.MacroAvg.Support)
	assert.InDelta(t, (2.0/3.0+0.75+1.0)/3.0, r.MacroAvg.Precision, 1e-9)
	assert.InDelta(t, (2.0/3.0)*3.0/8.0+1.0*3.0/8.0+0.5*2.0/8.0, r.WeightedAvg.Recall, 1e-9)

	_, err = m.Report([]string{"Apple"})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestConfusionMatrixZeroDivision(t *testing.T) {
	m := NewConfusionMatrix(2)
	assert.Equal(t, 0.0, m.Accuracy())

	// Class 1 is never predicted nor present.
	require.NoError(t, m.Add(0, 0))
	r, err := m.Report([]string{"Apple", "Banana"})
	require.NoError(t, err)
	assert.Equal(t, ClassMetrics{Class: "Banana"}, r.Classes[1])
	assert.Equal(t, 1.0, r.Classes[0].F1)
}

func TestEvaluationPrint(t *testing.T) {
	classNames := []string{"Apple", "Banana", "Cherry"}
	m := ConfusionMatrix{{2, 1, 0}, {0, 3, 0}, {1, 0, 1}}
	r, err := m.Report(classNames)
	require.NoError(t, err)
	e := &Evaluation{Dataset: "test", ClassNames: classNames, Loss: 0.25314, Accuracy: m.Accuracy(), Confusion: m, Report: r}

	var buf bytes.Buffer
	e.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Test Accuracy: 75.00%\n")
	assert.Contains(t, out, "Test Loss: 0.2531\n")
	assert.Contains(t, out, "precision    recall  f1-score   support")
	assert.Contains(t, out, "      0.67      0.67      0.67         3")
	assert.Contains(t, out, "    accuracy                          0.75         8")
	assert.Contains(t, out, "weighted avg")

	lines := strings.Split(out, "\n")
	matrixAt := -1
	for ii, line := range lines {
		if line == "Confusion Matrix:" {
			matrixAt = ii
		}
	}
	require.Greater(t, matrixAt, 0)
	require.Greater(t, len(lines), matrixAt+4)
	assert.Equal(t, "        Apple Banana Cherry", lines[matrixAt+1])
	assert.Equal(t, " Apple      2      1      0", lines[matrixAt+2])
	assert.Equal(t, "Banana      0      3      0", lines[matrixAt+3])
	assert.Equal(t, "Cherry      1      0      1", lines[matrixAt+4])
}
