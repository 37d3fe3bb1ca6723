// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Dathkousalya/image-classification-for-food/internal/fixtures"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainTestModel trains for one epoch on 2 classes with 4 images each.
func trainTestModel(t *testing.T) (ctx *context.Context, dataDir string, config *Config, history *History, modelDir string) {
	dataDir = filepath.Join(t.TempDir(), "fruits")
	fixtures.CreateDataset(t, dataDir, map[string]int{"Apple": 4, "Banana": 4}, 24)
	backend := graphtest.BuildTestBackend()
	ctx = newTestContext(nil)
	config = NewConfigFromContext(ctx, dataDir)
	config.Quiet = true
	var err error
	history, err = Train(backend, ctx, config)
	require.NoError(t, err)

	modelDir = filepath.Join(t.TempDir(), DefaultModelDir)
	require.NoError(t, SaveModel(ctx, modelDir))
	return
}

func TestTrainSaveLoadEvaluate(t *testing.T) {
	if testing.Short() {
		fmt.Println("- TestTrainSaveLoadEvaluate disabled for go test --short because it trains a model.")
		return
	}
	trainCtx, dataDir, config, history, modelDir := trainTestModel(t)

	require.Equal(t, 1, history.Len())
	assert.Equal(t, []int{1}, history.Epochs)
	for _, metric := range HistoryMetrics {
		require.Len(t, history.Metrics[metric], 1, "metric %q", metric)
		assert.False(t, math.IsNaN(history.Metrics[metric][0]), "metric %q", metric)
	}
	acc := history.Last(MetricValAccuracy)
	assert.True(t, acc >= 0 && acc <= 1, "val_accuracy=%g", acc)

	// Model info.
	info, err := ReadModelInfo(modelDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana"}, info.Classes)
	assert.Equal(t, testImageSize, info.ImageSize)
	assert.Equal(t, "cnn", info.Backbone)
	assert.NotEmpty(t, info.RunID)
	assert.Greater(t, info.NumParameters, 0)

	// Loaded model carries its classes.
	ctx, err := LoadModel(modelDir)
	require.NoError(t, err)
	classNames, err := ClassNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana"}, classNames)

	// No test split: evaluates on the 2 validation images.
	eval, err := Evaluate(graphtest.BuildTestBackend(), modelDir, config)
	require.NoError(t, err)
	assert.Equal(t, "validation", eval.Dataset)
	assert.Equal(t, 2, eval.Confusion.Total())
	assert.Equal(t, []int{1, 1}, eval.Confusion.Support())
	assert.InDelta(t, eval.Confusion.Accuracy(), eval.Accuracy, 1e-5)
	assert.False(t, math.IsNaN(eval.Loss))
	require.Len(t, eval.Report.Classes, 2)

	var buf bytes.Buffer
	eval.Print(&buf)
	assert.Contains(t, buf.String(), "Test Accuracy: ")
	assert.Contains(t, buf.String(), "Test Loss: ")
	assert.Contains(t, buf.String(), "Confusion Matrix:")
	assert.Regexp(t, `(?m)^ Apple +\d+ +\d+$`, buf.String())
	assert.Regexp(t, `(?m)^Banana +\d+ +\d+$`, buf.String())

	// The split is the one saved with the model, not the one of the caller's config.
	otherConfig := *config
	otherConfig.ValidationFraction = 0.5
	otherConfig.ImageSize = 2 * testImageSize
	eval, err = Evaluate(graphtest.BuildTestBackend(), modelDir, &otherConfig)
	require.NoError(t, err)
	assert.Equal(t, 2, eval.Confusion.Total())
	assert.Equal(t, 0.5, otherConfig.ValidationFraction)
	assert.Equal(t, 2*testImageSize, otherConfig.ImageSize)

	// Saving again replaces the model.
	require.NoError(t, SaveModel(trainCtx, modelDir))
	info2, err := ReadModelInfo(modelDir)
	require.NoError(t, err)
	assert.NotEqual(t, info.RunID, info2.RunID)

	// Data with different classes than the model.
	require.NoError(t, os.Rename(filepath.Join(dataDir, "Banana"), filepath.Join(dataDir, "Cherry")))
	_, err = Evaluate(graphtest.BuildTestBackend(), modelDir, config)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

// variableValues returns a copy of the values of the variables under scope, by variable path.
func variableValues(t *testing.T, ctx *context.Context, scope string) map[string]any {
	values := make(map[string]any)
	for v := range ctx.InAbsPath(scope).IterVariablesInScope() {
		value := v.Value()
		values[v.ScopeAndName()] = value.Value()
	}
	require.NotEmpty(t, values, "no variables in %q", scope)
	return values
}

func TestTrainKeepsBackboneFrozen(t *testing.T) {
	if testing.Short() {
		fmt.Println("- TestTrainKeepsBackboneFrozen disabled for go test --short because it trains a model.")
		return
	}
	dataDir := filepath.Join(t.TempDir(), "fruits")
	fixtures.CreateDataset(t, dataDir, map[string]int{"Apple": 4, "Banana": 4}, 24)
	backend := graphtest.BuildTestBackend()
	ctx := newTestContext([]string{"Apple", "Banana"})

	// Creates and initializes the variables before training.
	layers, err := SummarizeModel(backend, ctx)
	require.NoError(t, err)
	require.False(t, layers[1].Trainable)
	backbone := variableValues(t, ctx, "/model/backbone")
	head := variableValues(t, ctx, "/model/head")

	config := NewConfigFromContext(ctx, dataDir)
	config.Quiet = true
	_, err = Train(backend, ctx, config)
	require.NoError(t, err)
	assert.Equal(t, backbone, variableValues(t, ctx, "/model/backbone"))
	assert.NotEqual(t, head, variableValues(t, ctx, "/model/head"))
}

func TestLoadModelErrors(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrModelLoad)
	require.ErrorIs(t, err, ErrNotFound)

	// Directory without a checkpoint.
	_, err = LoadModel(t.TempDir())
	require.ErrorIs(t, err, ErrModelLoad)

	_, err = ReadModelInfo(t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTrainErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := newTestContext(nil)
	_, err := Train(backend, ctx, NewConfigFromContext(ctx, filepath.Join(t.TempDir(), "missing")))
	require.ErrorIs(t, err, ErrNotFound)

	dataDir := t.TempDir()
	fixtures.CreateDataset(t, dataDir, map[string]int{"Apple": 4}, 8)
	fixtures.WriteCorrupted(t, filepath.Join(dataDir, "Apple", "zzz.png"))
	config := NewConfigFromContext(ctx, dataDir)
	config.Quiet = true
	_, err = Train(backend, ctx, config)
	require.ErrorIs(t, err, ErrDecode)
}
