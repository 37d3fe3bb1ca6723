// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package classifier

import (
	"fmt"
	"image"
	"path/filepath"
	"testing"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/Dathkousalya/image-classification-for-food/internal/fixtures"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// trainSmallModel trains a small cnn model on 2 classes x 4 images of 128x128 and saves it.
// Apples are red and bananas yellow, so a few epochs are enough to tell them apart.
func trainSmallModel(t *testing.T) (ctx *context.Context, dataDir, modelDir string) {
	dataDir = filepath.Join(t.TempDir(), "fruits")
	fixtures.CreateDataset(t, dataDir, map[string]int{"Apple": 4, "Banana": 4}, 128)
	ctx = foodclassifier.CreateDefaultContext()
	ctx.SetParams(map[string]any{
		foodclassifier.ParamBackbone:           "cnn",
		foodclassifier.ParamImageSize:          128,
		foodclassifier.ParamHeadHiddenNodes:    16,
		foodclassifier.ParamHeadDropoutRate:    0.0,
		foodclassifier.ParamBatchSize:          2,
		foodclassifier.ParamNumEpochs:          10,
		optimizers.ParamLearningRate:           1e-2,
		foodclassifier.ParamValidationFraction: 0.25,
		foodclassifier.ParamReadAhead:          0,
	})
	config := foodclassifier.NewConfigFromContext(ctx, dataDir)
	config.Quiet = true
	_, err := foodclassifier.Train(graphtest.BuildTestBackend(), ctx, config)
	require.NoError(t, err)
	modelDir = filepath.Join(t.TempDir(), foodclassifier.DefaultModelDir)
	require.NoError(t, foodclassifier.SaveModel(ctx, modelDir))
	return
}

func TestClassifier(t *testing.T) {
	if testing.Short() {
		fmt.Println("- TestClassifier disabled for go test --short because it trains a model.")
		return
	}
	ctx, dataDir, modelDir := trainSmallModel(t)
	backend := graphtest.BuildTestBackend()

	trained, err := NewFromContext(backend, ctx)
	require.NoError(t, err)
	loaded, err := New(backend, modelDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana"}, loaded.ClassNames())
	assert.Equal(t, 128, loaded.ImageSize())

	// Held-out image of a different size: it is resized.
	apple := filepath.Join(t.TempDir(), "apple.png")
	fixtures.WriteImage(t, apple, fixtures.ClassColors[0], 200, 3)
	pred, err := loaded.Predict(apple)
	require.NoError(t, err)
	assert.Equal(t, apple, pred.Path)
	assert.Equal(t, 0, pred.ClassIndex)
	assert.Equal(t, "Apple", pred.ClassName)
	assert.Greater(t, pred.Confidence, 0.5)
	assert.Equal(t, image.Rect(0, 0, 128, 128), pred.Image.Bounds())
	require.Len(t, pred.Probabilities, 2)
	assert.InDelta(t, 1.0, pred.Probabilities[0]+pred.Probabilities[1], 1e-5)
	assert.Equal(t, pred.Probabilities[pred.ClassIndex], pred.Confidence)

	// The saved and reloaded model predicts the same as the trained one.
	trainedPred, err := trained.Predict(apple)
	require.NoError(t, err)
	assert.Equal(t, trainedPred.ClassIndex, pred.ClassIndex)
	assert.InDeltaSlice(t, trainedPred.Probabilities, pred.Probabilities, 1e-5)

	banana := filepath.Join(t.TempDir(), "banana.png")
	fixtures.WriteImage(t, banana, fixtures.ClassColors[1], 150, 5)
	pred, err = loaded.Predict(banana)
	require.NoError(t, err)
	assert.Equal(t, "Banana", pred.ClassName)

	// Training images are also accepted.
	pred, err = loaded.Predict(filepath.Join(dataDir, "Banana", "img000.png"))
	require.NoError(t, err)
	assert.Equal(t, "Banana", pred.ClassName)

	// Distinct errors.
	_, err = loaded.Predict(filepath.Join(t.TempDir(), "missing.jpg"))
	require.ErrorIs(t, err, foodclassifier.ErrNotFound)
	bad := filepath.Join(t.TempDir(), "bad.jpg")
	fixtures.WriteCorrupted(t, bad)
	_, err = loaded.Predict(bad)
	require.ErrorIs(t, err, foodclassifier.ErrDecode)
}

func TestNewErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	_, err := New(backend, filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, foodclassifier.ErrModelLoad)

	// A context without classes.
	_, err = NewFromContext(backend, foodclassifier.CreateDefaultContext())
	require.ErrorIs(t, err, foodclassifier.ErrShapeMismatch)
}

func TestClassName(t *testing.T) {
	classNames := []string{"Apple", "Banana", "Cherry", "Kiwi", "Orange"}
	name, err := ClassName(classNames, 3)
	require.NoError(t, err)
	assert.Equal(t, "Kiwi", name)
	for _, index := range []int{-1, 5, 100} {
		_, err = ClassName(classNames, index)
		require.ErrorIs(t, err, foodclassifier.ErrClassIndex, "index %d", index)
	}
}

func TestDecode(t *testing.T) {
	c := &Classifier{classNames: []string{"Apple", "Banana"}}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	pred, err := c.decode(img, []float32{0.7, 0.3})
	require.NoError(t, err)
	assert.Equal(t, 0, pred.ClassIndex)
	assert.Equal(t, "Apple", pred.ClassName)

	pred, err = c.decode(img, []float32{0.2, 0.8})
	require.NoError(t, err)
	assert.Equal(t, 1, pred.ClassIndex)
	assert.Equal(t, "Banana", pred.ClassName)
	assert.InDelta(t, 0.8, pred.Confidence, 1e-6)

	// More outputs than classes: the winning index has no name.
	_, err = c.decode(img, []float32{0.1, 0.2, 0.7})
	require.ErrorIs(t, err, foodclassifier.ErrClassIndex)

	_, err = c.decode(img, nil)
	require.ErrorIs(t, err, foodclassifier.ErrShapeMismatch)
}
