// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"fmt"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImageSize keeps the tests fast.
const testImageSize = 16

// newTestContext creates a context with a small cnn backbone, that doesn't require downloads.
func newTestContext(classNames []string) *context.Context {
	ctx := CreateDefaultContext()
	ctx.SetParams(map[string]any{
		ParamBackbone:           "cnn",
		ParamImageSize:          testImageSize,
		ParamHeadHiddenNodes:    8,
		ParamBatchSize:          2,
		ParamEvalBatchSize:      2,
		ParamNumEpochs:          1,
		ParamValidationFraction: 0.25,
		ParamReadAhead:          0,
	})
	if classNames != nil {
		ctx.SetParam(ParamClassNames, classNames)
	}
	return ctx
}

func TestModelGraphOutputWidth(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, classNames := range [][]string{{"Apple", "Banana"}, {"Apple", "Banana", "Cherry"}} {
		t.Run(fmt.Sprintf("%d classes", len(classNames)), func(t *testing.T) {
			ctx := newTestContext(classNames)
			exec, err := context.NewExec(backend, ctx, func(ctx *context.Context, images *Node) *Node {
				return Probabilities(ModelGraph(ctx, nil, []*Node{images})[0])
			})
			require.NoError(t, err)
			images := tensors.FromShape(shapes.Make(dtypes.Float32, 3, testImageSize, testImageSize, 3))
			outputs, err := exec.Exec(images)
			require.NoError(t, err)
			assert.Equal(t, []int{3, len(classNames)}, outputs[0].Shape().Dimensions)
			for _, row := range outputs[0].Value().([][]float32) {
				sum := float32(0)
				for _, p := range row {
					sum += p
				}
				assert.InDelta(t, 1.0, sum, 1e-5)
			}
		})
	}
}

func TestClassNames(t *testing.T) {
	_, err := ClassNames(newTestContext(nil))
	require.ErrorIs(t, err, ErrShapeMismatch)
	classNames, err := ClassNames(newTestContext([]string{"Apple"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple"}, classNames)
}

func TestPrepareBackbone(t *testing.T) {
	ctx := newTestContext(nil)
	require.NoError(t, PrepareBackbone(ctx))
	ctx.SetParam(ParamBackbone, "resnet")
	require.Error(t, PrepareBackbone(ctx))
}

func TestSummarizeModel(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := newTestContext([]string{"Apple", "Banana"})
	layers, err := SummarizeModel(backend, ctx)
	require.NoError(t, err)

	var names []string
	for _, l := range layers {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"input", "backbone (cnn)", "flatten", "dense (relu)", "dropout", "readout (logits)"}, names)
	assert.Equal(t, []int{1, testImageSize, testImageSize, 3}, layers[0].Shape.Dimensions)
	assert.Equal(t, []int{1, 2}, layers[len(layers)-1].Shape.Dimensions)

	// 16x16 images reduced to 2x2x32 by the three pooling layers.
	assert.Equal(t, []int{1, 128}, layers[2].Shape.Dimensions)
	assert.Equal(t, 128*8+8, layers[3].NumParameters)
	assert.Equal(t, 8*2+2, layers[5].NumParameters)
	assert.False(t, layers[1].Trainable)
	assert.True(t, layers[3].Trainable)
	assert.True(t, layers[5].Trainable)
	assert.Greater(t, layers[1].NumParameters, 0)

	total, trainable := TotalParameters(layers)
	assert.Equal(t, 128*8+8+8*2+2, trainable)
	assert.Equal(t, trainable+layers[1].NumParameters, total)

	// A second summary reuses the variables.
	again, err := SummarizeModel(backend, ctx)
	require.NoError(t, err)
	assert.Equal(t, layers, again)
}
