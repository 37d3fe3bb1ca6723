// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

// This file implements the classifier model: a frozen backbone with a small trainable head on top.

import (
	"github.com/gomlx/gomlx/examples/inceptionv3"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	timage "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

// BackboneFn builds a feature extractor over images shaped [batch, height, width, 3], valued from 0 to 1.
type BackboneFn func(ctx *context.Context, images *Node) *Node

var (
	// BackboneFns maps the "backbone" hyperparameter to its builder.
	BackboneFns = map[string]BackboneFn{
		"inception": InceptionV3Backbone,
		"cnn":       CnnBackbone,
	}

	// BackbonePrep maps backbones to a preparation function called before building the model.
	BackbonePrep = map[string]func(ctx *context.Context) error{
		"inception": InceptionV3Prep,
	}
)

// PrepareBackbone runs the preparation function of the configured backbone, if any.
// For "inception" it downloads the pre-trained weights to the "data_dir" hyperparameter.
func PrepareBackbone(ctx *context.Context) error {
	name := context.GetParamOr(ctx, ParamBackbone, "inception")
	if _, found := BackboneFns[name]; !found {
		return errors.Errorf("unknown backbone %q: valid values are %q", name, xslices.SortedKeys(BackboneFns))
	}
	if prep, found := BackbonePrep[name]; found {
		return prep(ctx)
	}
	return nil
}

// ClassNames returns the class names stored in the context.
func ClassNames(ctx *context.Context) ([]string, error) {
	classNames := context.GetParamOr(ctx, ParamClassNames, []string(nil))
	if len(classNames) == 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "hyperparameter %q with the list of classes is not set", ParamClassNames)
	}
	return classNames, nil
}

// ModelGraph implements train.ModelFn. It takes images shaped [batch, height, width, 3] (values from 0 to 1)
// and returns the logits shaped [batch, numClasses], where numClasses is the number of "class_names".
func ModelGraph(ctx *context.Context, _ any, inputs []*Node) []*Node {
	logits, _ := buildModel(ctx, inputs[0])
	return []*Node{logits}
}

// Probabilities converts the logits returned by ModelGraph to class probabilities.
func Probabilities(logits *Node) *Node {
	return Softmax(logits, -1)
}

// stage is an intermediary output of the model, recorded for SummarizeModel.
type stage struct {
	name, scope string
	output      *Node
}

// buildModel creates the model under the "/model" scope and returns the logits and its stages.
func buildModel(ctx *context.Context, images *Node) (logits *Node, stages []stage) {
	ctx = ctx.In("model")
	classNames, err := ClassNames(ctx)
	if err != nil {
		panic(err)
	}
	numClasses := len(classNames)
	images.AssertRank(4)
	batchSize := images.Shape().Dimensions[0]
	stages = append(stages, stage{name: "input", output: images})

	backboneName := context.GetParamOr(ctx, ParamBackbone, "inception")
	backboneFn, found := BackboneFns[backboneName]
	if !found {
		panic(errors.Errorf("unknown backbone %q: valid values are %q", backboneName, xslices.SortedKeys(BackboneFns)))
	}
	backboneCtx := ctx.In("backbone")
	features := backboneFn(backboneCtx, images)
	for v := range backboneCtx.IterVariablesInScope() {
		v.SetTrainable(false)
	}
	features = StopGradient(features)
	stages = append(stages, stage{name: "backbone (" + backboneName + ")", scope: "backbone", output: features})

	// Head.
	ctx = ctx.In("head")
	x := Reshape(features, batchSize, -1)
	stages = append(stages, stage{name: "flatten", output: x})
	x = layers.DenseWithBias(ctx.In("dense"), x, context.GetParamOr(ctx, ParamHeadHiddenNodes, 512))
	x = activations.Relu(x)
	stages = append(stages, stage{name: "dense (relu)", scope: "head/dense", output: x})
	if rate := context.GetParamOr(ctx, ParamHeadDropoutRate, 0.5); rate > 0 {
		x = layers.Dropout(ctx, x, Scalar(x.Graph(), x.DType(), rate))
		stages = append(stages, stage{name: "dropout", output: x})
	}
	logits = layers.DenseWithBias(ctx.In("readout"), x, numClasses)
	if logits.Rank() != 2 || logits.Shape().Dimensions[1] != numClasses {
		panic(errors.Wrapf(ErrShapeMismatch, "model output shaped %s, expected %d classes", logits.Shape(), numClasses))
	}
	stages = append(stages, stage{name: "readout (logits)", scope: "head/readout", output: logits})
	return logits, stages
}

// InceptionV3Prep downloads the InceptionV3 weights, if the pre-trained model is used.
func InceptionV3Prep(ctx *context.Context) error {
	if !context.GetParamOr(ctx, ParamInceptionPretrained, true) {
		return nil
	}
	dataDir, err := weightsDir(ctx)
	if err != nil {
		return err
	}
	return inceptionv3.DownloadAndUnpackWeights(dataDir)
}

// InceptionV3Backbone uses the InceptionV3 model, pre-trained on ImageNet, without its classification top.
func InceptionV3Backbone(ctx *context.Context, images *Node) *Node {
	channelsConfig := timage.ChannelsLast
	images = inceptionv3.PreprocessImage(images, 1.0, channelsConfig) // Adjust image to format used by Inception.
	var preTrainedPath string
	if context.GetParamOr(ctx, ParamInceptionPretrained, true) {
		preTrainedPath = must.M1(weightsDir(ctx))
	}
	return inceptionv3.BuildGraph(ctx, images).
		PreTrained(preTrainedPath).
		SetPooling(inceptionv3.MaxPooling).
		Trainable(false).
		Done()
}

// CnnBackbone is a small convolutional feature extractor, randomly initialized. It doesn't need any
// download, so it is used for offline runs and tests.
func CnnBackbone(ctx *context.Context, images *Node) *Node {
	x := images
	for ii, channels := range []int{16, 32, 32} {
		ctx := ctx.Inf("%03d_conv", ii)
		x = layers.Convolution(ctx, x).Channels(channels).KernelSize(3).PadSame().Done()
		x = activations.Relu(x)
		x = MaxPool(x).Window(2).Done()
	}
	return x
}

// hasModelVariables returns whether the model variables were already created (or loaded) in ctx.
func hasModelVariables(ctx *context.Context) bool {
	for range ctx.InAbsPath("/model").IterVariablesInScope() {
		return true
	}
	return false
}

// weightsDir returns the directory where the backbone weights are stored, with "~" expanded.
func weightsDir(ctx *context.Context) (string, error) {
	return fsutil.ReplaceTildeInDir(context.GetParamOr(ctx, ParamDataDir, "."))
}
