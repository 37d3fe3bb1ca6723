// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package classifier classifies single food images with a model saved by foodclassifier.SaveModel.
//
// To use it, create a Classifier with New, and then call its Predict method with the path to an image.
// Images of any size are accepted: they are resized to the model's input size.
package classifier

import (
	"image"
	"slices"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Classifier holds the food classification model compiled.
type Classifier struct {
	backend backends.Backend

	// ctx with the model's weights and hyperparameters.
	ctx *context.Context

	// exec is used to execute the model with a context. It returns the probabilities of each class.
	exec *context.Exec

	classNames []string
	imageSize  int
}

// Prediction for one image.
type Prediction struct {
	// Path of the image, empty if the image was given in memory.
	Path string

	// Image as fed to the model: resized to the model's input size.
	Image image.Image

	ClassIndex int
	ClassName  string

	// Confidence is the probability of the predicted class.
	Confidence float64

	// Probabilities of all classes, in the order of Classifier.ClassNames.
	Probabilities []float64
}

// New loads the model saved in modelDir and compiles it for inference.
//
// The list of classes is read from the model itself. Errors wrap foodclassifier.ErrModelLoad.
func New(backend backends.Backend, modelDir string) (*Classifier, error) {
	ctx, err := foodclassifier.LoadModel(modelDir)
	if err != nil {
		return nil, err
	}
	return NewFromContext(backend, ctx)
}

// NewFromContext creates a Classifier for a model already in ctx, for instance one just trained.
func NewFromContext(backend backends.Backend, ctx *context.Context) (*Classifier, error) {
	classNames, err := foodclassifier.ClassNames(ctx)
	if err != nil {
		return nil, err
	}
	c := &Classifier{
		backend:    backend,
		ctx:        ctx.Reuse(), // Mark it to reuse variables: it will be an error to create a new variable.
		classNames: classNames,
		imageSize:  context.GetParamOr(ctx, foodclassifier.ParamImageSize, foodclassifier.DefaultConfig.ImageSize),
	}
	c.exec, err = context.NewExec(c.backend, c.ctx, func(ctx *context.Context, image *graph.Node) *graph.Node {
		image = graph.ExpandAxes(image, 0) // Create a batch dimension of size 1.
		logits := foodclassifier.ModelGraph(ctx, nil, []*graph.Node{image})[0]
		probs := foodclassifier.Probabilities(logits)
		return graph.Reshape(probs, len(classNames)) // Remove batch dimension.
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to compile model")
	}
	return c, nil
}

// ClassNames returns the classes of the model, indexed by class index.
func (c *Classifier) ClassNames() []string { return slices.Clone(c.classNames) }

// ImageSize is the height and width of the images fed to the model.
func (c *Classifier) ImageSize() int { return c.imageSize }

// Predict loads the image at path and classifies it.
//
// A missing file returns foodclassifier.ErrNotFound, an undecodable file foodclassifier.ErrDecode.
func (c *Classifier) Predict(path string) (*Prediction, error) {
	img, err := foodclassifier.LoadImage(path)
	if err != nil {
		return nil, err
	}
	pred, err := c.PredictImage(img)
	if err != nil {
		return nil, errors.WithMessagef(err, "classifying %q", path)
	}
	pred.Path = path
	return pred, nil
}

// PredictImage classifies an image already in memory.
func (c *Classifier) PredictImage(img image.Image) (*Prediction, error) {
	img = foodclassifier.ResizeImage(img, c.imageSize)
	input := images.ToTensor(dtypes.Float32).Single(img)
	var probs []float32
	err := exceptions.TryCatch[error](func() {
		outputs, err := c.exec.Exec(input)
		if err != nil {
			panic(err)
		}
		probs = outputs[0].Value().([]float32)
		outputs[0].FinalizeAll()
	})
	if err != nil {
		return nil, err
	}
	return c.decode(img, probs)
}

// decode converts the probabilities to a Prediction.
func (c *Classifier) decode(img image.Image, probs []float32) (*Prediction, error) {
	if len(probs) == 0 {
		return nil, errors.Wrapf(foodclassifier.ErrShapeMismatch, "model returned no probabilities")
	}
	pred := &Prediction{Image: img, Probabilities: make([]float64, len(probs))}
	for ii, p := range probs {
		pred.Probabilities[ii] = float64(p)
		if p > probs[pred.ClassIndex] {
			pred.ClassIndex = ii
		}
	}
	name, err := ClassName(c.classNames, pred.ClassIndex)
	if err != nil {
		return nil, err
	}
	pred.ClassName = name
	pred.Confidence = pred.Probabilities[pred.ClassIndex]
	return pred, nil
}

// ClassName returns the name of the class index, or an error wrapping foodclassifier.ErrClassIndex
// if the index is not in classNames.
func ClassName(classNames []string, index int) (string, error) {
	if index < 0 || index >= len(classNames) {
		return "", errors.Wrapf(foodclassifier.ErrClassIndex, "class index %d not in %d classes %q",
			index, len(classNames), classNames)
	}
	return classNames[index], nil
}
