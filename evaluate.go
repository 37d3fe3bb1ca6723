// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"fmt"
	"io"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Evaluation of a model on a held-out dataset.
type Evaluation struct {
	// Dataset is the name of the evaluated split.
	Dataset    string
	ClassNames []string

	// Loss is the mean categorical cross-entropy, Accuracy the fraction of correct predictions.
	Loss, Accuracy float64

	Confusion ConfusionMatrix
	Report    *ClassificationReport
}

// PrintScores prints only the accuracy and loss.
func (e *Evaluation) PrintScores(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Test Accuracy: %.2f%%\n", 100*e.Accuracy)
	_, _ = fmt.Fprintf(w, "Test Loss: %.4f\n", e.Loss)
}

// Print the results as plain text: "Test Accuracy: 91.25%", "Test Loss: 0.2531", the classification
// report and the confusion matrix (rows are the true classes).
func (e *Evaluation) Print(w io.Writer) {
	e.PrintScores(w)
	if e.Report != nil {
		_, _ = fmt.Fprintln(w, "\nClassification Report:")
		e.Report.Print(w)
	}
	if e.Confusion != nil {
		_, _ = fmt.Fprintln(w, "\nConfusion Matrix:")
		e.Confusion.Print(w, e.ClassNames)
	}
}

// modelConfig returns a copy of config with the split and image parameters the model in ctx was
// trained with, so the held-out images are the same ones used during training.
func modelConfig(ctx *context.Context, config *Config) *Config {
	cfg := *config
	cfg.ImageSize = context.GetParamOr(ctx, ParamImageSize, cfg.ImageSize)
	cfg.ValidationFraction = context.GetParamOr(ctx, ParamValidationFraction, cfg.ValidationFraction)
	cfg.TestFraction = context.GetParamOr(ctx, ParamTestFraction, cfg.TestFraction)
	cfg.EvalBatchSize = context.GetParamOr(ctx, ParamEvalBatchSize, cfg.EvalBatchSize)
	return &cfg
}

// Evaluate loads the model saved in modelDir and evaluates it on the test split of config.DataDir.
// If the split has no test images (TestFraction is 0), the validation split is used instead.
//
// The split is recreated with the same rules used in training, and the classes found in the data
// must be the same as the ones the model was trained with.
func Evaluate(backend backends.Backend, modelDir string, config *Config) (*Evaluation, error) {
	ctx, err := LoadModel(modelDir)
	if err != nil {
		return nil, err
	}
	classNames, err := ClassNames(ctx)
	if err != nil {
		return nil, err
	}
	config = modelConfig(ctx, config)

	p, err := SplitDataset(config.DataDir, config.ValidationFraction, config.TestFraction)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(p.ClassNames, classNames) {
		return nil, errors.Wrapf(ErrShapeMismatch, "dataset in %q has classes %q, but model was trained with %q",
			config.DataDir, p.ClassNames, classNames)
	}
	split := SplitTest
	if len(p.Test) == 0 {
		klog.Warningf("No test images (%s=%g), evaluating on the validation images instead", ParamTestFraction, config.TestFraction)
		split = SplitValidation
	}
	samples, err := ValidateSamples(p.Subset(split), config)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no %s images to evaluate in %q", split, config.DataDir)
	}
	ds := NewDataset(split.String(), samples, len(classNames), config, config.EvalBatchSize, nil)
	return EvaluateDataset(backend, ctx, ds)
}

// EvaluateDataset evaluates the model in ctx on ds: mean loss and accuracy, confusion matrix and
// classification report.
func EvaluateDataset(backend backends.Backend, ctx *context.Context, ds *Dataset) (*Evaluation, error) {
	classNames, err := ClassNames(ctx)
	if err != nil {
		return nil, err
	}
	if ds.NumClasses() != len(classNames) {
		return nil, errors.Wrapf(ErrShapeMismatch, "dataset %q has %d classes, model has %d",
			ds.Name(), ds.NumClasses(), len(classNames))
	}
	e := &Evaluation{Dataset: ds.Name(), ClassNames: classNames}
	trainer := NewTrainer(backend, ctx)
	e.Loss, e.Accuracy, err = EvalLossAndAccuracy(trainer, ds)
	if err != nil {
		return nil, err
	}

	e.Confusion = NewConfusionMatrix(len(classNames))
	err = exceptions.TryCatch[error](func() {
		exec, err := context.NewExec(backend, ctx.Reuse(), func(ctx *context.Context, images *Node) *Node {
			logits := ModelGraph(ctx, nil, []*Node{images})[0]
			return ArgMax(logits, -1, dtypes.Int32)
		})
		if err != nil {
			panic(err)
		}
		ds.Reset()
		defer ds.Reset()
		for {
			images, labels, err := ds.YieldImages()
			if err == io.EOF {
				break
			}
			if err != nil {
				panic(err)
			}
			outputs, err := exec.Exec(ds.toTensor.Batch(images))
			if err != nil {
				panic(err)
			}
			predictions := outputs[0].Value().([]int32)
			outputs[0].FinalizeAll()
			for ii, label := range labels {
				if err := e.Confusion.Add(label, int(predictions[ii])); err != nil {
					panic(err)
				}
			}
		}
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to predict dataset %q", ds.Name())
	}
	e.Report, err = e.Confusion.Report(classNames)
	if err != nil {
		return nil, err
	}
	return e, nil
}
