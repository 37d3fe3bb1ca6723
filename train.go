// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"math"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// NewTrainer creates the train.Trainer for the model configured in ctx: categorical cross-entropy loss,
// the optimizer from the context and categorical accuracy metrics.
// If the model variables already exist in ctx, they are reused.
func NewTrainer(backend backends.Backend, ctx *context.Context) *train.Trainer {
	if hasModelVariables(ctx) {
		ctx = ctx.Reuse()
	}
	meanAccuracyMetric := NewMeanCategoricalAccuracy("Mean Accuracy", "#acc")
	movingAccuracyMetric := NewMovingAverageCategoricalAccuracy("Moving Average Accuracy", "~acc", 0.01)
	return train.NewTrainer(backend, ctx, ModelGraph,
		losses.CategoricalCrossEntropyLogits,
		optimizers.FromContext(ctx),
		[]metrics.Interface{movingAccuracyMetric}, // trainMetrics
		[]metrics.Interface{meanAccuracyMetric})   // evalMetrics
}

// EvalLossAndAccuracy evaluates the dataset and returns its mean loss and accuracy.
// An empty dataset returns NaN for both.
func EvalLossAndAccuracy(trainer *train.Trainer, ds *Dataset) (loss, accuracy float64, err error) {
	loss, accuracy = math.NaN(), math.NaN()
	if len(ds.Samples()) == 0 {
		return
	}
	ds.Reset()
	defer ds.Reset()
	err = exceptions.TryCatch[error](func() {
		values := trainer.Eval(ds)
		for ii, desc := range trainer.EvalMetrics() {
			value := shapes.ConvertTo[float64](values[ii].Value())
			switch desc.MetricType() {
			case metrics.LossMetricType:
				loss = value
			case metrics.AccuracyMetricType:
				accuracy = value
			}
		}
	})
	if err != nil {
		err = errors.WithMessagef(err, "failed to evaluate dataset %q", ds.Name())
	}
	return
}

// Train the classifier on the images in config.DataDir.
//
// The list of classes is discovered from the data and stored in ctx (hyperparameter "class_names"),
// the backbone is prepared (weights downloaded if needed) and the model is trained for "num_epochs"
// epochs. After each epoch the train and validation datasets are evaluated and recorded in the
// returned History.
func Train(backend backends.Backend, ctx *context.Context, config *Config) (*History, error) {
	ds, err := NewDatasets(config)
	if err != nil {
		return nil, err
	}
	classNames := ds.Partition.ClassNames
	ctx.SetParam(ParamClassNames, classNames)
	klog.Infof("Training on %d classes %q: %d train, %d validation and %d test images",
		len(classNames), classNames, len(ds.Partition.Train), len(ds.Partition.Validation), len(ds.Partition.Test))
	if len(ds.Partition.Validation) == 0 {
		klog.Warningf("No validation images: increase %q or add more images", ParamValidationFraction)
	}
	if err := PrepareBackbone(ctx); err != nil {
		return nil, errors.WithMessage(err, "failed to prepare backbone")
	}

	numEpochs := context.GetParamOr(ctx, ParamNumEpochs, 10)
	var trainDS train.Dataset = ds.Train
	if readAhead := context.GetParamOr(ctx, ParamReadAhead, 0); readAhead > 0 {
		trainDS = datasets.ReadAhead(ds.Train, readAhead)
	}

	history := NewHistory()
	err = exceptions.TryCatch[error](func() {
		trainer := NewTrainer(backend, ctx)
		loop := train.NewLoop(trainer)
		if !config.Quiet {
			commandline.AttachProgressBar(loop) // Attaches a progress bar to the loop.
		}
		for epoch := 1; epoch <= numEpochs; epoch++ {
			start := time.Now()
			if _, err := loop.RunEpochs(trainDS, 1); err != nil {
				panic(errors.WithMessagef(err, "training epoch %d of %d", epoch, numEpochs))
			}
			values := make(map[string]float64, len(HistoryMetrics))
			loss, acc, err := EvalLossAndAccuracy(trainer, ds.TrainEval)
			if err != nil {
				panic(err)
			}
			values[MetricLoss], values[MetricAccuracy] = loss, acc
			loss, acc, err = EvalLossAndAccuracy(trainer, ds.Validation)
			if err != nil {
				panic(err)
			}
			values[MetricValLoss], values[MetricValAccuracy] = loss, acc
			history.Append(epoch, values)
			klog.Infof("Epoch %d/%d (%s): loss=%.4f accuracy=%.2f%% val_loss=%.4f val_accuracy=%.2f%%",
				epoch, numEpochs, commandline.FormatDuration(time.Since(start)),
				values[MetricLoss], 100*values[MetricAccuracy], values[MetricValLoss], 100*values[MetricValAccuracy])
		}
	})
	if err != nil {
		return nil, err
	}
	if epoch, best := history.Best(MetricValAccuracy); epoch > 0 {
		klog.V(1).Infof("Best validation accuracy %.2f%% at epoch %d", 100*best, epoch)
	}
	return history, nil
}
