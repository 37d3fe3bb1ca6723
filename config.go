// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gopjrt/dtypes"
)

// Hyperparameter names used in the context.
const (
	// ParamClassNames holds the ordered list of class names ([]string). The model output width is its length
	// and it is saved with the model checkpoint, so the label mapping travels with the weights.
	ParamClassNames = "class_names"

	// ParamBackbone selects the frozen feature extractor: "inception" or "cnn".
	ParamBackbone = "backbone"

	ParamImageSize          = "image_size"
	ParamBatchSize          = "batch_size"
	ParamEvalBatchSize      = "eval_batch_size"
	ParamNumEpochs          = "num_epochs"
	ParamValidationFraction = "validation_fraction"
	ParamTestFraction       = "test_fraction"
	ParamSeed               = "seed"
	ParamInvalidImages      = "invalid_images"
	ParamHeadHiddenNodes    = "head_hidden_nodes"
	ParamHeadDropoutRate    = "head_dropout_rate"

	// ParamAugmentationAngleStdDev is the standard deviation, in degrees, of random rotations. 0 disables it.
	ParamAugmentationAngleStdDev = "augmentation_angle_stddev"

	// ParamAugmentationRandomFlips randomly flips training images horizontally.
	ParamAugmentationRandomFlips = "augmentation_random_flips"

	// ParamDecodeParallelism is the number of images decoded in parallel. -1 uses the number of CPUs, 0 decodes
	// in the calling goroutine.
	ParamDecodeParallelism = "decode_parallelism"

	// ParamReadAhead is the number of training batches prepared in the background. 0 disables it.
	ParamReadAhead = "read_ahead"

	// ParamDataDir is where the backbone weights are downloaded. It is not saved with the model.
	ParamDataDir = "data_dir"

	// ParamInceptionPretrained uses the ImageNet weights for the "inception" backbone.
	ParamInceptionPretrained = "inception_pretrained"
)

// Values accepted by ParamInvalidImages.
const (
	InvalidImagesFail = "fail"
	InvalidImagesSkip = "skip"
)

const (
	// DefaultModelDir is where the trained model is saved, relative to the working directory.
	DefaultModelDir = "food_classification_model"

	// DefaultCurvesFile and DefaultDiagramFile are the reporting outputs.
	DefaultCurvesFile  = "training_curves.png"
	DefaultDiagramFile = "model_plot.png"
	DefaultHistoryFile = "history.csv"
)

// ParamsExcludedFromSaving are run-only hyperparameters, not saved with the model.
var ParamsExcludedFromSaving = []string{ParamDataDir, ParamNumEpochs, ParamReadAhead, ParamDecodeParallelism, "plots"}

// Config of the data pipeline. Build it from a context with NewConfigFromContext.
type Config struct {
	// DataDir is the dataset root: one subdirectory per class.
	DataDir string

	DType dtypes.DType

	// ImageSize is used for both height and width of the images fed to the model.
	ImageSize int

	BatchSize, EvalBatchSize int

	// ValidationFraction and TestFraction of each class held out. The rest is used for training.
	ValidationFraction, TestFraction float64

	// Seed for the training shuffle and augmentation.
	Seed int64

	// AngleStdDev for angle perturbation of the image. Only active if > 0.
	AngleStdDev float64

	// FlipRandomly the image, for data augmentation. Only active if true.
	FlipRandomly bool

	// InvalidImages is either InvalidImagesFail or InvalidImagesSkip.
	InvalidImages string

	// DecodeParallelism is the number of images decoded in parallel: -1 for the number of CPUs.
	DecodeParallelism int

	// Quiet disables progress bars.
	Quiet bool
}

// DefaultConfig holds the default values, also used by CreateDefaultContext.
var DefaultConfig = Config{
	DType:              dtypes.Float32,
	ImageSize:          128,
	BatchSize:          16,
	EvalBatchSize:      16,
	ValidationFraction: 0.2,
	TestFraction:       0.0,
	Seed:               42,
	InvalidImages:      InvalidImagesFail,
	DecodeParallelism:  -1,
}

// CreateDefaultContext sets the context with default hyperparameters to use with Train.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.SetParams(map[string]any{
		ParamBackbone:  "inception",
		ParamNumEpochs: 10,

		ParamImageSize:          DefaultConfig.ImageSize,
		ParamBatchSize:          DefaultConfig.BatchSize,
		ParamEvalBatchSize:      DefaultConfig.EvalBatchSize,
		ParamValidationFraction: DefaultConfig.ValidationFraction,
		ParamTestFraction:       DefaultConfig.TestFraction,
		ParamSeed:               int(DefaultConfig.Seed),
		ParamInvalidImages:      DefaultConfig.InvalidImages,

		// No augmentation by default: images are only rescaled.
		ParamAugmentationAngleStdDev: 0.0,
		ParamAugmentationRandomFlips: false,

		// Classification head on top of the backbone.
		ParamHeadHiddenNodes: 512,
		ParamHeadDropoutRate: 0.5,

		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 1e-3,
		optimizers.ParamAdamEpsilon:  1e-7,
		layers.ParamDropoutRate:      0.0,

		ParamReadAhead:           2,
		ParamDecodeParallelism:   DefaultConfig.DecodeParallelism,
		ParamInceptionPretrained: true,
		ParamDataDir:             "~/.cache/foodclassifier",
		"plots":                  true,
	})
	return ctx
}

// NewConfigFromContext returns the data pipeline configuration for dataDir, with values taken
// from the context hyperparameters.
func NewConfigFromContext(ctx *context.Context, dataDir string) *Config {
	return &Config{
		DataDir:            dataDir,
		DType:              DefaultConfig.DType,
		ImageSize:          context.GetParamOr(ctx, ParamImageSize, DefaultConfig.ImageSize),
		BatchSize:          context.GetParamOr(ctx, ParamBatchSize, DefaultConfig.BatchSize),
		EvalBatchSize:      context.GetParamOr(ctx, ParamEvalBatchSize, DefaultConfig.EvalBatchSize),
		ValidationFraction: context.GetParamOr(ctx, ParamValidationFraction, DefaultConfig.ValidationFraction),
		TestFraction:       context.GetParamOr(ctx, ParamTestFraction, DefaultConfig.TestFraction),
		Seed:               int64(context.GetParamOr(ctx, ParamSeed, int(DefaultConfig.Seed))),
		AngleStdDev:        context.GetParamOr(ctx, ParamAugmentationAngleStdDev, 0.0),
		FlipRandomly:       context.GetParamOr(ctx, ParamAugmentationRandomFlips, false),
		InvalidImages:      context.GetParamOr(ctx, ParamInvalidImages, DefaultConfig.InvalidImages),
		DecodeParallelism:  context.GetParamOr(ctx, ParamDecodeParallelism, DefaultConfig.DecodeParallelism),
	}
}
