// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ModelInfoFileName is the metadata file saved along the checkpoint in the model directory.
const ModelInfoFileName = "model_info.json"

// ModelInfo describes a saved model. The checkpoint itself is the source of truth; this is
// informative for tools and humans.
type ModelInfo struct {
	RunID         string    `json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
	Classes       []string  `json:"classes"`
	ImageSize     int       `json:"image_size"`
	Backbone      string    `json:"backbone"`
	NumParameters int       `json:"num_parameters"`
	GlobalStep    int64     `json:"global_step"`
}

// SaveModel saves the model variables and hyperparameters (including "class_names") in dir, replacing
// any previous model there. The checkpoint is first written to a temporary sibling directory, so a
// failure doesn't destroy the previous model.
func SaveModel(ctx *context.Context, dir string) error {
	dir, err := fsutil.ReplaceTildeInDir(dir)
	if err != nil {
		return err
	}
	classNames, err := ClassNames(ctx)
	if err != nil {
		return err
	}
	parent := filepath.Dir(dir)
	if err = os.MkdirAll(parent, checkpoints.DirPermMode); err != nil {
		return fsError(err, "failed to create %q", parent)
	}
	tmpDir, err := os.MkdirTemp(parent, filepath.Base(dir)+".tmp-*")
	if err != nil {
		return fsError(err, "failed to create temporary model directory in %q", parent)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	checkpoint, err := checkpoints.Build(ctx).
		Dir(tmpDir).
		ExcludeParams(ParamsExcludedFromSaving...).
		Keep(1).
		Done()
	if err != nil {
		return errors.WithMessagef(err, "failed to configure checkpoint in %q", tmpDir)
	}
	if err = checkpoint.Save(); err != nil {
		return errors.WithMessagef(err, "failed to save model")
	}

	info := &ModelInfo{
		RunID:         uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Classes:       classNames,
		ImageSize:     context.GetParamOr(ctx, ParamImageSize, DefaultConfig.ImageSize),
		Backbone:      context.GetParamOr(ctx, ParamBackbone, "inception"),
		NumParameters: ctx.NumParameters(),
		GlobalStep:    optimizers.GetGlobalStep(ctx),
	}
	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode model info")
	}
	if err = os.WriteFile(filepath.Join(tmpDir, ModelInfoFileName), infoJSON, 0644); err != nil {
		return fsError(err, "failed to write %s", ModelInfoFileName)
	}

	if err = os.RemoveAll(dir); err != nil {
		return fsError(err, "failed to remove previous model in %q", dir)
	}
	if err = os.Rename(tmpDir, dir); err != nil {
		return fsError(err, "failed to move model to %q", dir)
	}
	klog.Infof("Model saved to %q (%s parameters, run %s)", dir, humanize.Comma(int64(info.NumParameters)), info.RunID)
	return nil
}

// LoadModel loads a model saved with SaveModel. The returned context holds the variables and the
// hyperparameters of the model, including its list of classes.
//
// Errors wrap ErrModelLoad, and also ErrNotFound if dir doesn't exist.
func LoadModel(dir string) (*context.Context, error) {
	dir, err := fsutil.ReplaceTildeInDir(dir)
	if err != nil {
		return nil, errors.Wrapf(withKind(ErrModelLoad, err), "model directory %q", dir)
	}
	if fi, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(withKind(ErrModelLoad, fsError(err, "stat")), "model directory %q", dir)
	} else if !fi.IsDir() {
		return nil, errors.Wrapf(ErrModelLoad, "model path %q is not a directory", dir)
	}

	// Hyperparameters in the checkpoint overwrite the defaults, so the same model is built.
	// Variables are loaded immediately, so graphs built on the context reuse them.
	ctx := CreateDefaultContext()
	if _, err = checkpoints.Load(ctx).Dir(dir).Immediate().Done(); err != nil {
		return nil, errors.Wrapf(withKind(ErrModelLoad, err), "failed to load model from %q", dir)
	}
	if _, err = ClassNames(ctx); err != nil {
		return nil, errors.Wrapf(withKind(ErrModelLoad, err), "invalid model in %q", dir)
	}
	// All backbone variables are in the checkpoint: no need for the pre-trained weights files.
	ctx.SetParam(ParamInceptionPretrained, false)
	return ctx, nil
}

// ReadModelInfo reads the metadata saved with the model.
func ReadModelInfo(dir string) (*ModelInfo, error) {
	dir, err := fsutil.ReplaceTildeInDir(dir)
	if err != nil {
		return nil, err
	}
	contents, err := os.ReadFile(filepath.Join(dir, ModelInfoFileName))
	if err != nil {
		return nil, fsError(err, "failed to read model info in %q", dir)
	}
	info := &ModelInfo{}
	if err = json.Unmarshal(contents, info); err != nil {
		return nil, errors.Wrapf(withKind(ErrModelLoad, err), "failed to parse %s in %q", ModelInfoFileName, dir)
	}
	return info, nil
}
