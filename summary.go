// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
)

// LayerSummary describes one stage of the model, for the model diagram and the layers table.
type LayerSummary struct {
	Name string

	// Shape of the output, with a batch dimension of 1.
	Shape shapes.Shape

	// NumParameters is the number of scalar values in the variables of the stage.
	NumParameters int
	Trainable     bool
}

// SummarizeModel builds and runs the model configured in ctx on one blank image and returns its stages.
// The context must hold "class_names". If the model variables already exist (e.g.: after training) they
// are reused, otherwise they are created and initialized.
func SummarizeModel(backend backends.Backend, ctx *context.Context) ([]LayerSummary, error) {
	if _, err := ClassNames(ctx); err != nil {
		return nil, err
	}
	if hasModelVariables(ctx) {
		ctx = ctx.Reuse()
	}
	imageSize := context.GetParamOr(ctx, ParamImageSize, DefaultConfig.ImageSize)
	var stages []stage
	var summaries []LayerSummary
	err := exceptions.TryCatch[error](func() {
		exec, err := context.NewExec(backend, ctx, func(ctx *context.Context, images *Node) *Node {
			var logits *Node
			logits, stages = buildModel(ctx, images)
			return logits
		})
		if err != nil {
			panic(err)
		}
		blank := tensors.FromShape(shapes.Make(DefaultConfig.DType, 1, imageSize, imageSize, 3))
		outputs, err := exec.Exec(blank)
		if err != nil {
			panic(err)
		}
		outputs[0].FinalizeAll()
		for _, s := range stages {
			summary := LayerSummary{Name: s.name, Shape: s.output.Shape()}
			if s.scope != "" {
				for v := range ctx.InAbsPath("/model/" + s.scope).IterVariablesInScope() {
					summary.NumParameters += v.Shape().Size()
					summary.Trainable = summary.Trainable || v.Trainable
				}
			}
			summaries = append(summaries, summary)
		}
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to summarize model")
	}
	return summaries, nil
}

// TotalParameters sums the parameters of all stages, and of the trainable ones.
func TotalParameters(layers []LayerSummary) (total, trainable int) {
	for _, l := range layers {
		total += l.NumParameters
		if l.Trainable {
			trainable += l.NumParameters
		}
	}
	return
}
