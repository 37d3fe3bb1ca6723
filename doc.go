// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package foodclassifier trains, evaluates and saves an image classifier for food categories, by transfer
// learning: a frozen pre-trained backbone (InceptionV3) with a small trainable head on top.
//
// The dataset is a directory with one subdirectory per class, each holding the images of that class:
//
//	fruits/
//	  Apple/   img001.jpg, img002.jpg, ...
//	  Banana/  ...
//
// The classes are discovered from the data (sorted by name, the label is the index) and stored in the
// model hyperparameters, so a saved model carries its own label mapping.
//
// Typical use:
//
//	backend := backends.New()
//	ctx := foodclassifier.CreateDefaultContext()
//	config := foodclassifier.NewConfigFromContext(ctx, dataDir)
//	history, err := foodclassifier.Train(backend, ctx, config)
//	...
//	err = foodclassifier.SaveModel(ctx, foodclassifier.DefaultModelDir)
//	...
//	eval, err := foodclassifier.Evaluate(backend, foodclassifier.DefaultModelDir, config)
//
// See package classifier for single-image inference with a saved model.
package foodclassifier
