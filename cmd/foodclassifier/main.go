// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// foodclassifier trains, evaluates and runs a food image classifier.
//
// Without any of -inventory, -train, -eval or -predict it runs the whole pipeline: inventory, training
// (saving the model and the reports) and evaluation. Images given as arguments are classified with
// the saved model.
//
// Examples:
//
//	foodclassifier -data ~/datasets/fruits
//	foodclassifier -train -data ~/datasets/fruits -set "num_epochs=3;backbone=cnn"
//	foodclassifier -predict apple.jpg banana.png
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/Dathkousalya/image-classification-for-food/classifier"
	"github.com/Dathkousalya/image-classification-for-food/display"
	"github.com/Dathkousalya/image-classification-for-food/report"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagDataDir  = flag.String("data", "", "Dataset directory: one subdirectory per class with its images.")
	flagModelDir = flag.String("model", foodclassifier.DefaultModelDir, "Directory where the trained model is saved and loaded from.")

	flagInventory = flag.Bool("inventory", false, "Print the number of images per class.")
	flagTrain     = flag.Bool("train", false, "Train the model and save it to -model.")
	flagEval      = flag.Bool("eval", false, "Evaluate the saved model on the held-out images.")
	flagPredict   = flag.Bool("predict", false, "Classify the images given as arguments with the saved model.")

	flagWindow   = flag.Bool("window", false, "Display predictions in a desktop window.")
	flagPlotsDir = flag.String("plots_dir", ".", "Directory where training curves, model diagram and history are saved.")
	flagQuiet    = flag.Bool("quiet", false, "Disable progress bars and tables.")
)

// exitCodes per error kind, so scripts can tell the failures apart.
var exitCodes = map[error]int{
	foodclassifier.ErrNotFound:      2,
	foodclassifier.ErrDecode:        3,
	foodclassifier.ErrShapeMismatch: 4,
	foodclassifier.ErrModelLoad:     5,
	foodclassifier.ErrClassIndex:    6,
	foodclassifier.ErrIO:            7,
}

func main() {
	ctx := foodclassifier.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *settings))
	if len(paramsSet) > 0 {
		klog.V(1).Infof("Hyperparameters set:\n%s", commandline.SprintModifiedContextSettings(ctx, paramsSet))
	}

	runAll := !*flagInventory && !*flagTrain && !*flagEval && !*flagPredict
	if runAll && flag.NArg() > 0 {
		*flagPredict = true
		runAll = false
	}

	var preds []*classifier.Prediction
	err := exceptions.TryCatch[error](func() {
		if runAll || *flagInventory {
			must.M(inventory())
		}
		if runAll || *flagTrain || *flagEval {
			backend := must.M1(backends.New())
			klog.V(1).Infof("Backend %q: %s", backend.Name(), backend.Description())
			if runAll || *flagTrain {
				must.M(trainModel(backend, ctx))
			}
			if runAll || *flagEval {
				must.M(evaluateModel(backend, ctx))
			}
		}
		if *flagPredict {
			preds = must.M1(predict())
		}
	})
	if err != nil {
		exit(err)
	}
	if *flagWindow && len(preds) > 0 {
		display.ShowWindow(preds...)
	}
}

// exit reports err and terminates with the exit code of its kind.
func exit(err error) {
	code, found := exitCodes[foodclassifier.Kind(err)]
	if !found {
		code = 1
	}
	klog.Errorf("Failed: %+v", err)
	klog.Flush()
	os.Exit(code)
}

func dataDir() (string, error) {
	if *flagDataDir == "" {
		return "", errors.New("dataset directory not given, please set -data")
	}
	return fsutil.ReplaceTildeInDir(*flagDataDir)
}

func inventory() error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	counts, err := foodclassifier.Inventory(dir)
	if err != nil {
		return err
	}
	if *flagQuiet {
		foodclassifier.PrintInventory(os.Stdout, counts)
	} else {
		fmt.Println(report.InventoryTable(counts))
	}
	return nil
}

func trainModel(backend backends.Backend, ctx *context.Context) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	config := foodclassifier.NewConfigFromContext(ctx, dir)
	config.Quiet = *flagQuiet
	history, err := foodclassifier.Train(backend, ctx, config)
	if err != nil {
		return err
	}
	if err = foodclassifier.SaveModel(ctx, *flagModelDir); err != nil {
		return err
	}
	if context.GetParamOr(ctx, "plots", true) {
		writeTrainingReports(backend, ctx, history)
	}
	return nil
}

// writeTrainingReports saves the training curves, history and model diagram. Failures are logged but
// don't stop the program: the model is already saved.
func writeTrainingReports(backend backends.Backend, ctx *context.Context, history *foodclassifier.History) {
	plotsDir, err := fsutil.ReplaceTildeInDir(*flagPlotsDir)
	if err == nil {
		err = os.MkdirAll(plotsDir, 0o755)
	}
	if err != nil {
		klog.Errorf("Reports not saved: %+v", err)
		return
	}
	logIfError := func(what string, err error) {
		if err != nil {
			klog.Errorf("Failed to save %s: %+v", what, err)
		}
	}
	logIfError("training curves", report.WriteTrainingCurves(history, filepath.Join(plotsDir, foodclassifier.DefaultCurvesFile)))
	logIfError("history", report.WriteHistoryCSV(history, filepath.Join(plotsDir, foodclassifier.DefaultHistoryFile)))
	logIfError("notebook plots", report.DisplayTrainingCurves(history))

	layers, err := foodclassifier.SummarizeModel(backend, ctx)
	if err != nil {
		logIfError("model summary", err)
		return
	}
	if !*flagQuiet {
		fmt.Println(report.LayersTable(layers))
	}
	logIfError("model diagram", report.WriteModelDiagram(layers, filepath.Join(plotsDir, foodclassifier.DefaultDiagramFile)))
}

func evaluateModel(backend backends.Backend, ctx *context.Context) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	config := foodclassifier.NewConfigFromContext(ctx, dir)
	config.Quiet = *flagQuiet
	eval, err := foodclassifier.Evaluate(backend, *flagModelDir, config)
	if err != nil {
		return err
	}
	if *flagQuiet {
		eval.Print(os.Stdout)
	} else {
		eval.PrintScores(os.Stdout)
		fmt.Println(report.ClassificationReportTable(eval.Report))
		fmt.Println(report.ConfusionMatrixTable(eval.ClassNames, eval.Confusion))
	}
	report.DisplayEvaluation(eval)
	return nil
}

// predict classifies the images given as arguments. Each failing image is reported; the first error
// is returned after all images are tried.
func predict() ([]*classifier.Prediction, error) {
	if flag.NArg() == 0 {
		return nil, errors.New("no images given to -predict")
	}
	backend, err := backends.New()
	if err != nil {
		return nil, err
	}
	c, err := classifier.New(backend, *flagModelDir)
	if err != nil {
		return nil, err
	}
	var preds []*classifier.Prediction
	var firstErr error
	for _, path := range flag.Args() {
		pred, err := c.Predict(path)
		if err != nil {
			klog.Errorf("%s: %v", path, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		preds = append(preds, pred)
	}
	if err := display.Show(os.Stdout, preds...); err != nil {
		return preds, err
	}
	return preds, firstErr
}
