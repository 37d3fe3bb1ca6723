// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package report renders training and evaluation results: training curves and model diagram
// images, history CSV files, console tables and, when running in a GoNB notebook, inline plots.
package report

import (
	"math"
	"os"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// CurvesWidth and CurvesHeight are the dimensions of the training curves image.
var (
	CurvesWidth  = 12 * vg.Inch
	CurvesHeight = 4 * vg.Inch
)

// historyXYs returns the (epoch, value) points of a metric, skipping NaNs and infinities.
func historyXYs(h *foodclassifier.History, metric string) plotter.XYs {
	values := h.Metrics[metric]
	xys := make(plotter.XYs, 0, len(values))
	for ii, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(h.Epochs[ii]), Y: v})
	}
	return xys
}

// newCurvesPlot plots the train and validation series of one metric.
func newCurvesPlot(h *foodclassifier.History, title, yLabel, trainMetric, valMetric string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	var lines []any
	if xys := historyXYs(h, trainMetric); len(xys) > 0 {
		lines = append(lines, "Train", xys)
	}
	if xys := historyXYs(h, valMetric); len(xys) > 0 {
		lines = append(lines, "Validation", xys)
	}
	if len(lines) > 0 {
		if err := plotutil.AddLinePoints(p, lines...); err != nil {
			return nil, errors.Wrapf(err, "failed to plot %s", title)
		}
	}
	return p, nil
}

// WriteTrainingCurves saves a PNG image with two side-by-side charts: accuracy and loss per epoch,
// each with a train and a validation series.
func WriteTrainingCurves(h *foodclassifier.History, path string) error {
	if h == nil || h.Len() == 0 {
		return errors.New("no training history to plot")
	}
	accPlot, err := newCurvesPlot(h, "Model Accuracy", "Accuracy",
		foodclassifier.MetricAccuracy, foodclassifier.MetricValAccuracy)
	if err != nil {
		return err
	}
	lossPlot, err := newCurvesPlot(h, "Model Loss", "Loss",
		foodclassifier.MetricLoss, foodclassifier.MetricValLoss)
	if err != nil {
		return err
	}

	plots := [][]*plot.Plot{{accPlot, lossPlot}}
	img := vgimg.New(CurvesWidth, CurvesHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 1,
		Cols: 2,
		PadX: vg.Millimeter * 4,
		PadY: vg.Millimeter * 2,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for jj, p := range plots[0] {
		p.Draw(canvases[0][jj])
	}
	return writePNG(img, path)
}

// writePNG saves the canvas in path.
func writePNG(img *vgimg.Canvas, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err = png.WriteTo(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %q", path)
	}
	return errors.Wrapf(f.Close(), "failed to close %q", path)
}
