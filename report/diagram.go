// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"image/color"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	// DiagramWidth of the model diagram image. The height grows with the number of layers.
	DiagramWidth = 5 * vg.Inch

	// DiagramLayerHeight is the height used by each layer in the model diagram.
	DiagramLayerHeight = 0.9 * vg.Inch

	frozenColor    = color.RGBA{R: 0xd9, G: 0xd9, B: 0xd9, A: 0xff}
	trainableColor = color.RGBA{R: 0xb7, G: 0xe1, B: 0xcd, A: 0xff}
)

const (
	boxHalfWidth  = 0.45
	boxHalfHeight = 0.3
)

// LayerLabel is the text shown for a layer in the model diagram.
func LayerLabel(l foodclassifier.LayerSummary) string {
	label := fmt.Sprintf("%s\n%s", l.Name, l.Shape)
	if l.NumParameters > 0 {
		kind := "frozen"
		if l.Trainable {
			kind = "trainable"
		}
		label += fmt.Sprintf("\n%s params (%s)", humanize.Comma(int64(l.NumParameters)), kind)
	}
	return label
}

// WriteModelDiagram saves an image of the model: one box per layer, from the input at the top to the
// classification output at the bottom, each with its output shape and number of parameters.
// Trainable layers are drawn in a different color than frozen ones.
func WriteModelDiagram(layers []foodclassifier.LayerSummary, path string) error {
	if len(layers) == 0 {
		return errors.New("no layers to draw")
	}
	p := plot.New()
	p.Title.Text = "Model"
	p.HideAxes()
	n := len(layers)
	p.X.Min, p.X.Max = -0.5, 0.5
	p.Y.Min, p.Y.Max = -0.5, float64(n)-0.5

	labels := plotter.XYLabels{XYs: make(plotter.XYs, n), Labels: make([]string, n)}
	for ii, l := range layers {
		y := float64(n - 1 - ii)
		box, err := plotter.NewPolygon(plotter.XYs{
			{X: -boxHalfWidth, Y: y - boxHalfHeight},
			{X: boxHalfWidth, Y: y - boxHalfHeight},
			{X: boxHalfWidth, Y: y + boxHalfHeight},
			{X: -boxHalfWidth, Y: y + boxHalfHeight},
		})
		if err != nil {
			return errors.Wrapf(err, "failed to draw layer %q", l.Name)
		}
		box.Color = frozenColor
		if l.Trainable {
			box.Color = trainableColor
		}
		box.LineStyle.Width = vg.Points(1)
		p.Add(box)

		if ii > 0 {
			// Arrow from the previous layer.
			arrow, err := plotter.NewLine(plotter.XYs{{X: 0, Y: y + 1 - boxHalfHeight}, {X: 0, Y: y + boxHalfHeight}})
			if err != nil {
				return errors.Wrapf(err, "failed to connect layer %q", l.Name)
			}
			arrow.LineStyle.Width = vg.Points(1.5)
			p.Add(arrow)
		}
		labels.XYs[ii] = plotter.XY{X: 0, Y: y}
		labels.Labels[ii] = LayerLabel(l)
	}
	texts, err := plotter.NewLabels(labels)
	if err != nil {
		return errors.Wrap(err, "failed to create layer labels")
	}
	for ii := range texts.TextStyle {
		texts.TextStyle[ii].XAlign = draw.XCenter
		texts.TextStyle[ii].YAlign = draw.YCenter
	}
	p.Add(texts)

	height := DiagramLayerHeight*vg.Length(n) + vg.Inch/2
	if err := p.Save(DiagramWidth, height, path); err != nil {
		return errors.Wrapf(err, "failed to save model diagram to %q", path)
	}
	return nil
}
