// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package display

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/Dathkousalya/image-classification-for-food/classifier"
)

// WindowTitle of the predictions window.
var WindowTitle = "Food Classifier"

// predictionCard holds the image and its label.
func predictionCard(pred *classifier.Prediction) fyne.CanvasObject {
	img := canvas.NewImageFromImage(pred.Image)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(float32(ImageWidth), float32(ImageWidth)))
	label := widget.NewLabel(Text(pred))
	label.Wrapping = fyne.TextWrapWord
	label.Alignment = fyne.TextAlignCenter
	return container.NewBorder(nil, label, nil, nil, img)
}

// ShowWindow opens a desktop window with the predicted images and their labels, and blocks until the
// window is closed. It must be called from the main goroutine.
func ShowWindow(preds ...*classifier.Prediction) {
	a := app.New()
	w := a.NewWindow(WindowTitle)
	cards := make([]fyne.CanvasObject, 0, len(preds))
	for _, pred := range preds {
		cards = append(cards, predictionCard(pred))
	}
	cellSize := fyne.NewSize(float32(ImageWidth)+20, float32(ImageWidth)+80)
	w.SetContent(container.NewVScroll(container.NewGridWrap(cellSize, cards...)))
	w.Resize(fyne.NewSize(cellSize.Width*float32(min(len(preds), 4))+20, cellSize.Height+20))
	w.ShowAndRun()
}
