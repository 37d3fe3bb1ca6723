// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package display shows classifier predictions: inline in a GoNB notebook (image and label), in a
// desktop window, or as plain text.
package display

import (
	"fmt"
	"html"
	"io"

	"github.com/Dathkousalya/image-classification-for-food/classifier"
	"github.com/janpfeifer/gonb/gonbui"
	"github.com/pkg/errors"
)

// ImageWidth in pixels of the images displayed in the notebook or window.
var ImageWidth = 256

// Label is the text shown with the image.
func Label(pred *classifier.Prediction) string {
	return fmt.Sprintf("Predicted Class Name: %s", pred.ClassName)
}

// Text describes the prediction in one line, including the confidence and the image path if known.
func Text(pred *classifier.Prediction) string {
	s := fmt.Sprintf("%s (confidence %.2f%%)", Label(pred), 100*pred.Confidence)
	if pred.Path != "" {
		s = fmt.Sprintf("%s: %s", pred.Path, s)
	}
	return s
}

// ToHTML renders the image embedded as PNG with its predicted label.
func ToHTML(pred *classifier.Prediction) (string, error) {
	src, err := gonbui.EmbedImageAsPNGSrc(pred.Image)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode image")
	}
	return fmt.Sprintf(`<figure style="display:inline-block; margin:0.5em">`+
		`<img src="%s" width="%d" title=%q/>`+
		`<figcaption><b>%s</b> (%.2f%%)</figcaption></figure>`,
		src, ImageWidth, html.EscapeString(pred.Path),
		html.EscapeString(Label(pred)), 100*pred.Confidence), nil
}

// Show the predictions: in a GoNB notebook the images are displayed with their labels, otherwise
// one line per prediction is written to w.
func Show(w io.Writer, preds ...*classifier.Prediction) error {
	if !gonbui.IsNotebook {
		for _, pred := range preds {
			if _, err := fmt.Fprintln(w, Text(pred)); err != nil {
				return errors.Wrap(err, "failed to write prediction")
			}
		}
		return nil
	}
	for _, pred := range preds {
		h, err := ToHTML(pred)
		if err != nil {
			return err
		}
		gonbui.DisplayHTML(h)
	}
	return nil
}
