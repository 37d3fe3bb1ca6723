// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package display

import (
	"bytes"
	"image"
	"testing"

	"github.com/Dathkousalya/image-classification-for-food/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrediction() *classifier.Prediction {
	return &classifier.Prediction{
		Path:          "photos/apple.jpg",
		Image:         image.NewRGBA(image.Rect(0, 0, 4, 4)),
		ClassIndex:    0,
		ClassName:     "Apple",
		Confidence:    0.9125,
		Probabilities: []float64{0.9125, 0.0875},
	}
}

func TestText(t *testing.T) {
	pred := testPrediction()
	assert.Equal(t, "Predicted Class Name: Apple", Label(pred))
	assert.Equal(t, "photos/apple.jpg: Predicted Class Name: Apple (confidence 91.25%)", Text(pred))
	pred.Path = ""
	assert.Equal(t, "Predicted Class Name: Apple (confidence 91.25%)", Text(pred))
}

func TestShow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Show(&buf, testPrediction(), testPrediction()))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("Predicted Class Name: Apple")))
}

func TestToHTML(t *testing.T) {
	h, err := ToHTML(testPrediction())
	require.NoError(t, err)
	assert.Contains(t, h, "data:image/png;base64,")
	assert.Contains(t, h, "<b>Predicted Class Name: Apple</b>")
}
