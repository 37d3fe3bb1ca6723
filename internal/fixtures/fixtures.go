// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fixtures creates small synthetic image datasets for tests.
package fixtures

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// ClassColors used for the images of each class, by class index (in sorted class order).
// Classes beyond the list reuse the colors.
var ClassColors = []color.RGBA{
	{R: 220, G: 30, B: 30, A: 255},
	{R: 240, G: 220, B: 40, A: 255},
	{R: 40, G: 160, B: 60, A: 255},
	{R: 40, G: 60, B: 200, A: 255},
	{R: 150, G: 60, B: 180, A: 255},
}

// WriteImage saves a PNG of size x size filled with c, with a small variation given by seed so
// images of the same class differ.
func WriteImage(t testing.TB, path string, c color.RGBA, size, seed int) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px := c
			if (x+y+seed)%7 == 0 {
				px.R, px.G, px.B = px.R/2, px.G/2, px.B/2
			}
			img.SetRGBA(x, y, px)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// CreateDataset creates under root one subdirectory per class with the given number of PNG images,
// named "img000.png", "img001.png", etc. Classes are colored by their sorted index.
func CreateDataset(t testing.TB, root string, counts map[string]int, size int) {
	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for idx, class := range classes {
		dir := filepath.Join(root, class)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		c := ClassColors[idx%len(ClassColors)]
		for ii := 0; ii < counts[class]; ii++ {
			WriteImage(t, filepath.Join(dir, fmt.Sprintf("img%03d.png", ii)), c, size, ii)
		}
	}
}

// WriteCorrupted writes a file with an image extension that can't be decoded.
func WriteCorrupted(t testing.TB, path string) {
	require.NoError(t, os.WriteFile(path, []byte("this is not an image"), 0o644))
}
