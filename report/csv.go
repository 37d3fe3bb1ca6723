// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package report

import (
	"os"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

// EpochColumn is the name of the epoch column in the history CSV file.
const EpochColumn = "epoch"

// HistoryDataFrame converts the history to a dataframe with one row per epoch.
func HistoryDataFrame(h *foodclassifier.History) dataframe.DataFrame {
	columns := []series.Series{series.New(h.Epochs, series.Int, EpochColumn)}
	for _, metric := range foodclassifier.HistoryMetrics {
		columns = append(columns, series.New(h.Metrics[metric], series.Float, metric))
	}
	return dataframe.New(columns...)
}

// WriteHistoryCSV saves the history as a CSV file with the columns epoch, accuracy, loss,
// val_accuracy and val_loss.
func WriteHistoryCSV(h *foodclassifier.History, path string) error {
	df := HistoryDataFrame(h)
	if df.Err != nil {
		return errors.Wrap(df.Err, "failed to convert history")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	if err = df.WriteCSV(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %q", path)
	}
	return errors.Wrapf(f.Close(), "failed to close %q", path)
}

// ReadHistoryCSV reads a history saved by WriteHistoryCSV. Metrics not in the file are ignored.
func ReadHistoryCSV(path string) (*foodclassifier.History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer func() { _ = f.Close() }()
	df := dataframe.ReadCSV(f, dataframe.WithTypes(map[string]series.Type{EpochColumn: series.Int}))
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "failed to parse %q", path)
	}
	epochs, err := df.Col(EpochColumn).Int()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %q column in %q", EpochColumn, path)
	}
	names := make(map[string]bool)
	for _, name := range df.Names() {
		names[name] = true
	}
	h := foodclassifier.NewHistory()
	for row, epoch := range epochs {
		values := make(map[string]float64)
		for _, metric := range foodclassifier.HistoryMetrics {
			if names[metric] {
				values[metric] = df.Col(metric).Elem(row).Float()
			}
		}
		h.Append(epoch, values)
	}
	return h, nil
}
