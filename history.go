// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import "math"

// Names of the metrics recorded in the History.
const (
	MetricAccuracy    = "accuracy"
	MetricLoss        = "loss"
	MetricValAccuracy = "val_accuracy"
	MetricValLoss     = "val_loss"
)

// HistoryMetrics lists the metrics recorded per epoch, in display order.
var HistoryMetrics = []string{MetricAccuracy, MetricLoss, MetricValAccuracy, MetricValLoss}

// History of training: one value per epoch for each metric. Epochs are numbered from 1.
type History struct {
	Epochs  []int
	Metrics map[string][]float64
}

// NewHistory returns an empty History.
func NewHistory() *History {
	h := &History{Metrics: make(map[string][]float64)}
	for _, name := range HistoryMetrics {
		h.Metrics[name] = nil
	}
	return h
}

// Append the values of one epoch. Metrics missing from values are recorded as NaN, so all series
// keep the same length.
func (h *History) Append(epoch int, values map[string]float64) {
	h.Epochs = append(h.Epochs, epoch)
	for _, name := range HistoryMetrics {
		v, found := values[name]
		if !found {
			v = math.NaN()
		}
		h.Metrics[name] = append(h.Metrics[name], v)
	}
}

// Len returns the number of epochs recorded.
func (h *History) Len() int { return len(h.Epochs) }

// Last value of the metric, or NaN if there is none.
func (h *History) Last(metric string) float64 {
	values := h.Metrics[metric]
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// Best returns the epoch with the highest value of the metric, ignoring NaNs. It returns 0 if there is none.
func (h *History) Best(metric string) (epoch int, value float64) {
	value = math.Inf(-1)
	for ii, v := range h.Metrics[metric] {
		if !math.IsNaN(v) && v > value {
			epoch, value = h.Epochs[ii], v
		}
	}
	if epoch == 0 {
		value = math.NaN()
	}
	return
}
