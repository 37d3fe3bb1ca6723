// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	h := NewHistory()
	assert.Equal(t, 0, h.Len())
	assert.True(t, math.IsNaN(h.Last(MetricAccuracy)))
	epoch, _ := h.Best(MetricValAccuracy)
	assert.Equal(t, 0, epoch)

	h.Append(1, map[string]float64{MetricAccuracy: 0.5, MetricLoss: 1.2, MetricValAccuracy: 0.4, MetricValLoss: 1.3})
	h.Append(2, map[string]float64{MetricAccuracy: 0.7, MetricLoss: 0.8, MetricValAccuracy: 0.6, MetricValLoss: 1.0})
	h.Append(3, map[string]float64{MetricAccuracy: 0.8, MetricLoss: 0.6})
	assert.Equal(t, 3, h.Len())
	for _, metric := range HistoryMetrics {
		assert.Len(t, h.Metrics[metric], 3, "metric %q", metric)
	}
	assert.Equal(t, 0.8, h.Last(MetricAccuracy))
	assert.True(t, math.IsNaN(h.Last(MetricValAccuracy)))

	epoch, best := h.Best(MetricValAccuracy)
	assert.Equal(t, 2, epoch)
	assert.Equal(t, 0.6, best)
}
