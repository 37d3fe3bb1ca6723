// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"slices"
	"strings"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/erkkah/margaid"
	"github.com/janpfeifer/gonb/gonbui"
	"github.com/pkg/errors"
)

// PlotWidth and PlotHeight of the SVG plots displayed in notebooks.
var PlotWidth, PlotHeight = 480, 360

// historySeries returns the margaid series of the metric, skipping NaNs, and its number of points.
func historySeries(h *foodclassifier.History, title, metric string, all *margaid.Series) (s *margaid.Series, count int) {
	s = margaid.NewSeries(margaid.Titled(title))
	for ii, v := range h.Metrics[metric] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		value := margaid.MakeValue(float64(h.Epochs[ii]), v)
		s.Add(value)
		all.Add(value)
		count++
	}
	return
}

// CurvesToSVG renders the train and validation series of one metric as an SVG plot.
func CurvesToSVG(h *foodclassifier.History, title, trainMetric, valMetric string) (string, error) {
	allPoints := margaid.NewSeries()
	var series []*margaid.Series
	for _, metric := range []struct{ title, name string }{{"Train", trainMetric}, {"Validation", valMetric}} {
		if s, count := historySeries(h, metric.title, metric.name, allPoints); count > 0 {
			series = append(series, s)
		}
	}
	if len(series) == 0 {
		return "", errors.Errorf("no values to plot for %q", title)
	}
	diagram := margaid.New(PlotWidth, PlotHeight,
		margaid.WithAutorange(margaid.XAxis, series...),
		margaid.WithProjection(margaid.XAxis, margaid.Lin),
		margaid.WithAutorange(margaid.YAxis, series...),
		margaid.WithProjection(margaid.YAxis, margaid.Lin),
		margaid.WithInset(70),
		margaid.WithPadding(2),
		margaid.WithColorScheme(90),
		margaid.WithBackgroundColor("#f8f8f8"),
	)
	for _, s := range series {
		diagram.Line(s, margaid.UsingAxes(margaid.XAxis, margaid.YAxis),
			margaid.UsingMarker("square"), margaid.UsingStrokeWidth(2))
	}
	diagram.Axis(allPoints, margaid.XAxis, diagram.ValueTicker('f', 0, 10), false, "Epoch")
	diagram.Axis(allPoints, margaid.YAxis, diagram.ValueTicker('f', 3, 10), true, title)
	diagram.Frame()
	diagram.Title(title)
	diagram.Legend(margaid.BottomLeft)
	buf := bytes.NewBuffer(nil)
	if err := diagram.Render(buf); err != nil {
		return "", errors.Wrapf(err, "failed to render plot for %q", title)
	}
	return buf.String(), nil
}

// DisplayTrainingCurves displays the accuracy and loss curves side by side in the notebook.
// It is a no-op if not running in a GoNB notebook.
func DisplayTrainingCurves(h *foodclassifier.History) error {
	if !gonbui.IsNotebook {
		return nil
	}
	accSVG, err := CurvesToSVG(h, "Model Accuracy", foodclassifier.MetricAccuracy, foodclassifier.MetricValAccuracy)
	if err != nil {
		return err
	}
	lossSVG, err := CurvesToSVG(h, "Model Loss", foodclassifier.MetricLoss, foodclassifier.MetricValLoss)
	if err != nil {
		return err
	}
	gonbui.DisplayHTML(fmt.Sprintf(`<div style="display:flex; gap:1em">%s%s</div>`, accSVG, lossSVG))
	return nil
}

// DisplayEvaluation displays the evaluation results in the notebook as HTML tables.
// It is a no-op if not running in a GoNB notebook.
func DisplayEvaluation(eval *foodclassifier.Evaluation) {
	if !gonbui.IsNotebook {
		return
	}
	gonbui.DisplayHTML(EvaluationToHTML(eval))
}

// EvaluationToHTML renders the scalar results, the confusion matrix and the classification report as HTML.
func EvaluationToHTML(eval *foodclassifier.Evaluation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p><b>%s accuracy:</b> %.2f%% &nbsp; <b>loss:</b> %.4f</p>\n",
		html.EscapeString(eval.Dataset), 100*eval.Accuracy, eval.Loss)

	sb.WriteString("<table><tr><th>True \\ Predicted</th>")
	for _, name := range eval.ClassNames {
		fmt.Fprintf(&sb, "<th>%s</th>", html.EscapeString(name))
	}
	sb.WriteString("</tr>\n")
	for ii, row := range eval.Confusion {
		fmt.Fprintf(&sb, "<tr><th>%s</th>", html.EscapeString(eval.ClassNames[ii]))
		for _, count := range row {
			fmt.Fprintf(&sb, "<td>%d</td>", count)
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>\n")

	if eval.Report != nil {
		sb.WriteString("<table><tr><th>Class</th><th>Precision</th><th>Recall</th><th>F1</th><th>Support</th></tr>\n")
		rows := slices.Concat(eval.Report.Classes, []foodclassifier.ClassMetrics{eval.Report.MacroAvg, eval.Report.WeightedAvg})
		for _, m := range rows {
			fmt.Fprintf(&sb, "<tr><th>%s</th><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%d</td></tr>\n",
				html.EscapeString(m.Class), m.Precision, m.Recall, m.F1, m.Support)
		}
		sb.WriteString("</table>\n")
	}
	return sb.String()
}
