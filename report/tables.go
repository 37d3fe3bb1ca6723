// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"strconv"

	foodclassifier "github.com/Dathkousalya/image-classification-for-food"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	highlightRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
				Bold(true).
				PaddingLeft(1).PaddingRight(1)
)

// highlightTable is a lipgloss table where some rows can be highlighted.
type highlightTable struct {
	table      *lgtable.Table
	count      int
	highlights map[int]bool
}

func (t *highlightTable) Row(highlight bool, row ...string) {
	if highlight {
		t.highlights[t.count] = true
	}
	t.table.Row(row...)
	t.count++
}

func (t *highlightTable) String() string { return t.table.String() }

// newTable creates a table with alternating faint rows. The alignment of the last given column
// is used for the remaining ones.
func newTable(headers []string, alignments ...lipgloss.Position) *highlightTable {
	t := &highlightTable{highlights: make(map[int]bool)}
	t.table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers(headers...).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			switch {
			case t.highlights[row]:
				s = highlightRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
	return t
}

// InventoryTable lists the number of images per class, highlighting empty classes.
func InventoryTable(counts []foodclassifier.ClassCount) string {
	t := newTable([]string{"Class", "Images"}, lipgloss.Left, lipgloss.Right)
	total := 0
	for _, c := range counts {
		t.Row(c.Count == 0, c.Class, humanize.Comma(int64(c.Count)))
		total += c.Count
	}
	t.Row(false, "Total", humanize.Comma(int64(total)))
	return t.String()
}

// ConfusionMatrixTable renders the confusion matrix: rows are true classes, columns predicted classes.
// Rows with any misclassification are highlighted.
func ConfusionMatrixTable(classNames []string, m foodclassifier.ConfusionMatrix) string {
	headers := append([]string{"True \\ Predicted"}, classNames...)
	t := newTable(headers, lipgloss.Left, lipgloss.Right)
	for ii, row := range m {
		name := strconv.Itoa(ii)
		if ii < len(classNames) {
			name = classNames[ii]
		}
		cells := []string{name}
		hasErrors := false
		for jj, count := range row {
			cells = append(cells, strconv.Itoa(count))
			if jj != ii && count > 0 {
				hasErrors = true
			}
		}
		t.Row(hasErrors, cells...)
	}
	return t.String()
}

// ClassificationReportTable renders per-class precision, recall, F1 and support, followed by the
// macro and weighted averages. Classes with F1 of 0 are highlighted.
func ClassificationReportTable(r *foodclassifier.ClassificationReport) string {
	t := newTable([]string{"Class", "Precision", "Recall", "F1-Score", "Support"}, lipgloss.Left, lipgloss.Right)
	row := func(highlight bool, m foodclassifier.ClassMetrics) {
		t.Row(highlight, m.Class,
			fmt.Sprintf("%.2f", m.Precision), fmt.Sprintf("%.2f", m.Recall), fmt.Sprintf("%.2f", m.F1),
			strconv.Itoa(m.Support))
	}
	for _, m := range r.Classes {
		row(m.F1 == 0, m)
	}
	t.Row(false, "accuracy", "", "", fmt.Sprintf("%.2f", r.Accuracy), strconv.Itoa(r.MacroAvg.Support))
	row(false, r.MacroAvg)
	row(false, r.WeightedAvg)
	return t.String()
}

// LayersTable renders the model stages with their output shape and number of parameters, followed by
// the totals. Trainable stages are highlighted.
func LayersTable(layers []foodclassifier.LayerSummary) string {
	t := newTable([]string{"Layer", "Output Shape", "Parameters", "Trainable"},
		lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Center)
	for _, l := range layers {
		t.Row(l.Trainable, l.Name, l.Shape.String(), humanize.Comma(int64(l.NumParameters)), strconv.FormatBool(l.Trainable))
	}
	total, trainable := foodclassifier.TotalParameters(layers)
	t.Row(false, "Total", "", humanize.Comma(int64(total)), "")
	t.Row(false, "Trainable", "", humanize.Comma(int64(trainable)), "")
	t.Row(false, "Non-trainable", "", humanize.Comma(int64(total-trainable)), "")
	return t.String()
}
