package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/measurelink/internal/measure"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))
)

// renderMeasurements formats the measurement list as a terminal block.
func renderMeasurements(measurements []*measure.Measurement) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Measurements (%d)", len(measurements))))
	b.WriteString("\n")

	for i, mm := range measurements {
		label := mm.Label
		if label == "" {
			label = string(mm.Type)
		}
		line := fmt.Sprintf("%2d. %s", i+1, labelStyle.Render(label))
		if mm.IsLocked {
			line += " " + lockedStyle.Render("[locked]")
		}
		b.WriteString(line)
		b.WriteString("\n")
		for _, primary := range mm.DisplayText.Primary {
			b.WriteString("    " + valueStyle.Render(primary) + "\n")
		}
		for _, secondary := range mm.DisplayText.Secondary {
			b.WriteString("    " + secondaryStyle.Render(secondary) + "\n")
		}
	}
	return b.String()
}

// renderReport formats the column/value report of one measurement.
func renderReport(mm *measure.Measurement) string {
	if mm.GetReport == nil {
		return ""
	}
	report := mm.GetReport()
	var b strings.Builder
	for i, col := range report.Columns {
		if i >= len(report.Values) {
			break
		}
		b.WriteString(fmt.Sprintf("  %s: %v\n", labelStyle.Render(col), report.Values[i]))
	}
	return b.String()
}
