package measure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Round2 rounds a statistic to two decimal places for display. Report values
// are never rounded; only display text is.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatNumber renders a float without trailing zeros, the way display text
// and report points are expected to read ("13", "10.46").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatValueUnit renders "value unit" with the value rounded to two decimal
// places, collapsing the trailing space when the unit is empty.
func FormatValueUnit(v float64, unit string) string {
	s := FormatNumber(Round2(v))
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// SecondaryLine composes the "S: <series> I: <instance> F: <frame>" location
// line. The instance segment is omitted when no matching instance was found
// (instanceNumber == 0) and the frame segment is omitted for single-frame
// display sets.
func SecondaryLine(seriesNumber string, instanceNumber, frameNumber int, isMultiFrame bool) string {
	parts := make([]string, 0, 3)
	if seriesNumber != "" {
		parts = append(parts, fmt.Sprintf("S: %s", seriesNumber))
	}
	if instanceNumber != 0 {
		parts = append(parts, fmt.Sprintf("I: %d", instanceNumber))
	}
	if isMultiFrame && frameNumber > 0 {
		parts = append(parts, fmt.Sprintf("F: %d", frameNumber))
	}
	return strings.Join(parts, " ")
}
