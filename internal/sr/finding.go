// Package sr parses stored structured-report findings and hydrates them back
// into raw annotations and normalized measurements.
package sr

import (
	"strings"

	"github.com/mrsinham/measurelink/internal/measure"
)

// TrackingTag is the tracking-identifier prefix written by the current
// annotation source.
const TrackingTag = "Cornerstone3DTools@^0.1.0"

// legacyTrackingTags are older identifier prefixes still accepted on import;
// they are upgraded to TrackingTag during parsing.
var legacyTrackingTags = []string{"cornerstoneTools@^4.0.0"}

// Finding is one stored measurement group recovered from a structured
// report.
type Finding struct {
	TrackingIdentifier string
	ToolName           string

	SOPInstanceUID string
	FrameNumber    int

	Label       string
	GraphicType string
	Points      []measure.Point

	// Values and Units key numeric content by concept name ("Length",
	// "Area", ...).
	Values map[string]float64
	Units  map[string]string

	FindingCode  *measure.Code
	FindingSites []measure.Code
}

// normalizeTrackingIdentifier upgrades legacy tracking tags and splits off
// the tool name. Identifiers without a recognizable "tag:Tool" shape return
// ok == false.
func normalizeTrackingIdentifier(identifier string) (normalized, toolName string, ok bool) {
	idx := strings.LastIndex(identifier, ":")
	if idx <= 0 || idx == len(identifier)-1 {
		return "", "", false
	}
	tagPart, toolPart := identifier[:idx], identifier[idx+1:]
	for _, legacy := range legacyTrackingTags {
		if tagPart == legacy {
			tagPart = TrackingTag
			break
		}
	}
	return tagPart + ":" + toolPart, toolPart, true
}

// stats converts the finding's numeric content into the cached-stats shape
// the tool mappers consume.
func (f *Finding) stats() measure.Stats {
	var s measure.Stats
	assign := func(names []string, dst **float64) {
		for _, name := range names {
			if v, ok := f.Values[name]; ok {
				value := v
				*dst = &value
				return
			}
		}
	}
	assign([]string{"Length", "Long Axis"}, &s.Length)
	assign([]string{"Width", "Short Axis"}, &s.Width)
	assign([]string{"Area"}, &s.Area)
	assign([]string{"Mean"}, &s.Mean)
	assign([]string{"Maximum", "Max"}, &s.Max)
	assign([]string{"Standard Deviation", "StdDev"}, &s.StdDev)
	assign([]string{"Angle"}, &s.Angle)
	assign([]string{"Radius"}, &s.Radius)
	assign([]string{"Value"}, &s.Value)

	for _, name := range []string{"Length", "Long Axis", "Value", "Mean"} {
		if unit, ok := f.Units[name]; ok && unit != "" {
			s.Unit = unit
			break
		}
	}
	if unit, ok := f.Units["Area"]; ok {
		s.AreaUnit = unit
	}
	return s
}
