package mappers

import (
	"github.com/mrsinham/measurelink/internal/measure"
)

// The ROI family (elliptical, circle, rectangle) shares its stats shape:
// mean/max/stdDev in a modality-derived unit plus an area. An absent area is
// displayed as 0 rather than skipped; that happens when handle placement
// outside the image is permitted and statistics could not be computed.

// newEllipticalROIMapping maps elliptical region annotations. Requires an
// acquisition-plane reference.
func newEllipticalROIMapping(deps Deps) Mapping {
	return roiMapping(deps, measure.ToolEllipticalROI,
		[]MatchingCriterion{{ValueType: measure.ValueTypeEllipse, Points: 4}}, true)
}

// newCircleROIMapping maps circular region annotations. Requires an
// acquisition-plane reference.
func newCircleROIMapping(deps Deps) Mapping {
	return roiMapping(deps, measure.ToolCircleROI,
		[]MatchingCriterion{{ValueType: measure.ValueTypeCircle, Points: 2}}, true)
}

// newRectangleROIMapping maps rectangular region annotations.
func newRectangleROIMapping(deps Deps) Mapping {
	return roiMapping(deps, measure.ToolRectangleROI,
		[]MatchingCriterion{{ValueType: measure.ValueTypeRectangle, Points: 4}}, true)
}

func roiMapping(deps Deps, toolName string, criteria []MatchingCriterion, requirePlane bool) Mapping {
	return Mapping{
		ToolName:         toolName,
		MatchingCriteria: criteria,
		ToAnnotation:     toAnnotationFromPoints(toolName),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, requirePlane, toolName)
			if err != nil {
				return nil, err
			}

			unitFor := func(s measure.Stats, modality string) string {
				return statUnit(s.Unit, measure.UnitForModality(modality))
			}
			targets := deps.targetsFromStats(ann, unitFor)
			if len(targets) == 0 {
				targets = deps.singleTarget(ann, ref, firstStats(ann), unitFor)
			}

			m := deps.base(ann, ref, vt)
			m.Points = ann.Data.Handles.Points
			m.DisplayText = roiDisplayText(targets)
			m.GetReport = func() measure.Report {
				return *roiReport(toolName, targets, m.Points, m.FrameOfReferenceUID)
			}
			return m, nil
		},
	}
}

// roiDisplayText renders the area headline (with 0 substituted for an absent
// area) followed by mean and max when present.
func roiDisplayText(targets []measure.MappedAnnotation) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		areaUnit := statUnit(t.Stats.AreaUnit, "mm²")
		dt.Primary = append(dt.Primary, "Area: "+measure.FormatValueUnit(orZero(t.Stats.Area), areaUnit))
		if t.Stats.Mean != nil {
			dt.Primary = append(dt.Primary, "Mean: "+measure.FormatValueUnit(*t.Stats.Mean, t.Unit))
		}
		if t.Stats.Max != nil {
			dt.Primary = append(dt.Primary, "Max: "+measure.FormatValueUnit(*t.Stats.Max, t.Unit))
		}
	}
	dt.Secondary = secondaryText(targets)
	return dt
}

// roiReport appends stat columns only for targets carrying the complete ROI
// stat set; incomplete targets are skipped silently.
func roiReport(toolName string, targets []measure.MappedAnnotation, points []measure.Point, frameOfReferenceUID string) *measure.Report {
	r := measure.NewReport(toolName)
	for _, t := range targets {
		if !roiStatsComplete(t.Stats) {
			continue
		}
		r.Add("Mean", *t.Stats.Mean)
		r.Add("Max", *t.Stats.Max)
		if t.Stats.StdDev != nil {
			r.Add("StdDev", *t.Stats.StdDev)
		}
		r.Add("Unit", t.Unit)
		r.Add("Area", *t.Stats.Area)
		if t.Stats.Radius != nil {
			r.Add("Radius", *t.Stats.Radius)
		}
	}
	r.AddFrameOfReference(frameOfReferenceUID)
	r.AddPoints(points)
	return r
}
