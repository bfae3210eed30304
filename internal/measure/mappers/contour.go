package mappers

import (
	"github.com/mrsinham/measurelink/internal/measure"
)

// Contour tools (planar freehand, spline, livewire) have a single implicit
// target. Closed contours report area in a modality-derived unit; open ones
// report the polyline length in millimeters.

// newPlanarFreehandROIMapping maps freehand contour annotations.
func newPlanarFreehandROIMapping(deps Deps) Mapping {
	return contourMapping(deps, measure.ToolPlanarFreehandROI, false)
}

// newSplineROIMapping maps spline contour annotations. Requires an
// acquisition-plane reference.
func newSplineROIMapping(deps Deps) Mapping {
	return contourMapping(deps, measure.ToolSplineROI, true)
}

// newLivewireContourMapping maps livewire contour annotations.
func newLivewireContourMapping(deps Deps) Mapping {
	return contourMapping(deps, measure.ToolLivewireContour, false)
}

func contourMapping(deps Deps, toolName string, requirePlane bool) Mapping {
	return Mapping{
		ToolName:         toolName,
		MatchingCriteria: []MatchingCriterion{{ValueType: measure.ValueTypePolyline}},
		ToAnnotation:     toAnnotationFromPoints(toolName),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, requirePlane, toolName)
			if err != nil {
				return nil, err
			}

			unitFor := func(s measure.Stats, modality string) string {
				return statUnit(s.Unit, measure.UnitForModality(modality))
			}
			targets := deps.singleTarget(ann, ref, firstStats(ann), unitFor)

			closed := ann.Data.Contour != nil && ann.Data.Contour.ClosedContour

			m := deps.base(ann, ref, vt)
			m.Points = contourPoints(ann)
			m.DisplayText = contourDisplayText(targets, closed)
			m.GetReport = func() measure.Report {
				return *contourReport(toolName, targets, closed, m.Points, m.FrameOfReferenceUID)
			}
			return m, nil
		},
	}
}

func contourDisplayText(targets []measure.MappedAnnotation, closed bool) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		if closed {
			areaUnit := statUnit(t.Stats.AreaUnit, "mm²")
			dt.Primary = append(dt.Primary, "Area: "+measure.FormatValueUnit(orZero(t.Stats.Area), areaUnit))
			if t.Stats.Mean != nil {
				dt.Primary = append(dt.Primary, "Mean: "+measure.FormatValueUnit(*t.Stats.Mean, t.Unit))
			}
			continue
		}
		if t.Stats.Length != nil {
			dt.Primary = append(dt.Primary, measure.FormatValueUnit(*t.Stats.Length, statUnit(t.Unit, measure.DefaultLengthUnit)))
		}
	}
	dt.Secondary = secondaryText(targets)
	return dt
}

func contourReport(toolName string, targets []measure.MappedAnnotation, closed bool, points []measure.Point, frameOfReferenceUID string) *measure.Report {
	r := measure.NewReport(toolName)
	for _, t := range targets {
		switch {
		case closed && roiStatsComplete(t.Stats):
			r.Add("Mean", *t.Stats.Mean)
			r.Add("Max", *t.Stats.Max)
			r.Add("Unit", t.Unit)
			r.Add("Area", *t.Stats.Area)
		case !closed && t.Stats.Length != nil:
			r.Add("Length", *t.Stats.Length)
			r.Add("Unit", statUnit(t.Unit, measure.DefaultLengthUnit))
		}
	}
	r.AddFrameOfReference(frameOfReferenceUID)
	r.AddPoints(points)
	return r
}
