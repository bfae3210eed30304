package mappers

import (
	"github.com/mrsinham/measurelink/internal/measure"
)

// Angle tools always report degrees regardless of any unit carried by the
// annotation, and skip the display line entirely when the angle is absent.

// newAngleMapping maps three-point angle annotations.
func newAngleMapping(deps Deps) Mapping {
	return angleMapping(deps, measure.ToolAngle,
		[]MatchingCriterion{{ValueType: measure.ValueTypeAngle, Points: 3}})
}

// newCobbAngleMapping maps Cobb angle annotations (two line segments).
func newCobbAngleMapping(deps Deps) Mapping {
	return angleMapping(deps, measure.ToolCobbAngle,
		[]MatchingCriterion{{ValueType: measure.ValueTypeAngle, Points: 4}})
}

func angleMapping(deps Deps, toolName string, criteria []MatchingCriterion) Mapping {
	return Mapping{
		ToolName:         toolName,
		MatchingCriteria: criteria,
		ToAnnotation:     toAnnotationFromPoints(toolName),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, false, toolName)
			if err != nil {
				return nil, err
			}

			unitFor := func(measure.Stats, string) string { return measure.DegreeUnit }
			targets := deps.targetsFromStats(ann, unitFor)
			if len(targets) == 0 {
				targets = deps.singleTarget(ann, ref, firstStats(ann), unitFor)
			}

			m := deps.base(ann, ref, vt)
			m.Points = ann.Data.Handles.Points
			m.DisplayText = angleDisplayText(targets)
			m.GetReport = func() measure.Report {
				return *angleReport(toolName, targets, m.Points, m.FrameOfReferenceUID)
			}
			return m, nil
		},
	}
}

func angleDisplayText(targets []measure.MappedAnnotation) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		if t.Stats.Angle == nil {
			continue
		}
		dt.Primary = append(dt.Primary, measure.FormatValueUnit(*t.Stats.Angle, measure.DegreeUnit))
	}
	dt.Secondary = secondaryText(targets)
	return dt
}

func angleReport(toolName string, targets []measure.MappedAnnotation, points []measure.Point, frameOfReferenceUID string) *measure.Report {
	r := measure.NewReport(toolName)
	for _, t := range targets {
		if t.Stats.Angle == nil {
			continue
		}
		r.Add("Angle", *t.Stats.Angle)
		r.Add("Unit", measure.DegreeUnit)
	}
	r.AddFrameOfReference(frameOfReferenceUID)
	r.AddPoints(points)
	return r
}
