package mappers

import (
	"github.com/mrsinham/measurelink/internal/measure"
)

// newLengthMapping maps straight-line length annotations. Length works on
// both image and volume references; volume annotations fall back to a
// series-level display set lookup.
func newLengthMapping(deps Deps) Mapping {
	return Mapping{
		ToolName:         measure.ToolLength,
		MatchingCriteria: []MatchingCriterion{{ValueType: measure.ValueTypePolyline, Points: 2}},
		ToAnnotation:     toAnnotationFromPoints(measure.ToolLength),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, false, measure.ToolLength)
			if err != nil {
				return nil, err
			}

			unitFor := func(s measure.Stats, _ string) string {
				return statUnit(s.Unit, measure.DefaultLengthUnit)
			}
			targets := deps.targetsFromStats(ann, unitFor)
			if len(targets) == 0 {
				targets = deps.singleTarget(ann, ref, firstStats(ann), unitFor)
			}

			m := deps.base(ann, ref, vt)
			m.Points = ann.Data.Handles.Points
			m.DisplayText = lengthDisplayText(targets)
			m.GetReport = func() measure.Report {
				return *lengthReport(targets, m.Points, m.FrameOfReferenceUID)
			}
			return m, nil
		},
	}
}

// lengthDisplayText composes one primary line per target carrying a length.
// Targets without a length produce no line at all rather than "undefined".
func lengthDisplayText(targets []measure.MappedAnnotation) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		if t.Stats.Length == nil {
			continue
		}
		dt.Primary = append(dt.Primary, measure.FormatValueUnit(*t.Stats.Length, t.Unit))
	}
	dt.Secondary = secondaryText(targets)
	return dt
}

func lengthReport(targets []measure.MappedAnnotation, points []measure.Point, frameOfReferenceUID string) *measure.Report {
	r := measure.NewReport(measure.ToolLength)
	for _, t := range targets {
		if t.Stats.Length == nil {
			continue
		}
		r.Add("Length", *t.Stats.Length)
		r.Add("Unit", t.Unit)
	}
	r.AddFrameOfReference(frameOfReferenceUID)
	r.AddPoints(points)
	return r
}
