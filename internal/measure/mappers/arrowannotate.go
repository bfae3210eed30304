package mappers

import (
	"github.com/mrsinham/measurelink/internal/measure"
)

// newArrowAnnotateMapping maps text arrow annotations. Arrows carry no
// statistics; the annotation text is the measurement's display value.
func newArrowAnnotateMapping(deps Deps) Mapping {
	return Mapping{
		ToolName:         measure.ToolArrowAnnotate,
		MatchingCriteria: []MatchingCriterion{{ValueType: measure.ValueTypePoint, Points: 1}},
		ToAnnotation:     toAnnotationFromPoints(measure.ToolArrowAnnotate),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, false, measure.ToolArrowAnnotate)
			if err != nil {
				return nil, err
			}

			unitFor := func(measure.Stats, string) string { return "" }
			targets := deps.singleTarget(ann, ref, firstStats(ann), unitFor)

			text := ann.Data.Text
			if text == "" {
				text = ann.Data.Label
			}

			m := deps.base(ann, ref, vt)
			if len(ann.Data.Handles.Points) > 0 {
				// The arrow head is the measured point; the tail handle only
				// orients the arrow.
				m.Points = ann.Data.Handles.Points[:1]
			}
			m.Label = text
			dt := measure.DisplayText{Secondary: secondaryText(targets)}
			if text != "" {
				dt.Primary = append(dt.Primary, text)
			}
			m.DisplayText = dt
			m.GetReport = func() measure.Report {
				r := measure.NewReport(measure.ToolArrowAnnotate)
				if text != "" {
					r.Add("Text", text)
				}
				r.AddFrameOfReference(m.FrameOfReferenceUID)
				r.AddPoints(m.Points)
				return *r
			}
			return m, nil
		},
	}
}
