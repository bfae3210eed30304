package mappers

import (
	"github.com/mrsinham/measurelink/internal/measure"
)

// newBidirectionalMapping maps long-axis/short-axis annotations.
// Bidirectional measurements require an acquisition-plane reference.
func newBidirectionalMapping(deps Deps) Mapping {
	return bidirectionalMapping(deps, measure.ToolBidirectional)
}

// newSegmentBidirectionalMapping maps bidirectional axes computed from a
// segmentation. Identical geometry handling, distinct tool identity.
func newSegmentBidirectionalMapping(deps Deps) Mapping {
	return bidirectionalMapping(deps, measure.ToolSegmentBidirectional)
}

func bidirectionalMapping(deps Deps, toolName string) Mapping {
	return Mapping{
		ToolName:         toolName,
		MatchingCriteria: []MatchingCriterion{{ValueType: measure.ValueTypeBidirectional, Points: 4}},
		ToAnnotation:     toAnnotationFromPoints(toolName),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, true, toolName)
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
			m.DisplayText = bidirectionalDisplayText(targets)
			m.GetReport = func() measure.Report {
				return *bidirectionalReport(toolName, targets, m.Points, m.FrameOfReferenceUID)
			}
			return m, nil
		},
	}
}

// bidirectionalDisplayText renders the long axis as "L:" and the short axis
// as "W:", one pair per target.
func bidirectionalDisplayText(targets []measure.MappedAnnotation) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		if t.Stats.Length != nil {
			dt.Primary = append(dt.Primary, "L: "+measure.FormatValueUnit(*t.Stats.Length, t.Unit))
		}
		if t.Stats.Width != nil {
			dt.Primary = append(dt.Primary, "W: "+measure.FormatValueUnit(*t.Stats.Width, t.Unit))
		}
	}
	dt.Secondary = secondaryText(targets)
	return dt
}

// bidirectionalReport appends raw, unrounded axis lengths; rounding is a
// display-text concern only.
func bidirectionalReport(toolName string, targets []measure.MappedAnnotation, points []measure.Point, frameOfReferenceUID string) *measure.Report {
	r := measure.NewReport(toolName)
	for _, t := range targets {
		if t.Stats.Length == nil || t.Stats.Width == nil {
			continue
		}
		r.Add("Length", *t.Stats.Length)
		r.Add("Width", *t.Stats.Width)
		r.Add("Unit", t.Unit)
	}
	r.AddFrameOfReference(frameOfReferenceUID)
	r.AddPoints(points)
	return r
}
