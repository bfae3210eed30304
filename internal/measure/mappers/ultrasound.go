package mappers

import (
	"fmt"

	"github.com/mrsinham/measurelink/internal/measure"
)

// Ultrasound tools measure along two calibrated axes and carry a unit per
// axis. Both require an acquisition-plane reference.

// newUltrasoundDirectionalMapping maps directional ultrasound annotations.
func newUltrasoundDirectionalMapping(deps Deps) Mapping {
	return Mapping{
		ToolName:         measure.ToolUltrasoundDirectional,
		MatchingCriteria: []MatchingCriterion{{ValueType: measure.ValueTypePolyline, Points: 2}},
		ToAnnotation:     toAnnotationFromPoints(measure.ToolUltrasoundDirectional),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, true, measure.ToolUltrasoundDirectional)
			if err != nil {
				return nil, err
			}

			unitFor := func(s measure.Stats, _ string) string {
				if len(s.Units) > 0 {
					return s.Units[0]
				}
				return ""
			}
			targets := deps.targetsFromStats(ann, unitFor)
			if len(targets) == 0 {
				targets = deps.singleTarget(ann, ref, firstStats(ann), unitFor)
			}

			m := deps.base(ann, ref, vt)
			m.Points = ann.Data.Handles.Points
			m.DisplayText = usDirectionalDisplayText(targets)
			m.GetReport = func() measure.Report {
				return *usDirectionalReport(targets, m.Points, m.FrameOfReferenceUID)
			}
			return m, nil
		},
	}
}

// usDirectionalDisplayText renders one line per calibrated axis. An
// annotation with no axis values produces no primary lines.
func usDirectionalDisplayText(targets []measure.MappedAnnotation) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		dt.Primary = append(dt.Primary, usAxisLines(t.Stats)...)
	}
	dt.Secondary = secondaryText(targets)
	return dt
}

func usAxisLines(s measure.Stats) []string {
	axisUnit := func(i int) string {
		if i < len(s.Units) {
			return s.Units[i]
		}
		return ""
	}
	var lines []string
	if len(s.XValues) > 0 {
		lines = append(lines, "X: "+measure.FormatValueUnit(s.XValues[0], axisUnit(0)))
	}
	if len(s.YValues) > 0 {
		lines = append(lines, "Y: "+measure.FormatValueUnit(s.YValues[0], axisUnit(1)))
	}
	return lines
}

func usDirectionalReport(targets []measure.MappedAnnotation, points []measure.Point, frameOfReferenceUID string) *measure.Report {
	r := measure.NewReport(measure.ToolUltrasoundDirectional)
	for _, t := range targets {
		if len(t.Stats.XValues) == 0 || len(t.Stats.YValues) == 0 {
			continue
		}
		r.Add("XValue", t.Stats.XValues[0])
		r.Add("YValue", t.Stats.YValues[0])
		if len(t.Stats.Units) == 2 {
			r.Add("Units", fmt.Sprintf("%s/%s", t.Stats.Units[0], t.Stats.Units[1]))
		}
	}
	r.AddFrameOfReference(frameOfReferenceUID)
	r.AddPoints(points)
	return r
}

// newUltrasoundPleuraBLineMapping maps pleura/B-line ultrasound annotations.
// The headline value is the annotated line count for the target region.
func newUltrasoundPleuraBLineMapping(deps Deps) Mapping {
	return Mapping{
		ToolName:         measure.ToolUltrasoundPleuraBLine,
		MatchingCriteria: []MatchingCriterion{{ValueType: measure.ValueTypePolyline}},
		ToAnnotation:     toAnnotationFromPoints(measure.ToolUltrasoundPleuraBLine),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, true, measure.ToolUltrasoundPleuraBLine)
			if err != nil {
				return nil, err
			}

			unitFor := func(s measure.Stats, _ string) string { return s.Unit }
			targets := deps.singleTarget(ann, ref, firstStats(ann), unitFor)

			m := deps.base(ann, ref, vt)
			m.Points = contourPoints(ann)
			m.DisplayText = pleuraBLineDisplayText(ann, targets)
			m.GetReport = func() measure.Report {
				r := measure.NewReport(measure.ToolUltrasoundPleuraBLine)
				for _, t := range targets {
					if t.Stats.Value == nil {
						continue
					}
					r.Add("Value", *t.Stats.Value)
					if t.Unit != "" {
						r.Add("Unit", t.Unit)
					}
				}
				r.AddFrameOfReference(m.FrameOfReferenceUID)
				r.AddPoints(m.Points)
				return *r
			}
			return m, nil
		},
	}
}

func pleuraBLineDisplayText(ann *measure.RawAnnotation, targets []measure.MappedAnnotation) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		if t.Stats.Value != nil {
			dt.Primary = append(dt.Primary, measure.FormatValueUnit(*t.Stats.Value, t.Unit))
		}
	}
	if len(dt.Primary) == 0 && ann.Data.Label != "" {
		dt.Primary = append(dt.Primary, ann.Data.Label)
	}
	dt.Secondary = secondaryText(targets)
	return dt
}
