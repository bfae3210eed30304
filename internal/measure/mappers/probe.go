package mappers

import (
	"github.com/mrsinham/measurelink/internal/measure"
)

// newProbeMapping maps single-point probe annotations reporting the pixel
// value under the probe in the modality's unit.
func newProbeMapping(deps Deps) Mapping {
	return Mapping{
		ToolName:         measure.ToolProbe,
		MatchingCriteria: []MatchingCriterion{{ValueType: measure.ValueTypePoint, Points: 1}},
		ToAnnotation:     toAnnotationFromPoints(measure.ToolProbe),
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			ann, vt, ref, err := deps.prologue(evt, false, measure.ToolProbe)
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
			m.DisplayText = probeDisplayText(targets)
			m.GetReport = func() measure.Report {
				r := measure.NewReport(measure.ToolProbe)
				for _, t := range targets {
					if t.Stats.Value == nil {
						continue
					}
					r.Add("Value", *t.Stats.Value)
					r.Add("Unit", t.Unit)
				}
				r.AddFrameOfReference(m.FrameOfReferenceUID)
				r.AddPoints(m.Points)
				return *r
			}
			return m, nil
		},
	}
}

// probeDisplayText skips targets without a sampled value rather than
// rendering a placeholder.
func probeDisplayText(targets []measure.MappedAnnotation) measure.DisplayText {
	var dt measure.DisplayText
	for _, t := range targets {
		if t.Stats.Value == nil {
			continue
		}
		dt.Primary = append(dt.Primary, measure.FormatValueUnit(*t.Stats.Value, t.Unit))
	}
	dt.Secondary = secondaryText(targets)
	return dt
}
