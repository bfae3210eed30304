package mappers

import (
	"fmt"

	"github.com/mrsinham/measurelink/internal/measure"
	"github.com/mrsinham/measurelink/internal/services"
)

// MatchingCriterion constrains the reverse lookup from a normalized
// measurement back to a plausible tool. Points == 0 matches any point count.
type MatchingCriterion struct {
	ValueType measure.ValueType
	Points    int
}

// Mapping binds one tool name to its mapping functions and matching
// criteria.
type Mapping struct {
	ToolName         string
	MatchingCriteria []MatchingCriterion
	ToMeasurement    services.MapFunc
	ToAnnotation     func(*measure.Measurement) (*measure.RawAnnotation, error)
}

// Matches reports whether a measurement satisfies any of the mapping's
// criteria.
func (m Mapping) Matches(mm *measure.Measurement) bool {
	for _, c := range m.MatchingCriteria {
		if c.ValueType != mm.Type {
			continue
		}
		if c.Points == 0 || c.Points == len(mm.Points) {
			return true
		}
	}
	return false
}

// Build constructs the tool name to mapping table with every mapper bound to
// the given services. Building twice with the same services yields
// functionally identical tables; the tables are pure functions of the static
// tool list.
func Build(deps Deps) map[string]Mapping {
	table := map[string]Mapping{
		measure.ToolLength:                newLengthMapping(deps),
		measure.ToolBidirectional:         newBidirectionalMapping(deps),
		measure.ToolSegmentBidirectional:  newSegmentBidirectionalMapping(deps),
		measure.ToolEllipticalROI:         newEllipticalROIMapping(deps),
		measure.ToolCircleROI:             newCircleROIMapping(deps),
		measure.ToolRectangleROI:          newRectangleROIMapping(deps),
		measure.ToolAngle:                 newAngleMapping(deps),
		measure.ToolCobbAngle:             newCobbAngleMapping(deps),
		measure.ToolArrowAnnotate:         newArrowAnnotateMapping(deps),
		measure.ToolPlanarFreehandROI:     newPlanarFreehandROIMapping(deps),
		measure.ToolSplineROI:             newSplineROIMapping(deps),
		measure.ToolLivewireContour:       newLivewireContourMapping(deps),
		measure.ToolProbe:                 newProbeMapping(deps),
		measure.ToolUltrasoundDirectional: newUltrasoundDirectionalMapping(deps),
		measure.ToolUltrasoundPleuraBLine: newUltrasoundPleuraBLineMapping(deps),
	}

	// Crosshairs emit annotation events but have nothing to measure; the stub
	// keeps the event bridge from treating them as registry misses.
	table[measure.ToolCrosshairs] = Mapping{
		ToolName:         measure.ToolCrosshairs,
		MatchingCriteria: nil,
		ToMeasurement: func(evt *measure.AnnotationEvent) (*measure.Measurement, error) {
			deps.logger().Warn("crosshairs mapping not implemented")
			return nil, fmt.Errorf("%w: %s", ErrMappingNotImplemented, measure.ToolCrosshairs)
		},
		ToAnnotation: func(mm *measure.Measurement) (*measure.RawAnnotation, error) {
			deps.logger().Warn("crosshairs mapping not implemented")
			return nil, fmt.Errorf("%w: %s", ErrMappingNotImplemented, measure.ToolCrosshairs)
		},
	}

	return table
}

// MappingToolNames lists tool names with a real (non-stub) mapping, the
// filter the hydrator applies to structured-report findings.
func MappingToolNames(table map[string]Mapping) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		if name == measure.ToolCrosshairs {
			continue
		}
		names = append(names, name)
	}
	return names
}

// MatchTool reverse-maps a normalized measurement to the first plausible tool
// in the table, used when importing findings whose tool identity is
// ambiguous.
func MatchTool(table map[string]Mapping, mm *measure.Measurement) (Mapping, bool) {
	for _, name := range measure.AllTools() {
		mapping, ok := table[name]
		if !ok {
			continue
		}
		if mapping.Matches(mm) {
			return mapping, true
		}
	}
	return Mapping{}, false
}

// toAnnotationFromPoints is the shared inverse mapping: it rebuilds a minimal
// raw annotation from a measurement's identity and geometry. Tool-specific
// stats are not reconstructed.
func toAnnotationFromPoints(toolName string) func(*measure.Measurement) (*measure.RawAnnotation, error) {
	return func(mm *measure.Measurement) (*measure.RawAnnotation, error) {
		if mm == nil {
			return nil, ErrMissingData
		}
		return &measure.RawAnnotation{
			AnnotationUID: mm.UID,
			Metadata: measure.AnnotationMetadata{
				ToolName:            toolName,
				ReferencedImageID:   mm.ReferencedImageID,
				FrameOfReferenceUID: mm.FrameOfReferenceUID,
			},
			Data: &measure.AnnotationData{
				Handles:     measure.Handles{Points: mm.Points, TextBox: mm.TextBox},
				CachedStats: mm.Data,
				Label:       mm.Label,
				FrameNumber: mm.FrameNumber,
			},
		}, nil
	}
}
